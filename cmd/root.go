// =============================================================================
// LIMS Results Import - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (resultsimport)
//   ├── importCmd      (resultsimport import)
//   ├── checkCmd       (resultsimport check <file>)
//   ├── watchCmd       (resultsimport watch)
//   ├── instrumentsCmd (resultsimport instruments)
//   └── versionCmd     (resultsimport version)
//
// The root command owns the global flags (--config, --verbose) and the zap
// logger shared by every subcommand.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/lims-results-import/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// logger is built in PersistentPreRunE.
var logger = zap.NewNop()

// logLevel lets the log_level config setting adjust the logger after it was
// built.
var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "resultsimport",
	Short: "LIMS Results Import - Load instrument result exports into the LIMS",
	Long: `LIMS Results Import reads the CSV exports written by laboratory
instruments, joins every quantitation result to the injection sequence it
belongs to, and hands the results to the LIMS as import batches.

Key Features:
  - Instrument interfaces selected per export through profiles
  - Row-level diagnostics: errors, warnings and log entries per file
  - XML, XLSX and JSON hand-off documents
  - Concurrent processing with automatic archival of imported exports

Example Usage:
  resultsimport import                    # Import every export in the input directory
  resultsimport import --dry-run          # Parse and report without writing anything
  resultsimport watch                     # Import new exports as they arrive
  resultsimport check run.csv             # Print the diagnostics payload of one export
  resultsimport instruments               # List the supported instruments`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}
		cfg.Level = logLevel

		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the running import.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the main config and applies its log level unless
// --verbose already forced debug output.
func loadConfig() (*config.MainConfig, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	if !verbose && mainConfig.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(mainConfig.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", mainConfig.LogLevel, err)
		}
		logLevel.SetLevel(lvl)
	}

	return mainConfig, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
