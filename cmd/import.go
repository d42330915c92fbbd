// =============================================================================
// LIMS Results Import - Import Command
// =============================================================================
//
// This file defines the 'import' command, the main command of the tool.
//
// COMMAND USAGE:
//   resultsimport import [flags]
//
// FLAGS:
//   --dry-run     : Parse and report without writing or archiving anything
//   --file        : Import a single export instead of the input directory
//   --instrument  : Force the instrument registry key for every file
//
// The import itself is run by the pipeline in pipeline.go.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun     bool
	inputFile  string
	instrument string
)

// importCmd represents the 'import' command.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import instrument exports into the LIMS",
	Long: `The import command scans the input directory for instrument exports,
matches each one to an instrument profile, parses it and writes the
hand-off documents for the LIMS.

On success:
  - One document per configured output format is written to the output directory
  - The export is moved to the input archive

On error:
  - Row errors are listed in an error log in the output directory
  - A file that cannot be parsed stays in the input directory
  - The other files are still imported`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Parse and report without writing or archiving anything")
	importCmd.Flags().StringVar(&inputFile, "file", "",
		"Import a single export file")
	importCmd.Flags().StringVar(&instrument, "instrument", "",
		"Instrument registry key to use for every file")
}

// =============================================================================
// IMPORT LOGIC
// =============================================================================

func runImport(ctx context.Context, out io.Writer) error {
	mainConfig, err := loadConfig()
	if err != nil {
		return err
	}

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load instrument profiles: %w", err)
	}

	p, err := newPipeline(mainConfig, profiles, instrument, dryRun, logger)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := p.fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	var inputs []string
	if inputFile != "" {
		if !utils.FileExists(inputFile) {
			return fmt.Errorf("file not found: %s", inputFile)
		}
		inputs = []string{inputFile}
	} else {
		inputs, err = p.fm.DiscoverInputFiles(p.patterns()...)
		if err != nil {
			return err
		}
	}

	if len(inputs) == 0 {
		fmt.Fprintf(out, "No exports found in %s\n", mainConfig.InputDir)
		return nil
	}

	if dryRun {
		fmt.Fprintln(out, "Dry run: nothing will be written or archived")
	}
	fmt.Fprintf(out, "Importing %d file(s)\n", len(inputs))
	logger.Info("import started", zap.Int("files", len(inputs)), zap.Bool("dry_run", dryRun))

	summary, err := p.run(ctx, inputs, out)

	fmt.Fprintf(out, "\n%d imported, %d failed: %d samples, %d results, %d errors, %d warnings\n",
		summary.SuccessfulFiles, summary.FailedFiles,
		summary.TotalSamples, summary.TotalResults, summary.TotalErrors, summary.TotalWarnings)

	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}
