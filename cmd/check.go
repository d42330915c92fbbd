// =============================================================================
// LIMS Results Import - Check Command
// =============================================================================
//
// 'check' parses one export and prints the diagnostics payload the LIMS
// import view shows: {"errors": [...], "log": [...], "warns": [...]}.
// Nothing is written or archived.
//
// Without a config file the default instrument profile is used.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/pkg/utils"
)

var (
	checkInstrument string
	checkReadable   bool
)

// checkCmd represents the 'check' command.
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse one export and print its diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkInstrument, "instrument", "",
		"Instrument registry key to use")
	checkCmd.Flags().BoolVar(&checkReadable, "text", false,
		"Print a readable report instead of JSON")
}

func runCheck(ctx context.Context, path string, out io.Writer) error {
	if !utils.FileExists(path) {
		return fmt.Errorf("file not found: %s", path)
	}

	mainConfig := &config.MainConfig{}
	profiles := []*config.InstrumentProfile{}
	if utils.FileExists(cfgFile) {
		var err error
		if mainConfig, err = loadConfig(); err != nil {
			return err
		}
		if profiles, err = config.LoadProfiles(mainConfig.ProfilesDir); err != nil {
			return fmt.Errorf("failed to load instrument profiles: %w", err)
		}
	} else {
		def := config.DefaultProfile()
		profiles = append(profiles, &def)
	}

	p, err := newPipeline(mainConfig, profiles, checkInstrument, true, logger)
	if err != nil {
		return err
	}

	batch, _, err := p.parseFile(path)
	if err != nil {
		return err
	}

	res, procErr := p.importer.Process(ctx, batch)

	if checkReadable {
		fmt.Fprintln(out, diagnostics.Format(&res.Report))
	} else {
		payload, err := res.Report.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode diagnostics: %w", err)
		}
		fmt.Fprintln(out, string(payload))
	}

	if procErr != nil {
		return fmt.Errorf("%s rejected: %w", path, procErr)
	}
	return nil
}
