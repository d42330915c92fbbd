// =============================================================================
// LIMS Results Import - Watch Command
// =============================================================================
//
// 'watch' imports the exports already waiting in the input directory, then
// keeps importing every new export as soon as the instrument has finished
// writing it. Stop it with Ctrl-C.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/watcher"
)

var watchSettle time.Duration

// watchCmd represents the 'watch' command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import exports as they arrive in the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second,
		"How long an export must stay unchanged before it is imported")
}

func runWatch(ctx context.Context, out io.Writer) error {
	mainConfig, err := loadConfig()
	if err != nil {
		return err
	}

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load instrument profiles: %w", err)
	}

	p, err := newPipeline(mainConfig, profiles, "", false, logger)
	if err != nil {
		return err
	}
	if err := p.fm.EnsureDirectories(); err != nil {
		return err
	}

	// Called from the watch loop, one batch at a time.
	importBatch := func(ctx context.Context, paths []string) {
		fmt.Fprintf(out, "Importing %d file(s)\n", len(paths))
		if _, err := p.run(ctx, paths, out); err != nil {
			logger.Warn("import interrupted", zap.Error(err))
		}
	}

	w, err := watcher.New(mainConfig.InputDir, p.patterns(), importBatch, logger,
		watcher.WithSettle(watchSettle))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", mainConfig.InputDir, err)
	}

	backlog, err := p.fm.DiscoverInputFiles(p.patterns()...)
	if err != nil {
		return err
	}
	if len(backlog) > 0 {
		importBatch(ctx, backlog)
	}

	fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", mainConfig.InputDir)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
