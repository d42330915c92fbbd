// =============================================================================
// LIMS Results Import - Import Pipeline
// =============================================================================
//
// The pipeline imports a set of export files:
//   1. Match each file to an instrument profile
//   2. Build a fresh parser for the file from the instrument registry
//   3. Parse the file into results and diagnostics
//   4. Hand the batch to the importer sinks
//   5. Archive the export once every sink accepted it
//
// Files are processed concurrently, at most max_concurrency at a time. Each
// file gets its own parser. The importer is shared; its sinks write one file
// per batch.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/importer"
	"github.com/ginjaninja78/lims-results-import/internal/instruments"
	"github.com/ginjaninja78/lims-results-import/internal/types"
	"github.com/ginjaninja78/lims-results-import/internal/xlsxwriter"
	"github.com/ginjaninja78/lims-results-import/internal/xmlwriter"
	"github.com/ginjaninja78/lims-results-import/pkg/utils"
)

// Failure classes reported in the summary.
const (
	failProfile = "profile"
	failRead    = "read"
	failParse   = "parse"
	failHandOff = "hand-off"
)

// pipeline holds everything shared by the files of one run.
type pipeline struct {
	cfg        *config.MainConfig
	profiles   []*config.InstrumentProfile
	fm         *utils.FileManager
	importer   *importer.Importer
	instrument string
	dryRun     bool
	sinks      int
	logger     *zap.Logger
}

// fileResult is the outcome of importing one file.
type fileResult struct {
	path       string
	instrument string
	outcome    *types.Outcome
	result     importer.Result
	archived   string
	failType   string
	err        error
	elapsed    time.Duration
}

// newPipeline wires the importer and its sinks from the main config. A dry
// run gets no sinks and never archives.
func newPipeline(cfg *config.MainConfig, profiles []*config.InstrumentProfile, instrument string, dryRun bool, logger *zap.Logger) (*pipeline, error) {
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.ArchiveOnSuccess = cfg.ShouldArchive() && !dryRun

	p := &pipeline{
		cfg:        cfg,
		profiles:   profiles,
		fm:         fm,
		instrument: instrument,
		dryRun:     dryRun,
		logger:     logger,
	}

	var sinks []importer.Sink
	if !dryRun {
		var err error
		sinks, err = buildSinks(cfg.OutputFormats, p.outputPath)
		if err != nil {
			return nil, err
		}
	}
	p.sinks = len(sinks)
	p.importer = importer.New(importer.OptionsFromConfig(cfg.Import), logger, sinks...)

	return p, nil
}

// buildSinks returns one sink per configured output format.
func buildSinks(formats []string, path importer.PathFunc) ([]importer.Sink, error) {
	sinks := make([]importer.Sink, 0, len(formats))
	for _, format := range formats {
		switch format {
		case "xml":
			sinks = append(sinks, xmlwriter.NewSink(path, xmlwriter.DefaultGenerateOptions()))
		case "xlsx":
			sinks = append(sinks, xlsxwriter.NewSink(path))
		case "json":
			sinks = append(sinks, importer.NewJSONSink(path))
		default:
			return nil, fmt.Errorf("unknown output format %q", format)
		}
	}
	return sinks, nil
}

// outputPath names the hand-off files of a batch. All files of one batch
// share the batch id.
func (p *pipeline) outputPath(b *importer.Batch, ext string) string {
	name := utils.GenerateOutputFileName(p.cfg.OutputNameFormat, ext, map[string]string{
		"uuid":       b.ID,
		"instrument": b.Instrument.Key,
		"source":     utils.SourceName(b.Source),
	})
	return p.fm.OutputPath(name)
}

// patterns returns the file patterns of every profile.
func (p *pipeline) patterns() []string {
	var patterns []string
	for _, profile := range p.profiles {
		patterns = append(patterns, profile.FileMatchingPatterns...)
	}
	return patterns
}

// resolveProfile picks the profile for a file. The --instrument flag
// overrides the instrument of the matched profile, or of the default profile
// when none matches.
func (p *pipeline) resolveProfile(path string) (config.InstrumentProfile, error) {
	matched := config.MatchProfile(path, p.profiles)

	var profile config.InstrumentProfile
	switch {
	case matched != nil:
		profile = *matched
	case p.instrument != "":
		profile = config.DefaultProfile()
	default:
		return profile, fmt.Errorf("no instrument profile matches %s", filepath.Base(path))
	}

	if p.instrument != "" {
		profile.Instrument = p.instrument
	}
	return profile, nil
}

// parseFile parses one export with a parser built for it alone.
func (p *pipeline) parseFile(path string) (*importer.Batch, string, error) {
	profile, err := p.resolveProfile(path)
	if err != nil {
		return nil, failProfile, err
	}

	log := p.logger.With(zap.String("file", filepath.Base(path)), zap.String("profile", profile.Name))
	parser, def, err := instruments.NewParser(profile.Instrument, profile, log)
	if err != nil {
		return nil, failProfile, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, failRead, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	outcome, err := parser.Parse(f)
	if err != nil && !diagnostics.IsFatal(err) {
		return nil, failRead, err
	}

	return importer.NewBatch(path, def, outcome, err), "", nil
}

// importFile runs one file through parse, hand-off and archival.
func (p *pipeline) importFile(ctx context.Context, path string) (res fileResult) {
	start := time.Now()
	res.path = path
	defer func() { res.elapsed = time.Since(start) }()

	batch, failType, err := p.parseFile(path)
	if err != nil {
		res.failType, res.err = failType, err
		return res
	}
	res.instrument = batch.Instrument.Key
	res.outcome = batch.Outcome

	if batch.ParseErr == nil && !p.cfg.ShouldContinueOnError() && batch.Outcome.Report.HasErrors() {
		res.result.Report = batch.Outcome.Report
		res.failType = failParse
		res.err = fmt.Errorf("%d row errors, file not handed off", len(batch.Outcome.Report.Errors))
		return res
	}

	res.result, err = p.importer.Process(ctx, batch)
	if err != nil {
		res.failType, res.err = failParse, err
		return res
	}

	if len(res.result.Outputs) < p.sinks {
		res.failType = failHandOff
		res.err = fmt.Errorf("%d of %d hand-off documents written", len(res.result.Outputs), p.sinks)
		return res
	}

	if res.result.Records == 0 || !p.fm.ArchiveOnSuccess {
		return res
	}

	for _, out := range res.result.Outputs {
		if _, err := p.fm.ArchiveOutputFile(out); err != nil {
			p.logger.Warn("failed to archive output", zap.String("output", out), zap.Error(err))
		}
	}
	res.archived, err = p.fm.ArchiveInputFile(path)
	if err != nil {
		p.logger.Warn("failed to archive export", zap.String("file", path), zap.Error(err))
		res.archived = ""
	}

	return res
}

// run imports inputs and prints a line per file to out.
func (p *pipeline) run(ctx context.Context, inputs []string, out io.Writer) (utils.ProcessingSummary, error) {
	summary := utils.ProcessingSummary{
		StartTime:  time.Now(),
		DryRun:     p.dryRun,
		TotalFiles: len(inputs),
	}

	results := make([]fileResult, len(inputs))

	limit := p.cfg.MaxConcurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range inputs {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.importFile(gctx, path)
			return nil
		})
	}
	waitErr := g.Wait()

	var logEntries []utils.ErrorLogEntry
	for _, r := range results {
		if r.path == "" {
			// Never started: the group was cancelled first.
			continue
		}

		name := filepath.Base(r.path)
		if r.outcome != nil {
			logEntries = append(logEntries, utils.ErrorLogEntries(name, &r.result.Report, true)...)
		}

		if r.err != nil {
			summary.Fail(utils.FailedFileInfo{
				InputFile:    r.path,
				ErrorMessage: r.err.Error(),
				ErrorType:    r.failType,
			})
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, r.err)
			p.logger.Error("import failed", zap.String("file", name), zap.String("type", r.failType), zap.Error(r.err))
			continue
		}

		summary.Add(utils.ProcessedFileInfo{
			InputFile:   r.path,
			Instrument:  r.instrument,
			Outputs:     r.result.Outputs,
			ArchivePath: r.archived,
			Lines:       r.outcome.Lines,
			Samples:     r.result.Samples,
			Results:     r.result.Records,
			Errors:      len(r.result.Report.Errors),
			Warnings:    len(r.result.Report.Warnings),
			ProcessTime: r.elapsed,
		})
		fmt.Fprintf(out, "  ✓ %s: %d samples, %d results, %d errors, %d warnings\n",
			name, r.result.Samples, r.result.Records, len(r.result.Report.Errors), len(r.result.Report.Warnings))
		p.logger.Info("imported",
			zap.String("file", name),
			zap.String("instrument", r.instrument),
			zap.Int("samples", r.result.Samples),
			zap.Int("results", r.result.Records),
			zap.Strings("outputs", r.result.Outputs),
		)
	}
	summary.EndTime = time.Now()

	if !p.dryRun {
		if path, err := utils.WriteErrorLog(logEntries, p.cfg.OutputDir); err != nil {
			p.logger.Warn("failed to write error log", zap.Error(err))
		} else if path != "" {
			fmt.Fprintf(out, "Diagnostics logged to %s\n", path)
		}
		if _, err := utils.WriteSummaryLog(summary, p.cfg.OutputDir); err != nil {
			p.logger.Warn("failed to write summary", zap.Error(err))
		}
	}

	return summary, waitErr
}
