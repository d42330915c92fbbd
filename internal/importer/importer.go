// =============================================================================
// LIMS Results Import - Results Importer
// =============================================================================
//
// The importer is the boundary between parsing and the LIMS. It receives the
// outcome of one parse, refuses outcomes that ended in a fatal error, and
// hands every sample record to the configured sinks together with the
// resolved import options.
//
// Matching results to analysis requests, applying workflow transitions and
// persisting values happen on the LIMS side of the hand-off documents.
//
// =============================================================================

package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/instruments"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// ErrFatalOutcome is returned when a batch carries a fatal parse error.
var ErrFatalOutcome = errors.New("refusing to import a failed parse")

// =============================================================================
// BATCH
// =============================================================================

// Batch is one parsed export ready for hand-off.
type Batch struct {
	ID         string
	Source     string
	Instrument instruments.Definition
	Outcome    *types.Outcome
	ParseErr   error
	Settings   Settings
	CreatedAt  time.Time
}

// NewBatch wraps the result of one parse. parseErr is the error returned by
// the parser, if any.
func NewBatch(source string, def instruments.Definition, outcome *types.Outcome, parseErr error) *Batch {
	if outcome == nil {
		outcome = &types.Outcome{Results: types.Results{}}
	}
	return &Batch{
		ID:         uuid.New().String(),
		Source:     source,
		Instrument: def,
		Outcome:    outcome,
		ParseErr:   parseErr,
		CreatedAt:  time.Now().UTC(),
	}
}

// Records returns the number of (sample, compound) records in the batch.
func (b *Batch) Records() int {
	n := 0
	for _, sample := range b.Outcome.Results {
		n += len(sample)
	}
	return n
}

// =============================================================================
// SINKS
// =============================================================================

// Sink receives batches from the importer.
type Sink interface {
	// Name identifies the sink in diagnostics.
	Name() string

	// Write hands the batch off and returns where it went.
	Write(ctx context.Context, batch *Batch) (string, error)
}

// PathFunc returns the output path for a batch and a file extension.
type PathFunc func(batch *Batch, ext string) string

// =============================================================================
// IMPORTER
// =============================================================================

// Result is the outcome of one Process call.
type Result struct {
	Report  diagnostics.Report
	Outputs []string
	Samples int
	Records int
}

// Importer hands parsed batches to its sinks.
type Importer struct {
	settings Settings
	warnings []diagnostics.Entry
	sinks    []Sink
	logger   *zap.Logger
}

// New builds an importer. With no sinks the importer only reports, which is
// what dry runs use.
func New(opts Options, logger *zap.Logger, sinks ...Sink) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings, warnings := ParseOptions(opts)
	return &Importer{
		settings: settings,
		warnings: warnings,
		sinks:    sinks,
		logger:   logger,
	}
}

// Settings returns the resolved import options.
func (im *Importer) Settings() Settings {
	return im.settings
}

// Process hands batch to every sink.
//
// The returned report holds the parse diagnostics followed by the importer's
// own entries. Sink failures are reported as error entries and do not stop
// the remaining sinks. The error is non-nil only when the batch was refused
// or ctx was cancelled.
func (im *Importer) Process(ctx context.Context, batch *Batch) (Result, error) {
	var res Result
	res.Report.Merge(batch.Outcome.Report)
	res.Report.AddAll(im.warnings)

	if batch.ParseErr != nil {
		res.Report.Add(importEntry(diagnostics.SeverityError,
			fmt.Sprintf("Import aborted for %s: %v", batch.Source, batch.ParseErr)))
		return res, fmt.Errorf("%w: %w", ErrFatalOutcome, batch.ParseErr)
	}

	batch.Settings = im.settings
	res.Samples = len(batch.Outcome.Results)
	res.Records = batch.Records()

	if res.Records == 0 {
		res.Report.Add(importEntry(diagnostics.SeverityWarning,
			fmt.Sprintf("No results found in %s", batch.Source)))
		return res, nil
	}

	for _, id := range batch.Outcome.Results.SampleIDs() {
		sample := batch.Outcome.Results[id]
		res.Report.Add(importEntry(diagnostics.SeverityInfo,
			fmt.Sprintf("%s: %d results", id, len(sample))))
	}

	for _, sink := range im.sinks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		location, err := sink.Write(ctx, batch)
		if err != nil {
			im.logger.Error("sink failed",
				zap.String("sink", sink.Name()),
				zap.String("source", batch.Source),
				zap.Error(err),
			)
			res.Report.Add(importEntry(diagnostics.SeverityError,
				fmt.Sprintf("%s hand-off failed: %v", sink.Name(), err)))
			continue
		}

		res.Outputs = append(res.Outputs, location)
		res.Report.Add(importEntry(diagnostics.SeverityInfo,
			fmt.Sprintf("%s: %d samples, %d results written to %s", sink.Name(), res.Samples, res.Records, location)))
	}

	im.logger.Debug("batch processed",
		zap.String("batch", batch.ID),
		zap.String("source", batch.Source),
		zap.Int("samples", res.Samples),
		zap.Int("records", res.Records),
		zap.Int("outputs", len(res.Outputs)),
	)

	return res, nil
}

func importEntry(severity diagnostics.Severity, msg string) diagnostics.Entry {
	return diagnostics.Entry{
		Severity: severity,
		Kind:     diagnostics.KindImport,
		Message:  msg,
	}
}
