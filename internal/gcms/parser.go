// Package gcms parses quantitation CSV exports of GC-MS instruments into
// per-sample, per-compound result records.
//
// An export is a sequence of sections introduced by literal marker lines:
//
//	[Header]               key/value metadata
//	[File Information]     key/value metadata
//	[Sample Information]   sequence table, one row per injection
//	[Original Files]       key/value metadata
//	Quantitation Results   one block per target compound
//
// Result rows are joined to the sequence table through their Data File
// value. The sample name of the matching sequence row becomes the sample
// identifier.
package gcms

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/csvparser"
	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/rewrite"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Parser turns one export into an Outcome. A Parser holds no per-file
// state and may be reused, but not concurrently.
type Parser struct {
	profile    config.InstrumentProfile
	classifier classifier
	rewriter   *rewrite.Rewriter
	logger     *zap.Logger

	sequenceNumeric map[string]bool
	quantNumeric    map[string]bool
	skip            map[string]bool
}

// NewParser builds a parser for the given instrument profile.
func NewParser(profile config.InstrumentProfile, logger *zap.Logger) (*Parser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rw, err := rewrite.New(profile.SampleIDRules)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", profile.Name, err)
	}

	return &Parser{
		profile:         profile,
		classifier:      newClassifier(profile.Markers),
		rewriter:        rw,
		logger:          logger,
		sequenceNumeric: csvparser.ColumnSet(profile.SequenceNumericColumns),
		quantNumeric:    csvparser.ColumnSet(profile.QuantitationNumericColumns),
		skip:            csvparser.ColumnSet(profile.SkipDataFiles),
	}, nil
}

// state is the per-file parse state.
type state struct {
	section      Section
	seenSequence bool

	header    *headerParser
	sequence  *SequenceIndex
	seqCols   []string
	aggregate *Aggregator

	report diagnostics.Report
}

// Parse reads the whole export from r.
//
// A *diagnostics.FatalError is returned when the file has no header block,
// never reaches a sequence table, or the sequence table has no entries. The returned Outcome
// is non-nil in that case too, with empty Results.
func (p *Parser) Parse(r io.Reader) (*types.Outcome, error) {
	st := &state{
		section:  SectionPreamble,
		header:   newHeaderParser(p.profile.Markers),
		sequence: NewSequenceIndex(),
	}
	st.aggregate = NewAggregator(st.sequence, AggregatorOptions{
		TargetCompound: p.profile.Markers.TargetCompound,
		Numeric:        p.quantNumeric,
		Skip:           p.skip,
		Rewriter:       p.rewriter,
		DefaultResult:  p.profile.DefaultResult,
		Remarks:        p.profile.Remarks,
	})

	lr := csvparser.NewLineReader(r)
	for lr.Next() {
		numLine, line := lr.LineNumber(), lr.Line()

		if next, ok := p.classifier.classify(line); ok {
			if fatal := p.transition(st, next, numLine, line); fatal != nil {
				return p.fail(st, fatal, numLine)
			}
			continue
		}

		p.dispatch(st, numLine, line)
	}
	if err := lr.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	lines := lr.LineNumber()
	switch {
	case len(st.header.record) == 0:
		return p.fail(st, missingHeader(lines), lines)
	case !st.seenSequence:
		return p.fail(st, &diagnostics.FatalError{
			Entry: diagnostics.MissingSection(lines, "No Sequence Table found"),
			Err:   diagnostics.ErrMissingSection,
		}, lines)
	case st.section == SectionSequenceTable && st.sequence.Len() == 0:
		return p.fail(st, &diagnostics.FatalError{
			Entry: diagnostics.EmptySequenceTable(lines),
			Err:   diagnostics.ErrEmptySequenceTable,
		}, lines)
	}

	outcome := &types.Outcome{
		Header:   st.header.record,
		Sequence: st.sequence.Entries(),
		Results:  st.aggregate.Results(),
		Report:   st.report,
		Lines:    lines,
	}

	p.logger.Debug("parsed export",
		zap.String("instrument", p.profile.Instrument),
		zap.Int("lines", lines),
		zap.Int("sequence_entries", st.sequence.Len()),
		zap.Int("samples", len(outcome.Results)),
		zap.Int("errors", len(st.report.Errors)),
		zap.Int("warnings", len(st.report.Warnings)),
	)

	return outcome, nil
}

// transition moves to the section opened by a marker line. Markers for a
// section that was already passed are ignored with a warning.
func (p *Parser) transition(st *state, next Section, numLine int, line string) *diagnostics.FatalError {
	if next <= st.section {
		st.report.Add(diagnostics.SectionOrder(numLine, line, next.String()))
		return nil
	}

	if st.section == SectionSequenceTable && st.sequence.Len() == 0 {
		return &diagnostics.FatalError{
			Entry: diagnostics.EmptySequenceTable(numLine),
			Err:   diagnostics.ErrEmptySequenceTable,
		}
	}

	// The header block ends at the sequence table, or at the results when
	// the sequence table is missing.
	if (next == SectionSequenceTable || next == SectionQuantitation) && len(st.header.record) == 0 {
		return missingHeader(numLine)
	}

	if next == SectionQuantitation && !st.seenSequence {
		return &diagnostics.FatalError{
			Entry: diagnostics.MissingSection(numLine, "Quantitation Results found before the Sequence Table"),
			Err:   diagnostics.ErrMissingSection,
		}
	}

	st.section = next
	st.report.Add(diagnostics.SectionEntered(numLine, next.String()))

	switch next {
	case SectionSequenceTable:
		st.seenSequence = true
	case SectionHeader, SectionFileInformation, SectionOriginalFiles:
		// The marker line carries the list of values for its own key.
		st.header.handle(numLine, line, next, &st.report)
	}

	return nil
}

func (p *Parser) dispatch(st *state, numLine int, line string) {
	switch st.section {
	case SectionPreamble:
		// Anything before the first marker is ignored.
	case SectionHeader, SectionFileInformation, SectionOriginalFiles:
		st.header.handle(numLine, line, st.section, &st.report)
	case SectionSequenceTable:
		p.handleSequence(st, numLine, line)
	case SectionQuantitation:
		st.aggregate.Handle(numLine, line, &st.report)
	}
}

func (p *Parser) handleSequence(st *state, numLine int, line string) {
	if csvparser.IsBlank(line) {
		return
	}

	if st.seqCols == nil {
		if title := p.profile.Markers.SequenceTitle; title != "" && csvparser.FirstToken(line) == title {
			return
		}
		st.seqCols = csvparser.ColumnHeader(line)
		return
	}

	row, entries := csvparser.Tokenize(line, numLine, st.seqCols, p.sequenceNumeric)
	st.report.AddAll(entries)
	st.sequence.Add(row)
}

func missingHeader(numLine int) *diagnostics.FatalError {
	return &diagnostics.FatalError{
		Entry: diagnostics.MissingSection(numLine, "No header found"),
		Err:   diagnostics.ErrMissingSection,
	}
}

func (p *Parser) fail(st *state, fatal *diagnostics.FatalError, lines int) (*types.Outcome, error) {
	st.report.Add(fatal.Entry)

	p.logger.Debug("export rejected",
		zap.String("instrument", p.profile.Instrument),
		zap.Int("line", fatal.Entry.Line),
		zap.Error(fatal.Err),
	)

	return &types.Outcome{
		Header:  st.header.record,
		Results: types.Results{},
		Report:  st.report,
		Lines:   lines,
	}, fatal
}
