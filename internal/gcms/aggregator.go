package gcms

import (
	"strings"

	"github.com/ginjaninja78/lims-results-import/internal/csvparser"
	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/rewrite"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Keys added to every merged result row.
const (
	KeyDefaultResult = "DefaultResult"
	KeyRemarks       = "Remarks"
)

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	TargetCompound string
	Numeric        map[string]bool
	Skip           map[string]bool
	Rewriter       *rewrite.Rewriter
	DefaultResult  string
	Remarks        string
}

// Aggregator joins quantitation rows to their sequence entry and groups them
// by sample and compound.
//
// Rows are processed in file order. A later row for the same sample and
// compound replaces the earlier one; the replacement is logged.
type Aggregator struct {
	index *SequenceIndex
	opts  AggregatorOptions

	compound       string
	columns        []string
	headerCaptured bool

	results types.Results
}

// NewAggregator returns an aggregator reading sample names from index.
func NewAggregator(index *SequenceIndex, opts AggregatorOptions) *Aggregator {
	return &Aggregator{
		index:   index,
		opts:    opts,
		results: make(types.Results),
	}
}

// Handle consumes one line of the quantitation section.
func (a *Aggregator) Handle(numLine int, line string, report *diagnostics.Report) {
	if csvparser.IsBlank(line) {
		return
	}

	first := csvparser.FirstToken(line)

	switch {
	case a.opts.TargetCompound != "" && strings.HasPrefix(line, a.opts.TargetCompound):
		a.startBlock(numLine, line, report)
	case first == ColumnDataFile:
		if a.headerCaptured {
			report.Add(diagnostics.DuplicateColumnHeader(numLine, line))
			return
		}
		a.columns = csvparser.ColumnHeader(line)
		a.headerCaptured = true
	case a.opts.Skip[first]:
		report.Add(diagnostics.SkippedRow(numLine, line, first))
	default:
		a.addRow(numLine, line, report)
	}
}

// startBlock opens a new compound block. The column header of the previous
// block stays in effect until the block supplies its own.
func (a *Aggregator) startBlock(numLine int, line string, report *diagnostics.Report) {
	tokens := csvparser.Split(line)
	name := ""
	if len(tokens) > 1 {
		name = tokens[1]
	}
	if name == "" {
		report.Add(diagnostics.MissingCompound(numLine, line))
	}
	a.compound = name
	a.headerCaptured = false
}

func (a *Aggregator) addRow(numLine int, line string, report *diagnostics.Report) {
	row, entries := csvparser.Tokenize(line, numLine, a.columns, a.opts.Numeric)
	report.AddAll(entries)

	if !row.Has(ColumnCompound) {
		report.Add(diagnostics.MissingColumn(numLine, line, ColumnCompound))
		return
	}

	dataFile := row.Get(ColumnDataFile).String()
	if dataFile == "" {
		report.Add(diagnostics.MissingDataFile(numLine, line))
		return
	}

	matches := a.index.Lookup(dataFile)
	switch {
	case len(matches) == 0:
		report.Add(diagnostics.UnmatchedRow(numLine, line, dataFile))
		return
	case len(matches) > 1:
		report.Add(diagnostics.AmbiguousRow(numLine, line, dataFile, len(matches)))
		return
	}

	sampleID := a.opts.Rewriter.Apply(matches[0].Get(ColumnSampleName).String())
	if sampleID == "" {
		report.Add(diagnostics.InvalidSequence(numLine, line, dataFile))
		return
	}

	compound := a.compound
	if compound == "" {
		compound = row.Get(ColumnCompound).String()
	}
	if compound == "" {
		report.Add(diagnostics.MissingColumn(numLine, line, ColumnCompound))
		return
	}

	merged := row.Clone()
	merged[KeyDefaultResult] = types.Text(a.opts.DefaultResult)
	merged[KeyRemarks] = types.Text(a.opts.Remarks)

	sample, ok := a.results[sampleID]
	if !ok {
		sample = make(types.SampleResult)
		a.results[sampleID] = sample
	}
	if _, dup := sample[compound]; dup {
		report.Add(diagnostics.ResultOverwrite(numLine, line, sampleID, compound))
	}
	sample[compound] = merged
}

// Results returns the aggregated results.
func (a *Aggregator) Results() types.Results {
	return a.results
}
