// =============================================================================
// LIMS Results Import - XLSX Writer Module
// =============================================================================
//
// This module renders an import batch as a workbook for review before (or
// instead of) an automatic import.
//
// WORKBOOK STRUCTURE:
//
//   Results      one row per (sample, compound): Sample ID, Compound, then
//                every result column found in the batch, sorted
//   Batch        key/value metadata: batch id, instrument, source, import
//                options, header fields
//   Diagnostics  Severity | Kind | Line | Message
//
// Numeric result values are written as numbers so they can be summed and
// charted in the spreadsheet.
//
// =============================================================================

package xlsxwriter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/importer"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Sheet names.
const (
	SheetResults     = "Results"
	SheetBatch       = "Batch"
	SheetDiagnostics = "Diagnostics"
)

// Generate builds the workbook for a batch. The caller must Close it.
func Generate(batch *importer.Batch) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetResults); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetBatch, SheetDiagnostics} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	steps := []func(*excelize.File, *importer.Batch, int) error{
		writeResults,
		writeBatch,
		writeDiagnostics,
	}
	for _, step := range steps {
		if err := step(f, batch, bold); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeResults(f *excelize.File, batch *importer.Batch, bold int) error {
	results := batch.Outcome.Results
	columns := resultColumns(results)

	header := []interface{}{"Sample ID", "Compound"}
	for _, c := range columns {
		header = append(header, c)
	}
	if err := writeHeader(f, SheetResults, header, bold); err != nil {
		return err
	}

	rowNum := 2
	for _, id := range results.SampleIDs() {
		sample := results[id]
		for _, compound := range sample.Compounds() {
			row := sample[compound]
			cells := []interface{}{id, compound}
			for _, c := range columns {
				cells = append(cells, cellValue(row, c))
			}
			if err := setRow(f, SheetResults, rowNum, cells); err != nil {
				return err
			}
			rowNum++
		}
	}

	return f.SetPanes(SheetResults, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeBatch(f *excelize.File, batch *importer.Batch, bold int) error {
	if err := writeHeader(f, SheetBatch, []interface{}{"Key", "Value"}, bold); err != nil {
		return err
	}

	s := batch.Settings
	pairs := [][2]string{
		{"Batch ID", batch.ID},
		{"Instrument", batch.Instrument.Key},
		{"Title", batch.Instrument.Title},
		{"Attachment File Type", batch.Instrument.AttachmentFileType},
		{"Source", batch.Source},
		{"Created", batch.CreatedAt.Format(time.RFC3339)},
		{"Allowed States", strings.Join(s.AllowedStates, ", ")},
		{"Override", strconv.FormatBool(s.Override)},
		{"Override Empty", strconv.FormatBool(s.OverrideEmpty)},
		{"ID Search Criteria", strings.Join(s.IDSearchCriteria, ", ")},
		{"Instrument UID", s.InstrumentUID},
	}
	header := batch.Outcome.Header
	for _, key := range header.Keys() {
		pairs = append(pairs, [2]string{key, header[key].String()})
	}

	for i, p := range pairs {
		if err := setRow(f, SheetBatch, i+2, []interface{}{p[0], p[1]}); err != nil {
			return err
		}
	}
	return nil
}

func writeDiagnostics(f *excelize.File, batch *importer.Batch, bold int) error {
	if err := writeHeader(f, SheetDiagnostics, []interface{}{"Severity", "Kind", "Line", "Message"}, bold); err != nil {
		return err
	}

	report := batch.Outcome.Report
	rowNum := 2
	for _, list := range [][]diagnostics.Entry{report.Errors, report.Warnings, report.Logs} {
		for _, e := range list {
			var line interface{}
			if e.Line > 0 {
				line = e.Line
			}
			if err := setRow(f, SheetDiagnostics, rowNum, []interface{}{string(e.Severity), string(e.Kind), line, e.Message}); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

// =============================================================================
// SINK
// =============================================================================

// Sink writes each batch as an XLSX workbook.
type Sink struct {
	path importer.PathFunc
}

// NewSink returns an XLSX sink writing to the paths returned by path.
func NewSink(path importer.PathFunc) *Sink {
	return &Sink{path: path}
}

// Name implements importer.Sink.
func (s *Sink) Name() string { return "xlsx" }

// Write implements importer.Sink.
func (s *Sink) Write(_ context.Context, batch *importer.Batch) (string, error) {
	f, err := Generate(batch)
	if err != nil {
		return "", err
	}
	defer f.Close()

	out := s.path(batch, ".xlsx")
	if err := f.SaveAs(out); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", out, err)
	}
	return out, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resultColumns returns the union of result columns across the batch, sorted.
func resultColumns(results types.Results) []string {
	seen := make(map[string]bool)
	for _, sample := range results {
		for _, row := range sample {
			for c := range row {
				seen[c] = true
			}
		}
	}

	columns := make([]string, 0, len(seen))
	for c := range seen {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

func cellValue(row types.Row, column string) interface{} {
	v, ok := row[column]
	if !ok {
		return nil
	}
	if v.Numeric {
		return v.Number
	}
	return v.Text
}

func writeHeader(f *excelize.File, sheet string, cells []interface{}, style int) error {
	if err := setRow(f, sheet, 1, cells); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cells), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
