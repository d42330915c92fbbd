package xlsxwriter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/importer"
	"github.com/ginjaninja78/lims-results-import/internal/instruments"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

func testBatch() *importer.Batch {
	out := &types.Outcome{
		Header: types.HeaderRecord{
			"Generated By": {Kind: types.HeaderText, Text: "admin"},
		},
		Results: types.Results{
			"DSS_Nist_L1": {
				"25-OH D3+PTAD+MA": {"Final Conc": types.Number(1.6912), "ISTD": types.Text("ISTD")},
			},
			"UTAK_DS_L1": {
				"25-OH D3+PTAD+MA": {"Final Conc": types.Number(4.1528), "Accuracy": types.Text("")},
			},
		},
	}
	out.Report.Add(diagnostics.NumericParse(31, "x", 4, "Resp", "n/a"))
	out.Report.Add(diagnostics.SectionEntered(12, "Sequence Table"))

	def := instruments.Definition{Key: "shimadzu.gcms.qp2010se", Title: "Shimadzu - GCMS-QP2010 SE"}
	b := importer.NewBatch("130129.csv", def, out, nil)
	b.Settings, _ = importer.ParseOptions(importer.Options{ARToApply: "received"})
	return b
}

func TestSinkWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(func(b *importer.Batch, ext string) string {
		return filepath.Join(dir, "out"+ext)
	})
	assert.Equal(t, "xlsx", sink.Name())

	path, err := sink.Write(context.Background(), testBatch())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetResults, SheetBatch, SheetDiagnostics}, f.GetSheetList())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Sample ID", "Compound", "Accuracy", "Final Conc", "ISTD"}, rows[0])
	assert.Equal(t, []string{"DSS_Nist_L1", "25-OH D3+PTAD+MA", "", "1.6912", "ISTD"}, rows[1])
	assert.Equal(t, "UTAK_DS_L1", rows[2][0])
	assert.Equal(t, "4.1528", rows[2][3])

	batchRows, err := f.GetRows(SheetBatch)
	require.NoError(t, err)
	values := map[string]string{}
	for _, r := range batchRows[1:] {
		if len(r) == 2 {
			values[r[0]] = r[1]
		}
	}
	assert.Equal(t, "shimadzu.gcms.qp2010se", values["Instrument"])
	assert.Equal(t, "sample_received", values["Allowed States"])
	assert.Equal(t, "admin", values["Generated By"])

	diag, err := f.GetRows(SheetDiagnostics)
	require.NoError(t, err)
	require.Len(t, diag, 3)
	assert.Equal(t, []string{"warning", "numeric_parse", "31", "No valid number n/a in column 4 (Resp)"}, diag[1])
	assert.Equal(t, "info", diag[2][0])
}

func TestResultColumns(t *testing.T) {
	cols := resultColumns(types.Results{
		"a": {"x": {"B": types.Text("1")}},
		"b": {"y": {"A": types.Text("2"), "B": types.Text("3")}},
	})
	assert.Equal(t, []string{"A", "B"}, cols)
}
