package xmlwriter

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/importer"
	"github.com/ginjaninja78/lims-results-import/internal/instruments"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

type xmlBatch struct {
	XMLName    xml.Name `xml:"importBatch"`
	ID         string   `xml:"id,attr"`
	Instrument string   `xml:"instrument,attr"`
	Title      string   `xml:"title"`
	Source     string   `xml:"source"`
	States     []string `xml:"options>allowedState"`
	Override   bool     `xml:"options>override"`
	Criteria   []string `xml:"options>idSearchCriterion"`
	Header     []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"header>field"`
	Samples []struct {
		N       int    `xml:"n,attr"`
		ID      string `xml:"id,attr"`
		Results []struct {
			N        int    `xml:"n,attr"`
			Compound string `xml:"compound,attr"`
			Values   []struct {
				Column string `xml:"column,attr"`
				Type   string `xml:"type,attr"`
				Value  string `xml:",chardata"`
			} `xml:"value"`
		} `xml:"result"`
	} `xml:"sample"`
	Warnings []struct {
		Line  int    `xml:"line,attr"`
		Value string `xml:",chardata"`
	} `xml:"diagnostics>warning"`
}

func testBatch() *importer.Batch {
	out := &types.Outcome{
		Header: types.HeaderRecord{
			"Output Date": {Kind: types.HeaderTime, Time: time.Date(2013, 1, 29, 0, 0, 0, 0, time.UTC)},
			"[Header]":    {Kind: types.HeaderList, List: []string{}},
		},
		Results: types.Results{
			"UTAK_DS_L1": {
				"25-OH D3+PTAD+MA": {"Final Conc": types.Number(4.1528), "ISTD": types.Text("ISTD")},
			},
			"DSS_Nist_L1": {
				"25-OH D3+PTAD+MA": {"Final Conc": types.Number(1.6912), "Remarks": types.Text("A&B <x>")},
				"25-OH D2+PTAD+MA": {"Final Conc": types.Number(0.8123)},
			},
		},
	}
	out.Report.Add(diagnostics.NumericParse(31, "x", 4, "Resp", "n/a"))

	def := instruments.Definition{
		Key:                "shimadzu.gcms.qp2010se",
		Title:              "Shimadzu - GCMS-QP2010 SE",
		AttachmentFileType: "Agilent's Masshunter Quant CSV",
	}
	b := importer.NewBatch("in/130129.csv", def, out, nil)
	b.Settings, _ = importer.ParseOptions(importer.Options{ARToApply: "received", Override: "override", Sample: "sample_clientsid"})
	return b
}

func TestGenerate(t *testing.T) {
	batch := testBatch()

	data, err := Generate(batch)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<?xml version="1.0" encoding="UTF-8"?>`)

	var doc xmlBatch
	require.NoError(t, xml.Unmarshal(data, &doc))

	assert.Equal(t, batch.ID, doc.ID)
	assert.Equal(t, "shimadzu.gcms.qp2010se", doc.Instrument)
	assert.Equal(t, "Shimadzu - GCMS-QP2010 SE", doc.Title)
	assert.Equal(t, "130129.csv", doc.Source)
	assert.Equal(t, []string{"sample_received"}, doc.States)
	assert.True(t, doc.Override)
	assert.Equal(t, []string{"sample_id", "client_sample_id"}, doc.Criteria)

	require.Len(t, doc.Header, 2)
	assert.Equal(t, "Output Date", doc.Header[0].Name)
	assert.Equal(t, "2013-01-29", doc.Header[0].Value)

	require.Len(t, doc.Samples, 2)
	assert.Equal(t, "DSS_Nist_L1", doc.Samples[0].ID)
	assert.Equal(t, 1, doc.Samples[0].N)
	require.Len(t, doc.Samples[0].Results, 2)
	assert.Equal(t, "25-OH D2+PTAD+MA", doc.Samples[0].Results[0].Compound)
	assert.Equal(t, 2, doc.Samples[0].Results[1].N)

	// Per-sample numbering by default.
	assert.Equal(t, 1, doc.Samples[1].Results[0].N)

	d3 := doc.Samples[0].Results[1]
	require.Len(t, d3.Values, 2)
	assert.Equal(t, "Final Conc", d3.Values[0].Column)
	assert.Equal(t, "number", d3.Values[0].Type)
	assert.Equal(t, "1.6912", d3.Values[0].Value)
	assert.Equal(t, "A&B <x>", d3.Values[1].Value)
	assert.Equal(t, "text", d3.Values[1].Type)

	require.Len(t, doc.Warnings, 1)
	assert.Equal(t, 31, doc.Warnings[0].Line)
	assert.Equal(t, "No valid number n/a in column 4 (Resp)", doc.Warnings[0].Value)
}

func TestGenerateGlobalNumbering(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.ResultNumberingGlobal = true
	opts.IncludeXMLDeclaration = false
	opts.IncludeDiagnostics = false

	data, err := GenerateWithOptions(testBatch(), opts)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<?xml")
	assert.NotContains(t, string(data), "<diagnostics>")

	var doc xmlBatch
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, 3, doc.Samples[1].Results[0].N)
}

func TestSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(func(b *importer.Batch, ext string) string {
		return filepath.Join(dir, b.ID+ext)
	}, DefaultGenerateOptions())

	batch := testBatch()
	out, err := sink.Write(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, batch.ID+".xml"), out)
	assert.Equal(t, "xml", sink.Name())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<sample n="1" id="DSS_Nist_L1">`)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt;", escapeXML("a & b <c>"))
}
