package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	writeFile(t, filepath.Join(fm.InputDir, "b.csv"), "x")
	writeFile(t, filepath.Join(fm.InputDir, "a.CSV"), "x")
	writeFile(t, filepath.Join(fm.InputDir, "qp2010_a.csv"), "x")
	writeFile(t, filepath.Join(fm.InputDir, "notes.txt"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "dir.csv"), 0755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "b.csv"),
		filepath.Join(fm.InputDir, "qp2010_a.csv"),
	}, files)

	files, err = fm.DiscoverInputFiles("qp2010_*.csv", "*.csv", "*.CSV")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = fm.DiscoverInputFiles("[")
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	fm := newTestManager(t)
	in := filepath.Join(fm.InputDir, "run.csv")
	writeFile(t, in, "data")

	archived, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "run.csv"), archived)
	assert.False(t, FileExists(in))
	assert.True(t, FileExists(archived))

	out := fm.OutputPath("batch.xml")
	writeFile(t, out, "<importBatch/>")
	copied, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.True(t, FileExists(out))
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "<importBatch/>", string(data))

	fm.ArchiveOnSuccess = false
	writeFile(t, in, "again")
	same, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)
	assert.Equal(t, in, same)
	assert.True(t, FileExists(in))
}

func TestArchiveKeepsEarlierExport(t *testing.T) {
	fm := newTestManager(t)
	in := filepath.Join(fm.InputDir, "run.csv")

	writeFile(t, in, "first")
	first, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)

	writeFile(t, in, "second")
	second, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, ".csv", filepath.Ext(second))
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestArchiveTimestampSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true
	in := filepath.Join(fm.InputDir, "run.csv")
	writeFile(t, in, "data")

	archived, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)
	now := time.Now()
	assert.Contains(t, archived, filepath.Join(now.Format("2006"), now.Format("01")))
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{instrument}_{source}_{uuid}", ".xml", map[string]string{
		"instrument": "shimadzu.gcms.qp2010se",
		"source":     "130129 LS",
	})
	assert.True(t, strings.HasPrefix(name, "shimadzu.gcms.qp2010se_130129 LS_"))
	assert.True(t, strings.HasSuffix(name, ".xml"))
	assert.Len(t, name, len("shimadzu.gcms.qp2010se_130129 LS_")+36+4)

	assert.Equal(t, "fixed.xlsx", GenerateOutputFileName("fixed.xlsx", ".xlsx", nil))
	assert.Equal(t, "a_b.json", GenerateOutputFileName("{source}", ".json", map[string]string{"source": "a/b"}))

	a := GenerateOutputFileName("{uuid}", ".xml", nil)
	b := GenerateOutputFileName("{uuid}", ".xml", nil)
	assert.NotEqual(t, a, b)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "130129 LS", SourceName("/data/in/130129 LS.csv"))
	assert.Equal(t, "plain", SourceName("plain"))
}

func TestErrorLog(t *testing.T) {
	fm := newTestManager(t)

	var report diagnostics.Report
	report.Add(diagnostics.UnmatchedRow(27, "B.d,X,ISTD,1", "B.d"))
	report.Add(diagnostics.NumericParse(31, "A.d,X,n/a", 3, "Resp", "n/a"))

	entries := ErrorLogEntries("run.csv", &report, false)
	require.Len(t, entries, 1)
	assert.Equal(t, "unmatched_row", entries[0].Kind)

	entries = ErrorLogEntries("run.csv", &report, true)
	require.Len(t, entries, 2)

	path, err := WriteErrorLog(entries, fm.OutputDir)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Entries: 2")
	assert.Contains(t, string(data), "No sample found for quantitative result B.d")
	assert.Contains(t, string(data), "Line:       27")
	assert.Contains(t, string(data), "Content:    B.d,X,ISTD,1")

	path, err = WriteErrorLog(nil, fm.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSummaryLog(t *testing.T) {
	fm := newTestManager(t)

	summary := ProcessingSummary{StartTime: time.Now(), TotalFiles: 2}
	summary.Add(ProcessedFileInfo{
		InputFile:  "run.csv",
		Instrument: "shimadzu.gcms.qp2010se",
		Outputs:    []string{"out/a.xml", "out/a.xlsx"},
		Lines:      32,
		Samples:    3,
		Results:    5,
		Warnings:   1,
	})
	summary.Fail(FailedFileInfo{InputFile: "empty.csv", ErrorType: "parse", ErrorMessage: "missing section"})
	summary.EndTime = time.Now()

	assert.Equal(t, 1, summary.SuccessfulFiles)
	assert.Equal(t, 1, summary.FailedFiles)
	assert.Equal(t, 5, summary.TotalResults)

	path, err := WriteSummaryLog(summary, fm.OutputDir)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Total Results:  5")
	assert.Contains(t, text, "Output:       out/a.xlsx")
	assert.Contains(t, text, "Error: missing section")
	assert.Contains(t, text, "Mode:           import")
}
