package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMainConfigDefaults(t *testing.T) {
	cfg, err := ParseMainConfig([]byte("input_dir: ./in\n"))
	require.NoError(t, err)

	assert.Equal(t, "./in", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./profiles", cfg.ProfilesDir)
	assert.Equal(t, []string{"xml"}, cfg.OutputFormats)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "{instrument}_{timestamp}_{uuid}", cfg.OutputNameFormat)
	assert.True(t, cfg.ShouldContinueOnError())
	assert.True(t, cfg.ShouldArchive())
	assert.Equal(t, "received_tobeverified", cfg.Import.ARToApply)
	assert.Equal(t, "nooverride", cfg.Import.Override)
	assert.Equal(t, "requestid", cfg.Import.Sample)
}

func TestParseMainConfigExplicitFalse(t *testing.T) {
	cfg, err := ParseMainConfig([]byte("continue_on_error: false\narchive_on_success: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.ShouldContinueOnError())
	assert.False(t, cfg.ShouldArchive())
}

func TestParseMainConfigRejectsUnknownFormat(t *testing.T) {
	_, err := ParseMainConfig([]byte("output_formats: [xml, pdf]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestLoadMainConfigCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "input_dir: " + filepath.Join(dir, "in") + "\n" +
		"output_dir: " + filepath.Join(dir, "out") + "\n" +
		"input_archive_dir: " + filepath.Join(dir, "in_arch") + "\n" +
		"output_archive_dir: " + filepath.Join(dir, "out_arch") + "\n" +
		"profiles_dir: " + filepath.Join(dir, "profiles") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	for _, d := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir, cfg.ProfilesDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseProfileOverridesDefaults(t *testing.T) {
	doc := `
instrument: shimadzu.gcms.qp2010se
file_matching_patterns: ["gcms_*.csv"]
markers:
  quantitation: ["Quant Results"]
default_result: Resp Ratio
sample_id_rules:
  - type: regex_replace
    find: "-r[0-9]+$"
    value: ""
`
	p, err := ParseProfile([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"gcms_*.csv"}, p.FileMatchingPatterns)
	assert.Equal(t, []string{"Quant Results"}, p.Markers.Quantitation)
	assert.Equal(t, "[Sample Information]", p.Markers.SampleTable)
	assert.Equal(t, "Target Compound", p.Markers.TargetCompound)
	assert.Equal(t, "Resp Ratio", p.DefaultResult)
	assert.Equal(t, "Autoimport", p.Remarks)
	assert.Equal(t, []string{"Inj Vol"}, p.SequenceNumericColumns)
	require.Len(t, p.SampleIDRules, 1)
	assert.Equal(t, "regex_replace", p.SampleIDRules[0].Type)
}

func TestParseProfileRejectsUnknownRule(t *testing.T) {
	_, err := ParseProfile([]byte("sample_id_rules:\n  - type: reverse\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverse")
}

func TestLoadProfilesFallsBackToDefault(t *testing.T) {
	profiles, err := LoadProfiles(t.TempDir())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, DefaultInstrument, profiles[0].Instrument)
}

func TestLoadProfilesSortedAndNamed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_lab.yml"), []byte("file_matching_patterns: [\"b_*.csv\"]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_lab.yaml"), []byte("file_matching_patterns: [\"a_*.csv\"]\n"), 0644))

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "a_lab", profiles[0].Name)
	assert.Equal(t, "b_lab", profiles[1].Name)

	assert.Equal(t, profiles[1], MatchProfile("/tmp/in/b_0001.csv", profiles))
	assert.Nil(t, MatchProfile("c_0001.csv", profiles))
}
