// =============================================================================
// LIMS Results Import - Configuration Module
// =============================================================================
//
// This module loads and manages all configuration files.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, output formats, import options
//   2. Instrument Profiles (profiles/*.yaml): one file per instrument interface,
//      naming the registry key, the file patterns it accepts, and the column
//      rules of the vendor export
//
// Every profile starts from DefaultProfile() so a profile file only needs to
// list what differs from the stock GCMS-QP2010 SE export.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for instrument export files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives hand-off documents, error logs and summaries.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives export files after a successful import.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir keeps a copy of every hand-off document.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ProfilesDir holds the instrument profile files.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat is the base name of hand-off documents. The extension
	// is added per format.
	// Placeholders:
	//   {uuid}       - the import batch id
	//   {timestamp}  - current timestamp (YYYYMMDD_HHMMSS)
	//   {instrument} - instrument registry key
	//   {source}     - input file name without extension
	// Default: "{instrument}_{timestamp}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputFormats lists the hand-off documents to produce.
	// Valid values: "xml", "xlsx", "json"
	// Default: ["xml"]
	OutputFormats []string `yaml:"output_formats"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files imported at once.
	// Each file always gets its own parser.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError hands off the clean samples of a file even when some of
	// its rows produced errors. When false, any error entry fails the file.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves imported export files to InputArchiveDir.
	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`

	// Import holds the options forwarded to the results importer.
	Import ImportSettings `yaml:"import"`
}

// ImportSettings mirrors the options of the LIMS instrument import form.
type ImportSettings struct {
	// ARToApply selects which analysis requests may receive results.
	// Valid values: "received", "received_tobeverified"
	// Default: "received_tobeverified"
	ARToApply string `yaml:"artoapply"`

	// Override selects how existing results are treated.
	// Valid values: "nooverride", "override", "overrideempty"
	// Default: "nooverride"
	Override string `yaml:"override"`

	// Sample selects which identifier the sample name is matched against.
	// Valid values: "requestid", "sampleid", "clientsid", "sample_clientsid"
	// Default: "requestid"
	Sample string `yaml:"sample"`

	// InstrumentUID identifies the instrument the results are attributed to.
	InstrumentUID string `yaml:"instrument_uid"`
}

// ShouldContinueOnError reports the effective ContinueOnError setting.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// ShouldArchive reports the effective ArchiveOnSuccess setting.
func (c *MainConfig) ShouldArchive() bool {
	return c.ArchiveOnSuccess == nil || *c.ArchiveOnSuccess
}

// =============================================================================
// INSTRUMENT PROFILE STRUCTURE
// =============================================================================

// InstrumentProfile configures one instrument interface.
type InstrumentProfile struct {
	// Name is used in logs. Defaults to the file name.
	Name string `yaml:"name"`

	// Instrument is the registry key of the parser to use.
	// Example: "shimadzu.gcms.qp2010se"
	Instrument string `yaml:"instrument"`

	// FileMatchingPatterns are glob patterns matched against the base name of
	// each input file. The first profile with a matching pattern is used.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Markers overrides the literal section markers.
	Markers Markers `yaml:"markers"`

	// SequenceNumericColumns are parsed as numbers in the sequence table.
	SequenceNumericColumns []string `yaml:"sequence_numeric_columns"`

	// QuantitationNumericColumns are parsed as numbers in result rows.
	QuantitationNumericColumns []string `yaml:"quantitation_numeric_columns"`

	// DefaultResult names the result column the importer reads.
	// Default: "Final Conc"
	DefaultResult string `yaml:"default_result"`

	// Remarks is attached to every imported result.
	// Default: "Autoimport"
	Remarks string `yaml:"remarks"`

	// SkipDataFiles lists response-check runs whose result rows are ignored.
	SkipDataFiles []string `yaml:"skip_data_files"`

	// SampleIDRules rewrite the sequence Sample Name into the sample
	// identifier, in order.
	SampleIDRules []SampleIDRule `yaml:"sample_id_rules"`
}

// Markers are the literal line prefixes that open each section.
type Markers struct {
	Header          string   `yaml:"header"`
	FileInformation string   `yaml:"file_information"`
	SampleTable     string   `yaml:"sample_table"`
	SequenceTitle   string   `yaml:"sequence_title"`
	OriginalFiles   string   `yaml:"original_files"`
	Quantitation    []string `yaml:"quantitation"`
	TargetCompound  string   `yaml:"target_compound"`
}

// SampleIDRule is a single rewrite step applied to a sample name.
type SampleIDRule struct {
	// Type is one of:
	//   - "trim"                : remove surrounding whitespace
	//   - "uppercase"           : convert to uppercase
	//   - "lowercase"           : convert to lowercase
	//   - "prepend_string"      : add Value before the name
	//   - "append_string"       : add Value after the name
	//   - "replace"             : replace Find with Value
	//   - "regex_replace"       : replace the pattern Find with Value
	//   - "pad_zeros_to_length" : left-pad with zeros to the length in Value
	//   - "lookup"              : replace using LookupTable when the name is listed
	Type string `yaml:"type"`

	Value       string            `yaml:"value"`
	Find        string            `yaml:"find,omitempty"`
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultInstrument is the registry key of the built-in GCMS interface.
const DefaultInstrument = "shimadzu.gcms.qp2010se"

// DefaultProfile returns the profile of the stock QP2010 SE quantitation
// export.
func DefaultProfile() InstrumentProfile {
	return InstrumentProfile{
		Name:                 "default",
		Instrument:           DefaultInstrument,
		FileMatchingPatterns: []string{"*.csv"},
		Markers:              DefaultMarkers(),
		SequenceNumericColumns: []string{
			"Inj Vol",
		},
		QuantitationNumericColumns: []string{
			"Resp", "ISTD Resp", "Resp Ratio", "Final Conc", "Exp Conc", "Accuracy",
		},
		DefaultResult: "Final Conc",
		Remarks:       "Autoimport",
		SkipDataFiles: []string{
			"prerunrespchk.d", "mid_respchk.d", "post_respchk.d",
		},
	}
}

// DefaultMarkers returns the section markers of the stock export.
func DefaultMarkers() Markers {
	return Markers{
		Header:          "[Header]",
		FileInformation: "[File Information]",
		SampleTable:     "[Sample Information]",
		SequenceTitle:   "Sequence Table",
		OriginalFiles:   "[Original Files]",
		Quantitation:    []string{"Quantitation Results", "Quantification Results"},
		TargetCompound:  "Target Compound",
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseMainConfig(data)
	if err != nil {
		return nil, err
	}

	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ParseMainConfig parses and defaults a main configuration without touching
// the file system.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	for _, f := range config.OutputFormats {
		switch f {
		case "xml", "xlsx", "json":
		default:
			return nil, fmt.Errorf("unknown output format: %s", f)
		}
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{instrument}_{timestamp}_{uuid}"
	}
	if len(config.OutputFormats) == 0 {
		config.OutputFormats = []string{"xml"}
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Import.ARToApply == "" {
		config.Import.ARToApply = "received_tobeverified"
	}
	if config.Import.Override == "" {
		config.Import.Override = "nooverride"
	}
	if config.Import.Sample == "" {
		config.Import.Sample = "requestid"
	}
}

// validateMainConfig creates missing directories.
func validateMainConfig(config *MainConfig) error {
	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.OutputArchiveDir,
		config.ProfilesDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadProfiles loads all instrument profiles from a directory, sorted by file
// name so that pattern matching is deterministic. When the directory holds no
// profile, the default profile is returned on its own.
func LoadProfiles(profilesDir string) ([]*InstrumentProfile, error) {
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	profiles := make([]*InstrumentProfile, 0, len(files))
	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 {
		p := DefaultProfile()
		profiles = append(profiles, &p)
	}

	return profiles, nil
}

// loadProfile loads a single profile file.
func loadProfile(filePath string) (*InstrumentProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	profile, err := ParseProfile(data)
	if err != nil {
		return nil, err
	}

	if profile.Name == "" || profile.Name == "default" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	return profile, nil
}

// ParseProfile parses a profile document on top of DefaultProfile.
func ParseProfile(data []byte) (*InstrumentProfile, error) {
	profile := DefaultProfile()

	// A partial markers block only overrides the markers it names.
	markers := profile.Markers
	profile.Markers = Markers{}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	profile.Markers = mergeMarkers(markers, profile.Markers)

	if err := validateProfile(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func mergeMarkers(base, override Markers) Markers {
	if override.Header != "" {
		base.Header = override.Header
	}
	if override.FileInformation != "" {
		base.FileInformation = override.FileInformation
	}
	if override.SampleTable != "" {
		base.SampleTable = override.SampleTable
	}
	if override.SequenceTitle != "" {
		base.SequenceTitle = override.SequenceTitle
	}
	if override.OriginalFiles != "" {
		base.OriginalFiles = override.OriginalFiles
	}
	if len(override.Quantitation) > 0 {
		base.Quantitation = override.Quantitation
	}
	if override.TargetCompound != "" {
		base.TargetCompound = override.TargetCompound
	}
	return base
}

// knownRuleTypes are the sample id rewrite actions.
var knownRuleTypes = map[string]bool{
	"trim":                true,
	"uppercase":           true,
	"lowercase":           true,
	"prepend_string":      true,
	"append_string":       true,
	"replace":             true,
	"regex_replace":       true,
	"pad_zeros_to_length": true,
	"lookup":              true,
}

func validateProfile(p *InstrumentProfile) error {
	if p.Instrument == "" {
		return fmt.Errorf("profile has no instrument key")
	}
	if p.Markers.SampleTable == "" {
		return fmt.Errorf("profile %s: sample table marker is empty", p.Instrument)
	}
	for i, rule := range p.SampleIDRules {
		if !knownRuleTypes[rule.Type] {
			return fmt.Errorf("sample_id_rules[%d]: unknown rule type: %s", i, rule.Type)
		}
	}
	return nil
}

// MatchProfile returns the first profile with a pattern matching the base name
// of filePath, or nil.
func MatchProfile(filePath string, profiles []*InstrumentProfile) *InstrumentProfile {
	fileName := filepath.Base(filePath)

	for _, profile := range profiles {
		for _, pattern := range profile.FileMatchingPatterns {
			matched, err := filepath.Match(pattern, fileName)
			if err != nil {
				continue
			}
			if matched {
				return profile
			}
		}
	}

	return nil
}
