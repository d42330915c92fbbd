// =============================================================================
// LIMS Results Import - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the import run:
//   - Export file discovery
//   - File archival
//   - Hand-off file naming
//   - Error and summary logs
//
// ARCHIVAL STRATEGY:
//   - Exports are moved to input_archive once every sink accepted them
//   - Hand-off files are copied to output_archive for long-term storage
//   - Exports that failed to parse stay in the input directory
//   - Error logs are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the import run.
type FileManager struct {
	// InputDir is the directory where input files are placed.
	InputDir string

	// OutputDir is the directory where output files are placed.
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// OutputArchiveDir is the directory for archived output files.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/01/15/130129.csv
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether to archive files after successful processing.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:            inputDir,
		OutputDir:           outputDir,
		InputArchiveDir:     inputArchiveDir,
		OutputArchiveDir:    outputArchiveDir,
		UseTimestampSubdirs: false,
		ArchiveOnSuccess:    true,
	}
}

// OutputPath returns the path of a file name inside the output directory.
func (fm *FileManager) OutputPath(name string) string {
	return filepath.Join(fm.OutputDir, name)
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
		fm.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching any of the
// patterns. Each file is listed once, sorted by path.
//
// PARAMETERS:
//   - patterns: Glob patterns matched inside the input directory.
//               If empty, defaults to "*.csv".
//
// RETURNS:
//   - A slice of file paths.
//   - An error if a pattern is malformed.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"*.csv"}
	}

	seen := make(map[string]bool)
	var result []string
	for _, pattern := range patterns {
		files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan input directory with %q: %w", pattern, err)
		}

		for _, file := range files {
			if seen[file] {
				continue
			}
			info, err := os.Stat(file)
			if err != nil || info.IsDir() {
				continue
			}
			seen[file] = true
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an imported export into the input archive. When an
// export of the same name was archived before, the new one gets a time
// suffix instead of replacing it.
//
// RETURNS:
//   - The archived path, or filePath unchanged when archival is disabled.
//   - An error if the export could not be moved.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	return fm.archive(fm.InputArchiveDir, filePath, true)
}

// ArchiveOutputFile copies a hand-off document into the output archive. The
// document stays in the output directory for the LIMS to pick up.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	return fm.archive(fm.OutputArchiveDir, filePath, false)
}

func (fm *FileManager) archive(dir, filePath string, move bool) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	target := fm.archivePath(dir, filePath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if move {
		// Rename fails across devices; fall back to copy and remove.
		if err := os.Rename(filePath, target); err == nil {
			return target, nil
		}
	}

	if err := copyFile(filePath, target); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", filepath.Base(filePath), err)
	}
	if move {
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("archived %s but could not remove it: %w", filepath.Base(filePath), err)
		}
	}

	return target, nil
}

// archivePath returns a free path for filePath inside dir, under
// YYYY/MM/DD when UseTimestampSubdirs is set.
func (fm *FileManager) archivePath(dir, filePath string) string {
	now := time.Now()
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir, now.Format("2006"), now.Format("01"), now.Format("02"))
	}

	target := filepath.Join(dir, filepath.Base(filePath))
	if !FileExists(target) {
		return target
	}

	ext := filepath.Ext(target)
	return strings.TrimSuffix(target, ext) + "_" + now.Format("150405.000000") + ext
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique hand-off file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}       - A random UUID
//               {timestamp}  - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}       - Current date (YYYYMMDD)
//               {time}       - Current time (HHMMSS)
//               {instrument} - Instrument key
//               {source}     - Export file name (without extension)
//   - ext: The extension to enforce, with its dot (".xml", ".xlsx", ".json").
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "{instrument}_{timestamp}_{uuid}"
//   params: {"instrument": "shimadzu.gcms.qp2010se"}
//   output: "shimadzu.gcms.qp2010se_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xml"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Path separators in placeholder values would escape the output directory.
	result = strings.NewReplacer("/", "_", "\\", "_").Replace(result)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// SourceName returns the base name of a path without its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp time.Time
	FileName  string
	Severity  string
	Kind      string
	Message   string
	Line      int
	Text      string
}

// ErrorLogEntries converts the errors of a report into log entries. With
// includeWarnings the warnings follow the errors.
func ErrorLogEntries(fileName string, report *diagnostics.Report, includeWarnings bool) []ErrorLogEntry {
	lists := [][]diagnostics.Entry{report.Errors}
	if includeWarnings {
		lists = append(lists, report.Warnings)
	}

	now := time.Now()
	var entries []ErrorLogEntry
	for _, list := range lists {
		for _, e := range list {
			entries = append(entries, ErrorLogEntry{
				Timestamp: now,
				FileName:  fileName,
				Severity:  string(e.Severity),
				Kind:      string(e.Kind),
				Message:   e.Message,
				Line:      e.Line,
				Text:      e.Text,
			})
		}
	}
	return entries
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file, or "" when there was nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	logFileName := fmt.Sprintf("error_log_%s_%s.txt", timestamp, uuid.New().String()[:8])
	logPath := filepath.Join(outputDir, logFileName)

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "LIMS Results Import - Error Log\n"+
		"Generated: %s\n"+
		"Total Entries: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Entry #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Severity:   %s\n"+
			"  Kind:       %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.Severity,
			entry.Kind,
			entry.Message)

		if entry.Line > 0 {
			fmt.Fprintf(writer, "  Line:       %d\n", entry.Line)
		}
		if entry.Text != "" {
			fmt.Fprintf(writer, "  Content:    %s\n", entry.Text)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about an import run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	DryRun          bool
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalLines      int
	TotalSamples    int
	TotalResults    int
	TotalErrors     int
	TotalWarnings   int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about an imported export.
type ProcessedFileInfo struct {
	InputFile   string
	Instrument  string
	Outputs     []string
	ArchivePath string
	Lines       int
	Samples     int
	Results     int
	Errors      int
	Warnings    int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about an export that was not imported.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// Add records a processed file and updates the totals.
func (s *ProcessingSummary) Add(info ProcessedFileInfo) {
	s.SuccessfulFiles++
	s.TotalLines += info.Lines
	s.TotalSamples += info.Samples
	s.TotalResults += info.Results
	s.TotalErrors += info.Errors
	s.TotalWarnings += info.Warnings
	s.ProcessedFiles = append(s.ProcessedFiles, info)
}

// Fail records a failed file.
func (s *ProcessingSummary) Fail(info FailedFileInfo) {
	s.FailedFiles++
	s.FailedFilesList = append(s.FailedFilesList, info)
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryFileName := fmt.Sprintf("import_summary_%s.txt", timestamp)
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	mode := "import"
	if summary.DryRun {
		mode = "dry run"
	}

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "LIMS Results Import - Import Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Mode:           %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Lines:    %d\n"+
		"  Total Samples:  %d\n"+
		"  Total Results:  %d\n"+
		"  Errors:         %d\n"+
		"  Warnings:       %d\n\n",
		mode,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalLines,
		summary.TotalSamples,
		summary.TotalResults,
		summary.TotalErrors,
		summary.TotalWarnings)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Instrument:   %s\n", pf.Instrument)
			for _, out := range pf.Outputs {
				fmt.Fprintf(writer, "  Output:       %s\n", out)
			}
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived:     %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Samples:      %d\n", pf.Samples)
			fmt.Fprintf(writer, "  Results:      %d\n", pf.Results)
			fmt.Fprintf(writer, "  Errors:       %d\n", pf.Errors)
			fmt.Fprintf(writer, "  Warnings:     %d\n", pf.Warnings)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// FileExists reports whether path can be stat'ed.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
