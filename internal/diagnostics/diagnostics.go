// =============================================================================
// LIMS Results Import - Diagnostics
// =============================================================================
//
// Every parse produces three ordered lists:
//   - errors   : fatal-to-row or fatal-to-file conditions
//   - warnings : recoverable anomalies (the row or value is kept)
//   - logs     : informational entries
//
// ERROR HANDLING:
//   - Row- and value-level problems are collected as Entry values and never
//     unwind the parse.
//   - Only the fatal conditions (no sequence table, empty sequence table)
//     stop a file early. They are returned as *FatalError wrapping one of the
//     sentinel errors below, and are also recorded in the error list so the
//     caller always gets the full picture.
//
// =============================================================================

package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SEVERITY AND KIND
// =============================================================================

// Severity selects which of the three lists an entry lands in.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Kind classifies an entry so callers and tests can count specific problems
// without matching on message text.
type Kind string

const (
	// Fatal, file level.
	KindMissingSection     Kind = "missing_section"
	KindEmptySequenceTable Kind = "empty_sequence_table"

	// Value level.
	KindNumericParse Kind = "numeric_parse"

	// Row level.
	KindOrphanValue     Kind = "orphan_value"
	KindMissingCompound Kind = "missing_compound"
	KindMissingColumn   Kind = "missing_column"
	KindUnmatchedRow    Kind = "unmatched_row"
	KindAmbiguousRow    Kind = "ambiguous_row"
	KindInvalidSequence Kind = "invalid_sequence"

	// Header record.
	KindDuplicateHeader    Kind = "duplicate_header"
	KindEmptyHeaderValue   Kind = "empty_header_value"
	KindInvalidHeaderValue Kind = "invalid_header_value"

	// Structure.
	KindSectionOrder    Kind = "section_order"
	KindDuplicateColumn Kind = "duplicate_column_header"

	// Informational.
	KindSectionEntered  Kind = "section_entered"
	KindSkippedRow      Kind = "skipped_row"
	KindResultOverwrite Kind = "result_overwrite"
	KindImport          Kind = "import"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is a single diagnostic. Line is 1-based and zero when the entry is
// not tied to a line of the input.
type Entry struct {
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// String renders the entry the way the LIMS front end shows it.
func (e Entry) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("Line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// =============================================================================
// REPORT
// =============================================================================

// Report holds the three ordered diagnostic lists of one parse or import.
type Report struct {
	Errors   []Entry `json:"errors"`
	Warnings []Entry `json:"warnings"`
	Logs     []Entry `json:"logs"`
}

// Add appends the entry to the list matching its severity.
func (r *Report) Add(e Entry) {
	switch e.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, e)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, e)
	default:
		r.Logs = append(r.Logs, e)
	}
}

// AddAll appends entries in order.
func (r *Report) AddAll(entries []Entry) {
	for _, e := range entries {
		r.Add(e)
	}
}

// Merge appends all entries of other, keeping their order.
func (r *Report) Merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Logs = append(r.Logs, other.Logs...)
}

// Count returns how many entries of the given kind were recorded, across
// all three lists.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, list := range [][]Entry{r.Errors, r.Warnings, r.Logs} {
		for _, e := range list {
			if e.Kind == kind {
				n++
			}
		}
	}
	return n
}

// HasErrors reports whether the error list is non-empty.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Payload is the JSON document returned to the LIMS import view.
type Payload struct {
	Errors []string `json:"errors"`
	Log    []string `json:"log"`
	Warns  []string `json:"warns"`
}

// Payload flattens the report to message strings.
func (r *Report) Payload() Payload {
	return Payload{
		Errors: render(r.Errors),
		Log:    render(r.Logs),
		Warns:  render(r.Warnings),
	}
}

// JSON renders {"errors": [...], "log": [...], "warns": [...]}.
func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(r.Payload())
}

func render(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}

// Format formats a report for display or a plain-text log file.
func Format(r *Report) string {
	total := len(r.Errors) + len(r.Warnings) + len(r.Logs)
	if total == 0 {
		return "No diagnostics."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d error(s), %d warning(s), %d log entr(ies)\n\n",
		len(r.Errors), len(r.Warnings), len(r.Logs))

	write := func(title string, entries []Entry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for i, e := range entries {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, e.Kind, e.String())
			if e.Text != "" {
				fmt.Fprintf(&b, "   > %s\n", e.Text)
			}
		}
		b.WriteString("\n")
	}

	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	write("Log", r.Logs)

	return b.String()
}

// =============================================================================
// FATAL ERRORS
// =============================================================================

var (
	// ErrMissingSection means the file never reached a sequence table.
	ErrMissingSection = errors.New("missing section")

	// ErrEmptySequenceTable means the sequence table closed without entries.
	ErrEmptySequenceTable = errors.New("empty sequence table")
)

// FatalError aborts the parse of a whole file.
type FatalError struct {
	Entry Entry
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Entry.String())
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is a fatal parse error.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
