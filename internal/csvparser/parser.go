// =============================================================================
// LIMS Results Import - Line Reader and Row Tokenizer
// =============================================================================
//
// Instrument exports are line-oriented, comma-delimited text split into
// marker-delimited sections. Unlike a plain CSV file they have no single
// header row, no quoting and a varying number of columns per section, so the
// file is read line by line and each line is tokenized against the column
// list of whatever section is active.
//
// FEATURES:
//   - Forward-only line reading with 1-based line numbers
//   - UTF-8 BOM and CR stripping
//   - Pure tokenization of a line against a column list, with numeric
//     columns parsed as float64
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Separator is the column delimiter of the vendor export format.
const Separator = ","

// maxLineSize bounds a single line. Export rows are short; this only guards
// against feeding the reader a binary file.
const maxLineSize = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// LINE READER
// =============================================================================

// LineReader yields the lines of an export one at a time.
//
// USAGE:
//
//	lr := NewLineReader(r)
//	for lr.Next() {
//	    handle(lr.LineNumber(), lr.Line())
//	}
//	if err := lr.Err(); err != nil {
//	    return err
//	}
type LineReader struct {
	scanner *bufio.Scanner
	line    string
	number  int
	err     error
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineReader{scanner: scanner}
}

// Next advances to the next line. It returns false at end of input or on a
// read error.
func (lr *LineReader) Next() bool {
	if lr.err != nil {
		return false
	}
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			lr.err = fmt.Errorf("error reading line %d: %w", lr.number+1, err)
		}
		return false
	}

	raw := lr.scanner.Bytes()
	if lr.number == 0 {
		raw = bytes.TrimPrefix(raw, utf8BOM)
	}
	lr.line = strings.TrimRight(string(raw), "\r")
	lr.number++
	return true
}

// Line returns the current line without its terminator.
func (lr *LineReader) Line() string {
	return lr.line
}

// LineNumber returns the 1-based number of the current line.
func (lr *LineReader) LineNumber() int {
	return lr.number
}

// Err returns the first read error, if any.
func (lr *LineReader) Err() error {
	return lr.err
}

// =============================================================================
// TOKENIZER
// =============================================================================

// Split splits a line on the separator and trims every token.
func Split(line string) []string {
	tokens := strings.Split(line, Separator)
	for i, t := range tokens {
		tokens[i] = strings.TrimSpace(t)
	}
	return tokens
}

// IsBlank reports whether a line holds nothing but separators and whitespace.
func IsBlank(line string) bool {
	for _, t := range Split(line) {
		if t != "" {
			return false
		}
	}
	return true
}

// FirstToken returns the first trimmed token of a line.
func FirstToken(line string) string {
	if i := strings.Index(line, Separator); i >= 0 {
		return strings.TrimSpace(line[:i])
	}
	return strings.TrimSpace(line)
}

// ColumnHeader turns a header row into the ordered column-name list used to
// tokenize the rows that follow it.
//
// Trailing empty names (the padding commas the instrument software emits)
// are dropped. Interior empty names become Column_N so that positions after
// them still line up.
func ColumnHeader(line string) []string {
	tokens := Split(line)

	end := len(tokens)
	for end > 0 && tokens[end-1] == "" {
		end--
	}

	columns := make([]string, end)
	for i := 0; i < end; i++ {
		name := tokens[i]
		if name == "" {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		columns[i] = name
	}
	return columns
}

// Tokenize zips the tokens of line to columns by position.
//
// Tokens in a column listed in numeric are parsed as float64; a token that
// does not parse is kept as text and reported with a NumericParse warning.
// Empty numeric tokens stay empty text. Columns without a token are set to
// the empty string. Every non-empty token beyond the last column is reported
// as an OrphanValue error; the row itself is still returned.
//
// Tokenize has no side effects: the same arguments always produce the same
// row and the same diagnostics.
func Tokenize(line string, numLine int, columns []string, numeric map[string]bool) (types.Row, []diagnostics.Entry) {
	tokens := Split(line)
	row := make(types.Row, len(columns))
	var entries []diagnostics.Entry

	for _, col := range columns {
		row[col] = types.Text("")
	}

	for i, token := range tokens {
		if i >= len(columns) {
			if token != "" {
				entries = append(entries, diagnostics.OrphanValue(numLine, line, i+1, token))
			}
			continue
		}

		col := columns[i]
		if token == "" || !numeric[col] {
			row[col] = types.Text(token)
			continue
		}

		// NaN and Inf parse but are not measurements.
		f, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			entries = append(entries, diagnostics.NumericParse(numLine, line, i+1, col, token))
			row[col] = types.Text(token)
			continue
		}
		row[col] = types.Number(f)
	}

	return row, entries
}

// ColumnSet builds a lookup set from a list of column names.
func ColumnSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = true
	}
	return set
}
