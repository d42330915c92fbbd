// =============================================================================
// LIMS Results Import - Shared Types
// =============================================================================
//
// This package contains the value types passed between the parser, the
// aggregator and the importer sinks. Keeping them here avoids import cycles
// between:
//   - csvparser
//   - gcms
//   - importer, xmlwriter, xlsxwriter
//
// =============================================================================

package types

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CELL VALUES
// =============================================================================

// Value is a single cell of a tokenized row. Cells in configured numeric
// columns hold a float; every other cell (and numeric cells that failed to
// parse) hold the raw text.
type Value struct {
	Text    string
	Number  float64
	Numeric bool
}

// Text returns a string Value.
func Text(s string) Value {
	return Value{Text: s}
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{Number: f, Numeric: true}
}

// Float returns the numeric content and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	return v.Number, v.Numeric
}

// String renders the value the way it would appear in the export file.
func (v Value) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// MarshalJSON encodes numeric values as JSON numbers and the rest as strings.
// Non-finite numbers have no JSON form and are written as their text.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Text(s)
	return nil
}

// =============================================================================
// ROWS AND RESULTS
// =============================================================================

// Row maps a column name to its cell value.
type Row map[string]Value

// Get returns the value of a column, or an empty text value.
func (r Row) Get(column string) Value {
	return r[column]
}

// Has reports whether the row carries the column at all.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Columns returns the column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SampleResult is the aggregated result record of one sample: compound name
// to the quantitation row merged for that compound.
type SampleResult map[string]Row

// Compounds returns the compound names in sorted order.
func (s SampleResult) Compounds() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Results maps a sample identifier to its aggregated result.
type Results map[string]SampleResult

// SampleIDs returns the sample identifiers in sorted order.
func (r Results) SampleIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// HEADER RECORD
// =============================================================================

// HeaderValue is one parsed header entry: a string, a timestamp or an ordered
// list of strings. Exactly one of the fields is meaningful, as told by Kind.
type HeaderValue struct {
	Kind HeaderKind
	Text string
	Time time.Time
	List []string
}

// HeaderKind tells which field of a HeaderValue is set.
type HeaderKind int

const (
	HeaderText HeaderKind = iota
	HeaderTime
	HeaderList
)

// String renders the value for output documents. Times without a date
// render as a clock time and dates without a time as a plain date.
func (h HeaderValue) String() string {
	switch h.Kind {
	case HeaderTime:
		switch {
		case h.Time.Year() == 0:
			return h.Time.Format("15:04:05")
		case h.Time.Hour() == 0 && h.Time.Minute() == 0 && h.Time.Second() == 0:
			return h.Time.Format("2006-01-02")
		default:
			return h.Time.Format("2006-01-02 15:04:05")
		}
	case HeaderList:
		return strings.Join(h.List, ", ")
	default:
		return h.Text
	}
}

// HeaderRecord is the metadata found before the sequence table.
type HeaderRecord map[string]HeaderValue

// Keys returns the header keys, sorted.
func (h HeaderRecord) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
