package gcms

import "github.com/ginjaninja78/lims-results-import/internal/types"

// Column names shared by the sequence table and the result blocks.
const (
	ColumnDataFile   = "Data File"
	ColumnSampleName = "Sample Name"
	ColumnCompound   = "Compound"
)

// SequenceIndex holds the sequence table rows of one file, indexed by their
// Data File value. Entries are never modified once added.
type SequenceIndex struct {
	entries    []types.Row
	byDataFile map[string][]int
}

// NewSequenceIndex returns an empty index.
func NewSequenceIndex() *SequenceIndex {
	return &SequenceIndex{byDataFile: make(map[string][]int)}
}

// Add records a sequence entry.
func (s *SequenceIndex) Add(entry types.Row) {
	s.entries = append(s.entries, entry)
	key := entry.Get(ColumnDataFile).String()
	s.byDataFile[key] = append(s.byDataFile[key], len(s.entries)-1)
}

// Lookup returns every entry whose Data File equals dataFile, in file order.
func (s *SequenceIndex) Lookup(dataFile string) []types.Row {
	idx := s.byDataFile[dataFile]
	if len(idx) == 0 {
		return nil
	}
	out := make([]types.Row, len(idx))
	for i, j := range idx {
		out[i] = s.entries[j]
	}
	return out
}

// Len returns the number of entries.
func (s *SequenceIndex) Len() int {
	return len(s.entries)
}

// Entries returns the entries in file order.
func (s *SequenceIndex) Entries() []types.Row {
	return s.entries
}
