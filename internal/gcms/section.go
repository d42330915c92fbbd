package gcms

import (
	"strings"

	"github.com/ginjaninja78/lims-results-import/internal/config"
)

// Section is the region of the export a line belongs to. Sections only ever
// move forward, in declaration order.
type Section int

const (
	SectionPreamble Section = iota
	SectionHeader
	SectionFileInformation
	SectionSequenceTable
	SectionOriginalFiles
	SectionQuantitation
)

func (s Section) String() string {
	switch s {
	case SectionPreamble:
		return "Preamble"
	case SectionHeader:
		return "Header"
	case SectionFileInformation:
		return "File Information"
	case SectionSequenceTable:
		return "Sequence Table"
	case SectionOriginalFiles:
		return "Original Files"
	case SectionQuantitation:
		return "Quantitation Results"
	default:
		return "Unknown"
	}
}

// classifier recognises section markers by exact, case-sensitive prefix.
type classifier struct {
	markers []marker
}

type marker struct {
	prefix  string
	section Section
}

func newClassifier(m config.Markers) classifier {
	var c classifier
	add := func(prefix string, s Section) {
		if prefix != "" {
			c.markers = append(c.markers, marker{prefix: prefix, section: s})
		}
	}

	add(m.Header, SectionHeader)
	add(m.FileInformation, SectionFileInformation)
	add(m.SampleTable, SectionSequenceTable)
	add(m.OriginalFiles, SectionOriginalFiles)
	for _, q := range m.Quantitation {
		add(q, SectionQuantitation)
	}

	return c
}

// classify returns the section a marker line opens.
func (c classifier) classify(line string) (Section, bool) {
	for _, m := range c.markers {
		if strings.HasPrefix(line, m.prefix) {
			return m.section, true
		}
	}
	return SectionPreamble, false
}
