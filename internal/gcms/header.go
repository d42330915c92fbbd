package gcms

import (
	"time"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/csvparser"
	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Header keys with a typed value. Everything else is kept as text.
const (
	HeaderDataFileName = "Data File Name"
	HeaderOutputDate   = "Output Date"
	HeaderOutputTime   = "Output Time"
	HeaderDataFileType = "Data File"
	HeaderGenerated    = "Generated"
	HeaderGeneratedBy  = "Generated By"
	HeaderModified     = "Modified"
	HeaderModifiedBy   = "Modified by"
)

// OriginalFilesPrefix is prepended to the keys of the [Original Files] block,
// which reuses names of the [File Information] block such as "Data File".
const OriginalFilesPrefix = "Original Files/"

var (
	dateLayouts     = []string{"1/2/2006"}
	timeLayouts     = []string{"3:04:05 PM", "3:04 PM"}
	dateTimeLayouts = []string{"1/2/2006 3:04:05 PM", "1/2/2006 3:04 PM"}
)

var timeKeys = map[string][]string{
	HeaderOutputDate: dateLayouts,
	HeaderOutputTime: timeLayouts,
	HeaderGenerated:  dateTimeLayouts,
	HeaderModified:   dateTimeLayouts,
}

// headerParser fills the header record from the lines before the sequence
// table and from the original-files block.
type headerParser struct {
	record   types.HeaderRecord
	listKeys map[string]bool
}

func newHeaderParser(m config.Markers) *headerParser {
	lists := make(map[string]bool)
	for _, k := range []string{m.Header, m.FileInformation, m.OriginalFiles} {
		if k != "" {
			lists[k] = true
		}
	}
	return &headerParser{
		record:   make(types.HeaderRecord),
		listKeys: lists,
	}
}

func (h *headerParser) handle(numLine int, line string, section Section, report *diagnostics.Report) {
	if csvparser.IsBlank(line) {
		return
	}

	tokens := csvparser.Split(line)
	key := tokens[0]
	if key == "" {
		return
	}

	if section == SectionOriginalFiles && !h.listKeys[key] {
		key = OriginalFilesPrefix + key
	}

	if _, exists := h.record[key]; exists {
		report.Add(diagnostics.DuplicateHeader(numLine, line, key))
		return
	}

	// [Header],a,b,,c  ->  [a b c]
	if h.listKeys[key] {
		values := []string{}
		for _, t := range tokens[1:] {
			if t != "" {
				values = append(values, t)
			}
		}
		h.record[key] = types.HeaderValue{Kind: types.HeaderList, List: values}
		return
	}

	value := ""
	if len(tokens) > 1 {
		value = tokens[1]
	}
	if value == "" {
		report.Add(diagnostics.EmptyHeaderValue(numLine, line, key))
		return
	}

	layouts, isTime := timeKeys[key]
	if !isTime {
		h.record[key] = types.HeaderValue{Kind: types.HeaderText, Text: value}
		return
	}

	t, ok := parseTime(value, layouts)
	if !ok {
		report.Add(diagnostics.InvalidHeaderValue(numLine, line, key))
		return
	}
	h.record[key] = types.HeaderValue{Kind: types.HeaderTime, Time: t}
}

func parseTime(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
