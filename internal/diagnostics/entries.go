package diagnostics

import "fmt"

// Constructors for the entries the parser emits. Keeping the wording in one
// place keeps the messages stable between runs and between parsers.

func MissingSection(line int, reason string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindMissingSection,
		Message:  reason,
		Line:     line,
	}
}

func EmptySequenceTable(line int) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindEmptySequenceTable,
		Message:  "No Sequence Table found",
		Line:     line,
	}
}

// NumericParse reports a token that could not be read as a number. index is
// the 1-based column position.
func NumericParse(line int, text string, index int, column, token string) Entry {
	return Entry{
		Severity: SeverityWarning,
		Kind:     KindNumericParse,
		Message:  fmt.Sprintf("No valid number %s in column %d (%s)", token, index, column),
		Line:     line,
		Text:     text,
	}
}

func OrphanValue(line int, text string, index int, token string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindOrphanValue,
		Message:  fmt.Sprintf("Orphan value in column %d (%s)", index, token),
		Line:     line,
		Text:     text,
	}
}

func MissingCompound(line int, text string) Entry {
	return Entry{
		Severity: SeverityWarning,
		Kind:     KindMissingCompound,
		Message:  "No Target Compound found",
		Line:     line,
		Text:     text,
	}
}

func MissingColumn(line int, text, column string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindMissingColumn,
		Message:  fmt.Sprintf("Value for column '%s' not found", column),
		Line:     line,
		Text:     text,
	}
}

func MissingDataFile(line int, text string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindMissingColumn,
		Message:  "No Data File found for quantitation result",
		Line:     line,
		Text:     text,
	}
}

func UnmatchedRow(line int, text, dataFile string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindUnmatchedRow,
		Message:  fmt.Sprintf("No sample found for quantitative result %s", dataFile),
		Line:     line,
		Text:     text,
	}
}

func AmbiguousRow(line int, text, dataFile string, matches int) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindAmbiguousRow,
		Message:  fmt.Sprintf("More than one sequence found for quantitative result: %s (%d matches)", dataFile, matches),
		Line:     line,
		Text:     text,
	}
}

func InvalidSequence(line int, text, dataFile string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindInvalidSequence,
		Message:  fmt.Sprintf("No valid sequence for %s", dataFile),
		Line:     line,
		Text:     text,
	}
}

func DuplicateHeader(line int, text, key string) Entry {
	return Entry{
		Severity: SeverityWarning,
		Kind:     KindDuplicateHeader,
		Message:  fmt.Sprintf("Header %s already found. Discarding", key),
		Line:     line,
		Text:     text,
	}
}

func EmptyHeaderValue(line int, text, key string) Entry {
	return Entry{
		Severity: SeverityWarning,
		Kind:     KindEmptyHeaderValue,
		Message:  fmt.Sprintf("%s not found or empty", key),
		Line:     line,
		Text:     text,
	}
}

func InvalidHeaderValue(line int, text, key string) Entry {
	return Entry{
		Severity: SeverityError,
		Kind:     KindInvalidHeaderValue,
		Message:  fmt.Sprintf("Invalid %s format", key),
		Line:     line,
		Text:     text,
	}
}

func SectionOrder(line int, text, marker string) Entry {
	return Entry{
		Severity: SeverityWarning,
		Kind:     KindSectionOrder,
		Message:  fmt.Sprintf("Section %s appears out of order. Ignoring", marker),
		Line:     line,
		Text:     text,
	}
}

func DuplicateColumnHeader(line int, text string) Entry {
	return Entry{
		Severity: SeverityWarning,
		Kind:     KindDuplicateColumn,
		Message:  "Column header row repeated within the same block. Ignoring",
		Line:     line,
		Text:     text,
	}
}

func SectionEntered(line int, section string) Entry {
	return Entry{
		Severity: SeverityInfo,
		Kind:     KindSectionEntered,
		Message:  fmt.Sprintf("Entered section %s", section),
		Line:     line,
	}
}

func SkippedRow(line int, text, dataFile string) Entry {
	return Entry{
		Severity: SeverityInfo,
		Kind:     KindSkippedRow,
		Message:  fmt.Sprintf("Skipped response check run %s", dataFile),
		Line:     line,
		Text:     text,
	}
}

func ResultOverwrite(line int, text, sample, compound string) Entry {
	return Entry{
		Severity: SeverityInfo,
		Kind:     KindResultOverwrite,
		Message:  fmt.Sprintf("Result for %s / %s replaced by a later row", sample, compound),
		Line:     line,
		Text:     text,
	}
}
