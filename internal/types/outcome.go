package types

import "github.com/ginjaninja78/lims-results-import/internal/diagnostics"

// Outcome is everything one parse pass produced. On a fatal parse error
// Results is empty and Report still carries every diagnostic collected up
// to the failure.
type Outcome struct {
	Header   HeaderRecord
	Sequence []Row
	Results  Results
	Report   diagnostics.Report
	Lines    int
}

// Samples returns the number of aggregated samples.
func (o *Outcome) Samples() int {
	return len(o.Results)
}
