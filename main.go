// =============================================================================
// LIMS Results Import - Main Entry Point
// =============================================================================
//
// USAGE:
//   resultsimport import        - Import every export in the input directory
//   resultsimport check <file>  - Print the diagnostics of one export
//   resultsimport instruments   - List the supported instruments
//   resultsimport version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : parsing, aggregation, import hand-off
//   - pkg/           : file management utilities
//   - profiles/      : per-instrument YAML profiles
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/lims-results-import/cmd"

	// Instrument interfaces register themselves on import.
	_ "github.com/ginjaninja78/lims-results-import/internal/instruments/shimadzu"
)

func main() {
	cmd.Execute()
}
