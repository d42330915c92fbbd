package importer

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
)

// Values accepted by the import form.
const (
	ARToApplyReceived             = "received"
	ARToApplyReceivedToBeVerified = "received_tobeverified"

	OverrideNone  = "nooverride"
	OverrideAll   = "override"
	OverrideEmpty = "overrideempty"

	SampleRequestID      = "requestid"
	SampleSampleID       = "sampleid"
	SampleClientSampleID = "clientsid"
	SampleSampleOrClient = "sample_clientsid"
)

// Identifier fields a sample name may be matched against.
const (
	CriterionRequestID      = "request_id"
	CriterionSampleID       = "sample_id"
	CriterionClientSampleID = "client_sample_id"
)

// Analysis request states results may be applied to.
const (
	StateSampleReceived = "sample_received"
	StateAttachmentDue  = "attachment_due"
	StateToBeVerified   = "to_be_verified"
)

// Options are the raw values of the import form.
type Options struct {
	ARToApply     string
	Override      string
	Sample        string
	InstrumentUID string
}

// OptionsFromConfig copies the import block of the main config.
func OptionsFromConfig(s config.ImportSettings) Options {
	return Options{
		ARToApply:     s.ARToApply,
		Override:      s.Override,
		Sample:        s.Sample,
		InstrumentUID: s.InstrumentUID,
	}
}

// Settings are the resolved import options handed to sinks.
type Settings struct {
	AllowedStates []string `json:"allowed_states"`

	// Override replaces existing results; OverrideEmpty also replaces them
	// with empty values.
	Override      bool `json:"override"`
	OverrideEmpty bool `json:"override_empty"`

	IDSearchCriteria []string `json:"id_search_criteria"`
	InstrumentUID    string   `json:"instrument_uid,omitempty"`
}

// ParseOptions resolves the form values. Unknown or empty values fall back to
// the form defaults; unknown ones are reported as warnings.
func ParseOptions(o Options) (Settings, []diagnostics.Entry) {
	var warnings []diagnostics.Entry
	unknown := func(field, value string) {
		if strings.TrimSpace(value) != "" {
			warnings = append(warnings, diagnostics.Entry{
				Severity: diagnostics.SeverityWarning,
				Kind:     diagnostics.KindImport,
				Message:  fmt.Sprintf("Unknown %s option %q, using the default", field, value),
			})
		}
	}

	s := Settings{InstrumentUID: o.InstrumentUID}

	switch o.ARToApply {
	case ARToApplyReceived:
		s.AllowedStates = []string{StateSampleReceived}
	case ARToApplyReceivedToBeVerified:
		s.AllowedStates = []string{StateSampleReceived, StateAttachmentDue, StateToBeVerified}
	default:
		unknown("artoapply", o.ARToApply)
		s.AllowedStates = []string{StateSampleReceived, StateAttachmentDue, StateToBeVerified}
	}

	switch o.Override {
	case OverrideNone:
	case OverrideAll:
		s.Override = true
	case OverrideEmpty:
		s.Override = true
		s.OverrideEmpty = true
	default:
		unknown("override", o.Override)
	}

	switch o.Sample {
	case SampleRequestID:
		s.IDSearchCriteria = []string{CriterionRequestID}
	case SampleSampleID:
		s.IDSearchCriteria = []string{CriterionSampleID}
	case SampleClientSampleID:
		s.IDSearchCriteria = []string{CriterionClientSampleID}
	case SampleSampleOrClient:
		s.IDSearchCriteria = []string{CriterionSampleID, CriterionClientSampleID}
	default:
		unknown("sample", o.Sample)
		s.IDSearchCriteria = []string{CriterionRequestID, CriterionSampleID, CriterionClientSampleID}
	}

	return s, warnings
}
