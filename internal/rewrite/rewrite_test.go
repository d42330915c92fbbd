package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lims-results-import/internal/config"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		rules []config.SampleIDRule
		input string
		want  string
	}{
		{name: "no rules", input: "LS_60", want: "LS_60"},
		{
			name:  "trim and uppercase",
			rules: []config.SampleIDRule{{Type: "trim"}, {Type: "uppercase"}},
			input: "  ls_60 ",
			want:  "LS_60",
		},
		{
			name:  "lowercase",
			rules: []config.SampleIDRule{{Type: "lowercase"}},
			input: "DSS_Nist_L1",
			want:  "dss_nist_l1",
		},
		{
			name:  "strip replicate suffix",
			rules: []config.SampleIDRule{{Type: "regex_replace", Find: "-r[0-9]+$"}},
			input: "LS_60-r002",
			want:  "LS_60",
		},
		{
			name:  "prepend and append",
			rules: []config.SampleIDRule{{Type: "prepend_string", Value: "H-"}, {Type: "append_string", Value: "-01"}},
			input: "0042",
			want:  "H-0042-01",
		},
		{
			name:  "pad zeros",
			rules: []config.SampleIDRule{{Type: "pad_zeros_to_length", Value: "6"}},
			input: "42",
			want:  "000042",
		},
		{
			name:  "replace",
			rules: []config.SampleIDRule{{Type: "replace", Find: "_", Value: "-"}},
			input: "UTAK_DS_L1",
			want:  "UTAK-DS-L1",
		},
		{
			name:  "replace with empty find is a no-op",
			rules: []config.SampleIDRule{{Type: "replace", Value: "-"}},
			input: "UTAK_DS_L1",
			want:  "UTAK_DS_L1",
		},
		{
			name: "lookup hit and miss",
			rules: []config.SampleIDRule{{Type: "lookup", LookupTable: map[string]string{
				"FDBS_31": "H-000031",
			}}},
			input: "FDBS_31",
			want:  "H-000031",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw, err := New(tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rw.Apply(tt.input))
			assert.Equal(t, len(tt.rules), rw.Len())
		})
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	_, err := New([]config.SampleIDRule{{Type: "regex_replace", Find: "("}})
	assert.Error(t, err)

	_, err = New([]config.SampleIDRule{{Type: "pad_zeros_to_length", Value: "six"}})
	assert.Error(t, err)

	_, err = New([]config.SampleIDRule{{Type: "reverse"}})
	assert.Error(t, err)
}

func TestNilRewriter(t *testing.T) {
	var rw *Rewriter
	assert.Equal(t, "x", rw.Apply("x"))
	assert.Equal(t, 0, rw.Len())
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "0007", PadLeft("7", 4, '0'))
	assert.Equal(t, "12345", PadLeft("12345", 3, '0'))
}
