package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSON(t *testing.T) {
	row := Row{"Resp": Number(6103), "ISTD": Text("ISTD"), "Bad": Text("n/a")}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Resp": 6103, "ISTD": "ISTD", "Bad": "n/a"}`, string(data))

	var back Row
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(row, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValueJSONNonFinite(t *testing.T) {
	data, err := json.Marshal(Row{"a": Number(math.NaN()), "b": Number(math.Inf(1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "NaN", "b": "+Inf"}`, string(data))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "0.0437", Number(0.0437).String())
	assert.Equal(t, "-1", Number(-1).String())
	assert.Equal(t, "n/a", Text("n/a").String())

	_, ok := Text("1").Float()
	assert.False(t, ok)
}

func TestHeaderValueString(t *testing.T) {
	tests := []struct {
		name  string
		value HeaderValue
		want  string
	}{
		{"text", HeaderValue{Kind: HeaderText, Text: "admin"}, "admin"},
		{"clock time", HeaderValue{Kind: HeaderTime, Time: time.Date(0, 1, 1, 15, 36, 43, 0, time.UTC)}, "15:36:43"},
		{"date", HeaderValue{Kind: HeaderTime, Time: time.Date(2013, 1, 29, 0, 0, 0, 0, time.UTC)}, "2013-01-29"},
		{"date and time", HeaderValue{Kind: HeaderTime, Time: time.Date(2013, 1, 29, 15, 36, 40, 0, time.UTC)}, "2013-01-29 15:36:40"},
		{"list", HeaderValue{Kind: HeaderList, List: []string{"a", "b"}}, "a, b"},
		{"empty list", HeaderValue{Kind: HeaderList, List: []string{}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestSortedAccessors(t *testing.T) {
	res := Results{
		"b": SampleResult{"z": Row{}, "a": Row{}},
		"a": SampleResult{},
	}
	assert.Equal(t, []string{"a", "b"}, res.SampleIDs())
	assert.Equal(t, []string{"a", "z"}, res["b"].Compounds())

	h := HeaderRecord{"Output Time": {}, "Generated": {}}
	assert.Equal(t, []string{"Generated", "Output Time"}, h.Keys())

	row := Row{"x": Number(1)}
	clone := row.Clone()
	clone["y"] = Text("2")
	assert.False(t, row.Has("y"))
	assert.True(t, clone.Has("x"))
}
