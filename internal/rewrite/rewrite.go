// =============================================================================
// LIMS Results Import - Sample Identifier Rewriting
// =============================================================================
//
// Sequence tables name runs the way the operator typed them into the
// instrument software ("LS_60", "ls_60 ", "60"). The LIMS keys results by its
// own sample identifiers, so each instrument profile can list rewrite rules
// that turn the Sample Name column into the identifier used as the result
// key. Rules are applied in order.
//
// SUPPORTED RULES:
//   trim, uppercase, lowercase, prepend_string, append_string, replace,
//   regex_replace, pad_zeros_to_length, lookup
//
// =============================================================================

package rewrite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/lims-results-import/internal/config"
)

// Rewriter applies a compiled list of sample id rules.
type Rewriter struct {
	steps []step
}

type step func(string) string

// New compiles rules. Regular expressions and lengths are checked here so a
// bad profile fails at load time rather than on the first matching row.
func New(rules []config.SampleIDRule) (*Rewriter, error) {
	rw := &Rewriter{}

	for i, rule := range rules {
		s, err := compile(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, rule.Type, err)
		}
		rw.steps = append(rw.steps, s)
	}

	return rw, nil
}

// Apply rewrites a sample name. A nil or empty Rewriter returns name as is.
func (rw *Rewriter) Apply(name string) string {
	if rw == nil {
		return name
	}
	for _, s := range rw.steps {
		name = s(name)
	}
	return name
}

// Len returns the number of compiled rules.
func (rw *Rewriter) Len() int {
	if rw == nil {
		return 0
	}
	return len(rw.steps)
}

func compile(rule config.SampleIDRule) (step, error) {
	switch rule.Type {
	case "trim":
		return strings.TrimSpace, nil

	case "uppercase":
		return strings.ToUpper, nil

	case "lowercase":
		return strings.ToLower, nil

	case "prepend_string":
		// "60" with value "LS_" becomes "LS_60"
		return func(s string) string { return rule.Value + s }, nil

	case "append_string":
		return func(s string) string { return s + rule.Value }, nil

	case "replace":
		if rule.Find == "" {
			return identity, nil
		}
		return func(s string) string { return strings.ReplaceAll(s, rule.Find, rule.Value) }, nil

	case "regex_replace":
		// "LS_60-r002" with find "-r[0-9]+$" and value "" becomes "LS_60"
		if rule.Find == "" {
			return identity, nil
		}
		re, err := regexp.Compile(rule.Find)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		return func(s string) string { return re.ReplaceAllString(s, rule.Value) }, nil

	case "pad_zeros_to_length":
		n, err := strconv.Atoi(strings.TrimSpace(rule.Value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid length %q", rule.Value)
		}
		return func(s string) string { return PadLeft(s, n, '0') }, nil

	case "lookup":
		table := rule.LookupTable
		return func(s string) string {
			if v, ok := table[s]; ok {
				return v
			}
			return s
		}, nil

	default:
		return nil, fmt.Errorf("unknown rule type")
	}
}

func identity(s string) string { return s }

// PadLeft pads s on the left with padChar up to length runes.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
