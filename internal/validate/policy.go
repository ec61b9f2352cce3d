package validate

import (
	"fmt"
	"strings"
)

// Policy decides what happens to numeric fields outside their range
type Policy string

const (
	PolicyReject      Policy = "reject"      // Out-of-range values fail validation
	PolicyClamp       Policy = "clamp"       // Values are clamped into range with a warning
	PolicyPassthrough Policy = "passthrough" // Values are kept as-is with a warning
)

// ParsePolicy parses a policy name; empty selects PolicyReject
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyClamp:
		return PolicyClamp, nil
	case PolicyPassthrough:
		return PolicyPassthrough, nil
	default:
		return "", fmt.Errorf("unknown range policy %q (want reject, clamp or passthrough)", s)
	}
}

// applyRange returns the value to store, an optional warning, and an error
// when the policy rejects the value
func (v *Validator) applyRange(field string, value, lo, hi float64) (float64, string, error) {
	if value >= lo && value <= hi {
		return value, "", nil
	}

	switch v.policy {
	case PolicyClamp:
		clamped := min(max(value, lo), hi)
		return clamped, fmt.Sprintf("%s %g clamped to %g", field, value, clamped), nil
	case PolicyPassthrough:
		return value, fmt.Sprintf("%s %g outside [%g, %g]", field, value, lo, hi), nil
	default:
		return value, "", fmt.Errorf("%s %g outside [%g, %g]", field, value, lo, hi)
	}
}
