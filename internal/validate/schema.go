package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// ErrInvalidSchema is returned when a well-formed JSON payload does not
// describe a valid analysis report
var ErrInvalidSchema = errors.New("invalid response schema")

// Payload is the audit report as decoded from the wire, before validation.
// Pointer fields distinguish "missing" from zero values.
type Payload struct {
	OverallScore     *float64       `json:"overallScore"`
	Claims           []ClaimPayload `json:"claims"`
	ComplianceIssues []string       `json:"complianceIssues"`
	ToneAnalysis     string         `json:"toneAnalysis"`
}

// ClaimPayload is a single claim as decoded from the wire
type ClaimPayload struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Status      string   `json:"status"`
	Confidence  *float64 `json:"confidence"`
	SourceID    string   `json:"sourceId"`
	Explanation string   `json:"explanation"`
	Suggestion  string   `json:"suggestion"`
}

// Validator turns decoded payloads into analysis reports
type Validator struct {
	policy Policy
}

// NewValidator creates a validator applying the given range policy
func NewValidator(policy Policy) *Validator {
	if policy == "" {
		policy = PolicyReject
	}
	return &Validator{policy: policy}
}

// Policy returns the range policy in effect
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate checks p against the report schema. refs are the references
// submitted with the audit; claims citing other IDs are kept with a warning.
// Violations are reported together, wrapped in ErrInvalidSchema.
func (v *Validator) Validate(p *Payload, refs []model.Reference) (*model.AnalysisReport, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidSchema)
	}

	var problems, warnings []string

	score := 0
	switch {
	case p.OverallScore == nil:
		problems = append(problems, "overallScore is required")
	default:
		value, note, err := v.applyRange("overallScore", *p.OverallScore, 0, 100)
		if err != nil {
			problems = append(problems, err.Error())
		}
		if note != "" {
			warnings = append(warnings, note)
		}
		if math.Abs(value) > math.MaxInt32 {
			problems = append(problems, fmt.Sprintf("overallScore %g is not representable", value))
			break
		}
		score = int(math.Round(value))
		if err == nil && value != math.Trunc(value) {
			warnings = append(warnings, fmt.Sprintf("overallScore %g rounded to %d", value, score))
		}
	}

	if p.Claims == nil {
		problems = append(problems, "claims is required")
	}

	known := model.ReferenceIDs(refs)
	claims := make([]model.Claim, 0, len(p.Claims))
	seen := make(map[string]bool, len(p.Claims))

	for i, cp := range p.Claims {
		label := fmt.Sprintf("claims[%d]", i)

		id := strings.TrimSpace(cp.ID)
		if id == "" {
			id = fmt.Sprintf("claim-%d", i+1)
		}
		if seen[id] {
			warnings = append(warnings, fmt.Sprintf("duplicate claim id %q", id))
		}
		seen[id] = true

		if strings.TrimSpace(cp.Text) == "" {
			problems = append(problems, label+".text is required")
		}

		status := model.ClaimStatus(strings.ToLower(strings.TrimSpace(cp.Status)))
		if !status.Valid() {
			problems = append(problems, fmt.Sprintf("%s.status %q is not one of verified, warning, contradiction", label, cp.Status))
		}

		confidence := 0.0
		if cp.Confidence == nil {
			problems = append(problems, label+".confidence is required")
		} else {
			value, note, err := v.applyRange(label+".confidence", *cp.Confidence, 0, 1)
			if err != nil {
				problems = append(problems, err.Error())
			}
			if note != "" {
				warnings = append(warnings, note)
			}
			confidence = value
		}

		sourceID := strings.TrimSpace(cp.SourceID)
		if sourceID != "" && !known[sourceID] {
			warnings = append(warnings, fmt.Sprintf("%s cites unknown reference %q", id, sourceID))
		}

		claims = append(claims, model.Claim{
			ID:          id,
			Text:        cp.Text,
			Status:      status,
			Confidence:  confidence,
			SourceID:    sourceID,
			Explanation: cp.Explanation,
			Suggestion:  cp.Suggestion,
		})
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchema, strings.Join(problems, "; "))
	}

	issues := p.ComplianceIssues
	if issues == nil {
		issues = []string{}
	}

	return &model.AnalysisReport{
		OverallScore:     score,
		Claims:           claims,
		ComplianceIssues: issues,
		ToneAnalysis:     p.ToneAnalysis,
		Warnings:         warnings,
	}, nil
}
