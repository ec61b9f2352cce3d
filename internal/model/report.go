package model

// AnalysisReport is the result of a single audit run.
// A new report replaces the previous one; no history is retained.
type AnalysisReport struct {
	OverallScore     int      `json:"overallScore" yaml:"overall_score"` // Readiness index (0-100)
	Claims           []Claim  `json:"claims" yaml:"claims"`
	ComplianceIssues []string `json:"complianceIssues" yaml:"compliance_issues"`
	ToneAnalysis     string   `json:"toneAnalysis" yaml:"tone_analysis"`

	// Warnings are validator notes (clamped values, unknown source IDs).
	// Never produced by the oracle itself.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FallbackReport returns the zero-score report shown when an audit fails
func FallbackReport(issue string) *AnalysisReport {
	return &AnalysisReport{
		OverallScore:     0,
		Claims:           []Claim{},
		ComplianceIssues: []string{issue},
		ToneAnalysis:     "N/A",
	}
}

// IsFallback reports whether the report looks like a failure placeholder
func (r *AnalysisReport) IsFallback() bool {
	return r != nil && r.OverallScore == 0 && len(r.Claims) == 0 && r.ToneAnalysis == "N/A"
}

// ClaimsByStatus counts claims per status
func (r *AnalysisReport) ClaimsByStatus() map[ClaimStatus]int {
	counts := make(map[ClaimStatus]int, len(ClaimStatuses))
	if r == nil {
		return counts
	}
	for _, c := range r.Claims {
		counts[c.Status]++
	}
	return counts
}

// KeyIssue returns the first compliance issue or "None"
func (r *AnalysisReport) KeyIssue() string {
	if r == nil || len(r.ComplianceIssues) == 0 || r.ComplianceIssues[0] == "" {
		return "None"
	}
	return r.ComplianceIssues[0]
}

// AuditSummary is a client-side digest of a report used for display.
// It never changes the oracle's score.
type AuditSummary struct {
	OverallScore   int                 `json:"overallScore"`
	Band           string              `json:"band"` // "low", "medium", "high"
	Counts         map[ClaimStatus]int `json:"counts"`
	MeanConfidence float64             `json:"meanConfidence"`
	Signals        []Signal            `json:"signals"`
}

// Signal is a diagnostic note derived from a report
type Signal struct {
	Type        SignalType     `json:"type"`
	Severity    SignalSeverity `json:"severity"`
	Description string         `json:"description"`
	ClaimIDs    []string       `json:"claimIds,omitempty"`
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalContradiction  SignalType = "contradiction"   // Claims opposing the references
	SignalUnsupported    SignalType = "unsupported"     // Warning claims needing citation
	SignalLowConfidence  SignalType = "low_confidence"  // Oracle unsure about a verdict
	SignalUncitedClaim   SignalType = "uncited_claim"   // Claim with no source reference
	SignalCompliance     SignalType = "compliance"      // Compliance issues reported
	SignalNoClaims       SignalType = "no_claims"       // Nothing was extracted
	SignalValidatorNotes SignalType = "validator_notes" // Report was adjusted during validation
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
