package score

import (
	"fmt"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// Band thresholds for the readiness index
const (
	highBandMin   = 70
	mediumBandMin = 40
)

// lowConfidenceThreshold marks verdicts the oracle was unsure about
const lowConfidenceThreshold = 0.5

// Scorer digests an analysis report into counts and diagnostic signals.
// The oracle's overall score is reported unchanged.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Summarize builds the display summary for a report
func (s *Scorer) Summarize(report *model.AnalysisReport) model.AuditSummary {
	if report == nil {
		return model.AuditSummary{
			Band:    s.band(0),
			Counts:  map[model.ClaimStatus]int{},
			Signals: []model.Signal{},
		}
	}

	signals := []model.Signal{}

	// 1. Nothing extracted
	if len(report.Claims) == 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalNoClaims,
			Severity:    model.SeverityWarning,
			Description: "No claims extracted",
		})
	}

	// 2. Contradictions
	if sig, ok := s.statusSignal(report, model.StatusContradiction, model.SignalContradiction, model.SeverityCritical,
		"%d claim(s) contradict the references"); ok {
		signals = append(signals, sig)
	}

	// 3. Claims needing nuance or citation
	if sig, ok := s.statusSignal(report, model.StatusWarning, model.SignalUnsupported, model.SeverityWarning,
		"%d claim(s) lack nuance or citation"); ok {
		signals = append(signals, sig)
	}

	// 4. Low confidence verdicts
	if sig, ok := s.detectLowConfidence(report); ok {
		signals = append(signals, sig)
	}

	// 5. Claims not tied to any reference
	if sig, ok := s.detectUncited(report); ok {
		signals = append(signals, sig)
	}

	// 6. Compliance issues
	if n := len(report.ComplianceIssues); n > 0 {
		severity := model.SeverityWarning
		if report.IsFallback() {
			severity = model.SeverityCritical
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalCompliance,
			Severity:    severity,
			Description: fmt.Sprintf("%d compliance issue(s): %s", n, report.KeyIssue()),
		})
	}

	// 7. Validator adjustments
	if n := len(report.Warnings); n > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalValidatorNotes,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("%d validation note(s): %s", n, report.Warnings[0]),
		})
	}

	return model.AuditSummary{
		OverallScore:   report.OverallScore,
		Band:           s.band(report.OverallScore),
		Counts:         report.ClaimsByStatus(),
		MeanConfidence: s.meanConfidence(report.Claims),
		Signals:        signals,
	}
}

func (s *Scorer) statusSignal(report *model.AnalysisReport, status model.ClaimStatus, typ model.SignalType, severity model.SignalSeverity, format string) (model.Signal, bool) {
	var ids []string
	for _, c := range report.Claims {
		if c.Status == status {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        typ,
		Severity:    severity,
		Description: fmt.Sprintf(format, len(ids)),
		ClaimIDs:    ids,
	}, true
}

func (s *Scorer) detectLowConfidence(report *model.AnalysisReport) (model.Signal, bool) {
	var ids []string
	for _, c := range report.Claims {
		if c.Confidence < lowConfidenceThreshold {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalLowConfidence,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d verdict(s) below %.0f%% confidence", len(ids), lowConfidenceThreshold*100),
		ClaimIDs:    ids,
	}, true
}

func (s *Scorer) detectUncited(report *model.AnalysisReport) (model.Signal, bool) {
	var ids []string
	for _, c := range report.Claims {
		if c.SourceID == "" {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalUncitedClaim,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d claim(s) not linked to a reference", len(ids)),
		ClaimIDs:    ids,
	}, true
}

func (s *Scorer) meanConfidence(claims []model.Claim) float64 {
	if len(claims) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range claims {
		sum += c.Confidence
	}
	return sum / float64(len(claims))
}

// band maps the readiness index to low, medium or high
func (s *Scorer) band(index int) string {
	switch {
	case index >= highBandMin:
		return "high"
	case index >= mediumBandMin:
		return "medium"
	default:
		return "low"
	}
}
