package model

// Claim is a single factual assertion from the proposal, as judged by the oracle
type Claim struct {
	ID          string      `json:"id" yaml:"id"`
	Text        string      `json:"text" yaml:"text"`                                 // Verbatim excerpt from the proposal
	Status      ClaimStatus `json:"status" yaml:"status"`                             // verified, warning, contradiction
	Confidence  float64     `json:"confidence" yaml:"confidence"`                     // 0-1
	SourceID    string      `json:"sourceId,omitempty" yaml:"source_id,omitempty"`    // Reference the claim was checked against
	Explanation string      `json:"explanation" yaml:"explanation"`                   // Why the status was assigned
	Suggestion  string      `json:"suggestion,omitempty" yaml:"suggestion,omitempty"` // How to fix it (if not verified)
}

// ClaimStatus is the verification verdict for a claim
type ClaimStatus string

const (
	StatusVerified      ClaimStatus = "verified"      // Fully supported by references
	StatusWarning       ClaimStatus = "warning"       // Supported but lacks nuance or citation
	StatusContradiction ClaimStatus = "contradiction" // Directly opposes reference material
)

// ClaimStatuses lists the statuses in display order
var ClaimStatuses = []ClaimStatus{StatusVerified, StatusWarning, StatusContradiction}

// Valid reports whether s is one of the known statuses
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusVerified, StatusWarning, StatusContradiction:
		return true
	default:
		return false
	}
}

// Label returns the traffic-light label used in reports
func (s ClaimStatus) Label() string {
	switch s {
	case StatusVerified:
		return "green"
	case StatusWarning:
		return "yellow"
	case StatusContradiction:
		return "red"
	default:
		return "unknown"
	}
}
