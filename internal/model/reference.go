package model

import "fmt"

// Reference is a user-supplied document excerpt used as ground truth
// for claim verification. Identity is the ID; references are never edited,
// only added or removed.
type Reference struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title" yaml:"title"`
	Authors        string `json:"authors" yaml:"authors"`
	Year           int    `json:"year" yaml:"year"`
	ContentSnippet string `json:"contentSnippet" yaml:"content_snippet"`    // Truncated excerpt
	Source         string `json:"source,omitempty" yaml:"source,omitempty"` // File path or URL it was ingested from
}

// String returns a short human-readable label
func (r Reference) String() string {
	return fmt.Sprintf("%s (%d) [%s]", r.Title, r.Year, r.ID)
}

// ReferenceIDs returns the set of reference IDs
func ReferenceIDs(refs []Reference) map[string]bool {
	ids := make(map[string]bool, len(refs))
	for _, r := range refs {
		ids[r.ID] = true
	}
	return ids
}
