// Package prompt builds the prompts sent to the oracle.
// Every builder is pure: identical inputs always produce identical output.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// AuditorSystemInstruction frames the oracle as a strict grant auditor
const AuditorSystemInstruction = `You are GrantAxiom, an elite scientific grant auditor. Your goal is to maximize the user's chance of funding.
You rigorously check claims against provided references.
You are strict, precise, and empirical.
When analyzing, categorize claims as:
- Verified (Green): Fully supported by references.
- Warning (Yellow): Supported but lacks nuance or specific citation.
- Contradiction (Red): Directly opposes reference material.`

// ChatSystemInstruction frames the oracle as the proposal assistant
const ChatSystemInstruction = "You are a helpful GrantAxiom assistant. Assist the researcher in refining their proposal. Be concise and helpful."

// ReferenceSeparator joins serialized references in the audit prompt
const ReferenceSeparator = "\n---\n"

// AuditSchema is the output contract appended to every audit prompt
const AuditSchema = `{
  "overallScore": number (0-100),
  "claims": [
    {
      "id": "string",
      "text": "The exact text of the claim",
      "status": "verified" | "warning" | "contradiction",
      "confidence": number (0-1),
      "sourceId": "ref-id or null",
      "explanation": "Why this status was assigned",
      "suggestion": "How to fix it (if not verified)"
    }
  ],
  "complianceIssues": ["string", "string"],
  "toneAnalysis": "Brief analysis of the scientific tone"
}`

const defaultChatContext = "No specific context provided."

// DefaultSimulationGoal is used when the user gives no goal of their own
const DefaultSimulationGoal = "Generate a highly interactive, scientifically accurate simulation based on the methodology and findings described above. Make it visually stunning."

var auditTmpl = template.Must(template.New("audit").Parse(`Analyze the following Grant Proposal Text against the provided Reference Library.

Proposal Text:
"""
{{.Proposal}}
"""

Reference Library:
"""
{{.References}}
"""

Perform a deep audit. Identify key scientific claims. Cross-reference them.

Output valid JSON matching this schema:
{{.Schema}}
`))

var chatTmpl = template.Must(template.New("chat").Parse(`Context: {{.Context}}

Chat History:
{{range .History}}{{.Role}}: {{.Text}}
{{end}}
User: {{.Message}}
`))

var simulationTmpl = template.Must(template.New("simulation").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`You are an expert scientific visualization engineer and educator.

Task: Create a self-contained, interactive HTML5 simulation (HTML, CSS, JS) to demonstrate the core scientific concepts or "Broader Impacts" of the following research proposal.
The target audience is high school students or the general public.

Context (Proposal):
"""
{{.Proposal}}
"""

Context (Key References):
"""
{{.References}}
"""

Context (Audit Status):
{{.AuditStatus}}

User Requirement: {{.Goal}}

Requirements:
{{range $i, $c := .Constraints}}{{inc $i}}. {{$c}}
{{end}}
Make it impressive.
`))

// SimulationConstraints are the fixed generation rules for simulations
var SimulationConstraints = []string{
	"Output ONLY valid HTML code. Start with <!DOCTYPE html>.",
	"Use HTML5 Canvas for rendering.",
	"Include interactivity (mouse, click, or sliders).",
	"Styling: Dark mode, scientific aesthetic (slate/blue/neon colors), clean typography (sans-serif).",
	"The code must be self-contained (no external CSS/JS files unless using reliable CDNs like Tailwind or Recharts).",
	"Ensure the simulation actually runs and doesn't just show static text.",
	"Do not include markdown code fences (like ```html). Just return the raw HTML string.",
}

// SimulationLimits bounds how much context goes into a simulation prompt
type SimulationLimits struct {
	ProposalChars int // Proposal excerpt length
	MaxReferences int // References included
	SnippetChars  int // Per-reference snippet length
}

// DefaultSimulationLimits matches the defaults in model.DefaultConfig
func DefaultSimulationLimits() SimulationLimits {
	return SimulationLimits{ProposalChars: 5000, MaxReferences: 5, SnippetChars: 200}
}

// BuildAuditPrompt builds the claim-audit prompt
func BuildAuditPrompt(proposal string, refs []model.Reference) string {
	return render(auditTmpl, struct {
		Proposal   string
		References string
		Schema     string
	}{
		Proposal:   proposal,
		References: FormatReferences(refs),
		Schema:     AuditSchema,
	})
}

// FormatReferences serializes the reference library for the audit prompt
func FormatReferences(refs []model.Reference) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = FormatReference(r)
	}
	return strings.Join(parts, ReferenceSeparator)
}

// FormatReference serializes one reference
func FormatReference(r model.Reference) string {
	return fmt.Sprintf("[ID: %s] Title: %s (%d)\nSnippet: %s", r.ID, r.Title, r.Year, r.ContentSnippet)
}

// BuildChatPrompt builds the assistant prompt from the transcript so far,
// the new message and optional free-text context
func BuildChatPrompt(history []model.ChatMessage, message string, context string) string {
	if context == "" {
		context = defaultChatContext
	}
	return render(chatTmpl, struct {
		Context string
		History []model.ChatMessage
		Message string
	}{
		Context: context,
		History: history,
		Message: message,
	})
}

// BuildSimulationPrompt builds the simulation generation prompt.
// report may be nil when no audit has run yet.
func BuildSimulationPrompt(proposal string, refs []model.Reference, report *model.AnalysisReport, goal string, limits SimulationLimits) string {
	if limits.ProposalChars <= 0 || limits.MaxReferences <= 0 || limits.SnippetChars <= 0 {
		limits = DefaultSimulationLimits()
	}
	if strings.TrimSpace(goal) == "" {
		goal = DefaultSimulationGoal
	}

	return render(simulationTmpl, struct {
		Proposal    string
		References  string
		AuditStatus string
		Goal        string
		Constraints []string
	}{
		Proposal:    Truncate(proposal, limits.ProposalChars),
		References:  simulationReferences(refs, limits),
		AuditStatus: AuditStatusLine(report),
		Goal:        goal,
		Constraints: SimulationConstraints,
	})
}

// AuditStatusLine summarizes the latest audit in one line
func AuditStatusLine(report *model.AnalysisReport) string {
	if report == nil {
		return "Audit not yet performed."
	}
	return fmt.Sprintf("Audit Score: %d. Key Issue: %s", report.OverallScore, report.KeyIssue())
}

func simulationReferences(refs []model.Reference, limits SimulationLimits) string {
	if len(refs) > limits.MaxReferences {
		refs = refs[:limits.MaxReferences]
	}
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = fmt.Sprintf("- %s: %s...", r.Title, Truncate(r.ContentSnippet, limits.SnippetChars))
	}
	return strings.Join(lines, "\n")
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	// Templates are static and data is plain strings; execution cannot fail.
	if err := t.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("prompt: render %s: %v", t.Name(), err))
	}
	return buf.String()
}
