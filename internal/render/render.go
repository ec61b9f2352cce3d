// Package render writes audit reports as JSON, Markdown and terminal text.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// Document is the JSON file written for an audit
type Document struct {
	Title       string                `json:"title"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Report      *model.AnalysisReport `json:"report"`
	Summary     model.AuditSummary    `json:"summary"`
}

// Renderer renders audit documents
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderJSON writes doc to path
func (r *Renderer) RenderJSON(doc Document, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, doc) })
}

// RenderMarkdown writes doc to path as Markdown
func (r *Renderer) RenderMarkdown(doc Document, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(doc))
		return err
	})
}

// Markdown renders doc as a Markdown report
func (r *Renderer) Markdown(doc Document) string {
	var b strings.Builder
	report := doc.Report
	if report == nil {
		report = &model.AnalysisReport{}
	}

	title := doc.Title
	if title == "" {
		title = "Proposal"
	}
	fmt.Fprintf(&b, "# Audit: %s\n\n", title)
	fmt.Fprintf(&b, "**Readiness index:** %d/100 (%s)  \n", report.OverallScore, doc.Summary.Band)
	fmt.Fprintf(&b, "**Tone:** %s  \n", orNA(report.ToneAnalysis))
	if !doc.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s\n", doc.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n")

	b.WriteString("## Claims\n\n")
	if len(report.Claims) == 0 {
		b.WriteString("_No claims extracted._\n\n")
	} else {
		b.WriteString("| Status | Claim | Confidence | Source |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, c := range report.Claims {
			fmt.Fprintf(&b, "| %s %s | %s | %.0f%% | %s |\n",
				statusIcon(c.Status), c.Status, escapeCell(c.Text), c.Confidence*100, orDash(c.SourceID))
		}
		b.WriteString("\n")

		for _, c := range report.Claims {
			if c.Explanation == "" && c.Suggestion == "" {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", c.ID)
			fmt.Fprintf(&b, "> %s\n\n", c.Text)
			if c.Explanation != "" {
				fmt.Fprintf(&b, "- **Why:** %s\n", c.Explanation)
			}
			if c.Suggestion != "" {
				fmt.Fprintf(&b, "- **Fix:** %s\n", c.Suggestion)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Compliance Issues\n\n")
	if len(report.ComplianceIssues) == 0 {
		b.WriteString("_None reported._\n\n")
	} else {
		for _, issue := range report.ComplianceIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	if len(doc.Summary.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range doc.Summary.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", s.Type, s.Severity, s.Description)
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Validation Notes\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by GrantAxiom. Verdicts come from a language model checking the proposal against the supplied references only; they are not a substitute for expert review._\n")
	}

	return b.String()
}

// Terminal writes a compact human-readable summary
func Terminal(w io.Writer, report *model.AnalysisReport, summary model.AuditSummary) error {
	if report == nil {
		_, err := fmt.Fprintln(w, "No audit report.")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Readiness index: %d/100 (%s)\n", report.OverallScore, summary.Band)
	fmt.Fprintf(&b, "Tone: %s\n", orNA(report.ToneAnalysis))
	fmt.Fprintf(&b, "Claims: %d verified, %d warning, %d contradiction\n\n",
		summary.Counts[model.StatusVerified], summary.Counts[model.StatusWarning], summary.Counts[model.StatusContradiction])

	for _, c := range report.Claims {
		fmt.Fprintf(&b, "%s [%s] %s (%.0f%%)\n", statusIcon(c.Status), c.ID, c.Text, c.Confidence*100)
		if c.Explanation != "" {
			fmt.Fprintf(&b, "    %s\n", c.Explanation)
		}
		if c.Suggestion != "" {
			fmt.Fprintf(&b, "    → %s\n", c.Suggestion)
		}
	}
	if len(report.Claims) > 0 {
		b.WriteString("\n")
	}

	for _, issue := range report.ComplianceIssues {
		fmt.Fprintf(&b, "! %s\n", issue)
	}
	for _, note := range report.Warnings {
		fmt.Fprintf(&b, "~ %s\n", note)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func statusIcon(s model.ClaimStatus) string {
	switch s {
	case model.StatusVerified:
		return "✓"
	case model.StatusWarning:
		return "⚠"
	case model.StatusContradiction:
		return "✗"
	default:
		return "?"
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
