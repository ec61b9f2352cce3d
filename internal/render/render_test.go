package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/score"
)

func sampleDocument() Document {
	report := &model.AnalysisReport{
		OverallScore: 65,
		Claims: []model.Claim{
			{ID: "c1", Text: "Coherence beyond 50 m | open air", Status: model.StatusContradiction, Confidence: 0.92, SourceID: "ref-1", Explanation: "ref-1 says 10 m", Suggestion: "Qualify"},
			{ID: "c2", Text: "Scalable setup", Status: model.StatusVerified, Confidence: 0.8},
		},
		ComplianceIssues: []string{"Missing data management plan"},
		ToneAnalysis:     "Assertive",
		Warnings:         []string{"c2 cites unknown reference"},
	}
	return Document{
		Title:       "Wave-Particle Duality",
		GeneratedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Report:      report,
		Summary:     score.NewScorer().Summarize(report),
	}
}

func TestMarkdown(t *testing.T) {
	md := NewRenderer(true).Markdown(sampleDocument())

	assert.True(t, strings.HasPrefix(md, "# Audit: Wave-Particle Duality\n"))
	assert.Contains(t, md, "**Readiness index:** 65/100 (medium)")
	assert.Contains(t, md, `| ✗ contradiction | Coherence beyond 50 m \| open air | 92% | ref-1 |`)
	assert.Contains(t, md, "| ✓ verified | Scalable setup | 80% | - |")
	assert.Contains(t, md, "- **Fix:** Qualify")
	assert.Contains(t, md, "- Missing data management plan")
	assert.Contains(t, md, "## Validation Notes")
	assert.Contains(t, md, "_Generated by GrantAxiom.")
	assert.Contains(t, md, "2025-01-02T03:04:05Z")
}

func TestMarkdown_NoFooterAndFallback(t *testing.T) {
	doc := Document{Report: model.FallbackReport("Error analyzing proposal. Please try again.")}
	md := NewRenderer(false).Markdown(doc)

	assert.Contains(t, md, "# Audit: Proposal")
	assert.Contains(t, md, "_No claims extracted._")
	assert.Contains(t, md, "- Error analyzing proposal. Please try again.")
	assert.NotContains(t, md, "Generated by GrantAxiom")
}

func TestRenderFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := NewRenderer(true)
	doc := sampleDocument()

	jsonPath := filepath.Join(dir, "audit.json")
	mdPath := filepath.Join(dir, "audit.md")
	require.NoError(t, r.RenderJSON(doc, jsonPath))
	require.NoError(t, r.RenderMarkdown(doc, mdPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	report := decoded["report"].(map[string]any)
	assert.Equal(t, float64(65), report["overallScore"])
	assert.Contains(t, string(data), `"sourceId": "ref-1"`)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, r.Markdown(doc), string(md))
}

func TestTerminal(t *testing.T) {
	doc := sampleDocument()
	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, doc.Report, doc.Summary))

	out := buf.String()
	assert.Contains(t, out, "Readiness index: 65/100 (medium)")
	assert.Contains(t, out, "Claims: 1 verified, 0 warning, 1 contradiction")
	assert.Contains(t, out, "✗ [c1]")
	assert.Contains(t, out, "→ Qualify")
	assert.Contains(t, out, "! Missing data management plan")

	buf.Reset()
	require.NoError(t, Terminal(&buf, nil, model.AuditSummary{}))
	assert.Equal(t, "No audit report.\n", buf.String())
}
