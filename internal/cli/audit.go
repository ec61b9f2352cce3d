package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/render"
	"github.com/ppiankov/grantaxiom/internal/score"
)

var (
	outJSON      string
	outMD        string
	libraryPath  string
	refSources   []string
	useSample    bool
	noFooter     bool
	auditTimeout time.Duration
	rangePolicy  string
	failOnError  bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <proposal-file|->",
	Short: "Audit a proposal's claims against reference excerpts",
	Long: `Audit sends the proposal and references to the oracle and reports:
- Each factual claim with a verified / warning / contradiction verdict
- A confidence per claim and the reference it relies on
- Compliance issues and a tone assessment
- A 0-100 readiness index

Example:
  grantaxiom audit proposal.md --library refs.yaml
  grantaxiom audit proposal.md --ref paper.txt --ref https://example.org/study --json report.json --md report.md
  grantaxiom audit --sample`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	auditCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	auditCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	addReferenceFlags(auditCmd)
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 3*time.Minute, "overall audit timeout")
	auditCmd.Flags().StringVar(&rangePolicy, "range-policy", "", "out-of-range score/confidence handling: reject, clamp, passthrough")
	auditCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when the oracle fails or returns an invalid report")
}

// addReferenceFlags registers the reference source flags shared by the
// proposal commands
func addReferenceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&libraryPath, "library", "", "reference library YAML file")
	cmd.Flags().StringArrayVar(&refSources, "ref", nil, "reference file or URL (repeatable)")
	cmd.Flags().BoolVar(&useSample, "sample", false, "use the built-in demo proposal and references")
}

// proposalInputs resolves the proposal text and references for a command
func proposalInputs(cmd *cobra.Command, a *app, args []string) (string, []model.Reference, error) {
	var proposal string
	switch {
	case len(args) == 1:
		p, err := readProposal(args[0])
		if err != nil {
			return "", nil, err
		}
		proposal = p
	case useSample:
		proposal = model.SampleProposal
	default:
		return "", nil, errors.New("a proposal file (or - for stdin) is required unless --sample is set")
	}

	refs, err := a.loadReferences(cmd, libraryPath, refSources, useSample)
	if err != nil {
		return "", nil, err
	}
	return proposal, refs, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if rangePolicy != "" {
		a.cfg.Audit.RangePolicy = rangePolicy
	}

	wb, err := a.workbench()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), auditTimeout)
	defer cancel()

	proposal, refs, err := proposalInputs(cmd, a, args)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Auditing proposal (%d chars) against %d references...\n", len(proposal), len(refs))
	}

	report, auditErr := wb.RunAudit(ctx, proposal, refs)
	summary := score.NewScorer().Summarize(report)

	if err := render.Terminal(cmd.OutOrStdout(), report, summary); err != nil {
		return err
	}

	doc := render.Document{
		Title:       proposalTitle(proposal, args),
		GeneratedAt: time.Now().UTC(),
		Report:      report,
		Summary:     summary,
	}
	renderer := render.NewRenderer(!noFooter)
	if outJSON != "" {
		if err := renderer.RenderJSON(doc, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", outJSON)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(doc, outMD); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", outMD)
	}

	if auditErr != nil && failOnError {
		return fmt.Errorf("audit failed: %w", auditErr)
	}
	return nil
}

// proposalTitle picks a display title: the first non-empty line of the
// proposal, else the file name
func proposalTitle(proposal string, args []string) string {
	if line := firstLine(proposal); line != "" {
		return line
	}
	if len(args) == 1 && args[0] != "-" {
		return args[0]
	}
	return "Untitled proposal"
}
