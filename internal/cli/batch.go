package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grantaxiom/internal/render"
	"github.com/ppiankov/grantaxiom/internal/score"
	"github.com/ppiankov/grantaxiom/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Audit many proposals from a manifest in parallel",
	Long: `Batch audits every proposal listed in a manifest file:
- One proposal path per line (blank lines and # comments are skipped)
- Relative paths resolve against the manifest's directory
- Proposals are audited concurrently against the same references
- A JSON and a Markdown report is written per proposal

Example:
  grantaxiom batch proposals.txt --library refs.yaml
  grantaxiom batch proposals.txt --concurrency 4 --output-dir ./reports
  grantaxiom batch proposals.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./grantaxiom-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 20*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&libraryPath, "library", "", "reference library YAML file")
	batchCmd.Flags().StringArrayVar(&refSources, "ref", nil, "reference file or URL (repeatable)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	wb, err := a.workbench()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	refs, err := a.loadReferences(cmd, libraryPath, refSources, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  GrantAxiom Batch Audit\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  References:   %d\n", len(refs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(wb, concurrency)
	results, err := processor.ProcessManifest(ctx, manifest, refs)
	if err != nil {
		return fmt.Errorf("process manifest: %w", err)
	}

	scorer := score.NewScorer()
	renderer := render.NewRenderer(!noFooter)
	successCount, failureCount := 0, 0
	slugs := make(map[string]int)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			if result.Report == nil {
				continue
			}
		} else {
			successCount++
		}

		slug := sanitizeFilename(strings.TrimSuffix(filepath.Base(result.Path), filepath.Ext(result.Path)))
		if n := slugs[slug]; n > 0 {
			slugs[slug]++
			slug = fmt.Sprintf("%s-%d", slug, n+1)
		} else {
			slugs[slug] = 1
		}
		doc := render.Document{
			Title:       result.Path,
			GeneratedAt: time.Now().UTC(),
			Report:      result.Report,
			Summary:     scorer.Summarize(result.Report),
		}
		if err := renderer.RenderJSON(doc, filepath.Join(outputDir, slug+".json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(doc, filepath.Join(outputDir, slug+".md")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Path, err)
			continue
		}

		if result.Error == nil {
			fmt.Fprintf(os.Stderr, "✓ %s (index: %d/100, %s)\n", result.Path, result.Report.OverallScore, result.Duration.Round(time.Millisecond))
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d proposals\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
