package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grantaxiom/internal/model"
)

var (
	simOutput    string
	simGoal      string
	simAuditFirst bool
	simTimeout   time.Duration
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate <proposal-file|->",
	Short: "Generate an interactive HTML simulation of a proposal",
	Long: `Simulate asks the oracle for a self-contained HTML5 page (inline CSS and
JavaScript) that visualizes the proposal's core concepts. With --audit the
proposal is audited first so contradictions can be shown in the page.

Open the output in a sandboxed context: it is generated code.

Example:
  grantaxiom simulate proposal.md -o sim.html
  grantaxiom simulate proposal.md --goal "Show photon loss over distance" --audit
  grantaxiom simulate --sample -o sample.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "simulation.html", "output HTML path")
	simulateCmd.Flags().StringVar(&simGoal, "goal", "", "what the simulation should demonstrate")
	simulateCmd.Flags().BoolVar(&simAuditFirst, "audit", false, "run an audit first and include its findings")
	simulateCmd.Flags().DurationVar(&simTimeout, "timeout", 5*time.Minute, "overall timeout")
	addReferenceFlags(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	wb, err := a.workbench()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), simTimeout)
	defer cancel()

	proposal, refs, err := proposalInputs(cmd, a, args)
	if err != nil {
		return err
	}

	var report *model.AnalysisReport
	if simAuditFirst {
		fmt.Fprintf(os.Stderr, "⚙️  Auditing proposal...\n")
		report, err = wb.RunAudit(ctx, proposal, refs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ audit failed, continuing without findings: %v\n", err)
			report = nil
		}
	}

	fmt.Fprintf(os.Stderr, "⚙️  Generating simulation...\n")
	code := wb.GenerateSimulation(ctx, proposal, refs, report, simGoal)

	if err := os.WriteFile(simOutput, []byte(code), 0644); err != nil {
		return fmt.Errorf("write simulation: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Simulation: %s (%d bytes)\n", simOutput, len(code))
	return nil
}
