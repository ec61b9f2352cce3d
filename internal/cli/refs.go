package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grantaxiom/internal/ingest"
	"github.com/ppiankov/grantaxiom/internal/model"
)

var refsLibrary string

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Manage a reference library file",
	Long: `Manage a YAML reference library used by audit, simulate and batch.

Each reference has an id, title, authors, year and a content snippet.
Files are ingested as text, HTML or opaque binaries; URLs are fetched
(respecting robots.txt) and their visible text excerpted.`,
}

var refsAddCmd = &cobra.Command{
	Use:   "add <file|url>...",
	Short: "Ingest files or URLs into the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		refs, err := ingest.LoadLibrary(refsLibrary)
		if err != nil {
			return err
		}

		added, err := a.loadReferences(cmd, "", args, false)
		if err != nil {
			return err
		}
		refs = append(refs, added...)

		if err := ingest.SaveLibrary(refsLibrary, refs); err != nil {
			return err
		}
		for _, r := range added {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", r)
		}
		return nil
	},
}

var refsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List references in the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := ingest.LoadLibrary(refsLibrary)
		if err != nil {
			return err
		}
		return listReferences(cmd, refs)
	},
}

var refsRemoveCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"remove"},
	Short:   "Remove references by id",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := ingest.LoadLibrary(refsLibrary)
		if err != nil {
			return err
		}

		for _, id := range args {
			var ok bool
			refs, ok = ingest.RemoveByID(refs, id)
			if !ok {
				return fmt.Errorf("reference %q not found in %s", id, refsLibrary)
			}
		}

		if err := ingest.SaveLibrary(refsLibrary, refs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d reference(s)\n", len(args))
		return nil
	},
}

func listReferences(cmd *cobra.Command, refs []model.Reference) error {
	if len(refs) == 0 {
		fmt.Fprintf(os.Stderr, "No references in %s\n", refsLibrary)
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYEAR\tTITLE\tAUTHORS")
	for _, r := range refs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, r.Year, truncate(r.Title, 60), truncate(r.Authors, 30))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(refsCmd)
	refsCmd.PersistentFlags().StringVar(&refsLibrary, "library", "references.yaml", "reference library YAML file")
	refsCmd.AddCommand(refsAddCmd)
	refsCmd.AddCommand(refsListCmd)
	refsCmd.AddCommand(refsRemoveCmd)
}
