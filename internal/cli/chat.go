package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grantaxiom/internal/session"
	"github.com/ppiankov/grantaxiom/internal/workbench"
)

var (
	chatProposal string
	chatContext  string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the research assistant about a proposal",
	Long: `Chat sends a message, with the transcript so far, to the assistant.
With a message argument it answers once; without one it starts an
interactive session reading lines from stdin (empty line or /quit exits).

Example:
  grantaxiom chat "Which recent papers cover photon decoherence?"
  grantaxiom chat --proposal proposal.md
  grantaxiom chat --sample`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatProposal, "proposal", "", "proposal file to discuss (sent as context)")
	chatCmd.Flags().StringVar(&chatContext, "context", "", "extra context sent with every message")
	chatCmd.Flags().BoolVar(&useSample, "sample", false, "discuss the built-in demo proposal")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	wb, err := a.workbench()
	if err != nil {
		return err
	}

	var opts []session.Option
	if useSample {
		opts = append(opts, session.WithSample())
	}
	s := session.New("cli", opts...)

	if chatProposal != "" {
		text, err := readProposal(chatProposal)
		if err != nil {
			return err
		}
		s.SetProposal(text)
	}
	extra := chatContextFor(s, chatContext)

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		reply := wb.ChatSession(cmd.Context(), s, args[0], extra)
		_, err := fmt.Fprintln(out, reply.Text)
		return err
	}

	return chatLoop(cmd, wb, s, extra, cmd.InOrStdin(), out)
}

// chatContextFor combines the session's proposal with user-supplied context
func chatContextFor(s *session.Session, extra string) string {
	proposal, _, _ := s.Inputs()
	var parts []string
	if p := strings.TrimSpace(proposal); p != "" {
		parts = append(parts, "Proposal under discussion:\n"+p)
	}
	if e := strings.TrimSpace(extra); e != "" {
		parts = append(parts, e)
	}
	return strings.Join(parts, "\n\n")
}

func chatLoop(cmd *cobra.Command, wb *workbench.Workbench, s *session.Session, extra string, in io.Reader, out io.Writer) error {
	msgs := s.Messages()
	fmt.Fprintf(out, "assistant> %s\n", msgs[len(msgs)-1].Text)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "/quit" || line == "/exit" {
			return nil
		}
		if line == "/reset" {
			s.Reset()
			fmt.Fprintln(out, "assistant> (transcript cleared)")
			continue
		}

		fmt.Fprintln(out, "assistant> thinking...")
		reply := wb.ChatSession(cmd.Context(), s, line, extra)
		fmt.Fprintf(out, "assistant> %s\n", reply.Text)
	}
}
