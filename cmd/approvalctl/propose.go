package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"approval-hub/internal/approval"
	"approval-hub/internal/client"
)

func newProposeCommand(opts *rootOptions) *cobra.Command {
	var sessionID, text string

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Submit a proposal and wait for its decision",
		Long: `Submit a proposal to a session and block until an approver decides it.

With --text, submits a single proposal and exits after the decision.
Without it, reads proposals line by line from stdin until EOF.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropose(cmd, opts, sessionID, text)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session ID (required)")
	cmd.Flags().StringVar(&text, "text", "", "proposal text; read from stdin when omitted")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runPropose(cmd *cobra.Command, opts *rootOptions, sessionID, text string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c := client.New(opts.Server)
	out := cmd.OutOrStdout()

	// Fail fast on a bad session ID instead of on the first submit.
	if _, err := c.GetSession(ctx, sessionID); err != nil {
		return err
	}

	if text != "" {
		return proposeAndWait(ctx, c, out, sessionID, text)
	}

	fmt.Fprintln(out, "Ready to submit proposals. Ctrl+D to exit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(out, "Empty proposal skipped. Please enter some text.")
			continue
		}
		if err := proposeAndWait(ctx, c, out, sessionID, line); err != nil {
			return err
		}
	}
}

// proposeAndWait submits one proposal, then watches the session until
// the decision for that proposal arrives.
func proposeAndWait(ctx context.Context, c *client.Client, out io.Writer, sessionID, text string) error {
	proposal, err := c.SubmitProposal(ctx, sessionID, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Proposal %s sent. Waiting for decision...\n", proposal.ID)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := c.Watch(watchCtx, sessionID, uuid.New().String())
	if err != nil {
		return err
	}

	for ev := range events {
		if ev.Kind != approval.EventUpdated || ev.Proposal.ID != proposal.ID {
			continue
		}
		if !ev.Proposal.Status.Decided() {
			continue
		}
		fmt.Fprintf(out, "Decision received: %s\n", ev.Proposal.Status)
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("stream ended before a decision arrived")
}
