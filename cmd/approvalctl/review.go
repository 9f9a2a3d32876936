package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"approval-hub/internal/client"
)

func newReviewCommand(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review incoming proposals and decide each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, opts, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session ID (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runReview(cmd *cobra.Command, opts *rootOptions, sessionID string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c := client.New(opts.Server)
	out := cmd.OutOrStdout()

	events, err := c.Watch(ctx, sessionID, uuid.New().String())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Reviewing session %s. Ctrl+C to exit.\n", sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())

	// The watch stream can show a proposal twice (snapshot + live), so
	// track what has already been decided here.
	decided := make(map[string]bool)

	for ev := range events {
		if ev.Proposal.Status.Decided() {
			decided[ev.Proposal.ID] = true
			continue
		}
		if decided[ev.Proposal.ID] {
			continue
		}

		fmt.Fprintf(out, "Proposal %s: %s\n", ev.Proposal.ID, ev.Proposal.Text)
		fmt.Fprint(out, "Approve? [y/N] ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		approved := strings.EqualFold(strings.TrimSpace(scanner.Text()), "y")

		updated, err := c.SubmitDecision(ctx, sessionID, ev.Proposal.ID, approved)
		if err != nil {
			// Another reviewer may have decided first; keep going.
			fmt.Fprintf(out, "Decision failed: %v\n", err)
			continue
		}
		decided[updated.ID] = true
		fmt.Fprintf(out, "Marked %s.\n", updated.Status)
	}

	return nil
}
