package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"approval-hub/internal/client"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream a session's events, history first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session ID (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *rootOptions, sessionID string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c := client.New(opts.Server)
	out := cmd.OutOrStdout()

	events, err := c.Watch(ctx, sessionID, uuid.New().String())
	if err != nil {
		return err
	}

	for ev := range events {
		fmt.Fprintf(out, "%s  %-7s  %-8s  %s  %s\n",
			ev.Proposal.CreatedAt.Format(time.RFC3339),
			ev.Kind,
			ev.Proposal.Status,
			ev.Proposal.ID,
			ev.Proposal.Text,
		)
	}

	return nil
}
