package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"approval-hub/internal/client"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Server string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "approvalctl",
		Short:        "Interact with an approval-hub server",
		Long:         "Submit proposals, decide on them, and watch approval sessions in real time.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", "http://localhost:8420", "server base URL")

	cmd.AddCommand(newSessionCommand(opts))
	cmd.AddCommand(newProposeCommand(opts))
	cmd.AddCommand(newReviewCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))

	return cmd
}

func newSessionCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage approval sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Create a new session and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.Server)
			sess, err := c.CreateSession(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		},
	})

	return cmd
}
