package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Trigger an immediate cleanup sweep on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().cleanup(cmd.Context())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintln(stdout, resp.Message)
			fmt.Fprintf(stdout, "  expired tasks:   %d\n", resp.Summary.ExpiredTasks)
			fmt.Fprintf(stdout, "  orphaned files:  %d\n", resp.Summary.OrphanedFiles)
			fmt.Fprintf(stdout, "  artifacts freed: %d\n", resp.Summary.ArtifactsFreed)
			return nil
		},
	}
}
