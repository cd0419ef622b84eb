package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"converteasy/internal/deps"
	"converteasy/internal/task"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, task, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().serverStatus(cmd.Context())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Server", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, resp.Status, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Bind", statusInfo, resp.Server.Bind, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Public URL", statusInfo, resp.Server.PublicBaseURL, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Uploads on disk", statusInfo, fmt.Sprintf("%d", resp.Files.Uploads), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Public files", statusInfo, fmt.Sprintf("%d", resp.Files.Public), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(resp.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Tasks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if resp.Tasks.Total == 0 {
				fmt.Fprintln(stdout, "No tasks tracked")
				return nil
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"State", "Count"},
				buildTaskStatsRows(resp.Tasks),
				1,
			))
			return nil
		},
	}
}

func buildTaskStatsRows(stats task.Stats) [][]string {
	return [][]string{
		{string(task.StateQueued), fmt.Sprintf("%d", stats.Queued)},
		{string(task.StateProcessing), fmt.Sprintf("%d", stats.Processing)},
		{string(task.StateFinished), fmt.Sprintf("%d", stats.Finished)},
		{string(task.StateError), fmt.Sprintf("%d", stats.Error)},
		{"total", fmt.Sprintf("%d", stats.Total)},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusWarn,
			fmt.Sprintf("%s (their conversion pairs report unsupported)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}
