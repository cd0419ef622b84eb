package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"converteasy/internal/task"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var stateFlag string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List conversion tasks tracked by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter task.State
			if trimmed := strings.TrimSpace(stateFlag); trimmed != "" {
				parsed, ok := task.ParseState(trimmed)
				if !ok {
					return fmt.Errorf("unknown state %q", trimmed)
				}
				filter = parsed
			}

			tasks, err := ctx.client().tasks(cmd.Context())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			rows := buildTaskRows(tasks, filter)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No tasks")
				return nil
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"ID", "State", "Category", "Conversion", "Created", "Detail"},
				rows,
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&stateFlag, "state", "", "Only show tasks in this state (queued, processing, finished, error)")
	return cmd
}

func buildTaskRows(tasks []*task.Task, filter task.State) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || (filter != "" && t.State != filter) {
			continue
		}
		detail := t.ErrorMessage
		if t.State == task.StateFinished {
			detail = t.PublicURL
		}
		rows = append(rows, []string{
			shortID(t.ID),
			string(t.State),
			string(t.Category),
			fmt.Sprintf("%s -> %s", t.SourceFormat, t.TargetFormat),
			t.CreatedAt.Local().Format(time.DateTime),
			detail,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
