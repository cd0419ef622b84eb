package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag string

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "Show supported conversions per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().formats(cmd.Context(), strings.TrimSpace(categoryFlag))
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			categories := make([]string, 0, len(resp))
			for name := range resp {
				categories = append(categories, name)
			}
			sort.Strings(categories)

			for i, name := range categories {
				if i > 0 {
					fmt.Fprintln(stdout)
				}
				for _, line := range renderSectionHeader(name, colorize) {
					fmt.Fprintln(stdout, line)
				}
				formats := resp[name]
				fmt.Fprintln(stdout, renderStatusLine("Accepted uploads", statusInfo,
					strings.Join(formats.AllowedExtensions, ", "), colorize))
				fmt.Fprintln(stdout, renderTable(
					[]string{"Target", "Converts From"},
					buildConversionRows(formats.SupportedConversions),
				))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Limit output to one category (document, audio, image)")
	return cmd
}

func buildConversionRows(conversions map[string][]string) [][]string {
	targets := make([]string, 0, len(conversions))
	for target := range conversions {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	rows := make([][]string, 0, len(targets))
	for _, target := range targets {
		rows = append(rows, []string{target, strings.Join(conversions[target], ", ")})
	}
	return rows
}
