package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find tracked titles by approximate name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			matches, err := client.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching titles")
				return nil
			}

			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				rows = append(rows, []string{
					match.Record.Key(),
					match.Record.Title,
					formatPercent(match.Score * 100),
					recordPercent(match.Record),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Title", "Match", "Watched"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum matches to show")
	return cmd
}
