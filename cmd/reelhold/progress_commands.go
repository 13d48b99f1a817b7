package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every tracked title",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			records, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No progress records")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				position := "-"
				if rec.Position.Valid() {
					position = formatClock(rec.Position.WatchedSeconds) + " / " + formatClock(rec.Position.TotalSeconds)
				}
				rows = append(rows, []string{
					rec.Key(),
					rec.Title,
					string(rec.Kind),
					position,
					recordPercent(rec),
					formatWhen(rec.LastUpdated),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Title", "Kind", "Position", "Watched", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newContinueCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Show the continue-watching list",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := client.ContinueWatching(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing in progress")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Title,
					string(entry.Kind),
					formatEpisode(entry.SeasonNumber, entry.EpisodeNumber),
					formatClock(entry.WatchedSeconds) + " / " + formatClock(entry.TotalSeconds),
					formatPercent(entry.Percent),
					formatWhen(entry.LastUpdated),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Kind", "Episode", "Position", "Watched", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to show")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var season, episode int

	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Show one tracked title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("season") != cmd.Flags().Changed("episode") {
				return fmt.Errorf("--season and --episode must be supplied together")
			}
			if cmd.Flags().Changed("season") {
				state, err := client.GetEpisode(cmd.Context(), id, season, episode)
				if err != nil {
					return err
				}
				return writeJSON(cmd, state)
			}

			rec, err := client.Get(cmd.Context(), args[0], id)
			if err != nil {
				return err
			}
			return writeJSON(cmd, rec)
		},
	}

	cmd.Flags().IntVar(&season, "season", 0, "Season number for episode lookup")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episode number for episode lookup")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <kind> <id>",
		Short: "Remove a tracked title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			removed, err := client.Remove(cmd.Context(), args[0], id)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No record for %s-%d\n", args[0], id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s-%d\n", args[0], id)
			return nil
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every tracked title",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear all progress without --force")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared all progress records")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm clearing all records")
	return cmd
}
