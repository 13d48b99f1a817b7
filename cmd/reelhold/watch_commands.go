package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"reelhold/internal/api"
	"reelhold/internal/progress"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		watched float64
		total   float64
		title   string
		poster  string
		season  int
		episode int
	)

	cmd := &cobra.Command{
		Use:   "watch <kind> <id>",
		Short: "Record a playback position",
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

			req := api.TelemetryRequest{
				ID:             id,
				Kind:           progress.Kind(args[0]),
				WatchedSeconds: watched,
				TotalSeconds:   total,
				Title:          title,
				PosterRef:      poster,
			}
			if cmd.Flags().Changed("season") {
				req.Season = &season
				req.Episode = &episode
			}

			rec, err := client.Telemetry(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s at %s / %s (%s)\n",
				rec.Key(),
				formatClock(rec.Position.WatchedSeconds),
				formatClock(rec.Position.TotalSeconds),
				recordPercent(rec),
			)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&watched, "watched", "w", 0, "Watched position in seconds")
	cmd.Flags().Float64VarP(&total, "total", "t", 0, "Total duration in seconds")
	cmd.Flags().StringVar(&title, "title", "", "Display title")
	cmd.Flags().StringVar(&poster, "poster", "", "Poster reference")
	cmd.Flags().IntVar(&season, "season", 0, "Season number")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episode number")
	_ = cmd.MarkFlagRequired("watched")
	_ = cmd.MarkFlagRequired("total")
	return cmd
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Merge a full progress record from JSON",
		Long:  "Reads a MediaProgressRecord as JSON from --file or stdin and merges it into the cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var reader io.Reader = cmd.InOrStdin()
			if fromFile != "" {
				file, err := os.Open(fromFile)
				if err != nil {
					return fmt.Errorf("open snapshot file: %w", err)
				}
				defer file.Close()
				reader = file
			}

			var req api.SnapshotRequest
			if err := json.NewDecoder(reader).Decode(&req); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}

			rec, err := client.Snapshot(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, rec)
		},
	}

	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the snapshot from a file instead of stdin")
	return cmd
}

func newCompleteCommand(ctx *commandContext) *cobra.Command {
	var season, episode int

	cmd := &cobra.Command{
		Use:   "complete <kind> <id>",
		Short: "Mark a title (or one episode) fully watched",
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

			req := api.CompleteRequest{ID: id, Kind: progress.Kind(args[0])}
			if cmd.Flags().Changed("season") {
				req.Season = &season
				req.Episode = &episode
			}

			rec, err := client.Complete(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s completed\n", rec.Key())
			return nil
		},
	}

	cmd.Flags().IntVar(&season, "season", 0, "Season number")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episode number")
	return cmd
}
