package main

import (
	"fmt"
	"strconv"
	"time"

	"reelhold/internal/progress"
)

// formatClock renders seconds as h:mm:ss, dropping the hour when zero.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatWhen renders an epoch-millis timestamp as a local wall-clock time,
// or a dash when the record never carried one.
func formatWhen(millis int64) string {
	if millis <= 0 {
		return "-"
	}
	return time.UnixMilli(millis).Local().Format("2006-01-02 15:04")
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}

func formatEpisode(seasonNumber, episodeNumber int) string {
	if seasonNumber == 0 && episodeNumber == 0 {
		return "-"
	}
	return fmt.Sprintf("S%02dE%02d", seasonNumber, episodeNumber)
}

func recordPercent(rec progress.Record) string {
	if !rec.Position.Valid() {
		return "-"
	}
	return formatPercent(progress.CompletionPercent(rec.Position.WatchedSeconds, rec.Position.TotalSeconds))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid title id %q", arg)
	}
	return id, nil
}
