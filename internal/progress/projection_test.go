package progress_test

import (
	"testing"

	"reelhold/internal/progress"
)

func movieRecord(id int64, watched, total float64, updated int64) progress.Record {
	return progress.Record{
		ID:          id,
		Kind:        progress.KindMovie,
		Title:       "Movie",
		Position:    &progress.Position{WatchedSeconds: watched, TotalSeconds: total},
		LastUpdated: updated,
	}
}

func TestContinueWatchingFiltersAndSorts(t *testing.T) {
	records := []progress.Record{
		movieRecord(1, 600, 1200, 100),  // eligible
		movieRecord(2, 29, 1200, 400),   // below resume floor
		movieRecord(3, 1110, 1200, 300), // completed at 92.5%
		movieRecord(4, 30, 1200, 200),   // exactly at resume floor
		{ID: 5, Kind: progress.KindMovie, LastUpdated: 500}, // no position
	}

	entries := progress.ContinueWatching(records, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 4 || entries[1].ID != 1 {
		t.Fatalf("expected order [4 1] by recency, got [%d %d]", entries[0].ID, entries[1].ID)
	}
	if entries[1].Percent != 50 {
		t.Fatalf("expected 50 percent, got %v", entries[1].Percent)
	}
}

func TestContinueWatchingSeriesEpisodeResume(t *testing.T) {
	rec := progress.Record{
		ID:                 7,
		Kind:               progress.KindSeries,
		Title:              "Show",
		Position:           &progress.Position{WatchedSeconds: 600, TotalSeconds: 1200},
		LastUpdated:        50,
		LastSeasonWatched:  "2",
		LastEpisodeWatched: "3",
		Episodes: map[string]progress.Episode{
			"s2e3": {Season: 2, Episode: 3, Position: &progress.Position{WatchedSeconds: 600, TotalSeconds: 1200}},
		},
	}

	entries := progress.ContinueWatching([]progress.Record{rec}, 10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.SeasonNumber != 2 || entry.EpisodeNumber != 3 {
		t.Fatalf("expected s2e3, got s%de%d", entry.SeasonNumber, entry.EpisodeNumber)
	}
	if entry.Percent != 50 {
		t.Fatalf("expected 50 percent, got %v", entry.Percent)
	}
	if entry.WatchedSeconds != 600 || entry.TotalSeconds != 1200 {
		t.Fatalf("expected episode position 600/1200, got %v/%v", entry.WatchedSeconds, entry.TotalSeconds)
	}
}

func TestContinueWatchingSeriesWithoutEpisodePointer(t *testing.T) {
	rec := progress.Record{
		ID:          8,
		Kind:        progress.KindSeries,
		Title:       "Show",
		Position:    &progress.Position{WatchedSeconds: 300, TotalSeconds: 1200},
		LastUpdated: 10,
	}

	entries := progress.ContinueWatching([]progress.Record{rec}, 10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SeasonNumber != 0 || entries[0].EpisodeNumber != 0 {
		t.Fatal("expected no episode numbers without a last-watched pointer")
	}
	if entries[0].Percent != 25 {
		t.Fatalf("expected 25 percent from primary position, got %v", entries[0].Percent)
	}
}

func TestContinueWatchingLimitAndTiebreak(t *testing.T) {
	records := make([]progress.Record, 0, 25)
	for i := int64(1); i <= 25; i++ {
		records = append(records, movieRecord(i, 100, 1000, 0))
	}

	entries := progress.ContinueWatching(records, 0)
	if len(entries) != progress.DefaultContinueLimit {
		t.Fatalf("expected default limit %d, got %d", progress.DefaultContinueLimit, len(entries))
	}
	// Equal recency falls back to key order.
	if entries[0].ID != 1 {
		t.Fatalf("expected key-ordered tiebreak starting at id 1, got %d", entries[0].ID)
	}
}

func TestContinueWatchingBlankTitleDisplay(t *testing.T) {
	rec := movieRecord(1, 100, 1000, 1)
	rec.Title = ""
	entries := progress.ContinueWatching([]progress.Record{rec}, 5)
	if len(entries) != 1 || entries[0].Title != "Unknown" {
		t.Fatalf("expected Unknown title fallback, got %+v", entries)
	}
}
