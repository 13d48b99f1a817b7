package progress

import (
	"sort"
	"strconv"
)

// ContinueEntry is one derived row of the continue-watching list. It is
// never persisted.
type ContinueEntry struct {
	ID             int64   `json:"id"`
	Kind           Kind    `json:"kind"`
	Title          string  `json:"title"`
	PosterRef      string  `json:"posterRef,omitempty"`
	BackdropRef    string  `json:"backdropRef,omitempty"`
	Percent        float64 `json:"percent"`
	WatchedSeconds float64 `json:"watchedSeconds"`
	TotalSeconds   float64 `json:"totalSeconds"`
	LastUpdated    int64   `json:"lastUpdated"`
	SeasonNumber   int     `json:"seasonNumber,omitempty"`
	EpisodeNumber  int     `json:"episodeNumber,omitempty"`
}

// ContinueWatching projects the sorted, filtered continue-watching list from
// the given records. Eligibility is decided on the primary position:
// completed titles and barely-started ones are excluded. For series the
// displayed position comes from the last-watched episode sub-state when one
// exists; a finished episode does not exclude the show, since the viewer
// should surface it to advance to the next episode.
func ContinueWatching(records []Record, limit int) []ContinueEntry {
	if limit <= 0 {
		limit = DefaultContinueLimit
	}

	entries := make([]ContinueEntry, 0, len(records))
	for _, rec := range records {
		pos := rec.Position
		if !pos.Valid() || pos.TotalSeconds <= 0 {
			continue
		}
		if pos.WatchedSeconds < MinResumeSeconds {
			continue
		}
		if IsCompleted(pos.WatchedSeconds, pos.TotalSeconds) {
			continue
		}

		entry := ContinueEntry{
			ID:             rec.ID,
			Kind:           rec.Kind,
			Title:          displayTitle(rec.Title),
			PosterRef:      rec.PosterRef,
			BackdropRef:    rec.BackdropRef,
			WatchedSeconds: pos.WatchedSeconds,
			TotalSeconds:   pos.TotalSeconds,
			LastUpdated:    rec.LastUpdated,
		}

		if rec.Kind == KindSeries {
			if season, episode, ok := lastWatchedNumbers(rec); ok {
				entry.SeasonNumber = season
				entry.EpisodeNumber = episode
				if state, found := rec.Episodes[EpisodeKey(season, episode)]; found && state.Position.Valid() {
					entry.WatchedSeconds = state.Position.WatchedSeconds
					entry.TotalSeconds = state.Position.TotalSeconds
				}
			}
		}

		entry.Percent = CompletionPercent(entry.WatchedSeconds, entry.TotalSeconds)
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].LastUpdated != entries[j].LastUpdated {
			return entries[i].LastUpdated > entries[j].LastUpdated
		}
		return Key(entries[i].Kind, entries[i].ID) < Key(entries[j].Kind, entries[j].ID)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func lastWatchedNumbers(rec Record) (season, episode int, ok bool) {
	if rec.LastSeasonWatched == "" || rec.LastEpisodeWatched == "" {
		return 0, 0, false
	}
	season, err := strconv.Atoi(rec.LastSeasonWatched)
	if err != nil {
		return 0, 0, false
	}
	episode, err = strconv.Atoi(rec.LastEpisodeWatched)
	if err != nil {
		return 0, 0, false
	}
	return season, episode, true
}

func displayTitle(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}
