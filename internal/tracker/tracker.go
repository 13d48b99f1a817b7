// Package tracker owns the in-memory watch-progress cache. All reads and
// writes go through it; every mutation re-serializes the full record set to
// the store before returning, so a crash after any call observes that call's
// complete effect.
package tracker

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"reelhold/internal/logging"
	"reelhold/internal/progress"
	"reelhold/internal/storage"
)

// Queue receives records that need a backend push. The tracker enqueues on
// every locally-originated mutation; backend imports are not echoed back.
type Queue interface {
	Enqueue(ctx context.Context, record progress.Record) error
}

// TelemetryEvent is one playback tick from a player surface. Season and
// Episode are set together for series playback and absent for movies.
type TelemetryEvent struct {
	ID             int64         `json:"id"`
	Kind           progress.Kind `json:"kind"`
	WatchedSeconds float64       `json:"watchedSeconds"`
	TotalSeconds   float64       `json:"totalSeconds"`
	Title          string        `json:"title,omitempty"`
	PosterRef      string        `json:"posterRef,omitempty"`
	BackdropRef    string        `json:"backdropRef,omitempty"`
	Season         *int          `json:"season,omitempty"`
	Episode        *int          `json:"episode,omitempty"`
}

// Tracker is the authoritative progress cache for the process lifetime.
type Tracker struct {
	mu      sync.Mutex
	records map[string]progress.Record
	store   storage.Store
	queue   Queue
	logger  *slog.Logger
	now     func() time.Time
}

// Option adjusts tracker construction.
type Option func(*Tracker)

// WithClock overrides the wall clock, used by tests to pin lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New loads the persisted record set and runs the structural cleanup pass:
// records without a numeric primary position are dropped, and invalid episode
// sub-states are scrubbed. The cleaned set is re-persisted when anything was
// removed.
func New(ctx context.Context, store storage.Store, queue Queue, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracker{
		records: progress.LoadState(ctx, store, logger),
		store:   store,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if dropped := t.cleanup(); dropped > 0 {
		logger.Warn("dropped structurally invalid progress records", logging.Int(logging.FieldCount, dropped))
		if err := t.persistLocked(ctx); err != nil {
			logger.Warn("persist after cleanup", logging.Error(err))
		}
	}
	return t
}

func (t *Tracker) cleanup() int {
	dropped := 0
	for key, rec := range t.records {
		if !rec.Position.Valid() {
			delete(t.records, key)
			dropped++
			continue
		}
		for episodeKey, episode := range rec.Episodes {
			if !episode.Position.Valid() {
				delete(rec.Episodes, episodeKey)
			}
		}
	}
	return dropped
}

// ApplySnapshot merges a full externally-sourced record. Scalar fields from
// the incoming record win when set; the incoming position wins when present,
// falling back to the prior position, then to zero. Episode sub-states merge
// as a union with the incoming side winning on key collision.
func (t *Tracker) ApplySnapshot(ctx context.Context, incoming progress.Record) (progress.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := incoming.Key()
	merged := incoming.Clone()
	merged.Title = progress.NormalizeTitle(merged.Title)

	if prior, exists := t.records[key]; exists {
		if merged.Title == "" {
			merged.Title = prior.Title
		}
		if merged.PosterRef == "" {
			merged.PosterRef = prior.PosterRef
		}
		if merged.BackdropRef == "" {
			merged.BackdropRef = prior.BackdropRef
		}
		if merged.EpisodeCount == 0 {
			merged.EpisodeCount = prior.EpisodeCount
		}
		if merged.SeasonCount == 0 {
			merged.SeasonCount = prior.SeasonCount
		}
		if merged.LastSeasonWatched == "" {
			merged.LastSeasonWatched = prior.LastSeasonWatched
		}
		if merged.LastEpisodeWatched == "" {
			merged.LastEpisodeWatched = prior.LastEpisodeWatched
		}
		if merged.Position == nil {
			merged.Position = prior.Position
		}
		if len(prior.Episodes) > 0 {
			union := make(map[string]progress.Episode, len(prior.Episodes)+len(merged.Episodes))
			for episodeKey, episode := range prior.Episodes {
				union[episodeKey] = episode
			}
			for episodeKey, episode := range merged.Episodes {
				union[episodeKey] = episode
			}
			merged.Episodes = union
		}
	}
	if merged.Position == nil {
		merged.Position = &progress.Position{}
	}
	merged.LastUpdated = progress.NowMillis(t.now())

	t.records[key] = merged
	if err := t.persistLocked(ctx); err != nil {
		return progress.Record{}, err
	}
	t.enqueue(ctx, merged)
	return merged.Clone(), nil
}

// ApplyTelemetry folds one playback tick into the cache. The primary position
// always takes the supplied seconds; series ticks carrying season and episode
// numbers also move the last-watched pointer and upsert the episode
// sub-state.
func (t *Tracker) ApplyTelemetry(ctx context.Context, event TelemetryEvent) (progress.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := progress.Key(event.Kind, event.ID)
	prior, exists := t.records[key]

	rec := progress.Record{ID: event.ID, Kind: event.Kind}
	if exists {
		rec = prior.Clone()
	}

	rec.Title = progress.NormalizeTitle(event.Title)
	if rec.Title == "" {
		if exists && prior.Title != "" {
			rec.Title = prior.Title
		} else {
			rec.Title = "Unknown"
		}
	}
	if event.PosterRef != "" {
		rec.PosterRef = event.PosterRef
	}
	if event.BackdropRef != "" {
		rec.BackdropRef = event.BackdropRef
	}

	now := progress.NowMillis(t.now())
	rec.Position = &progress.Position{WatchedSeconds: event.WatchedSeconds, TotalSeconds: event.TotalSeconds}
	rec.LastUpdated = now

	if event.Kind == progress.KindSeries && event.Season != nil && event.Episode != nil {
		season, episode := *event.Season, *event.Episode
		rec.LastSeasonWatched = strconv.Itoa(season)
		rec.LastEpisodeWatched = strconv.Itoa(episode)
		if rec.Episodes == nil {
			rec.Episodes = make(map[string]progress.Episode, 1)
		}
		rec.Episodes[progress.EpisodeKey(season, episode)] = progress.Episode{
			Season:      season,
			Episode:     episode,
			Position:    &progress.Position{WatchedSeconds: event.WatchedSeconds, TotalSeconds: event.TotalSeconds},
			LastUpdated: now,
		}
	}

	t.records[key] = rec
	if err := t.persistLocked(ctx); err != nil {
		return progress.Record{}, err
	}
	t.enqueue(ctx, rec)
	return rec.Clone(), nil
}

// ImportBackend merges a backend-supplied batch by recency: an incoming
// record replaces the local one only when strictly newer or when no local
// entry exists. The cache persists once after the whole batch. Imported
// records are not queued for push. Returns the number of accepted records.
func (t *Tracker) ImportBackend(ctx context.Context, records []progress.Record) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	accepted := 0
	for _, incoming := range records {
		if !incoming.Position.Valid() {
			continue
		}
		key := incoming.Key()
		if local, exists := t.records[key]; exists && !progress.Newer(incoming, local) {
			continue
		}
		t.records[key] = incoming.Clone()
		accepted++
	}
	if accepted == 0 {
		return 0, nil
	}
	if err := t.persistLocked(ctx); err != nil {
		return 0, err
	}
	return accepted, nil
}

// MarkCompleted forces the targeted record, or the targeted episode
// sub-state, to fully watched so it drops out of continue-watching
// immediately.
func (t *Tracker) MarkCompleted(ctx context.Context, kind progress.Kind, id int64, season, episode *int) (progress.Record, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := progress.Key(kind, id)
	rec, exists := t.records[key]
	if !exists {
		return progress.Record{}, false, nil
	}
	rec = rec.Clone()

	now := progress.NowMillis(t.now())
	if season != nil && episode != nil {
		episodeKey := progress.EpisodeKey(*season, *episode)
		state, found := rec.Episodes[episodeKey]
		if !found {
			state = progress.Episode{Season: *season, Episode: *episode}
		}
		if state.Position == nil {
			state.Position = &progress.Position{}
		}
		state.Position.WatchedSeconds = state.Position.TotalSeconds
		state.LastUpdated = now
		if rec.Episodes == nil {
			rec.Episodes = make(map[string]progress.Episode, 1)
		}
		rec.Episodes[episodeKey] = state
	} else if rec.Position != nil {
		rec.Position.WatchedSeconds = rec.Position.TotalSeconds
	}
	rec.LastUpdated = now

	t.records[key] = rec
	if err := t.persistLocked(ctx); err != nil {
		return progress.Record{}, false, err
	}
	t.enqueue(ctx, rec)
	return rec.Clone(), true, nil
}

// Get returns the record for (kind, id), if present.
func (t *Tracker) Get(kind progress.Kind, id int64) (progress.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.records[progress.Key(kind, id)]
	if !exists {
		return progress.Record{}, false
	}
	return rec.Clone(), true
}

// GetEpisode returns the episode sub-state for a series title, if present.
func (t *Tracker) GetEpisode(id int64, season, episode int) (progress.Episode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.records[progress.Key(progress.KindSeries, id)]
	if !exists {
		return progress.Episode{}, false
	}
	state, found := rec.Episodes[progress.EpisodeKey(season, episode)]
	if !found {
		return progress.Episode{}, false
	}
	if state.Position != nil {
		pos := *state.Position
		state.Position = &pos
	}
	return state, true
}

// All returns every record ordered by key, for listings and the push path.
func (t *Tracker) All() []progress.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.records))
	for key := range t.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]progress.Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, t.records[key].Clone())
	}
	return out
}

// Len reports the number of cached records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// ContinueWatching projects the sorted continue-watching list.
func (t *Tracker) ContinueWatching(limit int) []progress.ContinueEntry {
	return progress.ContinueWatching(t.All(), limit)
}

// Remove deletes the record for (kind, id). Returns whether it existed.
func (t *Tracker) Remove(ctx context.Context, kind progress.Kind, id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := progress.Key(kind, id)
	if _, exists := t.records[key]; !exists {
		return false, nil
	}
	delete(t.records, key)
	return true, t.persistLocked(ctx)
}

// Clear drops every record and removes the persisted slot.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]progress.Record)
	return t.store.Remove(ctx, progress.ProgressSlot)
}

func (t *Tracker) persistLocked(ctx context.Context) error {
	blob, err := progress.EncodeRecords(t.records)
	if err != nil {
		return err
	}
	return t.store.Write(ctx, progress.ProgressSlot, blob)
}

func (t *Tracker) enqueue(ctx context.Context, rec progress.Record) {
	if t.queue == nil {
		return
	}
	if err := t.queue.Enqueue(ctx, rec); err != nil {
		t.logger.Warn("queue record for sync",
			logging.String(logging.FieldTitleKey, rec.Key()),
			logging.Error(err),
		)
	}
}
