package tracker_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"reelhold/internal/logging"
	"reelhold/internal/outbox"
	"reelhold/internal/progress"
	"reelhold/internal/storage"
	"reelhold/internal/tracker"
)

func newTracker(t *testing.T, store storage.Store, queue tracker.Queue) (*tracker.Tracker, *time.Time) {
	t.Helper()
	clock := time.UnixMilli(1000)
	trk := tracker.New(context.Background(), store, queue, logging.NewNop(),
		tracker.WithClock(func() time.Time { return clock }))
	return trk, &clock
}

func intPtr(v int) *int { return &v }

func TestTelemetryIdempotentExceptTimestamp(t *testing.T) {
	ctx := context.Background()
	trk, clock := newTracker(t, storage.NewMemory(), nil)

	event := tracker.TelemetryEvent{
		ID:             1,
		Kind:           progress.KindMovie,
		WatchedSeconds: 120,
		TotalSeconds:   7200,
		Title:          "First Light",
	}

	first, err := trk.ApplyTelemetry(ctx, event)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	*clock = clock.Add(5 * time.Second)
	second, err := trk.ApplyTelemetry(ctx, event)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if second.LastUpdated <= first.LastUpdated {
		t.Fatal("expected later timestamp on repeat")
	}
	first.LastUpdated = 0
	second.LastUpdated = 0
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeat telemetry changed state beyond timestamp:\n%+v\n%+v", first, second)
	}
}

func TestTelemetrySeriesUpdatesEpisodeState(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	_, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{
		ID:             7,
		Kind:           progress.KindSeries,
		WatchedSeconds: 600,
		TotalSeconds:   1200,
		Title:          "Harbor",
		Season:         intPtr(2),
		Episode:        intPtr(3),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec, ok := trk.Get(progress.KindSeries, 7)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.LastSeasonWatched != "2" || rec.LastEpisodeWatched != "3" {
		t.Fatalf("last-watched pointer wrong: %q/%q", rec.LastSeasonWatched, rec.LastEpisodeWatched)
	}
	state, ok := trk.GetEpisode(7, 2, 3)
	if !ok {
		t.Fatal("episode state missing")
	}
	if state.Position.WatchedSeconds != 600 || state.Position.TotalSeconds != 1200 {
		t.Fatalf("episode position wrong: %+v", state.Position)
	}
}

func TestTelemetryTitleFallbacks(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	if rec, _ := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 10, TotalSeconds: 100}); rec.Title != "Unknown" {
		t.Fatalf("expected Unknown default, got %q", rec.Title)
	}
	if rec, _ := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 10, TotalSeconds: 100, Title: "THE LONG NIGHT"}); rec.Title != "The Long Night" {
		t.Fatalf("expected shouting title normalized, got %q", rec.Title)
	}
	// A later tick without a title keeps the prior one.
	if rec, _ := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 20, TotalSeconds: 100}); rec.Title != "The Long Night" {
		t.Fatalf("expected prior title retained, got %q", rec.Title)
	}
}

func TestSnapshotMergePrefersIncoming(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	_, err := trk.ApplySnapshot(ctx, progress.Record{
		ID:          5,
		Kind:        progress.KindSeries,
		Title:       "Harbor",
		PosterRef:   "poster-a",
		SeasonCount: 3,
		Position:    &progress.Position{WatchedSeconds: 100, TotalSeconds: 1000},
		Episodes: map[string]progress.Episode{
			"s1e1": {Season: 1, Episode: 1, Position: &progress.Position{WatchedSeconds: 100, TotalSeconds: 1000}},
		},
	})
	if err != nil {
		t.Fatalf("first snapshot: %v", err)
	}

	merged, err := trk.ApplySnapshot(ctx, progress.Record{
		ID:       5,
		Kind:     progress.KindSeries,
		Position: &progress.Position{WatchedSeconds: 500, TotalSeconds: 1000},
		Episodes: map[string]progress.Episode{
			"s1e2": {Season: 1, Episode: 2, Position: &progress.Position{WatchedSeconds: 50, TotalSeconds: 1000}},
		},
	})
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	if merged.Title != "Harbor" || merged.PosterRef != "poster-a" || merged.SeasonCount != 3 {
		t.Fatalf("prior scalars lost: %+v", merged)
	}
	if merged.Position.WatchedSeconds != 500 {
		t.Fatalf("incoming position must win, got %+v", merged.Position)
	}
	if len(merged.Episodes) != 2 {
		t.Fatalf("episode union wrong: %v", merged.Episodes)
	}
}

func TestSnapshotEpisodeCollisionIncomingWins(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	seed := progress.Record{
		ID:   5,
		Kind: progress.KindSeries,
		Episodes: map[string]progress.Episode{
			"s1e1": {Season: 1, Episode: 1, Position: &progress.Position{WatchedSeconds: 100, TotalSeconds: 1000}, LastUpdated: 999},
		},
	}
	if _, err := trk.ApplySnapshot(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Stale timestamp on the incoming episode must still win the collision.
	merged, err := trk.ApplySnapshot(ctx, progress.Record{
		ID:   5,
		Kind: progress.KindSeries,
		Episodes: map[string]progress.Episode{
			"s1e1": {Season: 1, Episode: 1, Position: &progress.Position{WatchedSeconds: 300, TotalSeconds: 1000}, LastUpdated: 1},
		},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Episodes["s1e1"].Position.WatchedSeconds != 300 {
		t.Fatalf("incoming episode must win on collision, got %+v", merged.Episodes["s1e1"])
	}
}

func TestImportBackendRecencyMerge(t *testing.T) {
	ctx := context.Background()
	trk, clock := newTracker(t, storage.NewMemory(), nil)

	*clock = time.UnixMilli(50)
	if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 10, TotalSeconds: 100, Title: "Local"}); err != nil {
		t.Fatalf("local write: %v", err)
	}

	backend := progress.Record{
		ID:          1,
		Kind:        progress.KindMovie,
		Title:       "Backend",
		Position:    &progress.Position{WatchedSeconds: 90, TotalSeconds: 100},
		LastUpdated: 100,
	}
	accepted, err := trk.ImportBackend(ctx, []progress.Record{backend})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d", accepted)
	}
	if rec, _ := trk.Get(progress.KindMovie, 1); rec.Title != "Backend" {
		t.Fatalf("newer backend record must win, got %+v", rec)
	}

	// An older backend record loses.
	stale := backend
	stale.Title = "Stale"
	stale.LastUpdated = 10
	accepted, err = trk.ImportBackend(ctx, []progress.Record{stale})
	if err != nil {
		t.Fatalf("stale import: %v", err)
	}
	if accepted != 0 {
		t.Fatalf("expected 0 accepted, got %d", accepted)
	}
	if rec, _ := trk.Get(progress.KindMovie, 1); rec.Title != "Backend" {
		t.Fatalf("older backend record must lose, got %+v", rec)
	}
}

func TestImportSkipsInvalidPositions(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	accepted, err := trk.ImportBackend(ctx, []progress.Record{{ID: 3, Kind: progress.KindMovie, LastUpdated: 5}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if accepted != 0 || trk.Len() != 0 {
		t.Fatalf("record without position must be rejected, accepted=%d len=%d", accepted, trk.Len())
	}
}

func TestMarkCompletedPrimary(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 500, TotalSeconds: 1000, Title: "Film"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, found, err := trk.MarkCompleted(ctx, progress.KindMovie, 1, nil, nil)
	if err != nil || !found {
		t.Fatalf("mark completed: found=%v err=%v", found, err)
	}
	if rec.Position.WatchedSeconds != rec.Position.TotalSeconds {
		t.Fatalf("expected watched forced to total, got %+v", rec.Position)
	}
	if entries := trk.ContinueWatching(0); len(entries) != 0 {
		t.Fatalf("completed title must leave continue-watching, got %d entries", len(entries))
	}
}

func TestMarkCompletedEpisode(t *testing.T) {
	ctx := context.Background()
	trk, _ := newTracker(t, storage.NewMemory(), nil)

	if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{
		ID: 2, Kind: progress.KindSeries, WatchedSeconds: 100, TotalSeconds: 1200,
		Season: intPtr(1), Episode: intPtr(4),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, found, err := trk.MarkCompleted(ctx, progress.KindSeries, 2, intPtr(1), intPtr(4))
	if err != nil || !found {
		t.Fatalf("mark completed: found=%v err=%v", found, err)
	}
	state, ok := trk.GetEpisode(2, 1, 4)
	if !ok {
		t.Fatal("episode state missing")
	}
	if state.Position.WatchedSeconds != state.Position.TotalSeconds {
		t.Fatalf("expected episode watched forced to total, got %+v", state.Position)
	}
}

func TestMutationsPersistSynchronously(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	trk, _ := newTracker(t, store, nil)

	if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 60, TotalSeconds: 100, Title: "Film"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// A second tracker over the same store sees the committed state.
	reloaded, _ := newTracker(t, store, nil)
	if rec, ok := reloaded.Get(progress.KindMovie, 1); !ok || rec.Position.WatchedSeconds != 60 {
		t.Fatalf("reload lost mutation: ok=%v rec=%+v", ok, rec)
	}
}

func TestCleanupDropsInvalidRecordsOnLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	blob := `[
		{"id":1,"kind":"movie","progress":{"watchedSeconds":10,"totalSeconds":100}},
		{"id":2,"kind":"movie","progress":{"watchedSeconds":"bad","totalSeconds":100}},
		{"id":3,"kind":"movie"}
	]`
	if err := store.Write(ctx, progress.ProgressSlot, []byte(blob)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	trk, _ := newTracker(t, store, nil)
	if trk.Len() != 1 {
		t.Fatalf("expected 1 surviving record, got %d", trk.Len())
	}
	if _, ok := trk.Get(progress.KindMovie, 1); !ok {
		t.Fatal("valid record should survive cleanup")
	}
}

func TestLocalMutationsEnqueueForSync(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	queue := outbox.Open(ctx, store, logging.NewNop())
	trk, _ := newTracker(t, store, queue)

	if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 10, TotalSeconds: 100, Title: "Film"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 20, TotalSeconds: 100, Title: "Film"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected key-deduplicated queue of 1, got %d", queue.Len())
	}

	// Backend imports must not be echoed back into the queue.
	if err := queue.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := trk.ImportBackend(ctx, []progress.Record{{
		ID: 9, Kind: progress.KindMovie,
		Position:    &progress.Position{WatchedSeconds: 1, TotalSeconds: 2},
		LastUpdated: 999999,
	}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if queue.Len() != 0 {
		t.Fatalf("import must not enqueue, got %d", queue.Len())
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	trk, _ := newTracker(t, store, nil)

	for i := int64(1); i <= 3; i++ {
		if _, err := trk.ApplyTelemetry(ctx, tracker.TelemetryEvent{ID: i, Kind: progress.KindMovie, WatchedSeconds: 50, TotalSeconds: 100}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	removed, err := trk.Remove(ctx, progress.KindMovie, 2)
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if removed, _ := trk.Remove(ctx, progress.KindMovie, 2); removed {
		t.Fatal("second remove must report absent")
	}

	if err := trk.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if trk.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", trk.Len())
	}
	if _, found, _ := store.Read(ctx, progress.ProgressSlot); found {
		t.Fatal("expected progress slot removed after clear")
	}
}
