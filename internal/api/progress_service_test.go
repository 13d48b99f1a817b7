package api_test

import (
	"context"
	"errors"
	"testing"

	"reelhold/internal/api"
	"reelhold/internal/logging"
	"reelhold/internal/outbox"
	"reelhold/internal/progress"
	"reelhold/internal/storage"
	"reelhold/internal/tracker"
)

func newService(t *testing.T) *api.ProgressService {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	queue := outbox.Open(ctx, store, logging.NewNop())
	trk := tracker.New(ctx, store, queue, logging.NewNop())
	return api.NewProgressService(trk, queue)
}

func intPtr(v int) *int { return &v }

func TestTelemetryValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []api.TelemetryRequest{
		{Kind: progress.KindMovie, WatchedSeconds: 1, TotalSeconds: 2},            // missing id
		{ID: 1, Kind: "podcast", WatchedSeconds: 1, TotalSeconds: 2},              // unknown kind
		{ID: 1, Kind: progress.KindSeries, Season: intPtr(1)},                     // season without episode
	}
	for i, req := range cases {
		if _, err := svc.Telemetry(ctx, req); !errors.Is(err, api.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestTelemetryKindAliasAccepted(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	resp, err := svc.Telemetry(ctx, api.TelemetryRequest{
		ID: 3, Kind: "series", WatchedSeconds: 60, TotalSeconds: 600,
		Season: intPtr(1), Episode: intPtr(2), Title: "Harbor",
	})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	if resp.Record.Kind != progress.KindSeries {
		t.Fatalf("unexpected kind %q", resp.Record.Kind)
	}

	got, err := svc.Get(ctx, "tv", 3)
	if err != nil {
		t.Fatalf("get with tv alias: %v", err)
	}
	if got.Record.Key() != "series-3" {
		t.Fatalf("unexpected key %q", got.Record.Key())
	}
}

func TestGetNotFound(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Get(context.Background(), "movie", 99); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, err := svc.GetEpisode(context.Background(), 99, 1, 1); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCompleteAndContinueInteraction(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Telemetry(ctx, api.TelemetryRequest{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 500, TotalSeconds: 1000, Title: "Film"}); err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	if resp := svc.Continue(ctx, 0); len(resp.Entries) != 1 {
		t.Fatalf("expected 1 continue entry, got %d", len(resp.Entries))
	}

	if _, err := svc.Complete(ctx, api.CompleteRequest{ID: 1, Kind: progress.KindMovie}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp := svc.Continue(ctx, 0); len(resp.Entries) != 0 {
		t.Fatalf("completed title must leave the list, got %d entries", len(resp.Entries))
	}

	if _, err := svc.Complete(ctx, api.CompleteRequest{ID: 42, Kind: progress.KindMovie}); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not-found for unknown record, got %v", err)
	}
}

func TestPendingQueueSurface(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Telemetry(ctx, api.TelemetryRequest{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 60, TotalSeconds: 600}); err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	if resp := svc.Pending(ctx); len(resp.Records) != 1 {
		t.Fatalf("expected 1 pending record, got %d", len(resp.Records))
	}
	if err := svc.ClearPending(ctx); err != nil {
		t.Fatalf("clear pending: %v", err)
	}
	if resp := svc.Pending(ctx); len(resp.Records) != 0 {
		t.Fatalf("expected empty queue, got %d", len(resp.Records))
	}
}

func TestSearchByApproximateTitle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	seed := []api.TelemetryRequest{
		{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 60, TotalSeconds: 600, Title: "The Long Night"},
		{ID: 2, Kind: progress.KindMovie, WatchedSeconds: 60, TotalSeconds: 600, Title: "Harbor Lights"},
	}
	for _, req := range seed {
		if _, err := svc.Telemetry(ctx, req); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	resp, err := svc.Search(ctx, "long night", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Record.ID != 1 {
		t.Fatalf("unexpected matches %+v", resp.Matches)
	}
	if resp.Matches[0].Score <= 0.5 {
		t.Fatalf("expected strong match, got %v", resp.Matches[0].Score)
	}

	if _, err := svc.Search(ctx, "  ", 0); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("blank query must fail validation, got %v", err)
	}
}

func TestRemoveReportsExistence(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Telemetry(ctx, api.TelemetryRequest{ID: 1, Kind: progress.KindMovie, WatchedSeconds: 60, TotalSeconds: 600}); err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	resp, err := svc.Remove(ctx, "movie", 1)
	if err != nil || !resp.Removed {
		t.Fatalf("remove: %+v err=%v", resp, err)
	}
	resp, err = svc.Remove(ctx, "movie", 1)
	if err != nil || resp.Removed {
		t.Fatalf("second remove must report absent: %+v err=%v", resp, err)
	}
}
