package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"reelhold/internal/outbox"
	"reelhold/internal/progress"
	"reelhold/internal/textutil"
	"reelhold/internal/tracker"
)

// ErrValidation marks request errors the transport layer should map to a
// client-fault status.
var ErrValidation = errors.New("invalid request")

// ErrNotFound marks lookups for records that do not exist.
var ErrNotFound = errors.New("not found")

// ProgressService exposes tracker operations in wire-friendly form. Both the
// HTTP layer and the CLI passthrough path go through it.
type ProgressService struct {
	tracker *tracker.Tracker
	queue   *outbox.Outbox
}

// NewProgressService wires the service over the tracker and pending queue.
func NewProgressService(trk *tracker.Tracker, queue *outbox.Outbox) *ProgressService {
	return &ProgressService{tracker: trk, queue: queue}
}

// List returns every cached record ordered by key.
func (s *ProgressService) List(context.Context) ProgressListResponse {
	return ProgressListResponse{Records: s.tracker.All()}
}

// Continue returns the continue-watching projection.
func (s *ProgressService) Continue(_ context.Context, limit int) ContinueResponse {
	return ContinueResponse{Entries: s.tracker.ContinueWatching(limit)}
}

// Get looks up one record by kind and id.
func (s *ProgressService) Get(_ context.Context, kindValue string, id int64) (RecordResponse, error) {
	kind, err := parseKind(kindValue)
	if err != nil {
		return RecordResponse{}, err
	}
	rec, ok := s.tracker.Get(kind, id)
	if !ok {
		return RecordResponse{}, fmt.Errorf("%w: %s", ErrNotFound, progress.Key(kind, id))
	}
	return RecordResponse{Record: rec}, nil
}

// GetEpisode looks up one episode sub-state of a series.
func (s *ProgressService) GetEpisode(_ context.Context, id int64, season, episode int) (EpisodeResponse, error) {
	state, ok := s.tracker.GetEpisode(id, season, episode)
	if !ok {
		return EpisodeResponse{}, fmt.Errorf("%w: series-%d %s", ErrNotFound, id, progress.EpisodeKey(season, episode))
	}
	return EpisodeResponse{Episode: state}, nil
}

// Telemetry applies a playback tick.
func (s *ProgressService) Telemetry(ctx context.Context, req TelemetryRequest) (RecordResponse, error) {
	if req.ID == 0 {
		return RecordResponse{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	kind, ok := progress.ParseKind(string(req.Kind))
	if !ok {
		return RecordResponse{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, req.Kind)
	}
	req.Kind = kind
	if (req.Season == nil) != (req.Episode == nil) {
		return RecordResponse{}, fmt.Errorf("%w: season and episode must be supplied together", ErrValidation)
	}
	rec, err := s.tracker.ApplyTelemetry(ctx, req)
	if err != nil {
		return RecordResponse{}, err
	}
	return RecordResponse{Record: rec}, nil
}

// Snapshot merges a bulk progress record.
func (s *ProgressService) Snapshot(ctx context.Context, req SnapshotRequest) (RecordResponse, error) {
	if req.ID == 0 {
		return RecordResponse{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	kind, ok := progress.ParseKind(string(req.Kind))
	if !ok {
		return RecordResponse{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, req.Kind)
	}
	req.Kind = kind
	rec, err := s.tracker.ApplySnapshot(ctx, req)
	if err != nil {
		return RecordResponse{}, err
	}
	return RecordResponse{Record: rec}, nil
}

// Complete forces a title or episode to fully watched.
func (s *ProgressService) Complete(ctx context.Context, req CompleteRequest) (RecordResponse, error) {
	if req.ID == 0 {
		return RecordResponse{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	kind, err := parseKind(string(req.Kind))
	if err != nil {
		return RecordResponse{}, err
	}
	if (req.Season == nil) != (req.Episode == nil) {
		return RecordResponse{}, fmt.Errorf("%w: season and episode must be supplied together", ErrValidation)
	}
	rec, found, err := s.tracker.MarkCompleted(ctx, kind, req.ID, req.Season, req.Episode)
	if err != nil {
		return RecordResponse{}, err
	}
	if !found {
		return RecordResponse{}, fmt.Errorf("%w: %s", ErrNotFound, progress.Key(kind, req.ID))
	}
	return RecordResponse{Record: rec}, nil
}

// Import merges a backend batch by recency.
func (s *ProgressService) Import(ctx context.Context, records []progress.Record) (ImportResponse, error) {
	accepted, err := s.tracker.ImportBackend(ctx, records)
	if err != nil {
		return ImportResponse{}, err
	}
	return ImportResponse{Accepted: accepted}, nil
}

// Remove deletes one record.
func (s *ProgressService) Remove(ctx context.Context, kindValue string, id int64) (RemovedResponse, error) {
	kind, err := parseKind(kindValue)
	if err != nil {
		return RemovedResponse{}, err
	}
	removed, err := s.tracker.Remove(ctx, kind, id)
	if err != nil {
		return RemovedResponse{}, err
	}
	return RemovedResponse{Removed: removed}, nil
}

// Clear drops every record.
func (s *ProgressService) Clear(ctx context.Context) error {
	return s.tracker.Clear(ctx)
}

// minSearchScore filters out coincidental single-token overlaps.
const minSearchScore = 0.3

// Search finds records whose title resembles the query, best match first.
func (s *ProgressService) Search(_ context.Context, query string, limit int) (SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResponse{}, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if limit <= 0 {
		limit = 10
	}

	matches := make([]SearchMatch, 0)
	for _, rec := range s.tracker.All() {
		score := textutil.TitleSimilarity(query, rec.Title)
		if score < minSearchScore {
			continue
		}
		matches = append(matches, SearchMatch{Record: rec, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return SearchResponse{Matches: matches}, nil
}

// Pending lists the pending-sync queue.
func (s *ProgressService) Pending(context.Context) QueueListResponse {
	if s.queue == nil {
		return QueueListResponse{}
	}
	return QueueListResponse{Records: s.queue.List()}
}

// ClearPending discards the pending-sync queue.
func (s *ProgressService) ClearPending(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Clear(ctx)
}

func parseKind(value string) (progress.Kind, error) {
	kind, ok := progress.ParseKind(value)
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrValidation, value)
	}
	return kind, nil
}
