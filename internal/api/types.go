package api

import (
	"reelhold/internal/progress"
	"reelhold/internal/tracker"
)

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	DatabasePath   string `json:"databasePath"`
	LockFilePath   string `json:"lockFilePath"`
	RecordCount    int    `json:"recordCount"`
	PendingCount   int    `json:"pendingCount"`
	BackendEnabled bool   `json:"backendEnabled"`
}

// ProgressListResponse wraps the full record set.
type ProgressListResponse struct {
	Records []progress.Record `json:"records"`
}

// RecordResponse wraps a single record lookup.
type RecordResponse struct {
	Record progress.Record `json:"record"`
}

// EpisodeResponse wraps an episode sub-state lookup.
type EpisodeResponse struct {
	Episode progress.Episode `json:"episode"`
}

// ContinueResponse wraps the continue-watching projection.
type ContinueResponse struct {
	Entries []progress.ContinueEntry `json:"entries"`
}

// TelemetryRequest is the wire shape of a playback tick.
type TelemetryRequest = tracker.TelemetryEvent

// SnapshotRequest is the wire shape of a bulk progress snapshot.
type SnapshotRequest = progress.Record

// CompleteRequest marks a title, or one of its episodes, fully watched.
type CompleteRequest struct {
	ID      int64         `json:"id"`
	Kind    progress.Kind `json:"kind"`
	Season  *int          `json:"season,omitempty"`
	Episode *int          `json:"episode,omitempty"`
}

// ImportResponse reports the outcome of a backend import.
type ImportResponse struct {
	Accepted int `json:"accepted"`
}

// SyncResponse reports the outcome of a pending-queue flush.
type SyncResponse struct {
	Pushed  int `json:"pushed"`
	Pending int `json:"pending"`
}

// QueueListResponse wraps the pending-sync queue contents.
type QueueListResponse struct {
	Records []progress.Record `json:"records"`
}

// SearchMatch pairs a record with its title-similarity score.
type SearchMatch struct {
	Record progress.Record `json:"record"`
	Score  float64         `json:"score"`
}

// SearchResponse wraps a fuzzy title search.
type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// RemovedResponse reports whether a delete targeted an existing record.
type RemovedResponse struct {
	Removed bool `json:"removed"`
}
