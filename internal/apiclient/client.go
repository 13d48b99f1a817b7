// Package apiclient is the HTTP client for the daemon's local API, used by
// the reelhold CLI.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"reelhold/internal/api"
	"reelhold/internal/config"
	"reelhold/internal/progress"
)

// Client talks to a running reelhold daemon.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the daemon bound per the given configuration.
func New(cfg *config.Config) *Client {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	return &Client{
		baseURL: "http://" + bind,
		token:   cfg.Paths.APIToken,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.call(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// List fetches every cached record.
func (c *Client) List(ctx context.Context) ([]progress.Record, error) {
	var out api.ProgressListResponse
	if err := c.call(ctx, http.MethodGet, "/api/progress", nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// ContinueWatching fetches the projection, optionally bounded by limit.
func (c *Client) ContinueWatching(ctx context.Context, limit int) ([]progress.ContinueEntry, error) {
	path := "/api/continue"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.ContinueResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Search finds records whose title resembles the query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]api.SearchMatch, error) {
	path := "/api/search?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var out api.SearchResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, kind string, id int64) (progress.Record, error) {
	var out api.RecordResponse
	err := c.call(ctx, http.MethodGet, recordPath(kind, id), nil, &out)
	return out.Record, err
}

// GetEpisode fetches one episode sub-state.
func (c *Client) GetEpisode(ctx context.Context, id int64, season, episode int) (progress.Episode, error) {
	path := fmt.Sprintf("%s/episode?season=%d&episode=%d", recordPath("series", id), season, episode)
	var out api.EpisodeResponse
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out.Episode, err
}

// Telemetry submits a playback tick.
func (c *Client) Telemetry(ctx context.Context, req api.TelemetryRequest) (progress.Record, error) {
	var out api.RecordResponse
	err := c.call(ctx, http.MethodPost, "/api/telemetry", req, &out)
	return out.Record, err
}

// Snapshot submits a bulk progress record.
func (c *Client) Snapshot(ctx context.Context, req api.SnapshotRequest) (progress.Record, error) {
	var out api.RecordResponse
	err := c.call(ctx, http.MethodPost, "/api/snapshot", req, &out)
	return out.Record, err
}

// Complete marks a title or episode fully watched.
func (c *Client) Complete(ctx context.Context, req api.CompleteRequest) (progress.Record, error) {
	var out api.RecordResponse
	err := c.call(ctx, http.MethodPost, "/api/complete", req, &out)
	return out.Record, err
}

// Remove deletes one record.
func (c *Client) Remove(ctx context.Context, kind string, id int64) (bool, error) {
	var out api.RemovedResponse
	err := c.call(ctx, http.MethodDelete, recordPath(kind, id), nil, &out)
	return out.Removed, err
}

// Clear drops every record.
func (c *Client) Clear(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/progress", nil, nil)
}

// Pending lists the pending-sync queue.
func (c *Client) Pending(ctx context.Context) ([]progress.Record, error) {
	var out api.QueueListResponse
	if err := c.call(ctx, http.MethodGet, "/api/queue", nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// ClearPending discards the pending-sync queue.
func (c *Client) ClearPending(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/queue", nil, nil)
}

// Sync triggers an immediate backend flush.
func (c *Client) Sync(ctx context.Context) (api.SyncResponse, error) {
	var out api.SyncResponse
	err := c.call(ctx, http.MethodPost, "/api/sync", nil, &out)
	return out, err
}

// Import triggers an immediate backend import.
func (c *Client) Import(ctx context.Context) (api.ImportResponse, error) {
	var out api.ImportResponse
	err := c.call(ctx, http.MethodPost, "/api/import", nil, &out)
	return out, err
}

func recordPath(kind string, id int64) string {
	return "/api/progress/" + url.PathEscape(kind) + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
