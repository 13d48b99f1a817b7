package daemon_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"testing"

	json "github.com/goccy/go-json"

	"reelhold/internal/api"
	"reelhold/internal/daemon"
	"reelhold/internal/testsupport"
)

func apiURL(d *daemon.Daemon, path string) string {
	return fmt.Sprintf("http://%s%s", d.APIAddr(), path)
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode body %s: %v", raw, err)
	}
}

func TestTelemetryThenContinueOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	resp := postJSON(t, apiURL(d, "/api/telemetry"), map[string]any{
		"id": 1, "kind": "movie", "watchedSeconds": 600, "totalSeconds": 1200, "title": "Film",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("telemetry status %d", resp.StatusCode)
	}
	var recResp api.RecordResponse
	decodeBody(t, resp, &recResp)
	if recResp.Record.Key() != "movie-1" {
		t.Fatalf("unexpected record %+v", recResp.Record)
	}

	getResp, err := http.Get(apiURL(d, "/api/continue"))
	if err != nil {
		t.Fatalf("GET continue: %v", err)
	}
	var contResp api.ContinueResponse
	decodeBody(t, getResp, &contResp)
	if len(contResp.Entries) != 1 || contResp.Entries[0].Percent != 50 {
		t.Fatalf("unexpected continue entries %+v", contResp.Entries)
	}
}

func TestProgressItemRoutes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	season, episode := 2, 3
	resp := postJSON(t, apiURL(d, "/api/telemetry"), map[string]any{
		"id": 7, "kind": "tv", "watchedSeconds": 600, "totalSeconds": 1200,
		"season": season, "episode": episode,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("telemetry status %d", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := http.Get(apiURL(d, "/api/progress/series/7"))
	if err != nil {
		t.Fatalf("GET record: %v", err)
	}
	var recResp api.RecordResponse
	decodeBody(t, getResp, &recResp)
	if recResp.Record.LastSeasonWatched != "2" {
		t.Fatalf("unexpected record %+v", recResp.Record)
	}

	epResp, err := http.Get(apiURL(d, "/api/progress/series/7/episode?season=2&episode=3"))
	if err != nil {
		t.Fatalf("GET episode: %v", err)
	}
	var episodeResp api.EpisodeResponse
	decodeBody(t, epResp, &episodeResp)
	if episodeResp.Episode.Season != 2 || episodeResp.Episode.Episode != 3 {
		t.Fatalf("unexpected episode %+v", episodeResp.Episode)
	}

	req, _ := http.NewRequest(http.MethodDelete, apiURL(d, "/api/progress/series/7"), nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE record: %v", err)
	}
	var removed api.RemovedResponse
	decodeBody(t, delResp, &removed)
	if !removed.Removed {
		t.Fatal("expected removal")
	}

	missing, err := http.Get(apiURL(d, "/api/progress/series/7"))
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestImportEndpointWithBody(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	resp := postJSON(t, apiURL(d, "/api/import"), []map[string]any{{
		"id": 4, "kind": "movie", "title": "Imported",
		"progress":    map[string]any{"watchedSeconds": 40, "totalSeconds": 100},
		"lastUpdated": 5,
	}})
	var importResp api.ImportResponse
	decodeBody(t, resp, &importResp)
	if importResp.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d", importResp.Accepted)
	}
	if d.Status().RecordCount != 1 {
		t.Fatalf("expected record in cache, count=%d", d.Status().RecordCount)
	}
	// Imports do not enter the pending queue.
	if d.Status().PendingCount != 0 {
		t.Fatalf("expected empty queue, got %d", d.Status().PendingCount)
	}
}

func TestBadPayloadsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	resp := postJSON(t, apiURL(d, "/api/telemetry"), map[string]any{"kind": "movie"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing id should 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, apiURL(d, "/api/telemetry"), map[string]any{"id": 1, "kind": "podcast"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown kind should 400, got %d", resp.StatusCode)
	}
}

func TestBearerAuthEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("sekrit"))
	d := startDaemon(t, cfg)

	resp, err := http.Get(apiURL(d, "/api/status"))
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, apiURL(d, "/api/status"), nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed GET: %v", err)
	}
	var status api.DaemonStatus
	decodeBody(t, authed, &status)
	if !status.Running {
		t.Fatal("expected running status")
	}
}
