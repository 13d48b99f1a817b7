// Package backend talks to the backend of record: it pulls progress batches
// for import and pushes pending-sync records. The engine stays local-first;
// every backend failure is survivable and the data lives on locally.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"reelhold/internal/config"
	"reelhold/internal/progress"
)

const userAgent = "Reelhold/0.1.0"

// HTTPDoer abstracts the HTTP client used for backend requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP client for the backend progress API.
type Client struct {
	baseURL  string
	token    string
	clientID string
	doer     HTTPDoer
}

// NewClient builds a backend client from configuration. The clientID
// identifies this installation to the backend for last-writer diagnostics.
func NewClient(cfg *config.Config, clientID string) *Client {
	timeout := time.Duration(cfg.Backend.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.Backend.BaseURL, "/"),
		token:    cfg.Backend.APIToken,
		clientID: clientID,
		doer:     &http.Client{Timeout: timeout},
	}
}

// WithDoer swaps the underlying HTTP client, used by tests.
func (c *Client) WithDoer(doer HTTPDoer) *Client {
	c.doer = doer
	return c
}

// Fetch retrieves the backend's full progress record set.
func (c *Client) Fetch(ctx context.Context) ([]progress.Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/progress", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}

	var records []progress.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode progress response: %w", err)
	}
	return records, nil
}

// Push uploads a batch of records drained from the pending-sync queue.
func (c *Client) Push(ctx context.Context, records []progress.Record) error {
	if len(records) == 0 {
		return nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode progress batch: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/v1/progress", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("push progress: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.clientID != "" {
		req.Header.Set("X-Client-ID", c.clientID)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		if len(message) > 256 {
			message = message[:256]
		}
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, message)
	}
	return body, nil
}
