package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelhold/internal/config"
)

const userAgent = "Reelhold/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifySyncCompleted(ctx context.Context, pushed int) error
	NotifySyncFailed(ctx context.Context, pending int, err error) error
	NotifyImportCompleted(ctx context.Context, accepted int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		syncEvents: cfg.Notifications.Sync,
		errEvents:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	syncEvents bool
	errEvents  bool
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, pushed int) error {
	if !n.syncEvents {
		return nil
	}
	data := payload{
		title:   "Reelhold - Sync Complete",
		message: fmt.Sprintf("Pushed %d progress records to the backend", pushed),
		tags:    []string{"reelhold", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncFailed(ctx context.Context, pending int, err error) error {
	if !n.errEvents {
		return nil
	}
	message := fmt.Sprintf("Backend push failed, %d records re-queued", pending)
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Reelhold - Sync Failed",
		message:  message,
		tags:     []string{"reelhold", "sync", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, accepted int) error {
	if !n.syncEvents {
		return nil
	}
	data := payload{
		title:   "Reelhold - Import Complete",
		message: fmt.Sprintf("Imported %d progress records from the backend", accepted),
		tags:    []string{"reelhold", "import", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Reelhold - Error",
		message:  builder.String(),
		tags:     []string{"reelhold", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reelhold - Test",
		message:  "Notification system test",
		tags:     []string{"reelhold", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySyncCompleted(context.Context, int) error        { return nil }
func (noopService) NotifySyncFailed(context.Context, int, error) error    { return nil }
func (noopService) NotifyImportCompleted(context.Context, int) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
