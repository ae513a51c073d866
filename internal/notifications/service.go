package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sprocket/internal/config"
)

const userAgent = "Sprocket/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunStarted(ctx context.Context, jobCount int) error
	NotifyRunCompleted(ctx context.Context, completed, partial, failed int, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, jobIndex int, url, reason string) error
	TestNotification(ctx context.Context) error
}

// Noop returns a service that drops every notification.
func Noop() Service { return noopService{} }

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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, jobCount int) error {
	data := payload{
		title:   "Sprocket - Run Started",
		message: fmt.Sprintf("Started processing %d job(s)", jobCount),
		tags:    []string{"sprocket", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, completed, partial, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 && partial == 0 {
		title = "Sprocket - Run Complete"
		message = fmt.Sprintf("Run complete: %d job(s) finished in %s", completed, durationText)
	} else {
		title = "Sprocket - Run Complete (with failures)"
		message = fmt.Sprintf("Run complete: %d succeeded, %d partial, %d failed in %s", completed, partial, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"sprocket", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobIndex int, url, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Sprocket - Job Failed",
		message:  fmt.Sprintf("Job %d failed: %s\nURL: %s", jobIndex, reason, strings.TrimSpace(url)),
		tags:     []string{"sprocket", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Sprocket - Test",
		message:  "Notification system test",
		tags:     []string{"sprocket", "test"},
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

func (noopService) NotifyRunStarted(context.Context, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, int, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
