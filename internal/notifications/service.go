package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gleaner/internal/config"
	"gleaner/internal/queue"
)

const userAgent = "Gleaner/0.1.0"

// Service defines the notification surface exposed to the worker fleet.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job *queue.Job) error
	NotifyJobFailed(ctx context.Context, job *queue.Job) error
	NotifyQueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error
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
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		sendCompletions: cfg.Notifications.Completed,
		sendErrors:      cfg.Notifications.Errors,
		sendDrained:     cfg.Notifications.QueueDrained,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	sendCompletions bool
	sendErrors      bool
	sendDrained     bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job *queue.Job) error {
	if !n.sendCompletions || job == nil {
		return nil
	}
	summary := job.TargetURL
	if job.Result != nil && strings.TrimSpace(job.Result.Content.Text) != "" {
		summary = strings.TrimSpace(job.Result.Content.Text)
	}
	data := payload{
		title:   "Gleaner - Fetch Complete",
		message: fmt.Sprintf("Fetched from %s: %s", job.Platform, summary),
		tags:    []string{"gleaner", string(job.Platform), "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job *queue.Job) error {
	if !n.sendErrors || job == nil {
		return nil
	}
	reason := "unknown error"
	if job.LastError != nil {
		reason = fmt.Sprintf("%s: %s", job.LastError.Code, job.LastError.Message)
	}
	data := payload{
		title:    "Gleaner - Fetch Failed",
		message:  fmt.Sprintf("Job %d (%s) failed after %d attempts\n%s", job.ID, job.Platform, job.Attempts, reason),
		tags:     []string{"gleaner", string(job.Platform), "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.sendDrained {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Gleaner - Queue Drained"
		message = fmt.Sprintf("Queue drained: %d jobs completed in %s", processed, durationText)
	} else {
		title = "Gleaner - Queue Drained (with errors)"
		message = fmt.Sprintf("Queue drained: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"gleaner", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Gleaner - Test",
		message:  "Notification system test",
		tags:     []string{"gleaner", "test"},
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

func (noopService) NotifyJobCompleted(context.Context, *queue.Job) error              { return nil }
func (noopService) NotifyJobFailed(context.Context, *queue.Job) error                 { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
