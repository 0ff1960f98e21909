package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shipwright/internal/config"
)

const userAgent = "shipwright/0.1"

// ReleaseSummary describes a finished release for notification text.
type ReleaseSummary struct {
	Package    string
	Tag        string
	Resumed    bool
	Executed   int
	Skipped    int
	Tolerated  int
	Duration   time.Duration
	ReleaseURL string
}

// Service defines the notification surface exposed to the release command.
type Service interface {
	NotifyReleaseCompleted(ctx context.Context, summary ReleaseSummary) error
	NotifyReleaseFailed(ctx context.Context, tag, step string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
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
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyReleaseCompleted(ctx context.Context, s ReleaseSummary) error {
	subject := strings.TrimSpace(strings.TrimSpace(s.Package) + " " + s.Tag)
	var b strings.Builder
	if s.Resumed {
		fmt.Fprintf(&b, "🚀 Resumed release complete: %s", subject)
	} else {
		fmt.Fprintf(&b, "🚀 Released %s", subject)
	}
	fmt.Fprintf(&b, "\n%d step(s) executed, %d already done", s.Executed, s.Skipped)
	if s.Tolerated > 0 {
		fmt.Fprintf(&b, ", %d push failure(s) tolerated", s.Tolerated)
	}
	if d := s.Duration.Round(time.Second); d > 0 {
		fmt.Fprintf(&b, " in %s", d)
	}
	title := "shipwright - Released"
	tags := []string{"shipwright", "release", "completed"}
	if s.Tolerated > 0 {
		title = "shipwright - Released (push pending)"
		tags = append(tags, "warning")
	}
	return n.send(ctx, payload{
		title:   title,
		message: b.String(),
		tags:    tags,
		click:   strings.TrimSpace(s.ReleaseURL),
	})
}

func (n *ntfyService) NotifyReleaseFailed(ctx context.Context, tag, step string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ Release")
	if tag = strings.TrimSpace(tag); tag != "" {
		builder.WriteString(" ")
		builder.WriteString(tag)
	}
	builder.WriteString(" failed")
	if step = strings.TrimSpace(step); step != "" {
		builder.WriteString(" at ")
		builder.WriteString(step)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	builder.WriteString("\nRerun with the same version to resume.")

	return n.send(ctx, payload{
		title:    "shipwright - Release Failed",
		message:  builder.String(),
		tags:     []string{"shipwright", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "shipwright - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"shipwright", "test"},
		priority: "low",
	})
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
	if data.click != "" {
		req.Header.Set("Click", data.click)
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

func (noopService) NotifyReleaseCompleted(context.Context, ReleaseSummary) error { return nil }
func (noopService) NotifyReleaseFailed(context.Context, string, string, error) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
