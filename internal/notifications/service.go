package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quill/internal/config"
)

const (
	userAgent      = "Quill/0.1.0"
	defaultTimeout = 10 * time.Second
)

// Service is the event surface the workflow pushes operator notifications through.
type Service interface {
	NotifyFileAdded(ctx context.Context, title string) error
	NotifyTranscriptionCompleted(ctx context.Context, title string) error
	NotifyExportCompleted(ctx context.Context, title, captionFile string) error
	NotifyProcessingCompleted(ctx context.Context, title string) error
	NotifyReviewRequired(ctx context.Context, title, reason string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, scope string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, and a silent no-op implementation otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return mutedService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ntfyClient{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		gates: eventGates{
			queue:         cfg.Notifications.Queue,
			transcription: cfg.Notifications.Transcription,
			export:        cfg.Notifications.Export,
			review:        cfg.Notifications.Review,
			errors:        cfg.Notifications.Errors,
		},
	}
}

// eventGates mirrors the per-event booleans in the [notifications] config
// section. A muted event returns nil without issuing a request.
type eventGates struct {
	queue         bool
	transcription bool
	export        bool
	review        bool
	errors        bool
}

// payload carries one ntfy message. The body travels as the request body;
// everything else rides in headers.
type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyClient struct {
	endpoint string
	client   *http.Client
	gates    eventGates
}

// notify drops muted events before handing the payload to send.
func (n *ntfyClient) notify(ctx context.Context, enabled bool, data payload) error {
	if !enabled {
		return nil
	}
	return n.post(ctx, data)
}

func (n *ntfyClient) NotifyFileAdded(ctx context.Context, title string) error {
	return n.notify(ctx, n.gates.queue, payload{
		title:   "Quill - File Queued",
		message: fmt.Sprintf("🎙️ Queued for transcription: %s", strings.TrimSpace(title)),
		tags:    []string{"quill", "queue", "added"},
	})
}

func (n *ntfyClient) NotifyTranscriptionCompleted(ctx context.Context, title string) error {
	return n.notify(ctx, n.gates.transcription, payload{
		title:   "Quill - Transcribed",
		message: fmt.Sprintf("📝 Transcription complete: %s", strings.TrimSpace(title)),
		tags:    []string{"quill", "transcribe", "completed"},
	})
}

func (n *ntfyClient) NotifyExportCompleted(ctx context.Context, title, captionFile string) error {
	message := fmt.Sprintf("Captions rendered: %s", strings.TrimSpace(title))
	if captionFile = strings.TrimSpace(captionFile); captionFile != "" {
		message += "\nFile: " + captionFile
	}
	return n.notify(ctx, n.gates.export, payload{
		title:   "Quill - Captions Ready",
		message: message,
		tags:    []string{"quill", "export", "completed"},
	})
}

func (n *ntfyClient) NotifyProcessingCompleted(ctx context.Context, title string) error {
	return n.notify(ctx, n.gates.export, payload{
		title:    "Quill - Complete",
		message:  fmt.Sprintf("✅ Ready to use: %s", strings.TrimSpace(title)),
		tags:     []string{"quill", "workflow", "completed"},
		priority: "high",
	})
}

func (n *ntfyClient) NotifyReviewRequired(ctx context.Context, title, reason string) error {
	message := fmt.Sprintf("Needs review: %s", strings.TrimSpace(title))
	if reason = strings.TrimSpace(reason); reason != "" {
		message += "\n" + reason
	}
	return n.notify(ctx, n.gates.review, payload{
		title:   "Quill - Review Required",
		message: message,
		tags:    []string{"quill", "review"},
	})
}

func (n *ntfyClient) NotifyQueueStarted(ctx context.Context, count int) error {
	return n.notify(ctx, n.gates.queue, payload{
		title:   "Quill - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"quill", "queue", "started"},
	})
}

func (n *ntfyClient) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	elapsed := roundedDuration(duration)
	data := payload{
		title:   "Quill - Queue Complete",
		message: fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, elapsed),
		tags:    []string{"quill", "queue", "completed"},
	}
	if failed > 0 {
		data.title = "Quill - Queue Complete (with errors)"
		data.message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, elapsed)
	}
	return n.notify(ctx, n.gates.queue, data)
}

func roundedDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyClient) NotifyError(ctx context.Context, err error, contextLabel string) error {
	cause := "unknown"
	if err != nil {
		cause = strings.TrimSpace(err.Error())
	}
	scope := ""
	if label := strings.TrimSpace(contextLabel); label != "" {
		scope = " with " + label
	}
	return n.notify(ctx, n.gates.errors, payload{
		title:    "Quill - Error",
		message:  fmt.Sprintf("❌ Error%s: %s", scope, cause),
		tags:     []string{"quill", "error", "alert"},
		priority: "high",
	})
}

// TestNotification bypasses the event gates so operators can verify the
// topic wiring even with every event muted.
func (n *ntfyClient) TestNotification(ctx context.Context) error {
	return n.post(ctx, payload{
		title:    "Quill - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"quill", "test"},
		priority: "low",
	})
}

func (n *ntfyClient) post(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("ntfy request: %w", err)
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
		return fmt.Errorf("ntfy post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type mutedService struct{}

func (mutedService) NotifyFileAdded(context.Context, string) error                       { return nil }
func (mutedService) NotifyTranscriptionCompleted(context.Context, string) error          { return nil }
func (mutedService) NotifyExportCompleted(context.Context, string, string) error         { return nil }
func (mutedService) NotifyProcessingCompleted(context.Context, string) error             { return nil }
func (mutedService) NotifyReviewRequired(context.Context, string, string) error          { return nil }
func (mutedService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (mutedService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (mutedService) NotifyError(context.Context, error, string) error                    { return nil }
func (mutedService) TestNotification(context.Context) error                              { return nil }
