package exporting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/services"
	"quill/internal/testsupport"
)

type captureNotifier struct {
	exports   []string
	completed []string
	reviews   []string
}

func (c *captureNotifier) NotifyFileAdded(context.Context, string) error              { return nil }
func (c *captureNotifier) NotifyTranscriptionCompleted(context.Context, string) error { return nil }
func (c *captureNotifier) NotifyExportCompleted(_ context.Context, _ string, captionFile string) error {
	c.exports = append(c.exports, captionFile)
	return nil
}
func (c *captureNotifier) NotifyProcessingCompleted(_ context.Context, title string) error {
	c.completed = append(c.completed, title)
	return nil
}
func (c *captureNotifier) NotifyReviewRequired(_ context.Context, _ string, reason string) error {
	c.reviews = append(c.reviews, reason)
	return nil
}
func (c *captureNotifier) NotifyQueueStarted(context.Context, int) error { return nil }
func (c *captureNotifier) NotifyQueueCompleted(_ context.Context, _ int, _ int, _ time.Duration) error {
	return nil
}
func (c *captureNotifier) NotifyError(context.Context, error, string) error { return nil }
func (c *captureNotifier) TestNotification(context.Context) error           { return nil }

type exportEnv struct {
	cfg      *config.Config
	store    *queue.Store
	notifier *captureNotifier
	exporter *Exporter
}

func newExportEnv(t *testing.T, opts ...testsupport.ConfigOption) *exportEnv {
	t.Helper()
	env := &exportEnv{
		cfg:      testsupport.NewConfig(t, opts...),
		notifier: &captureNotifier{},
	}
	env.store = testsupport.MustOpenStore(t, env.cfg)
	env.exporter = NewExporterWithDependencies(env.cfg, env.store, logging.NewNop(), env.notifier)
	return env
}

// seedTranscribed registers a source file, drops the given transcript payload
// into its staging directory, and marks the item transcribed.
func (env *exportEnv) seedTranscribed(t *testing.T, payload string) *queue.Item {
	t.Helper()
	ctx := context.Background()
	source := filepath.Join(testsupport.BaseDir(env.cfg), "team_standup.mkv")
	testsupport.WriteFile(t, source, 32)
	item, err := env.store.NewFile(ctx, source)
	if err != nil {
		t.Fatalf("queueing source file: %v", err)
	}
	staging := item.StagingRoot(env.cfg.Paths.StagingDir)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatalf("creating staging dir: %v", err)
	}
	transcript := filepath.Join(staging, "transcript.json")
	if err := os.WriteFile(transcript, []byte(payload), 0o644); err != nil {
		t.Fatalf("writing transcript: %v", err)
	}
	item.Status = queue.StatusTranscribed
	item.TranscriptPath = transcript
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("saving transcribed item: %v", err)
	}
	return item
}

func TestExporterRendersConfiguredFormats(t *testing.T) {
	env := newExportEnv(t, testsupport.WithCaptionFormats("vtt", "srt"))

	payload := `[
		{"start": "0:01", "end": "0:03.5", "text": "Welcome back."},
		{"start": "4s", "end": 6.25, "caption": "Let's get started."}
	]`
	item := env.seedTranscribed(t, payload)

	if err := env.exporter.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := env.exporter.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.CueCount != 2 {
		t.Fatalf("recorded %d cues, want 2", item.CueCount)
	}
	wantPrimary := filepath.Join(env.cfg.Paths.OutputDir, "team-standup.vtt")
	if item.CaptionPath != wantPrimary {
		t.Fatalf("primary caption is %s, want %s", item.CaptionPath, wantPrimary)
	}

	vtt, err := os.ReadFile(wantPrimary)
	if err != nil {
		t.Fatalf("reading vtt: %v", err)
	}
	if !strings.HasPrefix(string(vtt), "WEBVTT\n") {
		t.Fatalf("vtt output has no WEBVTT header: %q", string(vtt))
	}
	if !strings.Contains(string(vtt), "00:00:01.000 --> 00:00:03.500") {
		t.Fatalf("first cue timing absent from vtt output:\n%s", string(vtt))
	}

	srt, err := os.ReadFile(filepath.Join(env.cfg.Paths.OutputDir, "team-standup.srt"))
	if err != nil {
		t.Fatalf("reading srt: %v", err)
	}
	if !strings.Contains(string(srt), "00:00:04,000 --> 00:00:06,250") {
		t.Fatalf("second cue timing absent from srt output:\n%s", string(srt))
	}

	if len(env.notifier.exports) != 1 || env.notifier.exports[0] != "team-standup.vtt" {
		t.Fatalf("export notifications: %v", env.notifier.exports)
	}
	if len(env.notifier.completed) != 1 || env.notifier.completed[0] != "Team Standup" {
		t.Fatalf("completion notifications: %v", env.notifier.completed)
	}
}

func TestExporterAllocatesCollisionSafeNames(t *testing.T) {
	env := newExportEnv(t)

	if err := os.MkdirAll(env.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("creating output dir: %v", err)
	}
	existing := filepath.Join(env.cfg.Paths.OutputDir, "team-standup.vtt")
	if err := os.WriteFile(existing, []byte("WEBVTT\n"), 0o644); err != nil {
		t.Fatalf("planting existing caption: %v", err)
	}

	item := env.seedTranscribed(t, `[{"start": 0, "end": 1, "text": "hi"}]`)
	if err := env.exporter.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(env.cfg.Paths.OutputDir, "team-standup-2.vtt")
	if item.CaptionPath != want {
		t.Fatalf("caption landed at %s, want collision-safe %s", item.CaptionPath, want)
	}
}

func TestExporterEmptyExtractionFallsBackToPlainText(t *testing.T) {
	env := newExportEnv(t)

	payload := "The model forgot the timestamps and returned prose instead."
	item := env.seedTranscribed(t, payload)

	if err := env.exporter.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusReview {
		t.Fatalf("item status is %s, want %s", item.Status, queue.StatusReview)
	}
	if !item.NeedsReview {
		t.Fatal("review flag not set")
	}
	if item.CueCount != 0 {
		t.Fatalf("recorded %d cues, want 0", item.CueCount)
	}

	want := filepath.Join(env.cfg.Paths.ReviewDir, "team-standup.txt")
	if item.CaptionPath != want {
		t.Fatalf("plain-text artifact at %s, want %s", item.CaptionPath, want)
	}
	text, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading plain text: %v", err)
	}
	if strings.TrimSpace(string(text)) != payload {
		t.Fatalf("plain text content: %q", string(text))
	}
	if len(env.notifier.reviews) != 1 {
		t.Fatalf("got %d review notifications, want 1", len(env.notifier.reviews))
	}
}

func TestExporterEmptyExtractionFailsWithoutFallback(t *testing.T) {
	env := newExportEnv(t)
	env.cfg.Captions.FallbackPlainText = false

	item := env.seedTranscribed(t, "prose without any timing")
	err := env.exporter.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestExporterPrepareValidatesTranscript(t *testing.T) {
	env := newExportEnv(t)

	t.Run("missing transcript path", func(t *testing.T) {
		err := env.exporter.Prepare(context.Background(), &queue.Item{})
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("got %v, want validation error", err)
		}
	})

	t.Run("transcript file gone", func(t *testing.T) {
		item := &queue.Item{TranscriptPath: filepath.Join(testsupport.BaseDir(env.cfg), "gone.json")}
		err := env.exporter.Prepare(context.Background(), item)
		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("got %v, want not found error", err)
		}
	})
}

func TestExporterHealthCheck(t *testing.T) {
	broken := []struct {
		name     string
		exporter *Exporter
	}{
		{"nil exporter", nil},
		{"nil config", &Exporter{}},
		{"nil store", &Exporter{cfg: &config.Config{}}},
	}
	for _, tc := range broken {
		t.Run(tc.name, func(t *testing.T) {
			if health := tc.exporter.HealthCheck(context.Background()); health.Ready {
				t.Error("broken exporter reported ready")
			}
		})
	}

	t.Run("ready", func(t *testing.T) {
		env := newExportEnv(t)
		health := env.exporter.HealthCheck(context.Background())
		if !health.Ready {
			t.Fatalf("exporter not ready: %s", health.Detail)
		}
	})
}

func TestExportSlugFallsBackToQueueID(t *testing.T) {
	item := &queue.Item{ID: 12, Title: "///"}
	if got := exportSlug(item); got != "queue-12" {
		t.Fatalf("exportSlug = %s, want queue-12", got)
	}
}
