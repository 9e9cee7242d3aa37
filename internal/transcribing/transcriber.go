package transcribing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/media"
	"quill/internal/notifications"
	"quill/internal/queue"
	"quill/internal/services"
	"quill/internal/services/speech"
	"quill/internal/stage"
)

const (
	progressStageTranscribing = "Transcribing"
	progressPercentProbe      = 5.0
	progressPercentUpload     = 15.0
	progressPercentPersist    = 85.0

	transcriptFilename = "transcript.json"
	mediaInfoFilename  = "mediainfo.json"
)

// SpeechClient abstracts the hosted transcription API so tests can substitute
// a fake.
type SpeechClient interface {
	Transcribe(ctx context.Context, req speech.Request) (string, error)
	HealthCheck(ctx context.Context) error
}

// Transcriber sends queued media to the speech service and stores the raw
// transcript payload in the item's staging directory.
type Transcriber struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	client   SpeechClient
	notifier notifications.Service
}

// NewTranscriber constructs the transcription stage handler using default
// dependencies.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	sc := cfg.GetSpeech()
	client := speech.NewClient(speech.Config{
		APIKey:         sc.APIKey,
		BaseURL:        sc.BaseURL,
		Model:          sc.Model,
		Language:       sc.Language,
		Granularity:    sc.Granularity,
		Punctuation:    sc.Punctuation,
		TimeoutSeconds: sc.TimeoutSeconds,
	})
	return NewTranscriberWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewTranscriberWithDependencies allows injecting collaborators (used in tests).
func NewTranscriberWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client SpeechClient, notifier notifications.Service) *Transcriber {
	return &Transcriber{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "transcriber"),
		client:   client,
		notifier: notifier,
	}
}

// SetLogger allows the workflow manager to route stage logs through the
// item-scoped logger.
func (t *Transcriber) SetLogger(logger *slog.Logger) {
	if t == nil {
		return
	}
	t.logger = logging.NewComponentLogger(logger, "transcriber")
}

// Prepare validates the source file and primes progress fields.
func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	if t == nil || t.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "prepare", "Transcription stage is not configured", nil)
	}
	if t.store == nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "prepare", "Queue store unavailable", nil)
	}
	source := strings.TrimSpace(item.SourcePath)
	if source == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "prepare", "Queue item has no source file", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrNotFound, "transcribing", "prepare",
			fmt.Sprintf("Source file missing: %s", source), err)
	}
	if !media.IsSupportedPath(source) {
		return services.Wrap(services.ErrValidation, "transcribing", "prepare",
			fmt.Sprintf("Unsupported media extension %q; supported: %s", filepath.Ext(source), strings.Join(media.SupportedExtensions(), ", ")),
			nil,
		)
	}
	item.InitProgress(progressStageTranscribing, "Preparing transcription")
	return t.store.UpdateProgress(ctx, item)
}

// Execute uploads the audio and stores the transcript payload.
func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	stageStart := time.Now()

	if t == nil || t.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "execute", "Transcription stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "transcribing", "execute", "Queue item is nil", nil)
	}
	if t.store == nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "execute", "Queue store unavailable", nil)
	}
	if t.client == nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "execute", "Speech client unavailable", nil)
	}

	logger := logging.WithContext(ctx, t.logger)
	source := strings.TrimSpace(item.SourcePath)

	if err := t.updateProgress(ctx, item, "Probing media streams", progressPercentProbe); err != nil {
		return err
	}
	probe := t.probeSource(ctx, logger, source)
	if len(probe.RawJSON()) > 0 && !probe.HasAudio() {
		return services.Wrap(services.ErrValidation, "transcribing", "inspect media",
			"Source file has no audio streams to transcribe", nil)
	}

	audio, err := os.ReadFile(source)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcribing", "read source", "Failed to read source media", err)
	}
	if len(audio) == 0 {
		return services.Wrap(services.ErrValidation, "transcribing", "read source", "Source file is empty", nil)
	}

	if err := t.updateProgress(ctx, item, "Sending audio to speech service", progressPercentUpload); err != nil {
		return err
	}
	transcript, err := t.client.Transcribe(ctx, speech.Request{
		Audio:           audio,
		MIMEType:        media.MIMETypeForPath(source),
		DurationSeconds: probe.DurationSeconds(),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "transcribe audio", "Speech service request failed", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "transcribe audio",
			"Speech service returned an empty transcript", nil)
	}

	if err := t.updateProgress(ctx, item, "Writing transcript to staging", progressPercentPersist); err != nil {
		return err
	}
	transcriptPath, err := t.writeArtifacts(item, transcript, probe)
	if err != nil {
		return err
	}

	item.TranscriptPath = transcriptPath
	item.Language = t.cfg.GetSpeech().Language
	item.DurationSeconds = probe.DurationSeconds()
	if raw := probe.RawJSON(); len(raw) > 0 {
		item.MediaInfoJSON = string(raw)
	}

	item.ProgressStage = "Transcribed"
	item.ProgressPercent = 100
	item.ProgressMessage = fmt.Sprintf("Transcript captured (%d characters)", len(transcript))
	if err := t.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "transcribing", "persist progress",
			"Failed to persist transcription progress", err)
	}

	if t.notifier != nil {
		if err := t.notifier.NotifyTranscriptionCompleted(ctx, stage.DisplayTitle(item)); err != nil {
			logger.Warn("transcription notification failed", logging.Error(err))
		}
	}

	logger.Info("transcription stage summary",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.Int("audio_bytes", len(audio)),
		logging.Int("transcript_chars", len(transcript)),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)
	return nil
}

// HealthCheck reports readiness for the transcription stage.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcriber"
	if t == nil || t.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if t.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	if strings.TrimSpace(t.cfg.Speech.APIKey) == "" {
		return stage.Unhealthy(name, "speech API key not configured")
	}
	if t.client == nil {
		return stage.Unhealthy(name, "speech client unavailable")
	}
	return stage.Healthy(name)
}

// probeSource inspects the media file for duration and stream layout.
// Probe failures are advisory; transcription proceeds without the hints.
func (t *Transcriber) probeSource(ctx context.Context, logger *slog.Logger, source string) media.Report {
	probe, err := media.Probe(ctx, t.cfg.FFprobeBinary(), source)
	if err == nil {
		return probe
	}
	if media.IsNotInstalled(err) {
		logger.Debug("ffprobe not installed; skipping media inspection")
		return media.Report{}
	}
	logger.Warn("media probe failed; continuing without duration hint",
		logging.Error(err),
		logging.String(logging.FieldEventType, "media_probe_failed"),
		logging.String(logging.FieldImpact, "transcript timing hints unavailable"),
	)
	return media.Report{}
}

func (t *Transcriber) writeArtifacts(item *queue.Item, transcript string, probe media.Report) (string, error) {
	stagingDir := item.StagingRoot(t.cfg.Paths.StagingDir)
	if stagingDir == "" {
		return "", services.Wrap(services.ErrConfiguration, "transcribing", "resolve staging dir",
			"Staging directory not configured; set staging_dir in your quill config.toml", nil)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribing", "ensure staging dir",
			"Failed to create staging directory", err)
	}
	transcriptPath := filepath.Join(stagingDir, transcriptFilename)
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribing", "write transcript",
			"Failed to write transcript payload", err)
	}
	if raw := probe.RawJSON(); len(raw) > 0 {
		infoPath := filepath.Join(stagingDir, mediaInfoFilename)
		if err := os.WriteFile(infoPath, raw, 0o644); err != nil {
			return "", services.Wrap(services.ErrTransient, "transcribing", "write media info",
				"Failed to write media info", err)
		}
	}
	return transcriptPath, nil
}

func (t *Transcriber) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) error {
	item.ProgressStage = progressStageTranscribing
	if strings.TrimSpace(message) != "" {
		item.ProgressMessage = message
	}
	if percent >= 0 {
		item.ProgressPercent = percent
	}
	if err := t.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "transcribing", "persist progress",
			"Failed to persist transcription progress", err)
	}
	return nil
}
