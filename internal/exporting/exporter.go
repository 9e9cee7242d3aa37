package exporting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"quill/internal/captions"
	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/notifications"
	"quill/internal/queue"
	"quill/internal/services"
	"quill/internal/stage"
	"quill/internal/textutil"
)

const (
	progressStageExporting = "Exporting"
	progressPercentExtract = 10.0
	progressPercentRender  = 60.0
)

// Exporter parses stored transcript payloads into cues and renders caption
// files into the output directory.
type Exporter struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewExporter constructs the export stage handler using default dependencies.
func NewExporter(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Exporter {
	return NewExporterWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewExporterWithDependencies allows injecting collaborators (used in tests).
func NewExporterWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Exporter {
	return &Exporter{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "exporter"),
		notifier: notifier,
	}
}

// SetLogger allows the workflow manager to route stage logs through the
// item-scoped logger.
func (e *Exporter) SetLogger(logger *slog.Logger) {
	if e == nil {
		return
	}
	e.logger = logging.NewComponentLogger(logger, "exporter")
}

// Prepare validates that a transcript exists and primes progress fields.
func (e *Exporter) Prepare(ctx context.Context, item *queue.Item) error {
	if e == nil || e.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "exporting", "prepare", "Export stage is not configured", nil)
	}
	if e.store == nil {
		return services.Wrap(services.ErrConfiguration, "exporting", "prepare", "Queue store unavailable", nil)
	}
	transcriptPath := strings.TrimSpace(item.TranscriptPath)
	if transcriptPath == "" {
		return services.Wrap(services.ErrValidation, "exporting", "prepare",
			"No transcript recorded for export; run transcription first", nil)
	}
	if _, err := os.Stat(transcriptPath); err != nil {
		return services.Wrap(services.ErrNotFound, "exporting", "prepare",
			fmt.Sprintf("Transcript file missing: %s", transcriptPath), err)
	}
	item.InitProgress(progressStageExporting, "Preparing caption export")
	return e.store.UpdateProgress(ctx, item)
}

// Execute extracts cues from the transcript payload and renders caption files.
func (e *Exporter) Execute(ctx context.Context, item *queue.Item) error {
	stageStart := time.Now()

	if e == nil || e.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "exporting", "execute", "Export stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "exporting", "execute", "Queue item is nil", nil)
	}
	if e.store == nil {
		return services.Wrap(services.ErrConfiguration, "exporting", "execute", "Queue store unavailable", nil)
	}

	logger := logging.WithContext(ctx, e.logger)

	payload, err := os.ReadFile(strings.TrimSpace(item.TranscriptPath))
	if err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "read transcript", "Failed to read transcript payload", err)
	}

	if err := e.updateProgress(ctx, item, "Extracting cues from transcript", progressPercentExtract); err != nil {
		return err
	}
	cues := captions.Extract(string(payload))
	if len(cues) == 0 {
		return e.handleEmptyExtraction(ctx, logger, item, payload)
	}

	if err := e.updateProgress(ctx, item, fmt.Sprintf("Rendering %d cues", len(cues)), progressPercentRender); err != nil {
		return err
	}
	primary, rendered, err := e.renderCaptions(item, cues)
	if err != nil {
		return err
	}

	item.CaptionPath = primary
	item.CueCount = int64(len(cues))
	item.ProgressPercent = 100
	item.ProgressMessage = fmt.Sprintf("Captions ready: %s", filepath.Base(primary))
	if err := e.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "persist progress",
			"Failed to persist export progress", err)
	}

	title := stage.DisplayTitle(item)
	if e.notifier != nil {
		if err := e.notifier.NotifyExportCompleted(ctx, title, filepath.Base(primary)); err != nil {
			logger.Warn("export notification failed", logging.Error(err))
		}
		if err := e.notifier.NotifyProcessingCompleted(ctx, title); err != nil {
			logger.Warn("processing completion notification failed", logging.Error(err))
		}
	}

	logger.Info("export stage summary",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.Int("cue_count", len(cues)),
		logging.Int("files_rendered", rendered),
		logging.String("caption_file", filepath.Base(primary)),
	)
	return nil
}

// HealthCheck reports readiness for the export stage.
func (e *Exporter) HealthCheck(ctx context.Context) stage.Health {
	const name = "exporter"
	if e == nil || e.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if e.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	if strings.TrimSpace(e.cfg.Paths.OutputDir) == "" {
		return stage.Unhealthy(name, "output directory not configured")
	}
	if len(e.cfg.Captions.Formats) == 0 {
		return stage.Unhealthy(name, "no caption formats configured")
	}
	return stage.Healthy(name)
}

// handleEmptyExtraction routes items whose transcript produced no cues. When
// the plain-text fallback is enabled the raw payload is preserved in the
// review directory so the transcript is not lost.
func (e *Exporter) handleEmptyExtraction(ctx context.Context, logger *slog.Logger, item *queue.Item, payload []byte) error {
	reason := "No caption cues could be extracted from the transcript"
	if !e.cfg.Captions.FallbackPlainText {
		return services.Wrap(services.ErrValidation, "exporting", "extract cues", reason, nil)
	}

	reviewDir := strings.TrimSpace(e.cfg.Paths.ReviewDir)
	if reviewDir == "" {
		return services.Wrap(services.ErrConfiguration, "exporting", "resolve review dir",
			"Review directory not configured; set review_dir in your quill config.toml", nil)
	}
	if err := os.MkdirAll(reviewDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "exporting", "ensure review dir",
			"Failed to create review directory", err)
	}
	base, err := allocateBaseName(reviewDir, exportSlug(item), []string{".txt"})
	if err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "allocate review filename",
			"Unable to allocate review filename", err)
	}
	target := filepath.Join(reviewDir, base+".txt")
	text := strings.TrimSpace(string(payload)) + "\n"
	if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "write plain text",
			"Failed to write plain-text fallback", err)
	}

	item.CaptionPath = target
	item.CueCount = 0
	item.SetReview(reason)
	logger.Warn("no cues extracted; preserved transcript as plain text",
		logging.String("review_file", filepath.Base(target)),
		logging.String(logging.FieldEventType, "export_fallback"),
		logging.String(logging.FieldImpact, "captions unavailable until transcript is reviewed"),
	)
	if e.notifier != nil {
		if err := e.notifier.NotifyReviewRequired(ctx, stage.DisplayTitle(item), reason); err != nil {
			logger.Warn("review notification failed", logging.Error(err))
		}
	}
	return nil
}

// renderCaptions writes one caption file per configured format and returns
// the primary artifact path.
func (e *Exporter) renderCaptions(item *queue.Item, cues []captions.Cue) (string, int, error) {
	outputDir := strings.TrimSpace(e.cfg.Paths.OutputDir)
	if outputDir == "" {
		return "", 0, services.Wrap(services.ErrConfiguration, "exporting", "resolve output dir",
			"Output directory not configured; set output_dir in your quill config.toml", nil)
	}
	primary, rendered, err := WriteCaptionFiles(outputDir, exportSlug(item), e.cfg.Captions.Formats, cues)
	if err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "exporting", "render captions",
			"Failed to render caption files", err)
	}
	return primary, rendered, nil
}

// WriteCaptionFiles renders one caption file per format into dir, allocating
// a collision-free base name from slug. The first format becomes the primary
// artifact; its path is returned along with the number of files written.
func WriteCaptionFiles(dir, slug string, formats []string, cues []captions.Cue) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("ensure caption dir: %w", err)
	}

	extensions := make([]string, 0, len(formats))
	for _, format := range formats {
		extensions = append(extensions, "."+format)
	}
	base, err := allocateBaseName(dir, slug, extensions)
	if err != nil {
		return "", 0, fmt.Errorf("allocate caption base name: %w", err)
	}

	primary := ""
	rendered := 0
	for _, format := range formats {
		var content string
		switch format {
		case "srt":
			content = captions.FormatSRT(cues)
		default:
			content = captions.FormatVTT(cues)
		}
		target := filepath.Join(dir, base+"."+format)
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return "", 0, fmt.Errorf("write %s captions: %w", format, err)
		}
		if primary == "" {
			primary = target
		}
		rendered++
	}
	return primary, rendered, nil
}

// allocateBaseName finds a basename whose candidate paths are all free for
// every requested extension, suffixing -2, -3, ... on collision.
func allocateBaseName(dir, slug string, extensions []string) (string, error) {
	const maxAttempts = 10000
	if slug == "" {
		slug = "captions"
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		base := slug
		if attempt > 1 {
			base = fmt.Sprintf("%s-%d", slug, attempt)
		}
		free := true
		for _, ext := range extensions {
			if _, err := os.Stat(filepath.Join(dir, base+ext)); err == nil {
				free = false
				break
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", err
			}
		}
		if free {
			return base, nil
		}
	}
	return "", fmt.Errorf("exhausted caption filename slots in %s", dir)
}

func exportSlug(item *queue.Item) string {
	return SlugForTitle(item.Title, fmt.Sprintf("queue-%d", item.ID))
}

// SlugForTitle converts a display title into a lowercase filesystem-safe
// slug, returning fallback when nothing survives sanitization.
func SlugForTitle(title, fallback string) string {
	slug := textutil.SanitizeFileName(strings.TrimSpace(title))
	slug = strings.Trim(strings.ReplaceAll(slug, " ", "-"), "-_")
	if slug == "" {
		return fallback
	}
	return strings.ToLower(slug)
}

func (e *Exporter) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) error {
	item.ProgressStage = progressStageExporting
	if strings.TrimSpace(message) != "" {
		item.ProgressMessage = message
	}
	if percent >= 0 {
		item.ProgressPercent = percent
	}
	if err := e.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "persist progress",
			"Failed to persist export progress", err)
	}
	return nil
}
