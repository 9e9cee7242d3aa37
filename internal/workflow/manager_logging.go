package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	name := "workflow"
	if lane != nil && lane.name != "" {
		name = lane.name
	}
	logger := logging.NewComponentLogger(base, fmt.Sprintf("workflow-%s-runner", name))
	if lane != nil {
		logger = logger.With(logging.String(logging.FieldLane, string(lane.kind)))
	}
	return logger
}

func (m *Manager) stageLoggerForLane(ctx context.Context, lane *laneState, laneLogger *slog.Logger, item *queue.Item) *slog.Logger {
	base := laneLogger
	if base == nil && lane != nil {
		base = lane.logger
	}
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base)
	if level, ok := m.stageOverrideLevel(ctx); ok {
		logger = logging.WithLevelOverride(logger, level)
	}
	return logger
}

// stageOverrideLevel resolves a configured per-stage log level for the stage
// recorded on the context.
func (m *Manager) stageOverrideLevel(ctx context.Context) (slog.Level, bool) {
	if m.cfg == nil || len(m.cfg.Logging.StageOverrides) == 0 {
		return 0, false
	}
	stageName, ok := services.StageFromContext(ctx)
	if !ok {
		return 0, false
	}
	raw, ok := m.cfg.Logging.StageOverrides[stageName]
	if !ok {
		return 0, false
	}
	return parseStageLevel(raw)
}

func parseStageLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func withStageContext(ctx context.Context, lane *laneState, stageName string, item *queue.Item, requestID string) context.Context {
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil {
		ctx = services.WithLane(ctx, string(lane.kind))
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

// deriveStageLabel turns a queue status into a short human-readable label for
// progress displays.
func deriveStageLabel(status queue.Status) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	words := strings.Fields(label)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
