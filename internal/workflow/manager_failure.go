package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/services"
)

// handleStageFailure records a stage error on the item, routing it to either
// the failed or review status based on the error classification.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	if item == nil || stageErr == nil {
		return
	}

	message := classifyStageFailure(stageName, stageErr)
	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.SetReview(message)
	} else {
		item.SetFailed(message)
	}

	logger := logging.WithContext(ctx, m.logger)
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("stage", stageName),
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, "inspect the item with 'quill status' and retry once resolved"),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}
	m.setLastItem(item)
	m.notifyStageError(ctx, stageName, item, stageErr)
	m.checkQueueCompletion(ctx)
}

// classifyStageFailure derives the message stored on the queue item for a
// stage error.
func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return ""
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed without error detail", stageName)
	}
	return message
}
