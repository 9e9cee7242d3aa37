package services

import (
	"errors"
	"fmt"
	"strings"

	"quill/internal/queue"
)

// Classification sentinels for stage failures. Stages wrap errors with one of
// these so the workflow manager can pick between retry and review without
// matching on message text.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with marker and a "stage: operation: message" detail prefix.
// A nil marker classifies the failure as transient.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonEmpty(stage, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

func joinNonEmpty(values ...string) string {
	kept := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ": ")
}

// FailureStatus maps a stage error to the queue status persisted after the
// stage fails. Validation, configuration, and not-found failures need an
// operator rather than a blind retry, so they park the item in review.
func FailureStatus(err error) queue.Status {
	for _, marker := range []error{ErrValidation, ErrConfiguration, ErrNotFound} {
		if errors.Is(err, marker) {
			return queue.StatusReview
		}
	}
	return queue.StatusFailed
}
