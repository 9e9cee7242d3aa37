package stage

import (
	"context"

	"quill/internal/queue"
)

// Handler is implemented by each pipeline stage (transcribing, exporting).
// The workflow manager calls Prepare to validate inputs and prime progress
// before claiming work, then Execute to do it.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// Health summarizes the readiness of one stage for status reporting.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a ready stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that cannot run, with the blocking condition.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
