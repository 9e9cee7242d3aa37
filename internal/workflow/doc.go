// Package workflow advances queue items through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (transcriber, exporter) while capturing
// progress and failure metadata. It also aggregates queue stats, calls stage
// health checks, and emits queue-level notifications when processing starts or
// completes.
//
// The workflow runs two independent lanes: transcribe (speech service bound)
// and export (local rendering). Each lane claims items sitting at its start
// status and processes them independently, so file B can upload for
// transcription while file A renders captions.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
