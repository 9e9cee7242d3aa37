// Package transcribing runs the speech-to-text stage for queue items.
//
// It validates the source media, probes stream layout and duration with
// ffprobe when available, uploads the audio to the hosted speech service, and
// stores the raw transcript payload in the item's staging directory for the
// exporting stage to parse. Progress updates and error wrapping follow the
// same conventions as other stages so the workflow manager can react
// uniformly.
//
// Keep transcription behaviour here so the exporter can assume a single
// source of truth for transcript artifacts.
package transcribing
