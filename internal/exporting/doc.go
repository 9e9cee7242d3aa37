// Package exporting renders caption files from stored transcript payloads.
//
// It runs the two-phase cue extractor over the transcript, writes WebVTT and
// SRT artifacts into the output directory with collision-safe names, and
// routes transcripts that yield no cues into the review directory as plain
// text when the fallback is enabled. Progress updates and error wrapping
// follow the same conventions as other stages so the workflow manager can
// react uniformly.
package exporting
