// Package captions normalizes raw speech-to-text output into timed caption
// cues and renders them to subtitle documents.
//
// The package has three layers:
//   - Timestamp parsing: CoerceMillis and ParseClock convert the timestamp
//     encodings upstream models emit (numeric seconds, "mm:ss.fff" clocks,
//     bare millisecond counts) into absolute milliseconds.
//   - Extraction: Extract turns a full payload into ordered cues, trying a
//     structured JSON cue array first and falling back to an arrow-line scan.
//   - Rendering: FormatVTT and FormatSRT serialize cues for export.
//
// Extraction is lossy: individually corrupt entries are dropped rather than
// failing the batch, and an empty cue list is a valid result that tells the
// caller to keep the payload as plain text.
package captions
