// Package media inspects queued audio and video files via ffprobe.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//
// Primary entry points:
//   - Probe: executes ffprobe and returns parsed Result
//   - MIMETypeForPath: container MIME type for the transcription request
//   - IsSupportedPath: extension whitelist shared by the daemon and CLI
//
// Probing is advisory: when ffprobe is not installed the transcribing stage
// proceeds with a zero duration hint instead of failing the item. Use
// IsNotInstalled to recognize that condition.
package media
