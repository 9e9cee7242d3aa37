// Package textutil provides text processing utilities for display titles and
// filename sanitization.
//
// The primary use cases are:
//   - Deriving a human-readable title from a media file path
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil
