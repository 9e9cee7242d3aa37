// Package config owns every knob quill reads: the TOML file, its defaults,
// and the validation that runs before the daemon or CLI touches anything.
//
// Load expands tilde paths, fills unset fields from defaults, and falls back
// to environment variables such as GEMINI_API_KEY for credentials kept out of
// the file. Callers go through this package rather than reading files or env
// directly, so the rest of the tree sees sanitized paths, canonical caption
// formats, and a single validation error surface.
package config
