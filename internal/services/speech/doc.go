// Package speech provides the client for the hosted transcription model.
//
// This package is used by:
//   - Transcribing stage: turn queued media audio into a timestamped transcript
//   - Preflight: verify the API key and model before the daemon starts
//
// # Request Shape
//
// The client posts to a Gemini-style models/<model>:generateContent endpoint
// with two parts: the audio inlined as base64 and an instruction built from
// the configured granularity, punctuation, and language settings. The model
// is asked for a JSON array of {start, end, text} entries; downstream cue
// extraction also tolerates timestamped plain-text responses.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, language, granularity,
// punctuation, timeout. See the [speech] section of the config file.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Transcribe: send audio, receive the raw transcript payload.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// Each call makes up to three attempts. Overload and quota failures (HTTP
// 429/503 or messages mentioning overload, unavailability, quota, or rate
// limits) back off 2s then 4s before the next attempt; a "retry in Ns" hint
// in the failure message overrides the backoff with N rounded up plus one
// second. Every other failure returns immediately unchanged. Context
// cancellation aborts the wait.
package speech
