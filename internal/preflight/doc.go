// Package preflight answers "can quill actually run right now": speech
// service credentials, required binaries, and write access to the configured
// directories.
//
// The daemon runs RunAll once at startup and logs failures before the
// workflow starts claiming items; "quill status" calls the individual checks
// (CheckSpeech, CheckSystemDeps, CheckDirectoryAccess) to render per-service
// health. Directory checks only cover paths the active config points at.
package preflight
