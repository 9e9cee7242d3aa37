// Package main hosts the Quill CLI entrypoint and command graph.
//
// Each cobra command maps a terminal invocation onto an IPC call against the
// daemon, a queue maintenance operation, a log tail, a one-shot transcription
// run, or configuration scaffolding. Configuration resolution, socket
// discovery, and output rendering all happen once at the root so individual
// subcommands stay small.
//
// New behavior belongs in the internal packages; this package should only
// grow new commands or flags that surface it.
package main
