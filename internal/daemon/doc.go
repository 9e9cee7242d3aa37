// Package daemon coordinates the long-running Quill process.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes queue maintenance helpers, manual file ingestion, and
// dependency health summaries for the IPC layer and the CLI.
//
// Keep orchestration logic here: individual workflow stages live in their
// own packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
