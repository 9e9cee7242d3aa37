// Package ipc carries daemon control traffic over a Unix domain socket using
// net/rpc with the JSON codec, and ships the client the CLI dials.
//
// The server registers a single "Quill" service whose methods map onto daemon
// operations: lifecycle, queue manipulation, health probes, and log tailing.
// Requests and responses are flat DTO structs so the wire shape stays stable
// while internal types evolve. The client applies a short dial timeout so CLI
// commands can fall back to direct database access when the daemon is down.
//
// New endpoints should follow the same DTO conventions.
package ipc
