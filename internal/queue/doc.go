// Package queue persists workflow items in SQLite and owns their lifecycle
// vocabulary.
//
// Store wraps the database handle: schema creation, busy retries, status
// transitions, heartbeat stamping, stuck-item recovery, and the stats and
// health queries the CLI renders. Item rows carry progress, probe metadata,
// transcript and caption paths, and review flags so the stages can coordinate
// through the database alone.
//
// The file is transient storage for in-flight work, not an archive. There are
// no migrations: when columns change, bump schemaVersion in store_core.go and
// update schema.sql, and existing databases are rejected until cleared.
package queue
