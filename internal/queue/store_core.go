package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"quill/internal/config"
)

// Store persists queue items in a SQLite database under the log directory.
// Mutating statements funnel through execBusyRetry so writers back off
// briefly instead of surfacing SQLITE_BUSY to callers.
type Store struct {
	db   *sql.DB
	path string
}

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into the database at creation time. Databases
// written at a different version are rejected rather than migrated; clearing
// the queue recreates the file.
const schemaVersion = 1

// ErrSchemaMismatch reports a queue database created by an incompatible
// version of quill.
var ErrSchemaMismatch = errors.New("queue database schema version mismatch")

// Open connects to the queue database beneath cfg's log directory, creating
// the file and schema on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}

	st := &Store{db: db, path: dbPath}
	ctx := context.Background()
	if err := st.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := st.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) applyPragmas(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	version, initialized, err := s.storedSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if !initialized {
		return s.installSchema(ctx)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'quill queue clear' or delete the database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// storedSchemaVersion reports the version recorded in the database and
// whether the database has been initialized at all.
func (s *Store) storedSchemaVersion(ctx context.Context) (int, bool, error) {
	var tables int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return 0, false, fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, false, nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, true, nil
}

func (s *Store) installSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}

// Writes retry a handful of times with doubling backoff before giving up,
// since WAL checkpoints and concurrent CLI invocations can briefly hold the
// write lock.
const (
	sqliteBusyCode   = 5
	busyMaxAttempts  = 5
	busyFirstBackoff = 10 * time.Millisecond
	busyMaxBackoff   = 200 * time.Millisecond
)

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execBusyRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backoff := busyFirstBackoff
	for attempt := 1; ; attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !isBusyError(err) || attempt == busyMaxAttempts {
			return nil, err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if doubled := backoff * 2; doubled <= busyMaxBackoff {
			backoff = doubled
		}
	}
}

func (s *Store) execDiscardingResult(ctx context.Context, query string, args ...any) error {
	_, err := s.execBusyRetry(ctx, query, args...)
	return err
}
