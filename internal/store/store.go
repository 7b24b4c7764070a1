// Package store owns the embedded SQLite database under
// <project_root>/.intent-engine/project.db: connection setup, migrations,
// and the transactional repositories used by the engine.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/wayfind/intent-engine/internal/intent"
)

const (
	// busyMaxElapsed bounds the busy-wait before giving up with DatabaseBusy.
	busyMaxElapsed = 3 * time.Second

	// busyTimeoutMs is the driver-level lock wait, in milliseconds.
	busyTimeoutMs = 5000
)

// Store wraps the database handle. One Store per CLI invocation.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database file, applies pragmas and runs
// pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, intent.Wrap(intent.TagDatabaseUnavailable, err, "create database directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, intent.Wrap(intent.TagDatabaseUnavailable, err, "open database: %v", err)
	}

	// The CLI is a short-lived single process; one connection keeps
	// transaction semantics simple and avoids writer contention with itself.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMs),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, intent.Wrap(intent.TagDatabaseUnavailable, err, "apply pragma: %v", err)
		}
	}

	s := &Store{db: db, path: dbPath, now: func() time.Time { return time.Now().UTC() }}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Tx is a transactional view over the store. All repository methods
// hang off Tx so that every top-level command runs in one transaction.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// WithTx runs fn inside a single transaction. On error the transaction
// is rolled back and nothing is visible. Transient lock errors retry
// with exponential backoff before surfacing DatabaseBusy.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = busyMaxElapsed

	op := func() error {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if isBusy(err) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if err != nil && isBusy(err) {
		return intent.Wrap(intent.TagDatabaseBusy, err, "database is busy")
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Tx{tx: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// isBusy classifies driver errors that indicate lock contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}

// IntegrityCheck runs PRAGMA integrity_check and reports Corruption on
// any failure.
func (s *Store) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check(1)").Scan(&result); err != nil {
		return intent.Wrap(intent.TagDatabaseUnavailable, err, "integrity check: %v", err)
	}
	if result != "ok" {
		return intent.E(intent.TagCorruption, "database integrity check failed: %s", result)
	}
	return nil
}
