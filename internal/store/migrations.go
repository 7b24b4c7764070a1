package store

import (
	"fmt"

	"github.com/wayfind/intent-engine/internal/intent"
)

// migrations are forward-only and applied in order. Each entry runs in
// its own transaction and is recorded in schema_migrations.
var migrations = []string{
	// v1: core relational schema.
	`
	CREATE TABLE IF NOT EXISTS tasks (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id      INTEGER REFERENCES tasks(id) ON DELETE CASCADE,
		name           TEXT NOT NULL,
		spec           TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo','doing','done')),
		priority       TEXT CHECK (priority IS NULL OR priority IN ('critical','high','medium','low')),
		first_todo_at  TEXT,
		first_doing_at TEXT,
		first_done_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS events (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id   INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		log_type  TEXT NOT NULL CHECK (log_type IN ('decision','blocker','milestone','note')),
		message   TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_task_time ON events(task_id, timestamp DESC);

	CREATE TABLE IF NOT EXISTS workspace_state (
		key   TEXT PRIMARY KEY,
		value TEXT
	);
	`,

	// v2: trigram full-text index over tasks, kept in sync by triggers,
	// rebuilt from the content table on creation.
	`
	CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
		name, spec,
		content='tasks', content_rowid='id',
		tokenize='trigram'
	);
	CREATE TRIGGER IF NOT EXISTS tasks_fts_ai AFTER INSERT ON tasks BEGIN
		INSERT INTO tasks_fts(rowid, name, spec) VALUES (new.id, new.name, new.spec);
	END;
	CREATE TRIGGER IF NOT EXISTS tasks_fts_ad AFTER DELETE ON tasks BEGIN
		INSERT INTO tasks_fts(tasks_fts, rowid, name, spec) VALUES ('delete', old.id, old.name, old.spec);
	END;
	CREATE TRIGGER IF NOT EXISTS tasks_fts_au AFTER UPDATE ON tasks BEGIN
		INSERT INTO tasks_fts(tasks_fts, rowid, name, spec) VALUES ('delete', old.id, old.name, old.spec);
		INSERT INTO tasks_fts(rowid, name, spec) VALUES (new.id, new.name, new.spec);
	END;
	INSERT INTO tasks_fts(tasks_fts) VALUES ('rebuild');
	`,

	// v3: trigram index over event messages, same trigger scheme.
	`
	CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
		message,
		content='events', content_rowid='id',
		tokenize='trigram'
	);
	CREATE TRIGGER IF NOT EXISTS events_fts_ai AFTER INSERT ON events BEGIN
		INSERT INTO events_fts(rowid, message) VALUES (new.id, new.message);
	END;
	CREATE TRIGGER IF NOT EXISTS events_fts_ad AFTER DELETE ON events BEGIN
		INSERT INTO events_fts(events_fts, rowid, message) VALUES ('delete', old.id, old.message);
	END;
	INSERT INTO events_fts(events_fts) VALUES ('rebuild');
	`,
}

// migrate applies pending migrations, recording each version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return intent.Wrap(intent.TagMigrationError, err, "create migrations table: %v", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return intent.Wrap(intent.TagMigrationError, err, "read schema version: %v", err)
	}
	if current > len(migrations) {
		return intent.E(intent.TagMigrationError,
			"database schema version %d is newer than this binary supports (%d)", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		if err := s.applyMigration(v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(version int, ddl string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return intent.Wrap(intent.TagMigrationError, err, "begin migration %d: %v", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(ddl); err != nil {
		return intent.Wrap(intent.TagMigrationError, err, "apply migration %d: %v", version, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		version, s.now().Format(timeLayout),
	); err != nil {
		return intent.Wrap(intent.TagMigrationError, err, "record migration %d: %v", version, err)
	}
	if err := tx.Commit(); err != nil {
		return intent.Wrap(intent.TagMigrationError, err, "commit migration %d: %v", version, err)
	}
	return nil
}

// Version returns the applied schema version, for diagnostics.
func (s *Store) Version() (int, error) {
	var v int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
