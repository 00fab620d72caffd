// Package sqlite implements the board's persistence ports on a sqlite
// database using the pure-Go modernc driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kanban/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	workspace_path TEXT NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	result      TEXT NOT NULL DEFAULT '',
	steps       TEXT,
	status      TEXT NOT NULL DEFAULT 'todo',
	type        TEXT NOT NULL DEFAULT 'neutral',
	source      TEXT NOT NULL DEFAULT 'ui',
	project_id  TEXT REFERENCES projects(id) ON DELETE SET NULL,
	parent_id   TEXT REFERENCES tasks(id) ON DELETE CASCADE,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_runs (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	status        TEXT NOT NULL DEFAULT 'pending',
	logs          TEXT,
	error_message TEXT,
	started_at    TEXT,
	completed_at  TEXT,
	created_at    TEXT NOT NULL
);

-- Enforces the one-active-run-per-task invariant at the storage layer so
-- the check-then-create window cannot admit a second active run.
CREATE UNIQUE INDEX IF NOT EXISTS idx_agent_runs_active
	ON agent_runs(task_id) WHERE status IN ('pending', 'running');

CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_agent_runs_task ON agent_runs(task_id);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps the sqlite connection shared by the store implementations.
type DB struct {
	sql    *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path and bootstraps the
// schema. Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &DB{sql: db, logger: logging.NewComponentLogger("SQLite")}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Tasks returns the task store backed by this database.
func (d *DB) Tasks() *TaskStore { return &TaskStore{db: d} }

// Projects returns the project store backed by this database.
func (d *DB) Projects() *ProjectStore { return &ProjectStore{db: d} }

// Runs returns the run store backed by this database.
func (d *DB) Runs() *RunStore { return &RunStore{db: d} }

// Settings returns the settings store backed by this database.
func (d *DB) Settings() *SettingsStore { return &SettingsStore{db: d} }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t := parseTime(raw.String)
	return &t
}

// isUniqueViolation matches sqlite unique-constraint errors. Partial
// unique indexes report the index name rather than the column list.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: index")
}
