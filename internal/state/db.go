// Package state provides the SQLite-backed audit log for Loom.
// Every accepted requirement, task status transition, and resolved decision
// is recorded so a run can be reconstructed after the process exits.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with Loom-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// ProjectDBPath returns the path to the project-local audit database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".loom", "audit.db")
}

// Open opens the SQLite database at path in WAL mode, creating parent
// directories as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// migration is one versioned schema step. Steps run in order inside their
// own transaction and are recorded in schema_version.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, `
CREATE TABLE IF NOT EXISTS requirements (
	group_id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	submitted_at DATETIME NOT NULL
);
`},
	{2, `
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	group_id TEXT NOT NULL,
	capability TEXT NOT NULL,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	detail TEXT,
	at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_group_id ON transitions(group_id);
CREATE INDEX IF NOT EXISTS idx_transitions_task_id ON transitions(task_id);
`},
	{3, `
CREATE TABLE IF NOT EXISTS decisions (
	signal_id TEXT PRIMARY KEY,
	chosen_option TEXT NOT NULL,
	decided_at DATETIME NOT NULL
);
`},
}

// Migrate applies any schema migrations newer than the stored version.
// Safe to call on every startup.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := db.applyLocked(m); err != nil {
			return err
		}
	}
	return nil
}

// applyLocked runs one migration in its own transaction. Caller holds the
// lock.
func (db *DB) applyLocked(m migration) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("migration v%d: %w", m.version, err)
	}

	if _, err := tx.Exec(m.sql); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration v%d: %w", m.version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		tx.Rollback()
		return fmt.Errorf("recording migration v%d: %w", m.version, err)
	}
	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
