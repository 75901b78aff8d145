// ABOUTME: SQLite persistence for queues, memberships and the audit log using modernc.org/sqlite
// ABOUTME: Implements queue.Store with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

// SQLiteStore implements queue.Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		// Ensure parent directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys so member rows cascade with their queue
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queues (
		name TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		ring_timeout_seconds INTEGER NOT NULL DEFAULT 0,
		wrap_up_seconds INTEGER NOT NULL DEFAULT 0,
		max_waiting INTEGER NOT NULL DEFAULT 0,
		service_level_seconds INTEGER NOT NULL DEFAULT 0,
		music_on_hold_class TEXT NOT NULL DEFAULT '',
		announce_frequency_seconds INTEGER NOT NULL DEFAULT 0,
		announce_position TEXT NOT NULL DEFAULT 'no',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS queue_members (
		queue_name TEXT NOT NULL REFERENCES queues(name) ON DELETE CASCADE,
		interface_ref TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		penalty INTEGER NOT NULL DEFAULT 0,
		paused INTEGER NOT NULL DEFAULT 0,
		state_interface_ref TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (queue_name, interface_ref)
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		audit_id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		source_addr TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		old_json TEXT,
		new_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_members_queue ON queue_members(queue_name);
	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a primary-key/unique
// constraint failure from the driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a foreign-key failure.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

var _ queue.Store = (*SQLiteStore)(nil)
