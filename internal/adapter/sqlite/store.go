// Package sqlite persists the latest container observations so they can be
// read by another process.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS container_stats (
	container_id TEXT PRIMARY KEY,
	cpu_usage_total INTEGER NOT NULL,
	memory_usage INTEGER NOT NULL,
	memory_limit INTEGER NOT NULL,
	network_rx_bytes INTEGER NOT NULL,
	network_tx_bytes INTEGER NOT NULL,
	collected_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS container_logs (
	container_id TEXT PRIMARY KEY,
	lines_json TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS container_failures (
	container_id TEXT PRIMARY KEY,
	lines_json TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store is a monitor.Sink backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize observation schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
