package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the primary session database. It stands in for the hosted
// backend: sessions, overtime periods, rate settings and saved locations
// all live here, and callers are expected to survive it being unavailable.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS locations (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		name          TEXT NOT NULL,
		address       TEXT NOT NULL DEFAULT '',
		latitude      REAL,
		longitude     REAL,
		radius_meters REAL NOT NULL DEFAULT 100,
		hourly_rate   REAL,
		overtime_rate REAL,
		created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		UNIQUE(user_id, name)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id                       TEXT PRIMARY KEY,
		user_id                  TEXT NOT NULL,
		location_id              TEXT REFERENCES locations(id) ON DELETE SET NULL,
		address                  TEXT NOT NULL DEFAULT '',
		manual_entry             INTEGER NOT NULL DEFAULT 0,
		start_time               TEXT NOT NULL,
		end_time                 TEXT,
		hourly_rate              REAL NOT NULL,
		overtime_rate            REAL NOT NULL,
		overtime_threshold_hours REAL NOT NULL,
		break_minutes            INTEGER NOT NULL DEFAULT 0,
		regular_earnings         TEXT,
		overtime_earnings        TEXT,
		total_earnings           TEXT,
		created_at               TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user  ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);

	CREATE TABLE IF NOT EXISTS overtime_periods (
		id               TEXT PRIMARY KEY,
		session_id       TEXT NOT NULL REFERENCES sessions(id),
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		rate             REAL NOT NULL,
		duration_minutes INTEGER NOT NULL,
		earnings         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overtime_session ON overtime_periods(session_id);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id                  TEXT PRIMARY KEY,
		hourly_rate              REAL NOT NULL DEFAULT 25.0,
		overtime_rate            REAL NOT NULL DEFAULT 37.5,
		overtime_threshold_hours REAL NOT NULL DEFAULT 8,
		updated_at               TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/timeclock/timeclock.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timeclock", "timeclock.db"), nil
}

// DefaultLogPath returns ~/.config/timeclock/timeclock.log
func DefaultLogPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timeclock", "timeclock.log"), nil
}
