// Package db is the local persistence store: accounts, calendars and events
// in a single sqlite database.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the database connection.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout covers concurrent job writes hitting the same file
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB for callers that need transactions.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			username       TEXT NOT NULL UNIQUE,
			credential_key TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS calendars (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			remote_id  TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			enabled    INTEGER NOT NULL DEFAULT 1,
			can_modify INTEGER NOT NULL DEFAULT 1,
			color      TEXT NOT NULL DEFAULT '',
			feed_url   TEXT NOT NULL DEFAULT '',
			time_zone  TEXT NOT NULL DEFAULT '',
			sync_time  INTEGER NOT NULL DEFAULT 0,
			UNIQUE(account_id, remote_id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			calendar_id        INTEGER NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			remote_id          TEXT NOT NULL DEFAULT '',
			start_time         INTEGER NOT NULL DEFAULT 0,
			end_time           INTEGER NOT NULL DEFAULT 0,
			all_day            INTEGER NOT NULL DEFAULT 0,
			sync_time          INTEGER NOT NULL DEFAULT 0,
			local_update_time  INTEGER NOT NULL DEFAULT 0,
			remote_update_time INTEGER NOT NULL DEFAULT 0,
			sync_status        INTEGER NOT NULL DEFAULT 0,
			feed_url           TEXT NOT NULL DEFAULT '',
			original_feed_url  TEXT NOT NULL DEFAULT '',
			title              TEXT NOT NULL DEFAULT '',
			description        TEXT NOT NULL DEFAULT '',
			location           TEXT NOT NULL DEFAULT '',
			color              TEXT NOT NULL DEFAULT '',
			recurrence         TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_remote ON events(calendar_id, remote_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status ON events(sync_status)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// unixOrZero converts a time to unix seconds, keeping the zero value as 0.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// timeFromUnix converts stored unix seconds back, keeping 0 as the zero value.
func timeFromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
