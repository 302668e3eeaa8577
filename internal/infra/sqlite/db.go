// Package sqlite is the durable backend for accounts and the audit log.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle and owns schema migration.
type DB struct {
	db *sql.DB
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Account rows. Balance is stored as decimal text and parsed on
		// read, matching the row-oriented backend's string cells.
		`CREATE TABLE IF NOT EXISTS accounts (
			id               INTEGER PRIMARY KEY,
			name             TEXT NOT NULL,
			handle           TEXT NOT NULL DEFAULT '',
			display_link     TEXT NOT NULL DEFAULT '',
			balance          TEXT NOT NULL DEFAULT '0',
			created_at       TEXT NOT NULL,
			last_transaction TEXT NOT NULL DEFAULT ''
		)`,

		// Audit trail of applied mutations
		`CREATE TABLE IF NOT EXISTS audit_log (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			text       TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_log(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// Single writer; serialize access at the pool level.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}

	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error {
	return db.db.Close()
}
