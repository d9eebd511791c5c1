package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// SQLite wraps a database/sql handle on a single-file statement store.
type SQLite struct {
	*sql.DB
	path string
}

// NewSQLite opens (creating if needed) the database at path and applies
// the schema.
func NewSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &SQLite{DB: sqlDB, path: path}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *SQLite) Path() string {
	return db.path
}

func (db *SQLite) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Identity columns hold '' when the actor does not carry that identifier.
const schema = `
CREATE TABLE IF NOT EXISTS statements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lrs_id TEXT NOT NULL DEFAULT '',
	ts_ms INTEGER NOT NULL,
	actor_mbox TEXT NOT NULL DEFAULT '',
	actor_openid TEXT NOT NULL DEFAULT '',
	actor_mbox_sha1sum TEXT NOT NULL DEFAULT '',
	actor_account_name TEXT NOT NULL DEFAULT '',
	actor_account_homepage TEXT NOT NULL DEFAULT '',
	statement TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_statements_ts ON statements(ts_ms);
CREATE INDEX IF NOT EXISTS idx_statements_lrs_ts ON statements(lrs_id, ts_ms);

CREATE TABLE IF NOT EXISTS lrs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
	client_id TEXT PRIMARY KEY,
	secret_hash TEXT NOT NULL,
	lrs_id TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

func (db *SQLite) createSchema() error {
	_, err := db.ExecContext(context.Background(), schema)
	return err
}
