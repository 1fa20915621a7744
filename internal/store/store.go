// Package store provides durable storage for couplet deployments.
//
// One SQLite database holds one deployment: the append-only event log and
// the snapshot tables (pair liveness, balances, collectibles, scalar meta).
// The engine commits each operation's events and state changes in a single
// transaction, so a crash never leaves the log and the snapshot disagreeing.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions, recorded in PRAGMA user_version:
// 0 - initial schema
// 1 - index on events.op_token
const currentSchemaVersion = 1

// openPragmas configure every new database handle: WAL so readers are not
// blocked mid-commit, NORMAL sync, a 5s busy wait, and foreign key checks.
var openPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store wraps the SQLite database for one deployment.
type Store struct {
	db *sql.DB
}

// Open creates or opens the deployment database at path, applying pragmas,
// the embedded schema, and any pending migrations. Reopening an existing
// database never alters committed state.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite admits one writer at a time; a second connection would only
	// surface SQLITE_BUSY, so the pool is pinned to a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	for _, pragma := range openPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for direct queries in tests.
// Production callers go through the Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate brings an older database up to currentSchemaVersion. Every step
// is written to be rerunnable; a fresh database falls through each step and
// just records the version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_events_op_token
			ON events(op_token)
		`); err != nil {
			return fmt.Errorf("v1 op_token index: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
