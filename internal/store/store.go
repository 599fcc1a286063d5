// Package store persists a finalized generation run to SQLite: the merged
// peripheral catalog flattened to relational rows, the guard table, and the
// run's diagnostics. The CLI inspection commands read it back.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the generation catalog.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the catalog tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS chips (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS peripherals (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  group_name      TEXT NOT NULL,
  brief           TEXT,
  chips           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registers (
  id              INTEGER PRIMARY KEY,
  peripheral_id   INTEGER NOT NULL REFERENCES peripherals(id),
  name            TEXT NOT NULL,
  size            INTEGER NOT NULL,
  access          TEXT,
  variant_count   INTEGER NOT NULL,
  field_count     INTEGER NOT NULL,
  chips           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS instances (
  id              INTEGER PRIMARY KEY,
  peripheral_id   INTEGER NOT NULL REFERENCES peripherals(id),
  name            TEXT NOT NULL,
  address         INTEGER NOT NULL,
  chips           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS guards (
  id              INTEGER PRIMARY KEY,
  scope           TEXT NOT NULL,
  alias           TEXT NOT NULL,
  value           TEXT,
  undefine        BOOLEAN NOT NULL DEFAULT FALSE,
  define_not      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  level           TEXT NOT NULL,
  kind            TEXT NOT NULL,
  chip            TEXT,
  peripheral      TEXT,
  message         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_peripherals_name ON peripherals(name);
CREATE INDEX IF NOT EXISTS idx_peripherals_group ON peripherals(group_name);
CREATE INDEX IF NOT EXISTS idx_registers_peripheral ON registers(peripheral_id);
CREATE INDEX IF NOT EXISTS idx_instances_peripheral ON instances(peripheral_id);
CREATE INDEX IF NOT EXISTS idx_guards_scope ON guards(scope);
CREATE INDEX IF NOT EXISTS idx_diagnostics_level ON diagnostics(level);
`
