package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for an indexed Spiral project.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
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

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  module          TEXT NOT NULL,
  hash            TEXT,
  line_count      INTEGER,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  type_text       TEXT,
  signature_hash  TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  start_offset    INTEGER,
  end_offset      INTEGER,
  parent_symbol_id INTEGER REFERENCES symbols(id)
);

CREATE TABLE IF NOT EXISTS function_parameters (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  type_text       TEXT
);

CREATE TABLE IF NOT EXISTS type_bases (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  base_symbol_id  INTEGER REFERENCES symbols(id),
  base_name       TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scopes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  symbol_id       INTEGER REFERENCES symbols(id),
  kind            TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  parent_scope_id INTEGER REFERENCES scopes(id)
);

CREATE TABLE IF NOT EXISTS references_ (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  scope_id        INTEGER REFERENCES scopes(id),
  target_symbol_id INTEGER REFERENCES symbols(id),
  name            TEXT NOT NULL,
  resolved        BOOLEAN DEFAULT FALSE,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  start_offset    INTEGER,
  end_offset      INTEGER,
  context         TEXT
);

CREATE TABLE IF NOT EXISTS call_graph (
  id              INTEGER PRIMARY KEY,
  caller_symbol_id INTEGER NOT NULL REFERENCES symbols(id),
  callee_symbol_id INTEGER REFERENCES symbols(id),
  callee_name     TEXT NOT NULL,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  line            INTEGER,
  col             INTEGER
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  message         TEXT NOT NULL,
  source          TEXT NOT NULL,
  has_span        BOOLEAN DEFAULT FALSE,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  start_offset    INTEGER,
  end_offset      INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_symbol_id);
CREATE INDEX IF NOT EXISTS idx_function_params_symbol ON function_parameters(symbol_id);
CREATE INDEX IF NOT EXISTS idx_type_bases_symbol ON type_bases(symbol_id);
CREATE INDEX IF NOT EXISTS idx_type_bases_base ON type_bases(base_symbol_id);
CREATE INDEX IF NOT EXISTS idx_scopes_file ON scopes(file_id);
CREATE INDEX IF NOT EXISTS idx_scopes_parent ON scopes(parent_scope_id);
CREATE INDEX IF NOT EXISTS idx_references_file ON references_(file_id);
CREATE INDEX IF NOT EXISTS idx_references_name ON references_(name);
CREATE INDEX IF NOT EXISTS idx_references_target ON references_(target_symbol_id);
CREATE INDEX IF NOT EXISTS idx_call_graph_caller ON call_graph(caller_symbol_id);
CREATE INDEX IF NOT EXISTS idx_call_graph_callee ON call_graph(callee_symbol_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_file ON diagnostics(file_id);
`

// GetMetadata returns the value stored under key, or "" if there is none.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// DeleteFileData transactionally removes every row derived from a file,
// the file record included. Deletes run in reverse-dependency order to
// respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	symbolIDs, err := queryIDs(tx, "SELECT id FROM symbols WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("query symbols: %w", err)
	}

	if len(symbolIDs) > 0 {
		placeholders := placeholderList(len(symbolIDs))
		args := int64sToArgs(symbolIDs)
		for _, q := range []string{
			"DELETE FROM function_parameters WHERE symbol_id IN (" + placeholders + ")",
			"DELETE FROM type_bases WHERE symbol_id IN (" + placeholders + ")",
			// Bases and call edges from other files never point here: every
			// file is its own module. Clear them anyway so a stale row cannot
			// block the symbol delete.
			"UPDATE type_bases SET base_symbol_id = NULL WHERE base_symbol_id IN (" + placeholders + ")",
			"UPDATE call_graph SET callee_symbol_id = NULL WHERE callee_symbol_id IN (" + placeholders + ")",
		} {
			if _, err := tx.Exec(q, args...); err != nil {
				return fmt.Errorf("delete symbol child data: %w", err)
			}
		}
	}

	for _, q := range []string{
		"DELETE FROM call_graph WHERE file_id = ?",
		"DELETE FROM diagnostics WHERE file_id = ?",
		"DELETE FROM references_ WHERE file_id = ?",
		"DELETE FROM scopes WHERE file_id = ?",
		"DELETE FROM symbols WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDiagnosticsBySource removes the diagnostics a file received from
// one source, so rules can be re-run without re-indexing.
func (s *Store) DeleteDiagnosticsBySource(fileID int64, source string) error {
	if _, err := s.db.Exec("DELETE FROM diagnostics WHERE file_id = ? AND source = ?", fileID, source); err != nil {
		return fmt.Errorf("delete diagnostics: %w", err)
	}
	return nil
}
