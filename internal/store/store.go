// Package store is the single-writer relational persistence layer: built
// on zombiezen.com/go/sqlite + sqlitex, with pragma tuning,
// prepared-statement batch inserts, and sqlitex.ImmediateTransaction
// commit boundaries.
package store

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// batchSize is the nominal write-batch size of roughly 5,000 rows. No
// function in this package splits or commits by it: each insert writes all
// the rows it is given inside the caller's transaction.
const batchSize = 5000

// Store wraps one SQLite connection. The store has a single writer: all
// inserts and deletes are serialized through this connection, held by the
// orchestrator process.
type Store struct {
	conn *sqlite.Conn
	Path string
}

// Open opens or creates the database at path. If init is true, the four
// core tables and run_summary are dropped and recreated; otherwise any
// missing table is created and existing rows are left alone.
func Open(path string, init bool) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = OFF",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, Path: path}
	if init {
		if err := s.dropTables(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if err := s.createTables(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := s.createIndexes(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) dropTables() error {
	ddl := `
DROP TABLE IF EXISTS symbol_index;
DROP TABLE IF EXISTS nodes;
DROP TABLE IF EXISTS edges;
DROP TABLE IF EXISTS index_metadata;
DROP TABLE IF EXISTS run_summary;
`
	return sqlitex.ExecuteScript(s.conn, ddl, nil)
}

// createTables creates the four required tables plus the advisory
// run_summary table, leaving any existing table untouched (CREATE TABLE IF
// NOT EXISTS).
func (s *Store) createTables() error {
	ddl := `
CREATE TABLE IF NOT EXISTS symbol_index (
    fqn     TEXT PRIMARY KEY,
    uri     TEXT NOT NULL,
    package TEXT NOT NULL,
    line    INTEGER
);

CREATE TABLE IF NOT EXISTS nodes (
    fqn              TEXT PRIMARY KEY,
    type             TEXT NOT NULL,
    package          TEXT NOT NULL,
    line             INTEGER,
    visibility       TEXT NOT NULL,
    has_override     INTEGER,
    is_transactional INTEGER,
    is_entity        INTEGER
);

CREATE TABLE IF NOT EXISTS edges (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    from_fqn     TEXT NOT NULL,
    edge_type    TEXT NOT NULL,
    to_fqn       TEXT NOT NULL,
    kind         TEXT NOT NULL,
    from_package TEXT NOT NULL,
    to_package   TEXT NOT NULL,
    from_line    INTEGER
);

CREATE TABLE IF NOT EXISTS index_metadata (
    package      TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    indexed_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_summary (
    started_at        TEXT NOT NULL,
    duration_ms        INTEGER NOT NULL,
    packages_processed INTEGER NOT NULL,
    symbols_indexed    INTEGER NOT NULL,
    nodes_written      INTEGER NOT NULL,
    edges_written      INTEGER NOT NULL,
    symbol_collisions  INTEGER NOT NULL,
    failed_packages    TEXT
);
`
	return sqlitex.ExecuteScript(s.conn, ddl, nil)
}

func (s *Store) createIndexes() error {
	ddl := `
CREATE INDEX IF NOT EXISTS idx_edges_to_fqn ON edges(to_fqn);
CREATE INDEX IF NOT EXISTS idx_edges_from_fqn ON edges(from_fqn);
CREATE INDEX IF NOT EXISTS idx_edges_from_package ON edges(from_package);
CREATE INDEX IF NOT EXISTS idx_edges_to_package ON edges(to_package);
`
	return sqlitex.ExecuteScript(s.conn, ddl, nil)
}

// WithTransaction runs fn inside a single immediate transaction, committing
// on success and rolling back if fn returns an error. Callers use this to
// wrap cascade-delete-then-rebuild sequences within a single transaction.
func (s *Store) WithTransaction(fn func() error) error {
	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	err = fn()
	endFn(&err)
	if err != nil {
		return fmt.Errorf("store: transaction: %w", err)
	}
	return nil
}

// DeletePackage performs the four-table cascade-delete for package p,
// meant to be called inside WithTransaction.
func (s *Store) DeletePackage(p string) error {
	stmts := []struct {
		sql  string
		args []any
	}{
		{"DELETE FROM symbol_index WHERE package = ?", []any{p}},
		{"DELETE FROM nodes WHERE package = ?", []any{p}},
		{"DELETE FROM edges WHERE from_package = ? OR to_package = ?", []any{p, p}},
		{"DELETE FROM index_metadata WHERE package = ?", []any{p}},
	}
	for _, st := range stmts {
		if err := sqlitex.Execute(s.conn, st.sql, &sqlitex.ExecOptions{Args: st.args}); err != nil {
			return fmt.Errorf("store: cascade-delete %q: %w", p, err)
		}
	}
	return nil
}

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}

func bindIntOrNull(stmt *sqlite.Stmt, param int, val int, present bool) {
	if !present {
		stmt.BindNull(param)
	} else {
		stmt.BindInt64(param, int64(val))
	}
}

func bindBool(stmt *sqlite.Stmt, param int, val bool) {
	if val {
		stmt.BindInt64(param, 1)
	} else {
		stmt.BindInt64(param, 0)
	}
}
