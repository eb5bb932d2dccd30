package store

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Symbol is one row of symbol_index.
type Symbol struct {
	FQN     string
	URI     string
	Package string
	Line    int  // only meaningful when HasLine
	HasLine bool
}

// UpsertSymbols writes rows into symbol_index with INSERT OR REPLACE, so a
// later package's write overwrites an earlier one on FQN collision
// (last-writer-wins). It returns the number of FQNs that were already
// present under a different package before this call (the collision
// counter). All rows go through one prepared statement, reset after each
// row; it does not commit.
func (s *Store) UpsertSymbols(symbols []Symbol) (collisions int, err error) {
	existing, err := s.existingSymbolFQNs(symbols)
	if err != nil {
		return 0, err
	}

	stmt, err := s.conn.Prepare(`INSERT OR REPLACE INTO symbol_index (fqn, uri, package, line) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare symbol upsert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, sym := range symbols {
		if existing[sym.FQN] {
			collisions++
		}
		stmt.BindText(1, sym.FQN)
		stmt.BindText(2, sym.URI)
		stmt.BindText(3, sym.Package)
		bindIntOrNull(stmt, 4, sym.Line, sym.HasLine)
		if _, err := stmt.Step(); err != nil {
			return collisions, fmt.Errorf("store: upsert symbol %s: %w", sym.FQN, err)
		}
		if err := stmt.Reset(); err != nil {
			return collisions, fmt.Errorf("store: reset symbol stmt: %w", err)
		}
	}
	return collisions, nil
}

func (s *Store) existingSymbolFQNs(symbols []Symbol) (map[string]bool, error) {
	existing := map[string]bool{}
	stmt, err := s.conn.Prepare(`SELECT 1 FROM symbol_index WHERE fqn = ? AND package != ?`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare collision check: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, sym := range symbols {
		stmt.BindText(1, sym.FQN)
		stmt.BindText(2, sym.Package)
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("store: collision check %s: %w", sym.FQN, err)
		}
		if hasRow {
			existing[sym.FQN] = true
		}
		if err := stmt.Reset(); err != nil {
			return nil, fmt.Errorf("store: reset collision stmt: %w", err)
		}
	}
	return existing, nil
}

// ResolvePackages looks up the owning package for each distinct FQN in one
// grouped query against symbol_index. FQNs absent from the index are
// omitted from the result map; callers treat a miss as
// ErrResolutionIncomplete → to_package='unknown'.
func (s *Store) ResolvePackages(fqns []string) (map[string]string, error) {
	result := make(map[string]string, len(fqns))
	if len(fqns) == 0 {
		return result, nil
	}

	placeholders := make([]byte, 0, len(fqns)*2)
	args := make([]any, len(fqns))
	for i, fqn := range fqns {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = fqn
	}

	query := fmt.Sprintf(`SELECT fqn, package FROM symbol_index WHERE fqn IN (%s)`, placeholders)
	err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result[stmt.ColumnText(0)] = stmt.ColumnText(1)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: resolve packages: %w", err)
	}
	return result, nil
}

// IndexMetadata is one row of index_metadata.
type IndexMetadata struct {
	Package     string
	ContentHash string
	IndexedAt   string // RFC3339
}

// GetIndexMetadata returns the stored metadata for package p, or ok=false
// if p has never been indexed.
func (s *Store) GetIndexMetadata(p string) (meta IndexMetadata, ok bool, err error) {
	err = sqlitex.Execute(s.conn,
		`SELECT package, content_hash, indexed_at FROM index_metadata WHERE package = ?`,
		&sqlitex.ExecOptions{
			Args: []any{p},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				meta.Package = stmt.ColumnText(0)
				meta.ContentHash = stmt.ColumnText(1)
				meta.IndexedAt = stmt.ColumnText(2)
				ok = true
				return nil
			},
		})
	if err != nil {
		return IndexMetadata{}, false, fmt.Errorf("store: read index_metadata %s: %w", p, err)
	}
	return meta, ok, nil
}

// WriteIndexMetadata upserts index_metadata[p] = (contentHash, indexedAt),
// the final step of the indexing algorithm.
func (s *Store) WriteIndexMetadata(meta IndexMetadata) error {
	err := sqlitex.Execute(s.conn,
		`INSERT OR REPLACE INTO index_metadata (package, content_hash, indexed_at) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{meta.Package, meta.ContentHash, meta.IndexedAt}})
	if err != nil {
		return fmt.Errorf("store: write index_metadata %s: %w", meta.Package, err)
	}
	return nil
}
