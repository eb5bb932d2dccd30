package store

import (
	"fmt"
)

// EdgeRow is one row of edges. Edges are not deduplicated at insert time;
// duplicates are permitted.
type EdgeRow struct {
	FromFQN     string
	EdgeType    string
	ToFQN       string
	Kind        string
	FromPackage string
	ToPackage   string
	FromLine    int
	HasLine     bool
}

// InsertEdges inserts all of rows into edges through one prepared
// statement; callers buffer and flush edges in batches of roughly 5,000.
// It does not commit; call within WithTransaction, whose commit covers
// every row.
func (s *Store) InsertEdges(rows []EdgeRow) error {
	stmt, err := s.conn.Prepare(`INSERT INTO edges
		(from_fqn, edge_type, to_fqn, kind, from_package, to_package, from_line)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, e := range rows {
		stmt.BindText(1, e.FromFQN)
		stmt.BindText(2, e.EdgeType)
		stmt.BindText(3, e.ToFQN)
		stmt.BindText(4, e.Kind)
		stmt.BindText(5, e.FromPackage)
		stmt.BindText(6, e.ToPackage)
		bindIntOrNull(stmt, 7, e.FromLine, e.HasLine)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("store: insert edge %s->%s: %w", e.FromFQN, e.ToFQN, err)
		}
		if err := stmt.Reset(); err != nil {
			return fmt.Errorf("store: reset edge stmt: %w", err)
		}
	}
	return nil
}
