package store

import (
	"fmt"
)

// NodeRow is one row of nodes, already carrying the package that produced
// it.
type NodeRow struct {
	FQN             string
	Type            string
	Package         string
	Line            int
	HasLine         bool
	Visibility      string
	HasOverride     bool
	IsTransactional bool
	IsEntity        bool
}

// InsertNodes inserts all of rows into nodes through one prepared
// statement. It does not commit; call within WithTransaction, whose commit
// covers every row.
func (s *Store) InsertNodes(rows []NodeRow) error {
	stmt, err := s.conn.Prepare(`INSERT OR REPLACE INTO nodes
		(fqn, type, package, line, visibility, has_override, is_transactional, is_entity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range rows {
		stmt.BindText(1, n.FQN)
		stmt.BindText(2, n.Type)
		stmt.BindText(3, n.Package)
		bindIntOrNull(stmt, 4, n.Line, n.HasLine)
		stmt.BindText(5, n.Visibility)
		bindBool(stmt, 6, n.HasOverride)
		bindBool(stmt, 7, n.IsTransactional)
		bindBool(stmt, 8, n.IsEntity)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("store: insert node %s: %w", n.FQN, err)
		}
		if err := stmt.Reset(); err != nil {
			return fmt.Errorf("store: reset node stmt: %w", err)
		}
	}
	return nil
}
