package store

import (
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite/sqlitex"
)

// RunSummary is one row of the advisory run_summary table. No correctness
// invariant depends on it.
type RunSummary struct {
	StartedAt          string
	DurationMS         int64
	PackagesProcessed  int
	SymbolsIndexed     int
	NodesWritten       int
	EdgesWritten       int
	SymbolCollisions   int
	FailedPackages     []string
}

// WriteRunSummary appends one row recording the outcome of an orchestrator
// run: its total duration and counts.
func (s *Store) WriteRunSummary(rs RunSummary) error {
	err := sqlitex.Execute(s.conn,
		`INSERT INTO run_summary
			(started_at, duration_ms, packages_processed, symbols_indexed, nodes_written, edges_written, symbol_collisions, failed_packages)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			rs.StartedAt, rs.DurationMS, rs.PackagesProcessed, rs.SymbolsIndexed,
			rs.NodesWritten, rs.EdgesWritten, rs.SymbolCollisions,
			strings.Join(rs.FailedPackages, ","),
		}})
	if err != nil {
		return fmt.Errorf("store: write run_summary: %w", err)
	}
	return nil
}
