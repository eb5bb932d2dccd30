// Package errs collects the sentinel errors shared across the
// orchestrator-side packages (analyzer client, symbol index, call graph).
// Boundary code wraps these with fmt.Errorf("...: %w", err) so errors.Is
// still matches through the wrap.
package errs

import "errors"

var (
	// ErrMalformedClass means a class file could not be decoded. Reported
	// per-file; the run continues.
	ErrMalformedClass = errors.New("jcpg: malformed class file")

	// ErrAnalyzerUnavailable means the analysis service did not respond
	// within the request timeout. Retried once with exponential backoff
	// before the package is aborted.
	ErrAnalyzerUnavailable = errors.New("jcpg: analyzer unavailable")

	// ErrResolutionIncomplete is not a failure: it marks an FQN referenced
	// by an edge that is absent from symbol_index. Stored as
	// to_package='unknown', never returned to a caller as an error.
	ErrResolutionIncomplete = errors.New("jcpg: fqn resolution incomplete")

	// ErrStoreWriteConflict means two transactions contended for the single
	// writer. Single-writer discipline renders this unreachable; if ever
	// observed, the run aborts.
	ErrStoreWriteConflict = errors.New("jcpg: store write conflict")

	// ErrHashMismatch means post-write verification of index_metadata
	// against a freshly computed hash failed. The run aborts; the package
	// is not marked clean.
	ErrHashMismatch = errors.New("jcpg: index metadata hash mismatch")
)
