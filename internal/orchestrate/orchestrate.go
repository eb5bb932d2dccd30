// Package orchestrate implements the orchestrator: top-level sequencing of
// symbol indexing over all packages followed by call-graph analysis over
// all packages, preserving the cross-package ordering guarantee that ALL
// symbol_index writes complete before ANY edges row is written.
package orchestrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"jcpg/internal/analyzerclient"
	"jcpg/internal/callgraph"
	"jcpg/internal/pkgspec"
	"jcpg/internal/progressx"
	"jcpg/internal/store"
	"jcpg/internal/symbolindex"
)

// RunConfig is the programmatic entry point: all configuration passes
// through the orchestrator entry function; no environment variables are
// required.
type RunConfig struct {
	StorePath   string
	Init        bool
	Limit       int // 0 = no limit; requires Init
	Domains     []string
	AnalyzerURL string
	Packages    []pkgspec.PackageSpec
	Verbose     bool

	// RequestTimeout bounds a single analyzer HTTP round trip. Zero selects
	// a default.
	RequestTimeout time.Duration
}

// PackageOutcome records one package's result across both phases.
type PackageOutcome struct {
	Name          string
	IndexSkipped  bool
	Symbols       int
	Collisions    int
	Classes       int
	Nodes         int
	Edges         int
	Err           error
}

// RunResult is the end-to-end summary: the run's total duration and
// per-package counts, with failed packages carrying their error. Per-phase
// durations are logged by Run, not stored here.
type RunResult struct {
	RunID    string
	Duration time.Duration
	Packages []PackageOutcome
}

// Failed returns the names of packages that errored during either phase.
func (r RunResult) Failed() []string {
	var out []string
	for _, p := range r.Packages {
		if p.Err != nil {
			out = append(out, p.Name)
		}
	}
	return out
}

// Run drives the end-to-end pipeline:
//  1. open the store in the requested mode;
//  2. index symbols for every package;
//  3. build the call graph for every package;
//  4. surface per-step durations and counts.
//
// It never analyzes a package before indexing all packages (step 2 is a
// full barrier before step 3 begins), which is what makes cross-package
// FQN resolution correct.
func Run(ctx context.Context, cfg RunConfig, prog *progressx.Progress) (RunResult, error) {
	if cfg.Limit > 0 && !cfg.Init {
		return RunResult{}, fmt.Errorf("orchestrate: limit requires init=true")
	}
	if prog == nil {
		prog = progressx.New(cfg.Verbose)
	}

	runID := uuid.NewString()
	prog.Log("run %s: opening store %s (init=%v)", runID, cfg.StorePath, cfg.Init)

	st, err := store.Open(cfg.StorePath, cfg.Init)
	if err != nil {
		return RunResult{}, fmt.Errorf("orchestrate: %w", err)
	}
	defer func() { _ = st.Close() }()

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	client := analyzerclient.New(cfg.AnalyzerURL, timeout)

	outcomes := make(map[string]*PackageOutcome, len(cfg.Packages))
	classFiles := make(map[string][]string, len(cfg.Packages))
	for _, p := range cfg.Packages {
		outcomes[p.Name] = &PackageOutcome{Name: p.Name}
	}

	// Phase 1: index every package. This is a full barrier — no package
	// enters phase 2 until every package has completed phase 1.
	indexStart := time.Now()
	for _, p := range cfg.Packages {
		oc := outcomes[p.Name]
		files, walkErr := enumerateAndLimit(p.ClassesDir, cfg.Limit)
		if walkErr != nil {
			oc.Err = fmt.Errorf("orchestrate: enumerate %s: %w", p.Name, walkErr)
			continue
		}
		classFiles[p.Name] = files

		res, indexErr := symbolindex.Index(ctx, st, client, p, files)
		if indexErr != nil {
			oc.Err = indexErr
			prog.Log("package %s: index failed: %v", p.Name, indexErr)
			continue
		}
		oc.IndexSkipped = res.Skipped
		oc.Symbols = res.Symbols
		oc.Collisions = res.Collisions
		if res.Skipped {
			prog.Verbose("package %s: unchanged, skipping", p.Name)
		} else {
			prog.Log("package %s: indexed %d symbols (%d collisions)", p.Name, res.Symbols, res.Collisions)
		}
	}
	prog.Log("index phase: %d packages in %s", len(cfg.Packages), time.Since(indexStart).Round(time.Millisecond))

	// Phase 2: analyze every package that changed. Packages skipped in
	// phase 1 already have correct nodes/edges on disk, so phase 2 skips
	// them too.
	analyzeStart := time.Now()
	for _, p := range cfg.Packages {
		oc := outcomes[p.Name]
		if oc.Err != nil || oc.IndexSkipped {
			continue
		}
		res, buildErr := callgraph.Build(ctx, st, client, p, classFiles[p.Name], cfg.Domains)
		if buildErr != nil {
			oc.Err = buildErr
			prog.Log("package %s: analyze failed: %v", p.Name, buildErr)
			continue
		}
		oc.Classes = res.Classes
		oc.Nodes = res.Nodes
		oc.Edges = res.Edges
		prog.Log("package %s: analyzed %d classes, %d nodes, %d edges", p.Name, res.Classes, res.Nodes, res.Edges)
	}
	prog.Log("analyze phase: %d packages in %s", len(cfg.Packages), time.Since(analyzeStart).Round(time.Millisecond))

	result := RunResult{RunID: runID, Duration: prog.Elapsed()}
	for _, p := range cfg.Packages {
		result.Packages = append(result.Packages, *outcomes[p.Name])
	}

	summary := summarize(result)
	if err := st.WriteRunSummary(summary); err != nil {
		prog.Log("warning: failed to persist run_summary: %v", err)
	}

	prog.Log("run %s complete in %s: %d packages, %s symbols, %d nodes, %d edges, %d collisions, %d failed",
		runID, result.Duration.Round(time.Millisecond), len(result.Packages),
		humanize.Comma(int64(summary.SymbolsIndexed)), summary.NodesWritten, summary.EdgesWritten,
		summary.SymbolCollisions, len(result.Failed()))

	return result, nil
}

func summarize(r RunResult) store.RunSummary {
	rs := store.RunSummary{
		StartedAt:         time.Now().Add(-r.Duration).UTC().Format(time.RFC3339),
		DurationMS:        r.Duration.Milliseconds(),
		PackagesProcessed: len(r.Packages),
	}
	for _, p := range r.Packages {
		rs.SymbolsIndexed += p.Symbols
		rs.NodesWritten += p.Nodes
		rs.EdgesWritten += p.Edges
		rs.SymbolCollisions += p.Collisions
	}
	rs.FailedPackages = r.Failed()
	return rs
}

// enumerateAndLimit walks dir for *.class files in sorted order and applies
// an optional test-only limit on the maximum classes per package.
func enumerateAndLimit(dir string, limit int) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".class" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}
