// Package callgraph builds the call graph: per-package decoding to facts
// via the analysis service, package resolution against the symbol index,
// and batched persistence.
package callgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"jcpg/internal/analyzer"
	"jcpg/internal/analyzerclient"
	"jcpg/internal/errs"
	"jcpg/internal/facts"
	"jcpg/internal/pkgspec"
	"jcpg/internal/store"
)

// chunkSize bounds the cumulative class count per Analyze request, to keep
// the request payload size bounded.
const chunkSize = 200

// edgeFlushSize is the roughly-5,000-row batch discipline for edge writes.
const edgeFlushSize = 5000

// Result summarizes one package's analysis outcome.
type Result struct {
	Package string
	Classes int
	Nodes   int
	Edges   int
}

// Build runs the call-graph algorithm for package p: enumerate, chunk to Analyze,
// regroup into node/edge rows, resolve packaging, and persist in batches.
// classFiles, if non-nil, overrides the filesystem walk.
func Build(ctx context.Context, st *store.Store, client *analyzerclient.Client, p pkgspec.PackageSpec, classFiles []string, domains []string) (Result, error) {
	if classFiles == nil {
		var err error
		classFiles, err = walkClassFiles(p.ClassesDir)
		if err != nil {
			return Result{Package: p.Name}, fmt.Errorf("callgraph: walk %s: %w", p.ClassesDir, err)
		}
	}

	result := Result{Package: p.Name}
	var pendingNodes []store.NodeRow
	var pendingEdges []store.EdgeRow

	err := st.WithTransaction(func() error {
		for _, chunk := range chunks(classFiles, chunkSize) {
			resp, err := client.Analyze(ctx, analyzer.AnalyzeRequest{ClassFiles: chunk, Domains: domains})
			if err != nil {
				return fmt.Errorf("%w: %s: %w", errs.ErrAnalyzerUnavailable, p.Name, err)
			}

			for _, ac := range resp.Classes {
				if !ac.Success {
					continue // per-class decode failure; recorded by the analyzer, run continues
				}
				nodes, edges := regroup(ac, p.Name)
				pendingNodes = append(pendingNodes, nodes...)
				pendingEdges = append(pendingEdges, edges...)
				result.Classes++
			}

			if len(pendingEdges) >= edgeFlushSize {
				if err := flush(st, &pendingNodes, &pendingEdges, p.Name, &result); err != nil {
					return err
				}
			}
		}
		return flush(st, &pendingNodes, &pendingEdges, p.Name, &result)
	})
	if err != nil {
		return Result{Package: p.Name}, err
	}
	return result, nil
}

// flush resolves to_package for the buffered edges' ToFQNs in one grouped
// symbol_index lookup, writes nodes and edges, and clears both buffers.
func flush(st *store.Store, nodes *[]store.NodeRow, edges *[]store.EdgeRow, fromPackage string, result *Result) error {
	if len(*nodes) > 0 {
		if err := st.InsertNodes(*nodes); err != nil {
			return err
		}
		result.Nodes += len(*nodes)
		*nodes = nil
	}
	if len(*edges) == 0 {
		return nil
	}

	toFQNs := make([]string, 0, len(*edges))
	seen := map[string]bool{}
	for _, e := range *edges {
		if !seen[e.ToFQN] {
			seen[e.ToFQN] = true
			toFQNs = append(toFQNs, e.ToFQN)
		}
	}
	resolved, err := st.ResolvePackages(toFQNs)
	if err != nil {
		return err
	}

	rows := make([]store.EdgeRow, len(*edges))
	for i, e := range *edges {
		e.FromPackage = fromPackage
		// A miss is not an error: it is stored as to_package='unknown'.
		if pkg, ok := resolved[e.ToFQN]; ok {
			e.ToPackage = pkg
		} else {
			e.ToPackage = "unknown"
		}
		rows[i] = e
	}
	if err := st.InsertEdges(rows); err != nil {
		return err
	}
	result.Edges += len(rows)
	*edges = nil
	return nil
}

// regroup reconstructs nodes and member_of/inheritance/call edges from one
// grouped AnalyzeClass record, applying the fact-emission algorithm to the
// grouped wire-format shape returned by the analyzer.
func regroup(ac analyzer.AnalyzeClass, pkg string) (nodes []store.NodeRow, edges []store.EdgeRow) {
	nodes = append(nodes, store.NodeRow{
		FQN:        ac.FQN,
		Type:       ac.NodeType,
		Package:    pkg,
		HasLine:    false,
		Visibility: ac.Modifiers,
		IsEntity:   ac.IsEntity,
	})

	for _, inh := range ac.Inheritance {
		edges = append(edges, store.EdgeRow{
			FromFQN: ac.FQN, EdgeType: "inheritance", ToFQN: inh.ToFQN, Kind: inh.Kind,
		})
	}

	for _, f := range ac.Fields {
		if facts.IsPervasive(f.TypeFQN) {
			continue
		}
		edges = append(edges, store.EdgeRow{
			FromFQN: f.TypeFQN, EdgeType: "member_of", ToFQN: ac.FQN, Kind: "class",
		})
	}

	for _, m := range ac.Methods {
		nodes = append(nodes, store.NodeRow{
			FQN:             m.FQN,
			Type:            "method",
			Package:         pkg,
			Line:            m.Line,
			HasLine:         true,
			Visibility:      m.Modifiers,
			HasOverride:     m.HasOverride,
			IsTransactional: m.IsTransactional,
		})

		edges = append(edges, store.EdgeRow{
			FromFQN: m.FQN, EdgeType: "member_of", ToFQN: ac.FQN, Kind: "method",
		})

		if !facts.IsPervasive(m.ReturnType) {
			edges = append(edges, store.EdgeRow{
				FromFQN: m.ReturnType, EdgeType: "member_of", ToFQN: m.FQN, Kind: "return",
			})
		}

		for _, arg := range m.Arguments {
			if facts.IsPervasive(arg) {
				continue
			}
			edges = append(edges, store.EdgeRow{
				FromFQN: arg, EdgeType: "member_of", ToFQN: m.FQN, Kind: "argument",
			})
		}

		for _, call := range m.Calls {
			edges = append(edges, store.EdgeRow{
				FromFQN: m.FQN, EdgeType: "call", ToFQN: call.ToFQN, Kind: call.Kind,
				FromLine: call.Line, HasLine: true,
			})
		}
	}

	return nodes, edges
}

func chunks(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func walkClassFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
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
	return files, nil
}
