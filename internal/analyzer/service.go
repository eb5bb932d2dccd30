package analyzer

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"jcpg/internal/classfile"
	"jcpg/internal/facts"
)

// ServiceVersion is reported by /health.
const ServiceVersion = "1.0"

// Service holds no mutable state across requests; Concurrency only bounds
// the worker pool used to decode a single request's file list in parallel.
type Service struct {
	Concurrency int
}

// NewService returns a Service with a worker-pool bound tuned to CPU count,
// so a single request's parallel decode never exceeds available cores.
func NewService() *Service {
	return &Service{Concurrency: runtime.NumCPU()}
}

func (s *Service) poolLimit() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return 1
}

// Health answers the readiness probe.
func (s *Service) Health() HealthResponse {
	return HealthResponse{Status: "ok", Service: "cpganalyzer", Version: ServiceVersion}
}

// IndexSymbols returns one compact record per class file, in the same
// order as the input. Enums are short-circuited (Skipped="enum", no
// Symbols): the index path does not walk their structure and they get no
// symbol_index rows, while Analyze still emits their class and method
// nodes in the call-graph phase.
func (s *Service) IndexSymbols(ctx context.Context, classFiles []string) []IndexResult {
	results := make([]IndexResult, len(classFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolLimit())

	for i, path := range classFiles {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = indexOne(path)
			return nil
		})
	}
	// Per-file decode failures are captured in results[i]; only context
	// cancellation/deadline propagates as an error from the group itself.
	_ = g.Wait()
	return results
}

func indexOne(path string) IndexResult {
	cv, err := classfile.DecodeFile(path)
	if err != nil {
		return IndexResult{Success: false, Error: err.Error()}
	}

	nodeType := classNodeTypeString(cv)
	if cv.IsEnum() {
		return IndexResult{
			Success:  true,
			ClassFQN: cv.FQN,
			NodeType: nodeType,
			IsEnum:   true,
			IsEntity: isEntity(cv),
			Skipped:  "enum",
		}
	}

	nodes, _ := facts.Emit(cv)
	symbols := make([]IndexSymbol, 0, len(nodes))
	for _, n := range nodes {
		symbols = append(symbols, IndexSymbol{
			FQN:      n.FQN,
			NodeType: string(n.Type),
			Line:     n.Line,
		})
	}

	return IndexResult{
		Success:  true,
		ClassFQN: cv.FQN,
		NodeType: nodeType,
		IsEnum:   false,
		IsEntity: isEntity(cv),
		Symbols:  symbols,
	}
}

// Analyze decodes every selected class, emits facts, and regroups the flat
// nodes/edges into a per-class structure. domains, if non-empty, filters
// out classes whose FQN matches none of the given prefixes.
func (s *Service) Analyze(ctx context.Context, classFiles []string, domains []string, limit int) []AnalyzeClass {
	if limit > 0 && len(classFiles) > limit {
		classFiles = classFiles[:limit]
	}

	results := make([]AnalyzeClass, len(classFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolLimit())

	for i, path := range classFiles {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = analyzeOne(path, domains)
			return nil
		})
	}
	_ = g.Wait()

	// Drop entries skipped by the domain filter entirely (classes whose FQN
	// matches no prefix are omitted), keeping the survivors in the sorted
	// relative-path order classFiles arrived in.
	out := make([]AnalyzeClass, 0, len(results))
	for _, r := range results {
		if r.FQN == "" && r.Error == "" {
			continue // filtered by domains
		}
		out = append(out, r)
	}
	return out
}

func analyzeOne(path string, domains []string) AnalyzeClass {
	cv, err := classfile.DecodeFile(path)
	if err != nil {
		return AnalyzeClass{Success: false, Error: err.Error()}
	}
	if !matchesDomains(cv.FQN, domains) {
		return AnalyzeClass{} // filtered; caller drops zero-value entries
	}

	nodes, edges := facts.Emit(cv)

	ac := AnalyzeClass{
		Success:   true,
		FQN:       cv.FQN,
		NodeType:  classNodeTypeString(cv),
		Modifiers: classfile.Visibility(cv.AccessFlags),
		IsEntity:  isEntity(cv),
	}

	for _, e := range edges {
		if e.EdgeType != facts.EdgeInheritance {
			continue
		}
		ac.Inheritance = append(ac.Inheritance, AnalyzeEdge{ToFQN: e.ToFQN, Kind: e.Kind})
	}
	for _, f := range cv.Fields {
		ac.Fields = append(ac.Fields, AnalyzeField{Name: f.Name, TypeFQN: f.TypeFQN})
	}

	methodEdges := map[string][]AnalyzeCall{}
	for _, e := range edges {
		if e.EdgeType != facts.EdgeCall {
			continue
		}
		methodEdges[e.FromFQN] = append(methodEdges[e.FromFQN], AnalyzeCall{ToFQN: e.ToFQN, Kind: e.Kind, Line: e.FromLine})
	}

	for i := range nodes {
		n := nodes[i]
		if n.Type != facts.NodeMethod {
			continue
		}
		mv := findMethodView(cv, n.FQN)
		ac.Methods = append(ac.Methods, AnalyzeMethod{
			FQN:             n.FQN,
			Line:            n.Line,
			Modifiers:       n.Visibility,
			HasOverride:     n.HasOverride,
			IsTransactional: n.IsTransactional,
			ReturnType:      mv.ReturnFQN,
			Arguments:       mv.ParamFQNs,
			Calls:           methodEdges[n.FQN],
		})
	}

	return ac
}

func findMethodView(cv *classfile.ClassView, methodFQN string) classfile.MethodView {
	for _, m := range cv.Methods {
		if facts.MethodFQN(cv.FQN, m.Name, m.ParamFQNs) == methodFQN {
			return m
		}
	}
	return classfile.MethodView{Line: -1}
}

func matchesDomains(fqn string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	for _, d := range domains {
		if strings.HasPrefix(fqn, d) {
			return true
		}
	}
	return false
}

func classNodeTypeString(cv *classfile.ClassView) string {
	switch {
	case cv.IsInterface():
		return "interface"
	case cv.IsEnum():
		return "enum"
	default:
		return "class"
	}
}

// isEntity flags a class as an "entity": superclass FQN mentions
// AuditableModel or the class lives under a .db. package segment.
func isEntity(cv *classfile.ClassView) bool {
	if strings.Contains(cv.SuperFQN, "AuditableModel") {
		return true
	}
	return strings.Contains(cv.FQN, ".db.")
}
