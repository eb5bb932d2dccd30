// Package facts translates one decoded ClassView into a node/edge stream,
// applying the pervasive-base-type filter and the edge taxonomy's
// tie-break rules.
package facts

import (
	"jcpg/internal/classfile"
)

// NodeType enumerates the kinds of node a class contributes.
type NodeType string

const (
	NodeClass     NodeType = "class"
	NodeInterface NodeType = "interface"
	NodeEnum      NodeType = "enum"
	NodeMethod    NodeType = "method"
)

// EdgeType enumerates the kinds of edge emitted between nodes.
type EdgeType string

const (
	EdgeInheritance EdgeType = "inheritance"
	EdgeCall        EdgeType = "call"
	EdgeMemberOf    EdgeType = "member_of"
)

// Node is one row destined for the nodes table (package/from_package is
// filled in by the caller, which knows which PackageSpec is being analyzed).
type Node struct {
	FQN            string
	Type           NodeType
	Line           int // -1 when absent
	Visibility     string
	HasOverride    bool
	IsTransactional bool
	IsEntity       bool // heuristic annotation, informational only
}

// Edge is one row destined for the edges table (from_package/to_package are
// resolved later by the Symbol Index, not here).
type Edge struct {
	FromFQN  string
	EdgeType EdgeType
	ToFQN    string
	Kind     string
	FromLine int // -1 when absent; only meaningful for call edges
}

// pervasiveExact implements the pervasive-base-type filter: primitives,
// void, and every java.lang.* FQN are excluded from member_of edges.
var pervasiveExact = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true,
	"void": true,
}

// IsPervasive reports whether fqn is excluded from member_of edges.
// Primitive array types (e.g. "int[]") are NOT pervasive, since only the
// bare primitives and void are named; arrays of java.lang types (e.g.
// "java.lang.String[]") are, since they carry the java.lang. prefix.
func IsPervasive(fqn string) bool {
	if pervasiveExact[fqn] {
		return true
	}
	return len(fqn) > len("java.lang.") && fqn[:len("java.lang.")] == "java.lang."
}

// entityHeuristic flags a class as an "entity" if its superclass FQN
// mentions AuditableModel or it lives in a .db. package segment. Used only
// as an informational column.
func entityHeuristic(cv *classfile.ClassView) bool {
	if containsSubstring(cv.SuperFQN, "AuditableModel") {
		return true
	}
	return containsSubstring(cv.FQN, ".db.")
}

func containsSubstring(s, sub string) bool {
	if sub == "" {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func classNodeType(cv *classfile.ClassView) NodeType {
	switch {
	case cv.IsInterface():
		return NodeInterface
	case cv.IsEnum():
		return NodeEnum
	default:
		return NodeClass
	}
}

// Emit walks one decoded class, returning every node and edge it
// contributes. Synthetic and bridge methods are emitted identically to
// ordinary methods — filtering them is a query-time concern, not a
// fact-base concern.
func Emit(cv *classfile.ClassView) (nodes []Node, edges []Edge) {
	// Step 1: class/interface/enum node.
	nodes = append(nodes, Node{
		FQN:        cv.FQN,
		Type:       classNodeType(cv),
		Line:       -1,
		Visibility: classfile.Visibility(cv.AccessFlags),
		IsEntity:   entityHeuristic(cv),
	})

	// Step 2: inheritance edges.
	if cv.SuperFQN != "" {
		edges = append(edges, Edge{
			FromFQN: cv.FQN, EdgeType: EdgeInheritance, ToFQN: cv.SuperFQN, Kind: "extends", FromLine: -1,
		})
	}
	for _, iface := range cv.InterfaceFQNs {
		edges = append(edges, Edge{
			FromFQN: cv.FQN, EdgeType: EdgeInheritance, ToFQN: iface, Kind: "implements", FromLine: -1,
		})
	}

	// Step 3: field member_of/class edges.
	for _, f := range cv.Fields {
		if IsPervasive(f.TypeFQN) {
			continue
		}
		edges = append(edges, Edge{
			FromFQN: f.TypeFQN, EdgeType: EdgeMemberOf, ToFQN: cv.FQN, Kind: "class", FromLine: -1,
		})
	}

	// Step 4: methods.
	for _, m := range cv.Methods {
		methodFQN := MethodFQN(cv.FQN, m.Name, m.ParamFQNs)

		nodes = append(nodes, Node{
			FQN:             methodFQN,
			Type:            NodeMethod,
			Line:            m.Line,
			Visibility:      classfile.Visibility(m.AccessFlags),
			HasOverride:     m.HasOverride(),
			IsTransactional: m.IsTransactional(),
		})

		edges = append(edges, Edge{
			FromFQN: methodFQN, EdgeType: EdgeMemberOf, ToFQN: cv.FQN, Kind: "method", FromLine: -1,
		})

		if !IsPervasive(m.ReturnFQN) {
			edges = append(edges, Edge{
				FromFQN: m.ReturnFQN, EdgeType: EdgeMemberOf, ToFQN: methodFQN, Kind: "return", FromLine: -1,
			})
		}

		for _, p := range m.ParamFQNs {
			if IsPervasive(p) {
				continue
			}
			// Duplicates allowed: the same type appearing in two parameter
			// positions produces two edges.
			edges = append(edges, Edge{
				FromFQN: p, EdgeType: EdgeMemberOf, ToFQN: methodFQN, Kind: "argument", FromLine: -1,
			})
		}

		for _, call := range m.Calls {
			targetFQN := MethodFQN(call.TargetOwnerFQN, call.TargetName, call.TargetParamFQNs)
			kind := "standard"
			if call.IsInvokespecial && call.IsInit {
				kind = "new"
			}
			edges = append(edges, Edge{
				FromFQN: methodFQN, EdgeType: EdgeCall, ToFQN: targetFQN, Kind: kind, FromLine: call.Line,
			})
		}
	}

	return nodes, edges
}

// MethodFQN renders the canonical method FQN form:
// "<owner>.<simpleName>(<paramType1>, <paramType2>, …)".
func MethodFQN(ownerFQN, name string, paramFQNs []string) string {
	s := ownerFQN + "." + name + "("
	for i, p := range paramFQNs {
		if i > 0 {
			s += ", "
		}
		s += p
	}
	return s + ")"
}
