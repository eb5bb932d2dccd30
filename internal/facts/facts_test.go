package facts

import (
	"testing"

	"jcpg/internal/classfile"
)

func findEdge(edges []Edge, edgeType EdgeType, kind, from, to string) bool {
	for _, e := range edges {
		if e.EdgeType == edgeType && e.Kind == kind && e.FromFQN == from && e.ToFQN == to {
			return true
		}
	}
	return false
}

func TestEmit_MinimalClassNoMethods(t *testing.T) {
	cv := &classfile.ClassView{FQN: "com.ex.Empty", AccessFlags: 0x0001}
	nodes, edges := Emit(cv)
	if len(nodes) != 1 || nodes[0].FQN != "com.ex.Empty" || nodes[0].Type != NodeClass {
		t.Fatalf("nodes = %+v", nodes)
	}
	if nodes[0].Visibility != "public" {
		t.Errorf("visibility = %q", nodes[0].Visibility)
	}
	if len(edges) != 0 {
		t.Errorf("edges = %+v, want none", edges)
	}
}

func TestEmit_Inheritance(t *testing.T) {
	cv := &classfile.ClassView{
		FQN:           "com.ex.Child",
		AccessFlags:   0x0001,
		SuperFQN:      "com.ex.Parent",
		InterfaceFQNs: []string{"com.ex.I1", "com.ex.I2"},
	}
	_, edges := Emit(cv)
	if !findEdge(edges, EdgeInheritance, "extends", "com.ex.Child", "com.ex.Parent") {
		t.Error("missing extends edge")
	}
	if !findEdge(edges, EdgeInheritance, "implements", "com.ex.Child", "com.ex.I1") {
		t.Error("missing implements I1 edge")
	}
	if !findEdge(edges, EdgeInheritance, "implements", "com.ex.Child", "com.ex.I2") {
		t.Error("missing implements I2 edge")
	}
	for _, e := range edges {
		if e.Kind == "extends" && e.ToFQN == "java.lang.Object" {
			t.Error("should not emit extends Object")
		}
	}
}

func TestEmit_MethodWithCall(t *testing.T) {
	cv := &classfile.ClassView{
		FQN:         "com.ex.A",
		AccessFlags: 0x0001,
		Methods: []classfile.MethodView{
			{
				Name:        "f",
				AccessFlags: 0x0001,
				ReturnFQN:   "void",
				Line:        5,
				Calls: []classfile.CallSite{
					{Line: 5, IsInvokespecial: true, IsInit: true, TargetOwnerFQN: "com.ex.B", TargetName: "<init>"},
					{Line: 5, TargetOwnerFQN: "com.ex.B", TargetName: "g", TargetReturnFQN: "void"},
				},
			},
		},
	}
	nodes, edges := Emit(cv)

	var methodNode *Node
	for i := range nodes {
		if nodes[i].FQN == "com.ex.A.f()" {
			methodNode = &nodes[i]
		}
	}
	if methodNode == nil {
		t.Fatal("missing method node com.ex.A.f()")
	}

	if !findEdge(edges, EdgeMemberOf, "method", "com.ex.A.f()", "com.ex.A") {
		t.Error("missing member_of/method edge")
	}
	if !findEdge(edges, EdgeCall, "new", "com.ex.A.f()", "com.ex.B.<init>()") {
		t.Error("missing call/new edge")
	}
	if !findEdge(edges, EdgeCall, "standard", "com.ex.A.f()", "com.ex.B.g()") {
		t.Error("missing call/standard edge")
	}
}

func TestEmit_ParamAndReturnTypes(t *testing.T) {
	cv := &classfile.ClassView{
		FQN:         "com.ex.A",
		AccessFlags: 0x0001,
		Methods: []classfile.MethodView{
			{
				Name:      "m",
				ParamFQNs: []string{"com.ex.P1", "java.lang.String", "int"},
				ReturnFQN: "com.ex.R",
				Line:      -1,
			},
		},
	}
	_, edges := Emit(cv)
	if !findEdge(edges, EdgeMemberOf, "return", "com.ex.R", "com.ex.A.m(com.ex.P1, java.lang.String, int)") {
		t.Error("missing return edge")
	}
	if !findEdge(edges, EdgeMemberOf, "argument", "com.ex.P1", "com.ex.A.m(com.ex.P1, java.lang.String, int)") {
		t.Error("missing argument edge for P1")
	}
	for _, e := range edges {
		if e.Kind == "argument" && (e.FromFQN == "java.lang.String" || e.FromFQN == "int") {
			t.Errorf("unexpected argument edge for pervasive type: %+v", e)
		}
	}
}

func TestEmit_AnnotationsAndVisibility(t *testing.T) {
	cv := &classfile.ClassView{
		FQN:         "com.ex.A",
		AccessFlags: 0x0001,
		Methods: []classfile.MethodView{
			{
				Name:           "h",
				AccessFlags:    0x0004, // protected
				AnnotationFQNs: []string{"java.lang.Override", "org.springframework.transaction.annotation.Transactional"},
				ReturnFQN:      "void",
				Line:           -1,
			},
		},
	}
	nodes, _ := Emit(cv)
	var methodNode *Node
	for i := range nodes {
		if nodes[i].Type == NodeMethod {
			methodNode = &nodes[i]
		}
	}
	if methodNode == nil {
		t.Fatal("missing method node")
	}
	if methodNode.Visibility != "protected" {
		t.Errorf("visibility = %q, want protected", methodNode.Visibility)
	}
	if !methodNode.HasOverride {
		t.Error("expected HasOverride")
	}
	if !methodNode.IsTransactional {
		t.Error("expected IsTransactional")
	}
}

func TestEmit_ZeroMethodsClass(t *testing.T) {
	cv := &classfile.ClassView{FQN: "com.ex.Empty", AccessFlags: 0x0001}
	nodes, edges := Emit(cv)
	if len(nodes) != 1 {
		t.Fatalf("expected exactly 1 node, got %d", len(nodes))
	}
	for _, e := range edges {
		if e.EdgeType == EdgeMemberOf && e.Kind == "method" {
			t.Error("unexpected member_of/method edge for zero-method class")
		}
	}
}

func TestEmit_NoLineNumberYieldsNegativeOne(t *testing.T) {
	cv := &classfile.ClassView{
		FQN:         "com.ex.A",
		AccessFlags: 0x0001,
		Methods: []classfile.MethodView{
			{Name: "f", ReturnFQN: "void", Line: -1, Calls: []classfile.CallSite{
				{Line: -1, TargetOwnerFQN: "com.ex.B", TargetName: "g", TargetReturnFQN: "void"},
			}},
		},
	}
	nodes, edges := Emit(cv)
	var methodNode *Node
	for i := range nodes {
		if nodes[i].Type == NodeMethod {
			methodNode = &nodes[i]
		}
	}
	if methodNode.Line != -1 {
		t.Errorf("Line = %d, want -1", methodNode.Line)
	}
	for _, e := range edges {
		if e.EdgeType == EdgeCall && e.FromLine != -1 {
			t.Errorf("FromLine = %d, want -1", e.FromLine)
		}
	}
}

func TestEmit_OnlyPervasiveTypesYieldNoMemberOfEdges(t *testing.T) {
	cv := &classfile.ClassView{
		FQN:         "com.ex.A",
		AccessFlags: 0x0001,
		Fields: []classfile.FieldView{
			{Name: "s", TypeFQN: "java.lang.String"},
			{Name: "i", TypeFQN: "int"},
		},
		Methods: []classfile.MethodView{
			{Name: "m", ParamFQNs: []string{"int", "java.lang.Object"}, ReturnFQN: "void", Line: -1},
		},
	}
	_, edges := Emit(cv)
	for _, e := range edges {
		if e.EdgeType == EdgeMemberOf && e.Kind != "method" {
			t.Errorf("unexpected member_of edge for all-pervasive class: %+v", e)
		}
	}
}

func TestIsPervasive(t *testing.T) {
	cases := map[string]bool{
		"int":              true,
		"void":             true,
		"boolean":          true,
		"java.lang.String": true,
		"java.lang.Object": true,
		"java.util.List":   false,
		"com.ex.Foo":       false,
	}
	for fqn, want := range cases {
		if got := IsPervasive(fqn); got != want {
			t.Errorf("IsPervasive(%q) = %v, want %v", fqn, got, want)
		}
	}
}
