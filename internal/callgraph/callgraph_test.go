package callgraph

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"jcpg/internal/analyzer"
	"jcpg/internal/analyzerclient"
	"jcpg/internal/pkgspec"
	"jcpg/internal/store"
)

// edgeKindsFor opens a second, independent read connection to the same
// database file to inspect rows the production code never exposes through
// Store's own API (the core exposes no query API by design).
func edgeKindsFor(t *testing.T, dbPath, edgeType, fromFQN, toFQN string) []string {
	t.Helper()
	conn, err := sqlite.OpenConn(dbPath, sqlite.OpenReadOnly)
	if err != nil {
		t.Fatalf("open read conn: %v", err)
	}
	defer conn.Close()

	var kinds []string
	err = sqlitex.Execute(conn,
		`SELECT kind FROM edges WHERE edge_type = ? AND from_fqn = ? AND to_fqn = ?`,
		&sqlitex.ExecOptions{
			Args: []any{edgeType, fromFQN, toFQN},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				kinds = append(kinds, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		t.Fatalf("query edges: %v", err)
	}
	return kinds
}

// buildClassWithCall renders a public class thisBinary (no super) declaring
// one public method "f()V" whose body is a single invocation of
// calleeOwnerBinary.calleeName(calleeDescriptor) via invokeOp, followed by
// return. Used to exercise call/new and call/standard classification.
func buildClassWithCall(thisBinary, calleeOwnerBinary, calleeName, calleeDescriptor string, invokeOp byte) []byte {
	var pool bytes.Buffer
	w2 := func(v uint16) { binary.Write(&pool, binary.BigEndian, v) }
	wUtf8 := func(s string) {
		pool.WriteByte(1)
		w2(uint16(len(s)))
		pool.WriteString(s)
	}
	wClass := func(nameIdx uint16) {
		pool.WriteByte(7)
		w2(nameIdx)
	}
	wNameAndType := func(nameIdx, descIdx uint16) {
		pool.WriteByte(12)
		w2(nameIdx)
		w2(descIdx)
	}
	wMethodref := func(classIdx, ntIdx uint16) {
		pool.WriteByte(10)
		w2(classIdx)
		w2(ntIdx)
	}

	wUtf8(thisBinary)         // #1
	wClass(1)                 // #2 this_class
	wUtf8(calleeOwnerBinary)  // #3
	wClass(3)                 // #4 callee owner class
	wUtf8(calleeName)         // #5
	wUtf8(calleeDescriptor)   // #6
	wNameAndType(5, 6)        // #7
	wMethodref(4, 7)          // #8 methodref used by the invoke instruction
	wUtf8("f")                // #9 method name
	wUtf8("()V")              // #10 method descriptor
	wUtf8("Code")             // #11 attribute name

	count := uint16(12)

	code := []byte{invokeOp, 0x00, 0x08, 0xb1} // invoke #8; return
	var codeAttr bytes.Buffer
	write := func(w *bytes.Buffer, v any) { binary.Write(w, binary.BigEndian, v) }
	write(&codeAttr, uint16(2))             // max_stack
	write(&codeAttr, uint16(1))             // max_locals
	write(&codeAttr, uint32(len(code)))     // code_length
	codeAttr.Write(code)
	write(&codeAttr, uint16(0)) // exception_table_length
	write(&codeAttr, uint16(0)) // attributes_count

	var method bytes.Buffer
	write(&method, uint16(0x0001)) // ACC_PUBLIC
	write(&method, uint16(9))      // name_index "f"
	write(&method, uint16(10))     // descriptor_index "()V"
	write(&method, uint16(1))      // attributes_count
	write(&method, uint16(11))     // attribute name_index "Code"
	write(&method, uint32(codeAttr.Len()))
	method.Write(codeAttr.Bytes())

	var buf bytes.Buffer
	write(&buf, uint32(0xCAFEBABE))
	write(&buf, uint16(0))
	write(&buf, uint16(61))
	write(&buf, count)
	buf.Write(pool.Bytes())
	write(&buf, uint16(0x0001)) // ACC_PUBLIC
	write(&buf, uint16(2))      // this_class
	write(&buf, uint16(0))      // super_class: none -> java.lang.Object
	write(&buf, uint16(0))      // interfaces
	write(&buf, uint16(0))      // fields
	write(&buf, uint16(1))      // methods
	buf.Write(method.Bytes())
	write(&buf, uint16(0)) // class attributes
	return buf.Bytes()
}

func writeClassFile(t *testing.T, dir, relPath string, data []byte) string {
	t.Helper()
	full := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return full
}

func newTestClient(t *testing.T) *analyzerclient.Client {
	t.Helper()
	srv := httptest.NewServer(analyzer.NewApp(analyzer.NewService()).Handler())
	t.Cleanup(srv.Close)
	return analyzerclient.New(srv.URL, 10*time.Second)
}

func TestBuild_CallStandardAndUnknownPackage(t *testing.T) {
	dir := t.TempDir()
	// com.ex.A.f() calls com.ex.B.g()V via invokevirtual; B is never
	// indexed, so the call's to_package must resolve to "unknown".
	writeClassFile(t, dir, "com/ex/A.class", buildClassWithCall("com/ex/A", "com/ex/B", "g", "()V", 0xb6))

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath, true)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	client := newTestClient(t)
	p := pkgspec.PackageSpec{Name: "p1", ClassesDir: dir}

	res, err := Build(context.Background(), st, client, p, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Classes != 1 {
		t.Fatalf("classes = %d, want 1", res.Classes)
	}
	if res.Nodes != 2 { // class node + method node
		t.Fatalf("nodes = %d, want 2", res.Nodes)
	}

	resolved, err := st.ResolvePackages([]string{"com.ex.B.g()"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := resolved["com.ex.B.g()"]; ok {
		t.Fatal("com.ex.B.g() should not be indexed in this test")
	}

	kinds := edgeKindsFor(t, dbPath, "call", "com.ex.A.f()", "com.ex.B.g()")
	if len(kinds) != 1 || kinds[0] != "standard" {
		t.Fatalf("call kinds = %v, want [standard]", kinds)
	}
}

func TestBuild_CallNewClassification(t *testing.T) {
	dir := t.TempDir()
	// invokespecial targeting <init> must classify as call/new.
	writeClassFile(t, dir, "com/ex/A.class", buildClassWithCall("com/ex/A", "com/ex/B", "<init>", "()V", 0xb7))

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath, true)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	client := newTestClient(t)
	p := pkgspec.PackageSpec{Name: "p1", ClassesDir: dir}

	if _, err := Build(context.Background(), st, client, p, nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	kinds := edgeKindsFor(t, dbPath, "call", "com.ex.A.f()", "com.ex.B.<init>()")
	if len(kinds) != 1 || kinds[0] != "new" {
		t.Fatalf("call kinds = %v, want [new] (INVOKESPECIAL targeting <init>)", kinds)
	}
}
