package symbolindex

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jcpg/internal/analyzer"
	"jcpg/internal/analyzerclient"
	"jcpg/internal/pkgspec"
	"jcpg/internal/store"
)

// buildMinimalClass renders the bytes of a public class with no
// fields/methods/attributes: this_class -> thisBinary, super_class ->
// superBinary (pass "" for none / java.lang.Object).
func buildMinimalClass(thisBinary, superBinary string) []byte {
	var pool bytes.Buffer
	w2 := func(v uint16) { binary.Write(&pool, binary.BigEndian, v) }
	wUtf8 := func(s string) {
		pool.WriteByte(1) // tagUtf8
		w2(uint16(len(s)))
		pool.WriteString(s)
	}
	wClass := func(nameIdx uint16) {
		pool.WriteByte(7) // tagClass
		w2(nameIdx)
	}

	wUtf8(thisBinary) // #1
	wClass(1)         // #2 -> this_class points here

	thisClassIdx := uint16(2)
	superClassIdx := uint16(0)
	count := uint16(3) // entries #1, #2 so far; count = max_index+1

	if superBinary != "" {
		wUtf8(superBinary) // #3
		wClass(3)          // #4
		superClassIdx = 4
		count = 5
	}

	var buf bytes.Buffer
	write := func(v any) { binary.Write(&buf, binary.BigEndian, v) }
	write(uint32(0xCAFEBABE))
	write(uint16(0))
	write(uint16(61))
	write(count)
	buf.Write(pool.Bytes())
	write(uint16(0x0001)) // ACC_PUBLIC
	write(thisClassIdx)
	write(superClassIdx)
	write(uint16(0)) // interfaces
	write(uint16(0)) // fields
	write(uint16(0)) // methods
	write(uint16(0)) // class attributes
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

func TestIndex_FirstRunThenSkipUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "com/ex/A.class", buildMinimalClass("com/ex/A", ""))
	writeClassFile(t, dir, "com/ex/B.class", buildMinimalClass("com/ex/B", "com/ex/A"))

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), true)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	client := newTestClient(t)
	p := pkgspec.PackageSpec{Name: "p1", ClassesDir: dir}

	res, err := Index(context.Background(), st, client, p, nil)
	if err != nil {
		t.Fatalf("first Index: %v", err)
	}
	if res.Skipped {
		t.Fatal("first run should not be skipped")
	}
	if res.Symbols != 2 {
		t.Fatalf("symbols = %d, want 2", res.Symbols)
	}

	meta, ok, err := st.GetIndexMetadata("p1")
	if err != nil || !ok {
		t.Fatalf("expected index_metadata row, ok=%v err=%v", ok, err)
	}
	if meta.ContentHash == "" {
		t.Fatal("expected non-empty content hash")
	}

	res2, err := Index(context.Background(), st, client, p, nil)
	if err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if !res2.Skipped {
		t.Fatal("second run over an unchanged corpus should be skipped (invariant 1/7)")
	}
}

func TestIndex_CollisionAcrossPackages(t *testing.T) {
	dirA := t.TempDir()
	writeClassFile(t, dirA, "com/ex/Shared.class", buildMinimalClass("com/ex/Shared", ""))
	dirB := t.TempDir()
	writeClassFile(t, dirB, "com/ex/Shared.class", buildMinimalClass("com/ex/Shared", ""))

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), true)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	client := newTestClient(t)

	if _, err := Index(context.Background(), st, client, pkgspec.PackageSpec{Name: "pa", ClassesDir: dirA}, nil); err != nil {
		t.Fatal(err)
	}
	resB, err := Index(context.Background(), st, client, pkgspec.PackageSpec{Name: "pb", ClassesDir: dirB}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resB.Collisions != 1 {
		t.Fatalf("collisions = %d, want 1 (last-writer-wins)", resB.Collisions)
	}
}
