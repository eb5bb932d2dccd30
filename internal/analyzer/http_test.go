package analyzer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeClassFixture writes data to dir/name and returns the path. http_test
// only needs the analyzer to reach the decode call and report
// success/failure, so the fixtures are deliberately malformed bytes that
// exercise the error path.
func writeClassFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func TestAPI_Health(t *testing.T) {
	app := NewApp(NewService())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: want 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "cpganalyzer" {
		t.Errorf("unexpected health response: %+v", resp)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id to be set by requestIDMiddleware")
	}
}

func TestAPI_Index_MissingClassFile(t *testing.T) {
	app := NewApp(NewService())
	body, _ := json.Marshal(IndexRequest{})
	req := httptest.NewRequest(http.MethodPost, "/index", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /index with no classFile: want 400, got %d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestAPI_Index_DecodeFailureSurfacesAsResult(t *testing.T) {
	dir := t.TempDir()
	bad := writeClassFixture(t, dir, "Bad.class", []byte("not a class file"))

	app := NewApp(NewService())
	body, _ := json.Marshal(IndexRequest{ClassFile: bad})
	req := httptest.NewRequest(http.MethodPost, "/index", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /index with unparsable file: want 200 with Success=false, got %d", rec.Code)
	}
	var result IndexResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode index result: %v", err)
	}
	if result.Success {
		t.Error("expected Success=false for a malformed class file")
	}
}

func TestAPI_IndexBatch_MissingClassFiles(t *testing.T) {
	app := NewApp(NewService())
	body, _ := json.Marshal(IndexRequest{ClassFiles: nil})
	req := httptest.NewRequest(http.MethodPost, "/index/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /index/batch with no classFiles: want 400, got %d", rec.Code)
	}
}

func TestAPI_Analyze_MissingEverything(t *testing.T) {
	app := NewApp(NewService())
	body, _ := json.Marshal(AnalyzeRequest{})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /analyze with no roots/dirs/files: want 400, got %d", rec.Code)
	}
}

func TestAPI_Analyze_ClassDirsEnumeratesClassFiles(t *testing.T) {
	dir := t.TempDir()
	writeClassFixture(t, dir, "A.class", []byte("not a class file"))
	writeClassFixture(t, dir, "ignore.txt", []byte("nope"))

	app := NewApp(NewService())
	body, _ := json.Marshal(AnalyzeRequest{ClassDirs: []string{dir}})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /analyze over classDirs: want 200, got %d", rec.Code)
	}
	var resp AnalyzeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode analyze response: %v", err)
	}
	if len(resp.Classes) != 1 {
		t.Fatalf("expected exactly 1 class (the .class file, not .txt), got %d", len(resp.Classes))
	}
	if resp.Classes[0].Success {
		t.Error("expected decode failure for the deliberately malformed fixture")
	}
}

func TestAPI_Shutdown_ClosesShutdownCh(t *testing.T) {
	app := NewApp(NewService())
	req := httptest.NewRequest(http.MethodPost, "/shutdown", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /shutdown: want 200, got %d", rec.Code)
	}
	select {
	case <-app.ShutdownCh:
	case <-time.After(2 * time.Second):
		t.Fatal("ShutdownCh was not closed within the grace period")
	}
}
