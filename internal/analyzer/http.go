package analyzer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// App wires a Service to its HTTP surface: a chi router with panic
// recovery, real-IP extraction, and request-ID correlation in front of the
// bytecode decode worker protocol.
type App struct {
	svc      *Service
	ShutdownCh chan struct{} // closed once by handleShutdown; cmd/cpganalyzer selects on it
}

// NewApp wires a Service into an App.
func NewApp(svc *Service) *App {
	return &App{svc: svc, ShutdownCh: make(chan struct{})}
}

// Handler returns the HTTP handler (router with recovery, request IDs, timeout).
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", a.handleHealth)
	r.Post("/index", a.handleIndex)
	r.Post("/index/batch", a.handleIndexBatch)
	r.Post("/analyze", a.handleAnalyze)
	r.Post("/shutdown", a.handleShutdown)

	return r
}

// requestIDMiddleware assigns a correlation ID when the caller doesn't
// supply one via X-Request-Id, and echoes the ID in the response's
// X-Request-Id header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Health())
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	files := req.ClassFiles
	if req.ClassFile != "" {
		files = []string{req.ClassFile}
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, errMissingClassFile)
		return
	}
	results := a.svc.IndexSymbols(r.Context(), files)
	writeJSON(w, http.StatusOK, results[0])
}

func (a *App) handleIndexBatch(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.ClassFiles) == 0 {
		writeError(w, http.StatusBadRequest, errMissingClassFile)
		return
	}
	results := a.svc.IndexSymbols(r.Context(), req.ClassFiles)
	writeJSON(w, http.StatusOK, IndexBatchResponse{Success: true, Results: results})
}

func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	files := resolveClassFiles(req)
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, errMissingClassFile)
		return
	}
	classes := a.svc.Analyze(r.Context(), files, req.Domains, req.Limit)
	writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, Classes: classes})
}

func (a *App) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ShutdownResponse{Status: "shutting down"})
	go func() {
		time.Sleep(200 * time.Millisecond) // grace period so the response flushes
		close(a.ShutdownCh)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorEnvelope{Error: err.Error()})
}
