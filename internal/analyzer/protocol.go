// Package analyzer implements the analysis service: a process-local HTTP
// worker that decodes class files and returns facts over a small wire
// protocol.
package analyzer

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// IndexRequest is the body of POST /index (single file) or POST
// /index/batch (multiple).
type IndexRequest struct {
	ClassFile  string   `json:"classFile,omitempty"`
	ClassFiles []string `json:"classFiles,omitempty"`
}

// IndexSymbol is one emitted symbol within an IndexResult.
type IndexSymbol struct {
	FQN      string `json:"fqn"`
	NodeType string `json:"nodeType"`
	Line     int    `json:"line"`
}

// IndexResult is the per-class record returned by IndexSymbols:
// "{classFqn, nodeType, isEnum, symbols:[...]}". Enums carry Skipped="enum"
// and no Symbols.
type IndexResult struct {
	Success  bool          `json:"success"`
	ClassFQN string        `json:"class_fqn,omitempty"`
	NodeType string        `json:"nodeType,omitempty"`
	IsEnum   bool          `json:"isEnum,omitempty"`
	IsEntity bool          `json:"is_entity,omitempty"`
	Skipped  string        `json:"skipped,omitempty"`
	Symbols  []IndexSymbol `json:"symbols,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// IndexBatchResponse is the body of POST /index/batch.
type IndexBatchResponse struct {
	Success bool          `json:"success"`
	Results []IndexResult `json:"results"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	PackageRoots []string `json:"packageRoots,omitempty"`
	ClassDirs    []string `json:"classDirs,omitempty"`
	ClassFiles   []string `json:"classFiles,omitempty"`
	Domains      []string `json:"domains,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// AnalyzeField is one field within a grouped class record.
type AnalyzeField struct {
	Name    string `json:"name"`
	TypeFQN string `json:"typeFqn"`
}

// AnalyzeCall is one call edge within a grouped method record.
type AnalyzeCall struct {
	ToFQN string `json:"toFqn"`
	Kind  string `json:"kind"` // "new" | "standard"
	Line  int    `json:"line"`
}

// AnalyzeMethod is one method within a grouped class record.
type AnalyzeMethod struct {
	FQN             string        `json:"fqn"`
	Line            int           `json:"line"`
	Modifiers       string        `json:"modifiers"` // visibility string
	HasOverride     bool          `json:"hasOverride"`
	IsTransactional bool          `json:"isTransactional"`
	ReturnType      string        `json:"returnType"`
	Arguments       []string      `json:"arguments"`
	Calls           []AnalyzeCall `json:"calls"`
}

// AnalyzeClass is one grouped class record within an AnalyzeResponse.
type AnalyzeClass struct {
	Success     bool            `json:"success"`
	FQN         string          `json:"fqn,omitempty"`
	NodeType    string          `json:"nodeType,omitempty"`
	Modifiers   string          `json:"modifiers,omitempty"`
	Inheritance []AnalyzeEdge   `json:"inheritance,omitempty"`
	Fields      []AnalyzeField  `json:"fields,omitempty"`
	Methods     []AnalyzeMethod `json:"methods,omitempty"`
	IsEntity    bool            `json:"isEntity,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// AnalyzeEdge is one inheritance edge within a grouped class record.
type AnalyzeEdge struct {
	ToFQN string `json:"toFqn"`
	Kind  string `json:"kind"` // "extends" | "implements"
}

// AnalyzeResponse is the body of POST /analyze.
type AnalyzeResponse struct {
	Success bool           `json:"success"`
	Classes []AnalyzeClass `json:"classes"`
}

// ErrorEnvelope is the typed error body of 4xx responses (malformed JSON,
// no class files named). No handler writes a 5xx with this envelope: a
// panic recovered by middleware.Recoverer yields a bare HTTP 500.
type ErrorEnvelope struct {
	Error string `json:"error"`
}

// ShutdownResponse is the body of POST /shutdown.
type ShutdownResponse struct {
	Status string `json:"status"`
}
