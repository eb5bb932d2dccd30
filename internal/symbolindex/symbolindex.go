// Package symbolindex builds the symbol index: per-package content
// hashing, skip-vs-rebuild decisions, cascade-delete-then-rebuild, and the
// FQN→(URI, package, line) upsert.
package symbolindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"jcpg/internal/analyzer"
	"jcpg/internal/analyzerclient"
	"jcpg/internal/errs"
	"jcpg/internal/pkgspec"
	"jcpg/internal/store"
)

// Result summarizes one package's indexing outcome.
type Result struct {
	Package    string
	Skipped    bool // unchanged since the last run; no writes performed
	Symbols    int
	Collisions int
}

// Index runs the six-step indexing algorithm for package p against st, decoding
// class files through client. classFiles, if non-nil, overrides the
// filesystem walk (the orchestrator always passes its own sorted,
// limit-applied list); nil triggers a full walk of p.ClassesDir.
func Index(ctx context.Context, st *store.Store, client *analyzerclient.Client, p pkgspec.PackageSpec, classFiles []string) (Result, error) {
	if classFiles == nil {
		var err error
		classFiles, err = walkClassFiles(p.ClassesDir)
		if err != nil {
			return Result{Package: p.Name}, fmt.Errorf("symbolindex: walk %s: %w", p.ClassesDir, err)
		}
	}

	// Step 1: hash.
	hash, err := hashClassFiles(classFiles)
	if err != nil {
		return Result{Package: p.Name}, fmt.Errorf("symbolindex: hash %s: %w", p.Name, err)
	}

	// Step 2: decision.
	existing, ok, err := st.GetIndexMetadata(p.Name)
	if err != nil {
		return Result{Package: p.Name}, err
	}
	if ok && existing.ContentHash == hash {
		return Result{Package: p.Name, Skipped: true}, nil
	}

	// Step 4: decode every class file via the analyzer's IndexSymbols.
	resp, err := client.IndexSymbols(ctx, classFiles)
	if err != nil {
		return Result{Package: p.Name}, fmt.Errorf("%w: %s: %w", errs.ErrAnalyzerUnavailable, p.Name, err)
	}

	symbols := buildSymbols(resp.Results, classFiles, p)

	var result Result
	result.Package = p.Name
	result.Symbols = len(symbols)

	// Step 3: cascade-delete + step 5/6 upsert + metadata write, all inside
	// one transaction so a crash never leaves p half-rebuilt.
	err = st.WithTransaction(func() error {
		if err := st.DeletePackage(p.Name); err != nil {
			return err
		}
		collisions, err := st.UpsertSymbols(symbols)
		if err != nil {
			return err
		}
		result.Collisions = collisions

		return st.WriteIndexMetadata(store.IndexMetadata{
			Package:     p.Name,
			ContentHash: hash,
			IndexedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return Result{Package: p.Name}, err
	}

	// Post-write verification: re-hash what's on disk right now and confirm
	// it still matches what we just wrote.
	verifyHash, err := hashClassFiles(classFiles)
	if err != nil {
		return Result{Package: p.Name}, fmt.Errorf("symbolindex: verify hash %s: %w", p.Name, err)
	}
	if verifyHash != hash {
		return Result{Package: p.Name}, fmt.Errorf("%w: %s", errs.ErrHashMismatch, p.Name)
	}

	return result, nil
}

// buildSymbols turns IndexSymbols results into store.Symbol rows, applying
// the URI construction and local-package rewrite rules below.
func buildSymbols(results []analyzer.IndexResult, classFiles []string, p pkgspec.PackageSpec) []store.Symbol {
	var out []store.Symbol
	for i, r := range results {
		if !r.Success || r.Skipped == "enum" {
			continue
		}
		classFile := ""
		if i < len(classFiles) {
			classFile = classFiles[i]
		}
		for _, sym := range r.Symbols {
			uri := symbolURI(p, classFile, sym.FQN, sym.NodeType, sym.Line)
			out = append(out, store.Symbol{
				FQN:     sym.FQN,
				URI:     uri,
				Package: p.Name,
				Line:    sym.Line,
				HasLine: sym.NodeType == "method",
			})
		}
	}
	return out
}

// symbolURI builds the file:///... URI for one symbol, preferring the
// matching .java file under p.SourcesDir when resolvable, falling back to
// the .class file otherwise, and appending :<line> for methods.
func symbolURI(p pkgspec.PackageSpec, classFile, fqn, nodeType string, line int) string {
	path := classFile
	if p.SourcesDir != "" {
		if src, ok := resolveSourceFile(p, classFile); ok {
			path = src
		}
	}
	path = rewriteLocalPath(p, path)

	uri := "file://" + toSlash(absOrSelf(path))
	if nodeType == "method" {
		uri += ":" + strconv.Itoa(line)
	}
	return uri
}

// resolveSourceFile maps a .class file under classesDir to the .java file
// at the same relative path under sourcesDir, by package/name convention.
// Nested-class files ($-suffixed) map to their enclosing class's source
// file.
func resolveSourceFile(p pkgspec.PackageSpec, classFile string) (string, bool) {
	rel, err := filepath.Rel(p.ClassesDir, classFile)
	if err != nil {
		return "", false
	}
	rel = strings.TrimSuffix(rel, ".class") + ".java"
	if idx := strings.IndexByte(filepath.Base(rel), '$'); idx >= 0 {
		dir := filepath.Dir(rel)
		base := filepath.Base(rel)
		rel = filepath.Join(dir, base[:idx]+".java")
	}
	candidate := filepath.Join(p.SourcesDir, rel)
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	return candidate, true
}

// rewriteLocalPath rewrites a URI path rooted at the cache directory to the
// corresponding path under the project's own source tree, for packages
// flagged local. Applied only here, to symbol URIs, never to node data.
func rewriteLocalPath(p pkgspec.PackageSpec, path string) string {
	if !p.IsLocal || p.CacheRoot == "" || p.ProjectSourceRoot == "" {
		return path
	}
	rel, err := filepath.Rel(p.CacheRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Join(p.ProjectSourceRoot, rel)
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func toSlash(path string) string {
	return strings.ReplaceAll(path, string(filepath.Separator), "/")
}

// hashClassFiles computes a SHA-256 over the byte concatenation of every
// *.class file, visited in sorted path order. It sorts a copy of
// classFiles itself, so callers may pass the list in any order.
func hashClassFiles(classFiles []string) (string, error) {
	sorted := append([]string(nil), classFiles...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, path := range sorted {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
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
