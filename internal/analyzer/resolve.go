package analyzer

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
)

var errMissingClassFile = errors.New("analyzer: request names no class files")

// resolveClassFiles expands an AnalyzeRequest's packageRoots/classDirs into
// a concrete, sorted list of *.class file paths, merging in any explicit
// classFiles. Visitation order is sorted-by-path, which callers that
// depend on deterministic ordering rely on.
func resolveClassFiles(req AnalyzeRequest) []string {
	var files []string
	files = append(files, req.ClassFiles...)
	for _, dir := range req.ClassDirs {
		files = append(files, walkClassFiles(dir)...)
	}
	for _, root := range req.PackageRoots {
		files = append(files, walkClassFiles(root)...)
	}
	sort.Strings(files)
	return files
}

func walkClassFiles(root string) []string {
	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: unreadable subtrees are skipped, not fatal
		}
		if !info.IsDir() && filepath.Ext(path) == ".class" {
			files = append(files, path)
		}
		return nil
	})
	return files
}
