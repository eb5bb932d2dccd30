// Package pkgspec defines PackageSpec, the unit of work the orchestrator
// feeds to the symbol index builder and call-graph builder. It is a leaf
// package so both can depend on the shape without importing each other or
// the orchestrator.
package pkgspec

// PackageSpec names one already-unpacked dependency tree.
type PackageSpec struct {
	// Name uniquely identifies this package within a run, e.g.
	// "axelor-core-7.2.6".
	Name string

	// ClassesDir is the filesystem root of unpacked *.class files.
	ClassesDir string

	// SourcesDir, if non-empty, is the filesystem root of unpacked *.java
	// files, consulted by the symbol index builder to build source URIs
	// instead of class URIs.
	SourcesDir string

	// IsLocal flags a package as part of the project under analysis rather
	// than a cached dependency, enabling the local-package URI rewrite.
	IsLocal bool

	// ProjectSourceRoot is the path symbol URIs are rewritten to live under
	// when IsLocal is set.
	ProjectSourceRoot string

	// CacheRoot is the path prefix stripped during that rewrite — the root
	// under which this package's classesDir/sourcesDir were materialized.
	CacheRoot string
}
