package driver

import (
	"path/filepath"
	"strings"
)

// FilesInfo names every derived artifact for one unit (spec §3 "Files-info
// record"), grounded on the original clang fork's Driver/PackageFiles.h:
// there, the record is a first-class struct rather than ad-hoc path
// concatenation scattered across the driver, and this package keeps that
// shape.
type FilesInfo struct {
	// Source is the absolute path to the original .cppl (or main) file.
	Source string

	// Header is the synthesized consumer-visible .h file (C8 output).
	Header string

	// AST is the parse phase's full AST dump ({unit}.ast).
	AST string
	// DeclAST is the declaration-AST generated in phase 4 ({unit}.decl-ast).
	DeclAST string
	// Manifest is the per-unit dependency manifest, LDEP-encoded
	// ({unit}.ldeps).
	Manifest string
	// Object is the compiled object file ({unit}.o).
	Object string

	// Meta is the path reserved for the unit's rebuild-avoidance record
	// ({unit}.meta). The driver computes the path but never writes or
	// reads the file, and compares no content hashes: every run parses
	// and rebuilds every unit.
	Meta string
	// DeclASTMeta is the LMET-encoded decl-AST metadata (source/decl-ast
	// hashes plus fragments_to_skip) consumed by the header synthesizer.
	DeclASTMeta string
	// ObjectMeta is the matching reserved path for the compiled object
	// ({unit}.o.meta); like Meta, it is never written or read.
	ObjectMeta string

	// DirectDeps and FullDeps are the informational dependency dumps named
	// in spec §6 ("d" / "fulld" extensions): direct edges and the full
	// solved, distance-ranked chain, respectively. Written once per run by
	// writeDependencyDumps, right after the solve phase; never read back.
	DirectDeps string
	FullDeps   string
}

// extensions for every derived artifact, matching spec §6's External
// Interfaces table plus the meta-file names spec §3 reserves space for.
const (
	extAST         = "ast"
	extDeclAST     = "decl-ast"
	extManifest    = "ldeps"
	extObject      = "o"
	extHeader      = "h"
	extMeta        = "meta"
	extDeclASTMeta = "decl-ast.meta"
	extObjectMeta  = "o.meta"
	extDirectDeps  = "d"
	extFullDeps    = "fulld"
)

// ComputeFiles derives every artifact path for the unit at sourcePath
// (absolute), whose project-relative path is relPath, rooted under
// buildRoot with the same directory shape as the project (spec §6:
// "build outputs live in a parallel build root with the same directory
// shape").
func ComputeFiles(buildRoot, sourcePath, relPath string) FilesInfo {
	withoutExt := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	base := filepath.Join(buildRoot, filepath.FromSlash(withoutExt))

	return FilesInfo{
		Source:      sourcePath,
		Header:      base + "." + extHeader,
		AST:         base + "." + extAST,
		DeclAST:     base + "." + extDeclAST,
		Manifest:    base + "." + extManifest,
		Object:      base + "." + extObject,
		Meta:        base + "." + extMeta,
		DeclASTMeta: base + "." + extDeclASTMeta,
		ObjectMeta:  base + "." + extObjectMeta,
		DirectDeps:  base + "." + extDirectDeps,
		FullDeps:    base + "." + extFullDeps,
	}
}
