package driver

import (
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"

	"github.com/levitation-build/levc/internal/atomicfs"
	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/header"
	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/solver"
)

// runHeader synthesizes the consumer-visible header for the main source
// (spec §4.7 phase 6 / §4.8): it includes the preamble, then every
// declaration terminal's own header — the glossary's "declaration
// terminal ... whose header is #include'd by the main unit" — and the
// main source's own contents with its fragments_to_skip stripped (main
// rarely has any: it has no Declaration node of its own, so no decl-ast
// metadata is ever generated for it).
func (d *Driver) runHeader(store *depstore.Store, graph *depgraph.Graph, solved *solver.Solved) error {
	d.log.Info("header", "output", d.cfg.Header)

	outDir := filepath.Dir(d.cfg.Header)

	var includes []string
	for _, id := range graph.DeclarationTerminals() {
		_, pathID := id.Unpack()
		files, ok := d.filesForPath(store, pathID)
		if !ok {
			continue
		}
		rel, err := atomicfs.MakeRelative(files.Header, outDir)
		if err != nil {
			return xerrors.Errorf("relativizing %s: %w", files.Header, err)
		}
		includes = append(includes, rel)
	}
	sort.Strings(includes)

	preamble := ""
	if d.cfg.Preamble != "" {
		rel, err := atomicfs.MakeRelative(filepath.Join(d.cfg.BuildRoot, "preamble.pch"), outDir)
		if err != nil {
			return xerrors.Errorf("relativizing preamble: %w", err)
		}
		preamble = rel
	}

	skip, err := d.mainSkipFragments()
	if err != nil {
		return err
	}

	src, err := os.ReadFile(d.mainFiles.Source)
	if err != nil {
		return xerrors.Errorf("reading main source %s: %w", d.mainFiles.Source, err)
	}

	if d.cfg.DryRun {
		d.log.Info("dry run: would synthesize header", "output", d.cfg.Header, "includes", len(includes))
		return nil
	}

	return header.Synthesize(header.Request{
		OutputPath:      d.cfg.Header,
		SourcePath:      d.mainFiles.Source,
		Preamble:        preamble,
		Includes:        includes,
		Skip:            skip,
		SourceExtension: SourceExtension,
	}, src)
}

// mainSkipFragments reads the main unit's decl-ast metadata, if the front
// end happened to produce one; absent is the common case (main is
// Definition-only) and yields no skip fragments.
func (d *Driver) mainSkipFragments() ([]manifest.Fragment, error) {
	data, err := os.ReadFile(d.mainFiles.DeclASTMeta)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %w", d.mainFiles.DeclASTMeta, err)
	}
	meta, status := manifest.ReadDeclASTMeta(data)
	if !status.Ok() {
		return nil, xerrors.Errorf("decoding %s: %w", d.mainFiles.DeclASTMeta, status)
	}
	return meta.FragmentsToSkip, nil
}
