package driver

import (
	"os"

	"golang.org/x/xerrors"

	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/solver"
	"github.com/levitation-build/levc/internal/strpool"
)

// runSolve loads every unit's .ldeps manifest, merges them under a shared
// global string pool (C3), builds the dependency graph (C4), and solves it
// (C5) — spec §4.7 phase 3.
func (d *Driver) runSolve() (*depstore.Store, *depgraph.Graph, *solver.Solved, error) {
	strings := strpool.New()
	store := depstore.New(strings)

	for _, u := range d.units {
		files := d.files[u.name.RelPath]
		deps, err := d.loadManifest(files.Manifest)
		if err != nil {
			return nil, nil, nil, xerrors.Errorf("loading manifest for %s: %w", u.name.Name, err)
		}
		store.Insert(deps)
	}

	mainDeps, err := d.loadManifest(d.mainFiles.Manifest)
	if err != nil {
		return nil, nil, nil, xerrors.Errorf("loading main manifest: %w", err)
	}
	mainFileID := strings.Add(mainUnitPath(mainDeps))
	store.Insert(mainDeps)

	graph := depgraph.Build(store, mainFileID)
	if graph.IsInvalid() {
		return nil, nil, nil, xerrors.New("dependency graph is non-empty but has no roots")
	}

	solved := solver.Solve(graph)
	if !solved.Ok() {
		return nil, nil, nil, xerrors.Errorf("%s", solved.Failure())
	}

	return store, graph, solved, nil
}

// mainUnitPath recovers the main unit's own path-string value so it can
// be re-interned under the shared pool; the manifest's local pool already
// holds it at PackageFilePathID.
func mainUnitPath(deps *manifest.Dependencies) string {
	if s, ok := deps.Strings.Get(deps.PackageFilePathID); ok {
		return s
	}
	return ""
}

func (d *Driver) loadManifest(path string) (*manifest.Dependencies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %w", path, err)
	}
	deps, warnings, status := manifest.ReadDependencies(data)
	if !status.Ok() {
		return nil, xerrors.Errorf("decoding %s: %w", path, status)
	}
	for _, w := range warnings {
		d.log.Warn("manifest path renormalized", "file", path, "detail", w)
	}
	return deps, nil
}
