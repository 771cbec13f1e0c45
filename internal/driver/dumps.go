package driver

import (
	"io"

	"github.com/levitation-build/levc/internal/atomicfs"
	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/solver"
	"github.com/levitation-build/levc/internal/strpool"
)

// writeDependencyDumps writes the informational "d" (direct dependencies)
// and "fulld" (full solved, distance-ranked chain) files spec §6 reserves
// per unit. Nothing in this driver ever reads them back — they exist for
// humans and external tooling, the same role cmd/levc-deps fills by
// printing the same information to stdout instead of a file.
func (d *Driver) writeDependencyDumps(store *depstore.Store, graph *depgraph.Graph, solved *solver.Solved) error {
	for _, u := range d.units {
		files := d.files[u.name.RelPath]
		pkg, ok := graph.Package(mustLookup(store, u.name.RelPath))
		if !ok {
			continue
		}

		if err := writeNodeNames(files.DirectDeps, store.Strings(), graph.Dependencies(pkg.Declaration)); err != nil {
			return err
		}

		chain := solver.ChainString(graph, store.Strings(), solved.Dependencies(pkg.Declaration))
		if err := writeLine(files.FullDeps, chain); err != nil {
			return err
		}
	}
	return nil
}

func writeNodeNames(path string, strings *strpool.Pool, ids []depgraph.NodeID) error {
	return atomicfs.AtomicWrite(path, func(w io.Writer) error {
		for _, id := range ids {
			_, pathID := id.Unpack()
			name, ok := strings.Get(pathID)
			if !ok {
				name = id.String()
			}
			if _, err := io.WriteString(w, name+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeLine(path, line string) error {
	return atomicfs.AtomicWrite(path, func(w io.Writer) error {
		_, err := io.WriteString(w, line+"\n")
		return err
	})
}
