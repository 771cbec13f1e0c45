package depgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/strpool"
)

// PackageInfo is the per-unit pair of nodes, mirroring the original's
// DependenciesGraph::PackageInfo.
type PackageInfo struct {
	PackagePathID strpool.ID
	Declaration   NodeID // zero value (Pack(Declaration, 0)) when absent
	Definition    NodeID
	IsMainFile    bool
}

// HasDeclaration reports whether this package has a declaration node (the
// main-unit package does not).
func (p PackageInfo) HasDeclaration() bool {
	return !p.IsMainFile
}

// Graph is the bidirectional dependency graph described in spec §3/§4.4.
type Graph struct {
	g        *simple.DirectedGraph
	packages map[strpool.ID]*PackageInfo

	roots                map[NodeID]struct{}
	declarationTerminals map[NodeID]struct{}

	invalid bool
}

// Build constructs a Graph from store, wiring in a dedicated Definition-only
// node for mainFileID. It never mutates store.
func Build(store *depstore.Store, mainFileID strpool.ID) *Graph {
	g := &Graph{
		g:                    simple.NewDirectedGraph(),
		packages:             make(map[strpool.ID]*PackageInfo),
		roots:                make(map[NodeID]struct{}),
		declarationTerminals: make(map[NodeID]struct{}),
	}

	for _, unitID := range store.Units() {
		if unitID == mainFileID {
			// The main unit gets a Definition-only node below: it has no
			// Declaration of its own (spec §3/§4.4 step 5).
			continue
		}
		unit, _ := store.Get(unitID)

		pkg := g.createPackage(unitID)

		if len(unit.DeclarationDependencies) == 0 {
			g.roots[pkg.Declaration] = struct{}{}
		}

		for _, depUnitID := range unit.DeclarationDependencies {
			depDecl := g.getOrCreateNode(Declaration, depUnitID)
			g.addEdge(pkg.Declaration, depDecl)
		}
		for _, depUnitID := range unit.DefinitionDependencies {
			depDecl := g.getOrCreateNode(Declaration, depUnitID)
			g.addEdge(pkg.Definition, depDecl)
		}
	}

	for _, id := range g.AllNodes() {
		if len(g.Dependencies(id)) == 0 {
			g.roots[id] = struct{}{}
		}
	}

	if g.g.Nodes().Len() > 0 && len(g.roots) == 0 {
		g.invalid = true
	}

	mainPkg := &PackageInfo{PackagePathID: mainFileID, IsMainFile: true}
	mainPkg.Definition = g.getOrCreateNode(Definition, mainFileID)
	g.packages[mainFileID] = mainPkg

	if mainUnit, ok := store.Get(mainFileID); ok {
		for _, depUnitID := range mainUnit.DefinitionDependencies {
			depDecl := g.getOrCreateNode(Declaration, depUnitID)
			g.addEdge(mainPkg.Definition, depDecl)
		}
	}

	g.collectDeclarationTerminals(mainPkg)

	return g
}

func (g *Graph) createPackage(pathID strpool.ID) *PackageInfo {
	pkg := &PackageInfo{PackagePathID: pathID}
	pkg.Declaration = g.getOrCreateNode(Declaration, pathID)
	pkg.Definition = g.getOrCreateNode(Definition, pathID)
	// Definition always depends on its own Declaration (spec §3 invariant).
	g.addEdge(pkg.Definition, pkg.Declaration)
	g.packages[pathID] = pkg
	return pkg
}

func (g *Graph) getOrCreateNode(kind Kind, pathID strpool.ID) NodeID {
	id := Pack(kind, pathID)
	if g.g.Node(id.Int64()) == nil {
		g.g.AddNode(gonumNode{id: id})
	}
	return id
}

func (g *Graph) addEdge(from, to NodeID) {
	g.g.SetEdge(g.g.NewEdge(gonumNode{id: from}, gonumNode{id: to}))
}

// collectDeclarationTerminals finds declaration nodes with no dependent
// declaration node and wires the main unit's Definition to depend on each
// of them (spec §3 "Declaration terminals").
func (g *Graph) collectDeclarationTerminals(mainPkg *PackageInfo) {
	nodes := g.g.Nodes()
	for nodes.Next() {
		id := NodeID(nodes.Node().ID())
		kind, _ := id.Unpack()
		if kind != Declaration {
			continue
		}

		hasDependentDeclaration := false
		dependents := g.g.To(id.Int64())
		for dependents.Next() {
			depKind, _ := NodeID(dependents.Node().ID()).Unpack()
			if depKind == Declaration {
				hasDependentDeclaration = true
				break
			}
		}

		if !hasDependentDeclaration {
			g.declarationTerminals[id] = struct{}{}
			g.addEdge(mainPkg.Definition, id)
		}
	}
}

// IsInvalid reports whether the graph is non-empty but has no roots — an
// unrecoverable configuration the solver refuses to run on (spec §4.4
// step 4 / §7 "Graph invalid").
func (g *Graph) IsInvalid() bool { return g.invalid }

// Roots returns nodes with no outgoing depends-on edge, in a deterministic
// (sorted) order.
func (g *Graph) Roots() []NodeID { return sortedIDs(g.roots) }

// DeclarationTerminals returns declaration nodes with no dependent
// declaration node, in a deterministic (sorted) order.
func (g *Graph) DeclarationTerminals() []NodeID { return sortedIDs(g.declarationTerminals) }

// Package returns the PackageInfo for pathID, if any.
func (g *Graph) Package(pathID strpool.ID) (*PackageInfo, bool) {
	p, ok := g.packages[pathID]
	return p, ok
}

// HasNode reports whether id exists in the graph.
func (g *Graph) HasNode(id NodeID) bool { return g.g.Node(id.Int64()) != nil }

// Dependencies returns the nodes id directly depends on (outgoing edges),
// in a deterministic order.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	it := g.g.From(id.Int64())
	var out []NodeID
	for it.Next() {
		out = append(out, NodeID(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dependents returns the nodes that directly depend on id (incoming
// edges), in a deterministic order.
func (g *Graph) Dependents(id NodeID) []NodeID {
	it := g.g.To(id.Int64())
	var out []NodeID
	for it.Next() {
		out = append(out, NodeID(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllNodes returns every node ID in the graph, in a deterministic order.
func (g *Graph) AllNodes() []NodeID {
	it := g.g.Nodes()
	var out []NodeID
	for it.Next() {
		out = append(out, NodeID(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Underlying exposes the backing gonum graph for algorithms (e.g.
// topo.TarjanSCC) that operate directly on graph.Directed.
func (g *Graph) Underlying() *simple.DirectedGraph { return g.g }

func sortedIDs(set map[NodeID]struct{}) []NodeID {
	out := make([]NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
