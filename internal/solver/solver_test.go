package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/strpool"
)

func makeManifest(strings *strpool.Pool, pkg string, declDeps []string) *manifest.Dependencies {
	deps := manifest.NewDependencies()
	deps.PackageFilePathID = deps.Strings.Add(pkg)
	for _, d := range declDeps {
		deps.DeclarationDependencies = append(deps.DeclarationDependencies,
			manifest.Declaration{FilePathID: deps.Strings.Add(d)})
	}
	return deps
}

// TestSolveThreeUnitChain mirrors spec §8 scenario 1.
func TestSolveThreeUnitChain(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "A.cppl", nil))
	store.Insert(makeManifest(strings, "B.cppl", []string{"A.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)
	require.False(t, g.IsInvalid())

	solved := Solve(g)
	require.True(t, solved.Ok(), solved.Failure())

	aID, _ := strings.Lookup("A.cppl")
	bID, _ := strings.Lookup("B.cppl")
	aPkg, _ := g.Package(aID)
	bPkg, _ := g.Package(bID)

	// A is a root: its declaration has an explicit empty dependency list.
	assert.Empty(t, solved.Dependencies(aPkg.Declaration))

	// B's declaration depends directly (distance 1) on A's declaration.
	bDeclDeps := solved.Dependencies(bPkg.Declaration)
	require.Len(t, bDeclDeps, 1)
	assert.Equal(t, aPkg.Declaration, bDeclDeps[0].NodeID)
	assert.Equal(t, 1, bDeclDeps[0].Distance)

	// B's definition depends on its own declaration (distance 1) and
	// transitively on A's declaration (distance 2).
	bDefDeps := solved.Dependencies(bPkg.Definition)
	require.Len(t, bDefDeps, 2)
	assert.Equal(t, aPkg.Declaration, bDefDeps[0].NodeID)
	assert.Equal(t, 2, bDefDeps[0].Distance)
	assert.Equal(t, bPkg.Declaration, bDefDeps[1].NodeID)
	assert.Equal(t, 1, bDefDeps[1].Distance)
}

// TestSolveFanIn mirrors spec §8 scenario 2: two units share a common
// root dependency, each must see it exactly once with distance 1.
func TestSolveFanIn(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "Common.cppl", nil))
	store.Insert(makeManifest(strings, "A.cppl", []string{"Common.cppl"}))
	store.Insert(makeManifest(strings, "B.cppl", []string{"Common.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)
	solved := Solve(g)
	require.True(t, solved.Ok(), solved.Failure())

	commonID, _ := strings.Lookup("Common.cppl")
	commonPkg, _ := g.Package(commonID)

	for _, unit := range []string{"A.cppl", "B.cppl"} {
		id, _ := strings.Lookup(unit)
		pkg, _ := g.Package(id)
		deps := solved.Dependencies(pkg.Declaration)
		require.Len(t, deps, 1)
		assert.Equal(t, commonPkg.Declaration, deps[0].NodeID)
		assert.Equal(t, 1, deps[0].Distance)
	}
}

// TestSolveReconvergentDiamondKeepsAllTransitiveDeps exercises the "allow
// revisits" requirement of spec §4.4/§4.5 step 2: D depends on A, and A
// depends on both C and B, while C itself depends on B — so B is reached
// from D along two paths of different length (D->A->B, distance 2, and
// D->A->C->B, distance 3). Whichever order the dependents are first
// discovered in, D's final dependency list must keep the longest distance
// to B and must not drop C.
func TestSolveReconvergentDiamondKeepsAllTransitiveDeps(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "B.cppl", nil))
	store.Insert(makeManifest(strings, "C.cppl", []string{"B.cppl"}))
	store.Insert(makeManifest(strings, "A.cppl", []string{"C.cppl", "B.cppl"}))
	store.Insert(makeManifest(strings, "D.cppl", []string{"A.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)
	require.False(t, g.IsInvalid())

	solved := Solve(g)
	require.True(t, solved.Ok(), solved.Failure())

	byName := func(name string) depgraph.NodeID {
		id, _ := strings.Lookup(name)
		pkg, _ := g.Package(id)
		return pkg.Declaration
	}

	deps := solved.Dependencies(byName("D.cppl"))
	byNode := make(map[depgraph.NodeID]int, len(deps))
	for _, d := range deps {
		byNode[d.NodeID] = d.Distance
	}

	require.Contains(t, byNode, byName("A.cppl"))
	require.Contains(t, byNode, byName("B.cppl"))
	require.Contains(t, byNode, byName("C.cppl"))
	assert.Equal(t, 1, byNode[byName("A.cppl")])
	assert.Equal(t, 2, byNode[byName("C.cppl")])
	assert.Equal(t, 3, byNode[byName("B.cppl")])
}

// TestSolveCycle mirrors spec §8 scenario 3: A declares a dependency on
// B's declaration and B declares a dependency on A's declaration.
func TestSolveCycle(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "A.cppl", []string{"B.cppl"}))
	store.Insert(makeManifest(strings, "B.cppl", []string{"A.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)

	// Neither A nor B has an empty declaration-dependency list, so the
	// graph itself is already invalid (no roots).
	assert.True(t, g.IsInvalid())

	solved := Solve(g)
	assert.False(t, solved.Ok())
	assert.Contains(t, solved.Failure(), "isolated cycles")
}

// TestSolveCycleReachableFromRoot mirrors spec §8 scenario 3's "chain"
// framing directly: A and B cycle back on each other, but A also reaches
// a root, so the pair is found *while* propagating distances rather than
// left behind as an isolated island — exercising the "Found cycles: "
// chain-rendering path instead of the "Found isolated cycles." one.
func TestSolveCycleReachableFromRoot(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "Root.cppl", nil))
	store.Insert(makeManifest(strings, "A.cppl", []string{"Root.cppl", "B.cppl"}))
	store.Insert(makeManifest(strings, "B.cppl", []string{"A.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)
	require.False(t, g.IsInvalid())

	solved := Solve(g)
	require.False(t, solved.Ok())
	assert.Contains(t, solved.Failure(), "Found cycles")
	assert.Contains(t, solved.Failure(), "depends on")
}

// TestSolveIsolatedIsland mirrors spec §8 scenario 4: a cyclic pair with
// no path from any root, alongside an otherwise healthy chain.
func TestSolveIsolatedIsland(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "Root.cppl", nil))
	store.Insert(makeManifest(strings, "X.cppl", []string{"Y.cppl"}))
	store.Insert(makeManifest(strings, "Y.cppl", []string{"X.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)
	require.False(t, g.IsInvalid()) // Root.cppl keeps the graph from being trivially invalid

	solved := Solve(g)
	assert.False(t, solved.Ok())
	assert.Equal(t, "Found isolated cycles.", solved.Failure())
}

func TestChainStringEmpty(t *testing.T) {
	assert.Equal(t, "(empty chain)", ChainString(nil, strpool.New(), nil))
}

func TestChainStringRendersOrder(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "A.cppl", nil))
	store.Insert(makeManifest(strings, "B.cppl", []string{"A.cppl"}))

	mainID := strings.Add("main.cpp")
	g := depgraph.Build(store, mainID)
	solved := Solve(g)
	require.True(t, solved.Ok())

	bID, _ := strings.Lookup("B.cppl")
	bPkg, _ := g.Package(bID)

	// B's definition depends on B's declaration (distance 1) and on A's
	// declaration (distance 2), so both paths appear in the chain.
	chain := ChainString(g, strings, solved.Dependencies(bPkg.Definition))
	assert.Equal(t, "B.cppl\ndepends on: A.cppl", chain)
	assert.Contains(t, chain, "B.cppl")
	assert.Contains(t, chain, "A.cppl")
	assert.Contains(t, chain, "depends on")
}
