package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/strpool"
)

func makeManifest(strings *strpool.Pool, pkg string, declDeps []string, defDeps []string) *manifest.Dependencies {
	deps := manifest.NewDependencies()
	deps.PackageFilePathID = deps.Strings.Add(pkg)
	for _, d := range declDeps {
		deps.DeclarationDependencies = append(deps.DeclarationDependencies,
			manifest.Declaration{FilePathID: deps.Strings.Add(d)})
	}
	for _, d := range defDeps {
		deps.DefinitionDependencies = append(deps.DefinitionDependencies,
			manifest.Declaration{FilePathID: deps.Strings.Add(d)})
	}
	return deps
}

// TestBuildThreeUnitChain mirrors spec §8 scenario 1: main -> B -> A, a
// straight chain with A as the sole root.
func TestBuildThreeUnitChain(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "A.cppl", nil, nil))
	store.Insert(makeManifest(strings, "B.cppl", []string{"A.cppl"}, nil))

	mainID := strings.Add("main.cpp")
	g := Build(store, mainID)

	require.False(t, g.IsInvalid())

	aID, _ := strings.Lookup("A.cppl")
	bID, _ := strings.Lookup("B.cppl")

	aPkg, ok := g.Package(aID)
	require.True(t, ok)
	bPkg, ok := g.Package(bID)
	require.True(t, ok)

	// A has no declaration dependencies, so its declaration node is a root.
	assert.Contains(t, g.Roots(), aPkg.Declaration)
	assert.NotContains(t, g.Roots(), bPkg.Declaration)

	// B's declaration depends on A's declaration.
	assert.Contains(t, g.Dependencies(bPkg.Declaration), aPkg.Declaration)

	// Every definition depends on its own declaration.
	assert.Contains(t, g.Dependencies(aPkg.Definition), aPkg.Declaration)
	assert.Contains(t, g.Dependencies(bPkg.Definition), bPkg.Declaration)

	mainPkg, ok := g.Package(mainID)
	require.True(t, ok)
	assert.True(t, mainPkg.IsMainFile)
}

// TestBuildFanIn mirrors spec §8 scenario 2: two units both depend on the
// same root declaration.
func TestBuildFanIn(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "Common.cppl", nil, nil))
	store.Insert(makeManifest(strings, "A.cppl", []string{"Common.cppl"}, nil))
	store.Insert(makeManifest(strings, "B.cppl", []string{"Common.cppl"}, nil))

	mainID := strings.Add("main.cpp")
	g := Build(store, mainID)
	require.False(t, g.IsInvalid())

	commonID, _ := strings.Lookup("Common.cppl")
	commonPkg, _ := g.Package(commonID)

	assert.Len(t, g.Dependents(commonPkg.Declaration), 2)
}

// TestDeclarationTerminalsWireToMain verifies that declaration nodes with
// no dependent declaration become dependencies of the main unit's
// definition node.
func TestDeclarationTerminalsWireToMain(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "A.cppl", nil, nil))

	mainID := strings.Add("main.cpp")
	g := Build(store, mainID)

	aID, _ := strings.Lookup("A.cppl")
	aPkg, _ := g.Package(aID)
	mainPkg, _ := g.Package(mainID)

	assert.Contains(t, g.DeclarationTerminals(), aPkg.Declaration)
	assert.Contains(t, g.Dependencies(mainPkg.Definition), aPkg.Declaration)
}

func TestNodeIDPackUnpackRoundTrip(t *testing.T) {
	for _, kind := range []Kind{Declaration, Definition} {
		for _, pathID := range []strpool.ID{0, 1, 42, 1 << 30} {
			id := Pack(kind, pathID)
			gotKind, gotPathID := id.Unpack()
			assert.Equal(t, kind, gotKind)
			assert.Equal(t, pathID, gotPathID)
		}
	}
}

func TestNodeIDDistinctByKind(t *testing.T) {
	decl := Pack(Declaration, 7)
	def := Pack(Definition, 7)
	assert.NotEqual(t, decl, def)
}

// TestBuildKeepsMainDefinitionOnlyWhenInsertedIntoStore mirrors
// internal/driver's solve phase, which inserts the main unit's own
// manifest into the store (so Build can look up its definition
// dependencies) alongside every regular unit's. Build must still give
// main only a Definition node: it must not pick up a Declaration node
// (and, transitively, a spurious declaration-terminal build task) just
// because its manifest happens to be in the store like everyone else's
// (spec §3/§4.4 step 5).
func TestBuildKeepsMainDefinitionOnlyWhenInsertedIntoStore(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	store.Insert(makeManifest(strings, "A.cppl", nil, nil))
	store.Insert(makeManifest(strings, "main.cpp", nil, []string{"A.cppl"}))

	mainID, ok := strings.Lookup("main.cpp")
	require.True(t, ok)

	g := Build(store, mainID)
	require.False(t, g.IsInvalid())

	mainPkg, ok := g.Package(mainID)
	require.True(t, ok)
	assert.True(t, mainPkg.IsMainFile)

	assert.False(t, g.HasNode(Pack(Declaration, mainID)))
	assert.NotContains(t, g.DeclarationTerminals(), Pack(Declaration, mainID))

	aID, _ := strings.Lookup("A.cppl")
	aPkg, _ := g.Package(aID)
	assert.Contains(t, g.Dependencies(mainPkg.Definition), aPkg.Declaration)
}

func TestEmptyStoreProducesNoInvalidGraph(t *testing.T) {
	strings := strpool.New()
	store := depstore.New(strings)
	mainID := strings.Add("main.cpp")
	g := Build(store, mainID)
	assert.False(t, g.IsInvalid())
}
