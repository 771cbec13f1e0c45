package depstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/strpool"
)

func makeManifest(pkg string, declDeps ...string) *manifest.Dependencies {
	deps := manifest.NewDependencies()
	deps.PackageFilePathID = deps.Strings.Add(pkg)
	for _, d := range declDeps {
		deps.DeclarationDependencies = append(deps.DeclarationDependencies,
			manifest.Declaration{FilePathID: deps.Strings.Add(d)})
	}
	return deps
}

func TestInsertAndGet(t *testing.T) {
	s := New(strpool.New())
	s.Insert(makeManifest("P1/A.cppl"))
	s.Insert(makeManifest("P1/B.cppl", "P1/A.cppl"))

	require.Equal(t, 2, s.Len())

	bID, ok := s.Strings().Lookup("P1/B.cppl")
	require.True(t, ok)
	b, ok := s.Get(bID)
	require.True(t, ok)

	aID, ok := s.Strings().Lookup("P1/A.cppl")
	require.True(t, ok)
	require.Len(t, b.DeclarationDependencies, 1)
	assert.Equal(t, aID, b.DeclarationDependencies[0])
}

func TestInsertDuplicatePanics(t *testing.T) {
	s := New(strpool.New())
	s.Insert(makeManifest("P1/A.cppl"))
	assert.Panics(t, func() {
		s.Insert(makeManifest("P1/A.cppl"))
	})
}

func TestInsertRemapsAcrossPools(t *testing.T) {
	s := New(strpool.New())
	m1 := makeManifest("P1/A.cppl")
	m2 := makeManifest("P1/B.cppl", "P1/A.cppl")
	// Each manifest originally has its own local pool with independent IDs.
	s.Insert(m1)
	s.Insert(m2)

	idA, _ := s.Strings().Lookup("P1/A.cppl")
	idB, _ := s.Strings().Lookup("P1/B.cppl")
	assert.NotEqual(t, idA, idB)
}
