package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDependencies() *Dependencies {
	deps := NewDependencies()
	pkg := deps.Strings.Add("P1/B.cppl")
	a := deps.Strings.Add("P1/A.cppl")
	deps.PackageFilePathID = pkg
	deps.IsPublic = true
	deps.IsBodyOnly = false
	deps.DeclarationDependencies = []Declaration{{FilePathID: a}}
	deps.DefinitionDependencies = nil
	return deps
}

func TestDependenciesRoundTrip(t *testing.T) {
	deps := sampleDependencies()

	encoded, err := EncodeDependencies(deps)
	require.NoError(t, err)

	got, warnings, status := ReadDependencies(encoded)
	require.True(t, status.Ok(), status.Error())
	assert.Empty(t, warnings)

	assert.Equal(t, deps.IsPublic, got.IsPublic)
	assert.Equal(t, deps.IsBodyOnly, got.IsBodyOnly)

	wantPkg, _ := deps.Strings.Get(deps.PackageFilePathID)
	gotPkg, _ := got.Strings.Get(got.PackageFilePathID)
	assert.Equal(t, wantPkg, gotPkg)

	require.Len(t, got.DeclarationDependencies, 1)
	wantDep, _ := deps.Strings.Get(deps.DeclarationDependencies[0].FilePathID)
	gotDep, _ := got.Strings.Get(got.DeclarationDependencies[0].FilePathID)
	assert.Equal(t, wantDep, gotDep)
}

func TestDependenciesRoundTripDeterministic(t *testing.T) {
	deps := sampleDependencies()
	a, err := EncodeDependencies(deps)
	require.NoError(t, err)
	b, err := EncodeDependencies(deps)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(a, b, cmpopts.EquateComparable()))
}

func TestDependenciesBadSignature(t *testing.T) {
	_, _, status := ReadDependencies([]byte("XXXX"))
	assert.Equal(t, BadSignature, status.Kind)
}

func TestDependenciesTruncatedStream(t *testing.T) {
	encoded, err := EncodeDependencies(sampleDependencies())
	require.NoError(t, err)
	_, _, status := ReadDependencies(encoded[:len(encoded)-3])
	assert.Equal(t, TruncatedStream, status.Kind)
}

func TestDependenciesNormalizesUnnormalizedPaths(t *testing.T) {
	deps := NewDependencies()
	// "P1/./A.cppl" is not in normalized (clean) form.
	messy := deps.Strings.Add("P1/./A.cppl")
	deps.PackageFilePathID = messy

	encoded, err := EncodeDependencies(deps)
	require.NoError(t, err)

	got, warnings, status := ReadDependencies(encoded)
	require.True(t, status.Ok())
	require.NotEmpty(t, warnings)

	s, ok := got.Strings.Get(got.PackageFilePathID)
	require.True(t, ok)
	assert.Equal(t, "P1/A.cppl", s)
}

func TestDependenciesUnknownBlockSkipped(t *testing.T) {
	deps := sampleDependencies()
	encoded, err := EncodeDependencies(deps)
	require.NoError(t, err)

	// Graft an extra, unrecognized block onto the end; readers must skip it.
	extra := append([]byte{}, encoded...)
	extra = append(extra, 0xFF, 0xFF, 0xFF, 0xFF) // unknown block ID
	extra = append(extra, 0, 0, 0, 0)             // zero-length body

	got, _, status := ReadDependencies(extra)
	require.True(t, status.Ok(), status.Error())
	assert.Equal(t, deps.IsPublic, got.IsPublic)
}

func TestDeclASTMetaRoundTrip(t *testing.T) {
	meta := &DeclASTMeta{
		SourceHash:  HashBytes([]byte("source")),
		DeclASTHash: HashBytes([]byte("decl-ast")),
		FragmentsToSkip: []Fragment{
			{Start: 40, End: 55, Action: Skip},
			{Start: 90, End: 110, Action: ReplaceWithSemicolon},
			{Start: 160, End: 170, Action: PrefixWithExtern},
		},
	}

	encoded := EncodeDeclASTMeta(meta)
	got, status := ReadDeclASTMeta(encoded)
	require.True(t, status.Ok(), status.Error())

	assert.Equal(t, meta.SourceHash, got.SourceHash)
	assert.Equal(t, meta.DeclASTHash, got.DeclASTHash)
	assert.Equal(t, meta.FragmentsToSkip, got.FragmentsToSkip)
}

func TestDeclASTMetaBadSignature(t *testing.T) {
	_, status := ReadDeclASTMeta([]byte("short"))
	assert.Equal(t, BadSignature, status.Kind)
}

func TestDeclASTMetaTruncated(t *testing.T) {
	meta := &DeclASTMeta{FragmentsToSkip: []Fragment{{Start: 1, End: 2, Action: Skip}}}
	encoded := EncodeDeclASTMeta(meta)
	_, status := ReadDeclASTMeta(encoded[:len(encoded)-2])
	assert.Equal(t, TruncatedStream, status.Kind)
}

func TestDeclASTMetaEmpty(t *testing.T) {
	meta := &DeclASTMeta{}
	encoded := EncodeDeclASTMeta(meta)
	got, status := ReadDeclASTMeta(encoded)
	require.True(t, status.Ok())
	assert.Empty(t, got.FragmentsToSkip)
}
