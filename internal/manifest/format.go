// Package manifest implements the bit-exact, self-describing
// block-structured binary formats used to persist per-unit dependency
// manifests (magic "LDEP") and decl-AST metadata (magic "LMET") — spec
// component C2. Both formats share the same low-level block/record
// envelope: a 4-byte magic, a block-info abbreviation table documenting
// the width class of every record kind, and a sequence of length-prefixed
// blocks, each holding length-prefixed records. Because every block and
// every record carries its own byte length, a reader can skip blocks and
// records it does not recognize without understanding their payload.
package manifest

import "fmt"

// Magic values identify which of the two formats a stream holds.
var (
	MagicDependencies = [4]byte{'L', 'D', 'E', 'P'}
	MagicDeclASTMeta  = [4]byte{'L', 'M', 'E', 'T'}
)

// Width classes documented in the block-info abbreviation table. They are
// advisory for readers (skip logic uses the explicit record length prefix
// regardless of width class) but pin down the intended shape of each
// record kind, matching the "width codes are fixed per record kind"
// requirement.
type widthClass uint8

const (
	widthVarBytes widthClass = iota // length-prefixed blob
	widthFixed4                     // single uint32
	widthFixed8                     // fixed-size pair; its one user, the LDEP top-fields record, holds two one-byte flags
	widthTriple                     // {uint32, uint32, uint8}
)

// Block IDs for the dependency-manifest (LDEP) format.
const (
	blockStrings uint32 = iota + 1
	blockTopFields
	blockDeclDeps
	blockDefDeps
)

// Record IDs within LDEP blocks.
const (
	recString uint8 = 1
	recTopFields uint8 = 1
	recDependency uint8 = 1
)

// Block IDs for the decl-AST metadata (LMET) format.
const (
	blockHashes uint32 = iota + 1
	blockFragments
)

// Record IDs within LMET blocks.
const (
	recSourceHash  uint8 = 1
	recDeclASTHash uint8 = 2
	recFragment    uint8 = 1
)

// FragmentAction names how a skip-fragment should be rewritten by the
// header synthesizer.
type FragmentAction uint8

const (
	Skip FragmentAction = iota
	ReplaceWithSemicolon
	PrefixWithExtern
)

func (a FragmentAction) String() string {
	switch a {
	case Skip:
		return "Skip"
	case ReplaceWithSemicolon:
		return "ReplaceWithSemicolon"
	case PrefixWithExtern:
		return "PrefixWithExtern"
	default:
		return fmt.Sprintf("FragmentAction(%d)", uint8(a))
	}
}

// blockInfoEntry documents one record kind for the abbreviation table.
type blockInfoEntry struct {
	BlockID  uint32
	RecordID uint8
	Width    widthClass
}

func dependenciesBlockInfo() []blockInfoEntry {
	return []blockInfoEntry{
		{blockStrings, recString, widthVarBytes},
		{blockTopFields, recTopFields, widthFixed8},
		{blockTopFields, recPackagePath, widthFixed4},
		{blockDeclDeps, recDependency, widthFixed4},
		{blockDefDeps, recDependency, widthFixed4},
	}
}

func declASTMetaBlockInfo() []blockInfoEntry {
	return []blockInfoEntry{
		{blockHashes, recSourceHash, widthVarBytes},
		{blockHashes, recDeclASTHash, widthVarBytes},
		{blockFragments, recFragment, widthTriple},
	}
}
