// Package depgraph implements the bidirectional dependency graph over
// declaration and definition nodes, with a distinguished main-unit node
// (spec component C4). It is backed by gonum's directed graph — the same
// library the teacher uses for its package dependency graph
// (internal/batch/batch.go) — with the declaration/definition node split
// and NodeID packing layered on top.
package depgraph

import (
	"fmt"

	"github.com/levitation-build/levc/internal/strpool"
)

// Kind distinguishes a unit's declaration node from its definition node.
type Kind uint8

const (
	Declaration Kind = iota
	Definition
)

func (k Kind) String() string {
	if k == Declaration {
		return "DECL"
	}
	return "DEF"
}

// NodeID packs {kind:1 bit, path_id:63 bits} into a single uint64, per
// spec §3.
type NodeID uint64

const kindBits = 1

// Pack combines a kind and a path ID into a NodeID. Injective: distinct
// (kind, pathID) pairs always produce distinct NodeIDs, and Unpack(Pack(k,
// p)) == (k, p) for every valid (k, p).
func Pack(kind Kind, pathID strpool.ID) NodeID {
	const kindShift = 64 - kindBits
	pathMask := ^uint64(0) >> kindBits
	return NodeID((uint64(kind) << kindShift) | (uint64(pathID) & pathMask))
}

// Unpack splits a NodeID back into its kind and path ID.
func (id NodeID) Unpack() (Kind, strpool.ID) {
	const kindShift = 64 - kindBits
	kind := Kind(uint64(id) >> kindShift)
	pathMask := ^uint64(0) >> kindBits
	pathID := strpool.ID(uint64(id) & pathMask)
	return kind, pathID
}

// Int64 returns the bit pattern as an int64, the representation gonum's
// graph.Node interface requires. The conversion is a reinterpretation, not
// a truncation: Definition-kind IDs simply surface as negative int64s,
// which is immaterial since gonum only ever uses the value as an opaque
// map key.
func (id NodeID) Int64() int64 { return int64(id) }

func (id NodeID) String() string {
	kind, pathID := id.Unpack()
	return fmt.Sprintf("%d:%s", pathID, kind)
}

// gonumNode adapts a NodeID to gonum's graph.Node interface.
type gonumNode struct{ id NodeID }

func (n gonumNode) ID() int64 { return n.id.Int64() }
