// Package depstore collects per-unit dependency manifests into a single
// view keyed by unit path ID, remapped into one shared global string pool
// (spec component C3).
package depstore

import (
	"fmt"

	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/strpool"
)

// UnitDependencies is one unit's manifest, remapped into the store's
// global string pool.
type UnitDependencies struct {
	PackageFilePathID strpool.ID
	IsPublic          bool
	IsBodyOnly        bool

	DeclarationDependencies []strpool.ID
	DefinitionDependencies  []strpool.ID
}

// Store merges manifests loaded from distinct local string pools under one
// project-wide pool.
type Store struct {
	strings *strpool.Pool
	byUnit  map[strpool.ID]*UnitDependencies
	order   []strpool.ID // insertion order, for deterministic iteration
}

// New returns an empty store backed by strings, the project's global
// string pool.
func New(strings *strpool.Pool) *Store {
	return &Store{
		strings: strings,
		byUnit:  make(map[strpool.ID]*UnitDependencies),
	}
}

// Strings returns the store's shared global string pool.
func (s *Store) Strings() *strpool.Pool { return s.strings }

// Insert remaps deps' local string IDs into the store's global pool and
// records it under its (global) PackageFilePathID. Duplicate insertion of
// the same unit is an internal invariant violation — a logic error, not a
// recoverable failure — and panics, mirroring the original's
// "assert(...) && only one package can be created" contract.
func (s *Store) Insert(deps *manifest.Dependencies) {
	localToGlobal := make(map[strpool.ID]strpool.ID, deps.Strings.Len()+1)
	localToGlobal[strpool.Invalid] = strpool.Invalid
	for _, item := range deps.Strings.Items() {
		localToGlobal[item.ID] = s.strings.Add(item.Value)
	}

	globalPkgID := localToGlobal[deps.PackageFilePathID]

	if _, exists := s.byUnit[globalPkgID]; exists {
		panic(fmt.Sprintf("depstore: manifest already inserted for unit path id %d", globalPkgID))
	}

	remap := func(decls []manifest.Declaration) []strpool.ID {
		out := make([]strpool.ID, len(decls))
		for i, d := range decls {
			out[i] = localToGlobal[d.FilePathID]
		}
		return out
	}

	s.byUnit[globalPkgID] = &UnitDependencies{
		PackageFilePathID:       globalPkgID,
		IsPublic:                deps.IsPublic,
		IsBodyOnly:              deps.IsBodyOnly,
		DeclarationDependencies: remap(deps.DeclarationDependencies),
		DefinitionDependencies:  remap(deps.DefinitionDependencies),
	}
	s.order = append(s.order, globalPkgID)
}

// Get returns the unit's dependencies, if present.
func (s *Store) Get(unitPathID strpool.ID) (*UnitDependencies, bool) {
	u, ok := s.byUnit[unitPathID]
	return u, ok
}

// Units returns every inserted unit's global path ID, in insertion order.
func (s *Store) Units() []strpool.ID {
	out := make([]strpool.ID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of units in the store.
func (s *Store) Len() int { return len(s.byUnit) }
