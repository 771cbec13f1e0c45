// Package solver computes, for every declaration node reachable from the
// graph's roots, the full transitively-closed and distance-ranked set of
// declaration dependencies it must see before it can be compiled (spec
// component C5).
package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/strpool"
)

// Dependency is one entry of a node's full, distance-ranked dependency
// list: NodeID is a transitive dependency and Distance is the length of
// the longest dependency chain from the owning node to it.
type Dependency struct {
	NodeID   depgraph.NodeID
	Distance int
}

// Solved holds, for every node the walk reached, its full dependency list
// sorted by descending distance (farthest first) — matching the order the
// original decl/object generation phase consumes them in.
type Solved struct {
	Graph *depgraph.Graph

	deps map[depgraph.NodeID][]Dependency

	// set only on failure; Ok() is false whenever non-empty.
	failure string
}

// Ok reports whether Solve succeeded. On failure, callers should consult
// Failure() for a human-readable diagnosis.
func (s *Solved) Ok() bool { return s.failure == "" }

// Failure returns the diagnostic message set when Solve could not
// complete ("Found cycles: " followed by the offending chain, or "Found
// isolated cycles."), or "" on success.
func (s *Solved) Failure() string { return s.failure }

// Dependencies returns id's full, distance-sorted dependency list (empty,
// not nil, for roots and for unknown IDs).
func (s *Solved) Dependencies(id depgraph.NodeID) []Dependency {
	if deps, ok := s.deps[id]; ok {
		return deps
	}
	return []Dependency{}
}

// Solve runs the breadth-first distance-ranking walk described in spec
// §4.5: starting from g's roots, it propagates each node's resolved
// dependency set to its dependents, incrementing distance by one hop and
// keeping the maximum distance whenever a node is reachable by more than
// one path. A node can be reached along paths of different lengths
// depending on traversal order, so the walk allows revisits (spec
// §4.4/§4.5 step 2): a dependent is re-queued whenever merging in an
// upstream set actually changes its distance map, and the walk only
// settles once every reachable node's map has stopped changing. A
// self-reference appearing during a merge means a cycle was found and
// reported through the returned Solved's Failure(); any node the walk
// never reaches (because it sits in a cycle disconnected from all roots)
// makes it an "isolated cycle" failure instead.
func Solve(g *depgraph.Graph) *Solved {
	s := &Solved{Graph: g, deps: make(map[depgraph.NodeID][]Dependency)}

	full := make(map[depgraph.NodeID]map[depgraph.NodeID]int)
	processed := make(map[depgraph.NodeID]struct{})

	queue := append([]depgraph.NodeID(nil), g.Roots()...)
	queued := make(map[depgraph.NodeID]bool, len(queue))
	for _, id := range queue {
		queued[id] = true
	}

	var (
		failed  bool
		cycleAt depgraph.NodeID
	)

outer:
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false
		processed[id] = struct{}{}

		current := full[id]

		for _, dependent := range g.Dependents(id) {
			next, ok := full[dependent]
			if !ok {
				next = make(map[depgraph.NodeID]int)
				full[dependent] = next
			}

			changed := merge(next, current, id)

			if _, isCycle := next[dependent]; isCycle {
				cycleAt = dependent
				failed = true
				break outer
			}

			if changed && !queued[dependent] {
				queue = append(queue, dependent)
				queued[dependent] = true
			}
		}
	}

	if failed {
		s.failure = fmt.Sprintf("Found cycles: %s", describeChain(g, full, cycleAt))
		return s
	}

	for _, id := range g.AllNodes() {
		if _, ok := processed[id]; !ok {
			s.failure = "Found isolated cycles."
			return s
		}
	}

	// Roots get an explicit empty dependency list so downstream phases
	// always find a manifest to read (spec §4.5 final step).
	for _, root := range g.Roots() {
		if _, ok := full[root]; !ok {
			full[root] = make(map[depgraph.NodeID]int)
		}
	}

	for id, m := range full {
		s.deps[id] = sortedDependencies(m)
	}

	return s
}

// merge folds prev (the dependency set already resolved for the upstream
// node) plus the direct edge (dependencyID, distance 1) into dest,
// keeping the larger distance whenever a node is already present, and
// reports whether dest was actually modified.
func merge(dest, prev map[depgraph.NodeID]int, dependencyID depgraph.NodeID) bool {
	changed := false
	for id, distance := range prev {
		if insertOrMax(dest, id, distance+1) {
			changed = true
		}
	}
	if insertOrMax(dest, dependencyID, 1) {
		changed = true
	}
	return changed
}

func insertOrMax(dest map[depgraph.NodeID]int, id depgraph.NodeID, distance int) bool {
	if existing, ok := dest[id]; !ok || distance > existing {
		dest[id] = distance
		return true
	}
	return false
}

func sortedDependencies(m map[depgraph.NodeID]int) []Dependency {
	out := make([]Dependency, 0, len(m))
	for id, dist := range m {
		out = append(out, Dependency{NodeID: id, Distance: dist})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance > out[j].Distance
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

// describeChain renders a human-readable dependency chain ending at
// cycleAt, farthest node first, for cycle diagnostics (spec §8
// scenario 3). Each node is rendered by NodeID.String, as its numeric
// path ID and kind; unit path names are not looked up.
func describeChain(g *depgraph.Graph, full map[depgraph.NodeID]map[depgraph.NodeID]int, cycleAt depgraph.NodeID) string {
	chain := sortedDependencies(full[cycleAt])
	if len(chain) == 0 {
		return cycleAt.String()
	}

	var b strings.Builder
	b.WriteString(chain[0].NodeID.String())
	for i := 1; i < len(chain); i++ {
		b.WriteString(" depends on ")
		b.WriteString(chain[i].NodeID.String())
	}
	return b.String()
}

// ChainString renders deps (as returned by Dependencies) as the
// human-readable "depends on" chain written to each unit's "fulld" dump,
// nearest dependency first, resolving each node's package path through
// strings.
func ChainString(g *depgraph.Graph, strings_ *strpool.Pool, deps []Dependency) string {
	if len(deps) == 0 {
		return "(empty chain)"
	}

	name := func(id depgraph.NodeID) string {
		_, pathID := id.Unpack()
		if s, ok := strings_.Get(pathID); ok {
			return s
		}
		return id.String()
	}

	var b strings.Builder
	b.WriteString(name(deps[len(deps)-1].NodeID))
	for i := len(deps) - 2; i >= 0; i-- {
		b.WriteString("\ndepends on: ")
		b.WriteString(name(deps[i].NodeID))
	}
	return b.String()
}
