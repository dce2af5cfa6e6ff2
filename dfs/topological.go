// Package dfs orders the vertices of a directed core.Graph.
//
// TopologicalSort computes a linear ordering of vertices such that for
// every directed edge u→v, u appears before v in the ordering.
// If the graph contains a cycle, a *CycleError (which wraps
// ErrCycleDetected) lists the vertices along it.
//
// Complexity:
//
//   - Time:   O(V + E) (each vertex and edge visited once)
//   - Memory: O(V)     (recursion stack and state map)
package dfs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/katalvlaran/lvfit/core"
)

// CycleError reports a dependency cycle. Path starts and ends at the same
// vertex, e.g. [f0.A f1.B f0.A].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return ErrCycleDetected.Error() + ": " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// topoSorter encapsulates state for a topological sort traversal.
type topoSorter struct {
	graph *core.Graph    // the graph being sorted
	opts  topoOptions    // traversal options (cancellation)
	state map[string]int // visitation state: White, Gray, Black
	order []string       // recorded post-order sequence
	stack []string       // vertices currently Gray, outermost first
}

// TopologicalSort computes a topological ordering of all vertices in g.
// Roots are visited in ascending ID order, so the result is deterministic.
// If g is nil, returns ErrGraphNil; if g is undirected, ErrUndirectedGraph.
// You may pass WithCancelContext(ctx) to enable cancellation.
func TopologicalSort(g *core.Graph, options ...TopoOption) ([]string, error) {
	// 1. Validate graph pointer and kind
	if g == nil {
		return nil, ErrGraphNil
	}
	if !g.Directed() {
		return nil, ErrUndirectedGraph
	}
	// 2. Apply optional settings
	opts := defaultTopoOptions()
	for _, opt := range options {
		opt(&opts)
	}
	// 3. Initialize sorter state
	verts := g.Vertices()
	sorter := &topoSorter{
		graph: g,
		opts:  opts,
		state: make(map[string]int, len(verts)),
		order: make([]string, 0, len(verts)),
	}
	// 4. Drive DFS from every unvisited vertex
	for _, v := range verts {
		if sorter.state[v] == White {
			if err := sorter.visit(v); err != nil {
				return nil, err
			}
		}
	}
	// 5. Reverse post-order to produce topological order
	for i, j := 0, len(sorter.order)-1; i < j; i, j = i+1, j-1 {
		sorter.order[i], sorter.order[j] = sorter.order[j], sorter.order[i]
	}

	return sorter.order, nil
}

// visit performs a DFS from id, marking states and detecting cycles.
func (t *topoSorter) visit(id string) error {
	// 1. Cancellation check at entry
	select {
	case <-t.opts.ctx.Done():
		return t.opts.ctx.Err()
	default:
	}
	// 2. Back-edge into the recursion stack closes a cycle
	switch t.state[id] {
	case Gray:
		i := slices.Index(t.stack, id)
		path := append(slices.Clone(t.stack[i:]), id)
		return &CycleError{Path: path}
	case Black:
		return nil
	}
	t.state[id] = Gray
	t.stack = append(t.stack, id)

	// 3. Explore each outgoing edge
	neighbors, err := t.graph.Neighbors(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNeighborFetch, err)
	}
	for _, e := range neighbors {
		if e.From != id {
			continue
		}
		if err = t.visit(e.To); err != nil {
			return err
		}
	}

	// 4. Mark as fully explored and record in post-order
	t.state[id] = Black
	t.stack = t.stack[:len(t.stack)-1]
	t.order = append(t.order, id)

	return nil
}
