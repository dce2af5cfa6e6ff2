// SPDX-License-Identifier: MIT

package core

import (
	"fmt"
	"sort"
)

// edgeIDFormat zero-pads edge IDs so string order matches insertion order.
const edgeIDFormat = "e%08d"

// AddVertex inserts a vertex with the given ID.
// Returns ErrEmptyVertexID if id is empty; an existing vertex is a no-op.
// Complexity: O(1) amortized.
func (g *Graph) AddVertex(id string) error {
	if id == "" {
		return ErrEmptyVertexID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addVertexLocked(id)

	return nil
}

func (g *Graph) addVertexLocked(id string) {
	if _, ok := g.vertices[id]; ok {
		return
	}
	g.vertices[id] = struct{}{}
}

// HasVertex reports whether a vertex with the given ID exists.
// Complexity: O(1).
func (g *Graph) HasVertex(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.vertices[id]

	return ok
}

// AddEdge creates an edge from → to, adding missing endpoints, and returns
// its ID. Returns ErrEmptyVertexID or ErrLoopNotAllowed.
// Complexity: O(1) amortized.
func (g *Graph) AddEdge(from, to string) (string, error) {
	// 1) Input validation
	if from == "" || to == "" {
		return "", ErrEmptyVertexID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// 2) Loop constraint
	if from == to && !g.allowLoops {
		return "", ErrLoopNotAllowed
	}
	// 3) Ensure both endpoints exist (idempotent)
	g.addVertexLocked(from)
	g.addVertexLocked(to)

	// 4) Store the edge; undirected edges are mirrored except loops
	g.nextEdgeID++
	e := &Edge{ID: fmt.Sprintf(edgeIDFormat, g.nextEdgeID), From: from, To: to, Directed: g.directed}
	g.edges[e.ID] = e
	g.adjacency[from] = append(g.adjacency[from], e.ID)
	if !e.Directed && from != to {
		g.adjacency[to] = append(g.adjacency[to], e.ID)
	}

	return e.ID, nil
}

// Neighbors returns the edges leaving id (both directions for undirected
// edges), sorted by edge ID.
// Complexity: O(d log d), where d is the number of incident edges.
func (g *Graph) Neighbors(id string) ([]*Edge, error) {
	if id == "" {
		return nil, ErrEmptyVertexID
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.vertices[id]; !ok {
		return nil, ErrVertexNotFound
	}

	out := make([]*Edge, 0, len(g.adjacency[id]))
	for _, eid := range g.adjacency[id] {
		out = append(out, g.edges[eid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// Vertices returns all vertex IDs sorted ascending.
// Complexity: O(V log V).
func (g *Graph) Vertices() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// EdgeCount returns the number of stored edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.edges)
}

// VertexCount returns the number of stored vertices.
func (g *Graph) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.vertices)
}
