// Package coloring builds the adjacency graph over region polygons and
// colours it so that neighbouring regions never share a colour.
package coloring

import (
	"sort"

	"github.com/rotisserie/eris"
)

var (
	// ErrLoop is returned when an edge would connect a node to itself.
	ErrLoop = eris.New("coloring: self-loop not allowed")
	// ErrNodeRange is returned for a node index outside 0..n-1.
	ErrNodeRange = eris.New("coloring: node index out of range")
	// ErrAsymmetric is returned when an adjacency list lacks its mirror entry.
	ErrAsymmetric = eris.New("coloring: adjacency is not symmetric")
	// ErrConflict is returned when two adjacent nodes share a colour.
	ErrConflict = eris.New("coloring: adjacent nodes share a colour")
)

// Graph is an undirected simple graph over the node indices 0..n-1. Every
// adjacency list is kept sorted and every edge is stored on both endpoints.
type Graph struct {
	adj [][]int
}

// NewGraph returns a graph with n isolated nodes.
func NewGraph(n int) *Graph {
	return &Graph{adj: make([][]int, n)}
}

// Len is the number of nodes.
func (g *Graph) Len() int { return len(g.adj) }

// AddEdge connects i and j. Adding an existing edge is a no-op.
func (g *Graph) AddEdge(i, j int) error {
	if i < 0 || j < 0 || i >= len(g.adj) || j >= len(g.adj) {
		return eris.Wrapf(ErrNodeRange, "edge (%d, %d) in graph of %d nodes", i, j, len(g.adj))
	}
	if i == j {
		return eris.Wrapf(ErrLoop, "node %d", i)
	}
	g.adj[i] = insertSorted(g.adj[i], j)
	g.adj[j] = insertSorted(g.adj[j], i)
	return nil
}

// HasEdge reports whether i and j are adjacent.
func (g *Graph) HasEdge(i, j int) bool {
	if i < 0 || i >= len(g.adj) {
		return false
	}
	ns := g.adj[i]
	k := sort.SearchInts(ns, j)
	return k < len(ns) && ns[k] == j
}

// Neighbors returns the sorted neighbours of i. The slice must not be modified.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Degree is the number of neighbours of i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// MaxDegree is the largest degree in the graph, 0 for an empty graph.
func (g *Graph) MaxDegree() int {
	var m int
	for _, ns := range g.adj {
		if len(ns) > m {
			m = len(ns)
		}
	}
	return m
}

// NumEdges counts undirected edges.
func (g *Graph) NumEdges() int {
	var n int
	for _, ns := range g.adj {
		n += len(ns)
	}
	return n / 2
}

// CheckSymmetric verifies the structural invariants: no loops, no
// duplicates, sorted lists and a mirror entry for every edge.
func (g *Graph) CheckSymmetric() error {
	for i, ns := range g.adj {
		for k, j := range ns {
			if j == i {
				return eris.Wrapf(ErrLoop, "node %d", i)
			}
			if k > 0 && ns[k-1] >= j {
				return eris.Errorf("coloring: adjacency of node %d is not strictly sorted", i)
			}
			if !g.HasEdge(j, i) {
				return eris.Wrapf(ErrAsymmetric, "edge (%d, %d)", i, j)
			}
		}
	}
	return nil
}

func insertSorted(s []int, v int) []int {
	k := sort.SearchInts(s, v)
	if k < len(s) && s[k] == v {
		return s
	}
	s = append(s, 0)
	copy(s[k+1:], s[k:])
	s[k] = v
	return s
}
