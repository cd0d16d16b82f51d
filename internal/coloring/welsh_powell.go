package coloring

import (
	"sort"

	"github.com/rotisserie/eris"
)

// WelshPowell colours g greedily. Nodes are visited by descending degree,
// ties in index order, and each takes the smallest colour none of its
// already coloured neighbours uses. The result uses at most MaxDegree()+1
// colours.
func WelshPowell(g *Graph) []int {
	n := g.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return g.Degree(order[a]) > g.Degree(order[b])
	})

	colors := make([]int, n)
	for i := range colors {
		colors[i] = -1
	}
	used := make([]bool, g.MaxDegree()+1)
	for _, v := range order {
		for k := range used {
			used[k] = false
		}
		for _, u := range g.Neighbors(v) {
			if c := colors[u]; c >= 0 && c < len(used) {
				used[c] = true
			}
		}
		c := 0
		for c < len(used) && used[c] {
			c++
		}
		colors[v] = c
	}
	return colors
}

// Verify checks that every node is coloured and no edge joins two nodes of
// the same colour.
func Verify(g *Graph, colors []int) error {
	if len(colors) != g.Len() {
		return eris.Errorf("coloring: %d colours for %d nodes", len(colors), g.Len())
	}
	for i := 0; i < g.Len(); i++ {
		if colors[i] < 0 {
			return eris.Errorf("coloring: node %d is uncoloured", i)
		}
		for _, j := range g.Neighbors(i) {
			if j > i && colors[i] == colors[j] {
				return eris.Wrapf(ErrConflict, "nodes %d and %d share colour %d", i, j, colors[i])
			}
		}
	}
	return nil
}

// Distribution counts nodes per colour, indexed by colour.
func Distribution(colors []int) []int {
	var dist []int
	for _, c := range colors {
		if c < 0 {
			continue
		}
		for len(dist) <= c {
			dist = append(dist, 0)
		}
		dist[c]++
	}
	return dist
}
