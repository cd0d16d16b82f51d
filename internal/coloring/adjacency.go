package coloring

import (
	ctgeom "github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/config"
	"github.com/marekrost/mapa-psc/internal/planar"
)

// Predicate decides whether two region geometries are neighbours.
type Predicate func(a, b geom.T) bool

// PredicateFor returns the adjacency predicate configured by name.
// Tolerance only applies to touches_or_intersects.
func PredicateFor(name string, tolerance float64) (Predicate, error) {
	switch name {
	case config.PredicateIntersects:
		return planar.Intersects, nil
	case config.PredicateTouchesOrIntersects:
		return func(a, b geom.T) bool {
			return planar.TouchesOrIntersects(a, b, tolerance)
		}, nil
	default:
		return nil, eris.Errorf("coloring: unknown predicate %q", name)
	}
}

const boxEpsilon = 1e-6

// Adjacency builds the graph over geoms. Candidate pairs come from an R-tree
// over bounding boxes grown by margin; each candidate is then tested with
// pred. Empty geometries become isolated nodes.
func Adjacency(geoms []geom.T, pred Predicate, margin float64) *Graph {
	g := NewGraph(len(geoms))
	tree := rtree.NewTree(25, 50)
	boxes := make([]*ctgeom.Bounds, len(geoms))
	node := make(map[*ctgeom.Bounds]int, len(geoms))
	for i, gm := range geoms {
		// Half the margin on each side makes boxes within margin overlap;
		// boxEpsilon keeps exactly touching boxes in the candidate set.
		boxes[i] = planar.ExpandedBounds(gm, margin/2+boxEpsilon)
		if boxes[i] == nil {
			continue
		}
		node[boxes[i]] = i
		tree.Insert(boxes[i])
	}

	var tested int
	for i, b := range boxes {
		if b == nil {
			continue
		}
		for _, s := range tree.SearchIntersect(b) {
			box, ok := s.(*ctgeom.Bounds)
			if !ok {
				continue
			}
			j := node[box]
			if j <= i {
				continue
			}
			tested++
			if pred(geoms[i], geoms[j]) {
				// Indices are in range and distinct, AddEdge cannot fail.
				_ = g.AddEdge(i, j)
			}
		}
	}
	zap.L().Debug("coloring: adjacency built",
		zap.String("component", "coloring"),
		zap.Int("nodes", g.Len()),
		zap.Int("candidates", tested),
		zap.Int("edges", g.NumEdges()),
	)
	return g
}
