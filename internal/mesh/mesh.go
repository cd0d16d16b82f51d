// Package mesh builds Delaunay triangulations of address points and turns
// filtered triangle subsets back into polygons.
package mesh

import (
	"math"
	"sort"

	"github.com/fogleman/delaunay"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
)

var (
	// ErrDegenerate is returned when the points admit no triangle.
	ErrDegenerate = eris.New("mesh: degenerate triangulation")
	// ErrEmpty is returned when a filter keeps no triangle.
	ErrEmpty = eris.New("mesh: no triangles kept")
)

// Mesh is a Delaunay triangulation over distinct points. Triangles are
// counter-clockwise index triples into Points.
type Mesh struct {
	Points    []region.Point
	Triangles [][3]int
	index     []int
}

// Triangulate deduplicates points and triangulates them. Zero-area
// triangles are dropped.
func Triangulate(points []region.Point) (*Mesh, error) {
	index := make([]int, len(points))
	seen := make(map[region.Point]int, len(points))
	uniq := make([]region.Point, 0, len(points))
	for i, p := range points {
		if j, ok := seen[p]; ok {
			index[i] = j
			continue
		}
		seen[p] = len(uniq)
		index[i] = len(uniq)
		uniq = append(uniq, p)
	}
	if len(uniq) < 3 {
		return nil, eris.Wrapf(ErrDegenerate, "%d distinct points", len(uniq))
	}

	dpts := make([]delaunay.Point, len(uniq))
	for i, p := range uniq {
		dpts[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	tri, err := delaunay.Triangulate(dpts)
	if err != nil {
		return nil, eris.Wrapf(ErrDegenerate, "triangulate: %v", err)
	}

	m := &Mesh{Points: uniq, index: index}
	for t := 0; t+2 < len(tri.Triangles); t += 3 {
		a, b, c := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		area2 := cross(uniq[a], uniq[b], uniq[c])
		longest := math.Max(dist(uniq[a], uniq[b]), math.Max(dist(uniq[b], uniq[c]), dist(uniq[c], uniq[a])))
		if math.Abs(area2) <= 1e-12*longest*longest {
			continue
		}
		if area2 < 0 {
			b, c = c, b
		}
		m.Triangles = append(m.Triangles, [3]int{a, b, c})
	}
	if len(m.Triangles) == 0 {
		return nil, eris.Wrap(ErrDegenerate, "all triangles are flat")
	}
	return m, nil
}

// Index maps the i-th input point to its index in Points.
func (m *Mesh) Index(i int) int {
	return m.index[i]
}

// LongestEdge returns the longest edge length of triangle t.
func (m *Mesh) LongestEdge(t int) float64 {
	a, b, c := m.vertices(t)
	return math.Max(dist(a, b), math.Max(dist(b, c), dist(c, a)))
}

// Circumcircle returns the circumcentre and circumradius of triangle t.
func (m *Mesh) Circumcircle(t int) (region.Point, float64) {
	a, b, c := m.vertices(t)
	center := circumcenter(a, b, c)
	return center, dist(center, a)
}

// KeepShortEdges returns the triangles whose longest edge does not exceed maxEdge.
func (m *Mesh) KeepShortEdges(maxEdge float64) []int {
	var keep []int
	for t := range m.Triangles {
		if m.LongestEdge(t) <= maxEdge {
			keep = append(keep, t)
		}
	}
	return keep
}

// KeepCircumradius returns the triangles whose circumradius does not exceed
// alpha. Their union is the alpha shape of the points.
func (m *Mesh) KeepCircumradius(alpha float64) []int {
	var keep []int
	for t := range m.Triangles {
		if _, r := m.Circumcircle(t); r <= alpha {
			keep = append(keep, t)
		}
	}
	return keep
}

// All returns every triangle index.
func (m *Mesh) All() []int {
	keep := make([]int, len(m.Triangles))
	for t := range keep {
		keep[t] = t
	}
	return keep
}

// Edge is an undirected mesh edge between points A < B with the triangles on
// either side. T2 is -1 for an edge on the hull.
type Edge struct {
	A, B   int
	T1, T2 int
}

// Edges lists every mesh edge sorted by (A, B).
func (m *Mesh) Edges() []Edge {
	byKey := make(map[[2]int]int, len(m.Triangles)*2)
	var edges []Edge
	for t, tri := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := tri[k], tri[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if i, ok := byKey[key]; ok {
				edges[i].T2 = t
				continue
			}
			byKey[key] = len(edges)
			edges = append(edges, Edge{A: a, B: b, T1: t, T2: -1})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// Outline unions the kept triangles by tracing their boundary. Edges used by
// exactly one kept triangle form rings; rings wind counter-clockwise around
// filled area and clockwise around holes, so interior gaps left by removed
// triangles become holes.
func (m *Mesh) Outline(keep []int) (geom.T, error) {
	if len(keep) == 0 {
		return nil, ErrEmpty
	}

	directed := make(map[[2]int]struct{}, len(keep)*3)
	for _, t := range keep {
		tri := m.Triangles[t]
		for k := 0; k < 3; k++ {
			directed[[2]int{tri[k], tri[(k+1)%3]}] = struct{}{}
		}
	}

	var boundary [][2]int
	outgoing := make(map[int][]int)
	for e := range directed {
		if _, twin := directed[[2]int{e[1], e[0]}]; twin {
			continue
		}
		boundary = append(boundary, e)
		outgoing[e[0]] = append(outgoing[e[0]], e[1])
	}
	sort.Slice(boundary, func(i, j int) bool {
		if boundary[i][0] != boundary[j][0] {
			return boundary[i][0] < boundary[j][0]
		}
		return boundary[i][1] < boundary[j][1]
	})

	used := make(map[[2]int]bool, len(boundary))
	var rings [][]float64
	for _, start := range boundary {
		if used[start] {
			continue
		}
		ring, err := m.trace(start, outgoing, used, len(boundary))
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}

	g := planar.AssembleRings(rings)
	if planar.IsEmpty(g) {
		return nil, ErrEmpty
	}
	return g, nil
}

// trace follows boundary edges from start until it returns to the start
// vertex. At a vertex with several unused outgoing edges it takes the one
// reached first when turning clockwise from the incoming edge, which keeps
// each ring on the same fan of triangles.
func (m *Mesh) trace(start [2]int, outgoing map[int][]int, used map[[2]int]bool, limit int) ([]float64, error) {
	first := start[0]
	p := m.Points[first]
	flat := []float64{p.X, p.Y}
	cur := start
	for steps := 0; steps < limit; steps++ {
		used[cur] = true
		v := cur[1]
		pv := m.Points[v]
		flat = append(flat, pv.X, pv.Y)
		if v == first {
			return flat, nil
		}

		prev := m.Points[cur[0]]
		in := math.Atan2(prev.Y-pv.Y, prev.X-pv.X)
		next, best := -1, math.Inf(1)
		for _, w := range outgoing[v] {
			if used[[2]int{v, w}] {
				continue
			}
			pw := m.Points[w]
			turn := in - math.Atan2(pw.Y-pv.Y, pw.X-pv.X)
			for turn <= 0 {
				turn += 2 * math.Pi
			}
			for turn > 2*math.Pi {
				turn -= 2 * math.Pi
			}
			if turn < best {
				next, best = w, turn
			}
		}
		if next < 0 {
			return nil, eris.Wrapf(ErrDegenerate, "open boundary at point %d", v)
		}
		cur = [2]int{v, next}
	}
	return nil, eris.Wrap(ErrDegenerate, "boundary trace did not close")
}

func (m *Mesh) vertices(t int) (region.Point, region.Point, region.Point) {
	tri := m.Triangles[t]
	return m.Points[tri[0]], m.Points[tri[1]], m.Points[tri[2]]
}

func cross(a, b, c region.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func dist(a, b region.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// circumcenter is computed relative to a to keep precision for projected
// coordinates in the hundreds of kilometres.
func circumcenter(a, b, c region.Point) region.Point {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	return region.Point{
		X: a.X + (cy*b2-by*c2)/d,
		Y: a.Y + (bx*c2-cx*b2)/d,
	}
}

// Circumcenter exposes the circumcentre of triangle t for Voronoi vertices.
func (m *Mesh) Circumcenter(t int) region.Point {
	a, b, c := m.vertices(t)
	return circumcenter(a, b, c)
}
