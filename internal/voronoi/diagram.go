// Package voronoi tessellates the whole point set at once, closes the open
// cells on the hull, clips every cell and dissolves the cells by postal code.
package voronoi

import (
	"github.com/marekrost/mapa-psc/internal/mesh"
	"github.com/marekrost/mapa-psc/internal/region"
)

// Infinite marks a ridge end or region vertex at infinity.
const Infinite = -1

// Ridge separates the cells of two generating points. Vertices[1] is
// Infinite for an open ridge; Inner is then the third point of the triangle
// on the finite side of the ridge.
type Ridge struct {
	Points   [2]int
	Vertices [2]int
	Inner    int
}

// Open reports whether the ridge runs off to infinity.
func (r Ridge) Open() bool {
	return r.Vertices[1] == Infinite
}

// Diagram is the Voronoi dual of a Delaunay mesh. Vertices are triangle
// circumcenters; Regions lists, per point, the vertices of its cell and
// contains Infinite when the cell is unbounded.
type Diagram struct {
	Points   []region.Point
	Vertices []region.Point
	Ridges   []Ridge
	Regions  [][]int

	ridgesOf [][]int
}

// New derives the Voronoi diagram of m.
func New(m *mesh.Mesh) *Diagram {
	d := &Diagram{
		Points:   m.Points,
		Vertices: make([]region.Point, len(m.Triangles)),
		Regions:  make([][]int, len(m.Points)),
		ridgesOf: make([][]int, len(m.Points)),
	}
	for t, tri := range m.Triangles {
		d.Vertices[t] = m.Circumcenter(t)
		for _, p := range tri {
			d.Regions[p] = append(d.Regions[p], t)
		}
	}

	open := make([]bool, len(m.Points))
	for _, e := range m.Edges() {
		r := Ridge{Points: [2]int{e.A, e.B}, Vertices: [2]int{e.T1, e.T2}, Inner: Infinite}
		if e.T2 < 0 {
			r.Vertices[1] = Infinite
			r.Inner = third(m.Triangles[e.T1], e.A, e.B)
			open[e.A], open[e.B] = true, true
		}
		d.ridgesOf[e.A] = append(d.ridgesOf[e.A], len(d.Ridges))
		d.ridgesOf[e.B] = append(d.ridgesOf[e.B], len(d.Ridges))
		d.Ridges = append(d.Ridges, r)
	}
	for p, isOpen := range open {
		if isOpen {
			d.Regions[p] = append(d.Regions[p], Infinite)
		}
	}
	return d
}

// RidgesOf returns the indices of the ridges bounding point p's cell.
func (d *Diagram) RidgesOf(p int) []int {
	return d.ridgesOf[p]
}

// Bounded reports whether point p's cell is closed.
func (d *Diagram) Bounded(p int) bool {
	for _, v := range d.Regions[p] {
		if v == Infinite {
			return false
		}
	}
	return len(d.Regions[p]) > 0
}

func third(tri [3]int, a, b int) int {
	for _, v := range tri {
		if v != a && v != b {
			return v
		}
	}
	return Infinite
}
