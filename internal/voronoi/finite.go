package voronoi

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/marekrost/mapa-psc/internal/region"
)

// ErrNoCell is returned for a point whose cell cannot be closed, e.g. a point
// that only belongs to flat triangles.
var ErrNoCell = eris.New("voronoi: cell has fewer than three vertices")

// Finitizer closes unbounded cells. Every open ridge is extended from its
// finite vertex along the ridge normal facing away from Center until it meets
// the circle of Radius around Center. The wedge between the two far vertices
// of a cell is closed along that circle in steps of at most maxArcStep.
type Finitizer struct {
	Center region.Point
	Radius float64
}

// maxArcStep keeps every closing chord at least Radius*cos(pi/8) from Center.
const maxArcStep = math.Pi / 4

// NewFinitizer derives the far radius from the extent of the generating
// points, of the finite Voronoi vertices and of extra, typically the clip
// region, so synthesized edges always pass outside it.
func NewFinitizer(d *Diagram, extra *geom.Bounds) Finitizer {
	var f Finitizer
	if len(d.Points) == 0 {
		return Finitizer{Radius: 1}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range d.Points {
		f.Center.X += p.X
		f.Center.Y += p.Y
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	f.Center.X /= float64(len(d.Points))
	f.Center.Y /= float64(len(d.Points))
	if extra != nil && !extra.IsEmpty() {
		minX, maxX = math.Min(minX, extra.Min(0)), math.Max(maxX, extra.Max(0))
		minY, maxY = math.Min(minY, extra.Min(1)), math.Max(maxY, extra.Max(1))
	}
	reach := math.Max(maxX-minX, maxY-minY)
	for _, v := range d.Vertices {
		reach = math.Max(reach, math.Hypot(v.X-f.Center.X, v.Y-f.Center.Y))
	}
	f.Radius = 2 * reach
	if f.Radius <= 0 {
		f.Radius = 1
	}
	return f
}

// Vertices returns the vertices of point p's cell, closed at infinity and
// sorted counter-clockwise by angle around their mean.
func (f Finitizer) Vertices(d *Diagram, p int) []region.Point {
	verts := make([]region.Point, 0, len(d.Regions[p])+4)
	for _, v := range d.Regions[p] {
		if v != Infinite {
			verts = append(verts, d.Vertices[v])
		}
	}
	var far []region.Point
	for _, ri := range d.RidgesOf(p) {
		r := d.Ridges[ri]
		if !r.Open() {
			continue
		}
		far = append(far, f.farVertex(d, r))
	}
	verts = append(verts, far...)
	if len(far) == 2 {
		verts = append(verts, f.arc(d, p, far[0], far[1])...)
	}
	return sortByAngle(verts)
}

// Polygon returns point p's cell as a closed counter-clockwise polygon.
func (f Finitizer) Polygon(d *Diagram, p int) (*geom.Polygon, error) {
	verts := f.Vertices(d, p)
	if len(verts) < 3 {
		return nil, eris.Wrapf(ErrNoCell, "point %d", p)
	}
	flat := make([]float64, 0, 2*len(verts)+2)
	for _, v := range verts {
		flat = append(flat, v.X, v.Y)
	}
	flat = append(flat, verts[0].X, verts[0].Y)
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}), nil
}

func (f Finitizer) farVertex(d *Diagram, r Ridge) region.Point {
	a, b := d.Points[r.Points[0]], d.Points[r.Points[1]]
	tx, ty := b.X-a.X, b.Y-a.Y
	l := math.Hypot(tx, ty)
	nx, ny := -ty/l, tx/l
	mid := region.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}

	side := (mid.X-f.Center.X)*nx + (mid.Y-f.Center.Y)*ny
	if math.Abs(side) <= 1e-9*f.Radius && r.Inner != Infinite {
		// Centroid on the ridge line: face away from the triangle instead.
		in := d.Points[r.Inner]
		side = (mid.X-in.X)*nx + (mid.Y-in.Y)*ny
	}
	if side < 0 {
		nx, ny = -nx, -ny
	}

	// v lies inside the circle, so the ray leaves it exactly once.
	v := d.Vertices[r.Vertices[0]]
	dx, dy := v.X-f.Center.X, v.Y-f.Center.Y
	dn := dx*nx + dy*ny
	t := -dn + math.Sqrt(math.Max(0, dn*dn-(dx*dx+dy*dy-f.Radius*f.Radius)))
	return region.Point{X: v.X + nx*t, Y: v.Y + ny*t}
}

// arc returns the points strictly between from and to on the circle, along
// the side that belongs to point p's cell.
func (f Finitizer) arc(d *Diagram, p int, from, to region.Point) []region.Point {
	a0 := math.Atan2(from.Y-f.Center.Y, from.X-f.Center.X)
	a1 := math.Atan2(to.Y-f.Center.Y, to.X-f.Center.X)
	span := math.Mod(a1-a0+4*math.Pi, 2*math.Pi)
	if !f.owns(d, p, f.onCircle(a0+span/2)) {
		span -= 2 * math.Pi
	}
	n := int(math.Ceil(math.Abs(span)/maxArcStep - 1e-9))
	out := make([]region.Point, 0, n)
	for k := 1; k < n; k++ {
		out = append(out, f.onCircle(a0+span*float64(k)/float64(n)))
	}
	return out
}

func (f Finitizer) onCircle(angle float64) region.Point {
	return region.Point{
		X: f.Center.X + f.Radius*math.Cos(angle),
		Y: f.Center.Y + f.Radius*math.Sin(angle),
	}
}

// owns reports whether q is no farther from point p than from any of its
// Delaunay neighbours.
func (f Finitizer) owns(d *Diagram, p int, q region.Point) bool {
	gp := d.Points[p]
	dp := sqDist(q, gp)
	for _, ri := range d.RidgesOf(p) {
		r := d.Ridges[ri]
		other := r.Points[0]
		if other == p {
			other = r.Points[1]
		}
		if sqDist(q, d.Points[other]) < dp*(1-1e-9) {
			return false
		}
	}
	return true
}

func sqDist(a, b region.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func sortByAngle(pts []region.Point) []region.Point {
	if len(pts) == 0 {
		return pts
	}
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))
	sort.SliceStable(pts, func(i, j int) bool {
		return math.Atan2(pts[i].Y-cy, pts[i].X-cx) < math.Atan2(pts[j].Y-cy, pts[j].X-cx)
	})
	out := pts[:1]
	for _, p := range pts[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
