package planar

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/marekrost/mapa-psc/internal/region"
)

// ErrDegenerate is returned when points span no area (fewer than three
// distinct points, or all collinear).
var ErrDegenerate = eris.New("planar: degenerate point set")

// circleRing returns the closed flat ring of a circle approximated with
// segments vertices per quarter. Vertices lie on the circle, so the polygon
// is inscribed within radius.
func circleRing(c region.Point, radius float64, segments int) []float64 {
	if segments < 1 {
		segments = 1
	}
	n := 4 * segments
	flat := make([]float64, 0, 2*(n+1))
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		flat = append(flat, c.X+radius*math.Cos(a), c.Y+radius*math.Sin(a))
	}
	return append(flat, flat[0], flat[1])
}

// Circle returns a counter-clockwise polygon approximating a circle of the
// given radius around c.
func Circle(c region.Point, radius float64, segments int) *geom.Polygon {
	return newPolygon([][]float64{circleRing(c, radius, segments)})
}

// ConvexHull returns the convex hull of points as a counter-clockwise
// polygon, or ErrDegenerate when the hull is a point or a line.
func ConvexHull(points []region.Point) (*geom.Polygon, error) {
	if len(points) < 3 {
		return nil, ErrDegenerate
	}
	return hullPolygon(FlatPoints(points))
}

func hullPolygon(flat []float64) (*geom.Polygon, error) {
	hull, ok := xy.ConvexHullFlat(geom.XY, flat).(*geom.Polygon)
	if !ok || hull.NumLinearRings() == 0 {
		return nil, ErrDegenerate
	}
	ring := cleanRing(append([]float64(nil), hull.LinearRing(0).FlatCoords()...))
	if ring == nil {
		return nil, ErrDegenerate
	}
	orient(ring, true)
	return newPolygon([][]float64{ring}), nil
}

// BufferPoints returns the convex hull of circles of the given radius around
// every point. For a convex point set this is its outward buffer: a capsule
// for two points, a rounded hull for more.
func BufferPoints(points []region.Point, radius float64, segments int) (*geom.Polygon, error) {
	if len(points) == 0 {
		return nil, ErrDegenerate
	}
	if radius <= 0 {
		return ConvexHull(points)
	}
	flat := make([]float64, 0, len(points)*(8*segments+2))
	for _, p := range points {
		ring := circleRing(p, radius, segments)
		flat = append(flat, ring[:len(ring)-2]...)
	}
	return hullPolygon(flat)
}

// Capsule buffers the segment a-b by radius.
func Capsule(a, b region.Point, radius float64, segments int) (*geom.Polygon, error) {
	return BufferPoints([]region.Point{a, b}, radius, segments)
}

// HullVertices returns the vertices of the convex hull of points without the
// closing point. Degenerate hulls return their point or line vertices.
func HullVertices(points []region.Point) []region.Point {
	if len(points) == 0 {
		return nil
	}
	hull := xy.ConvexHullFlat(geom.XY, FlatPoints(points))
	if hull == nil {
		return nil
	}
	var flat []float64
	switch h := hull.(type) {
	case *geom.Polygon:
		flat = h.LinearRing(0).FlatCoords()
		flat = flat[:len(flat)-2]
	default:
		flat = hull.FlatCoords()
	}
	out := make([]region.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, region.Point{X: flat[i], Y: flat[i+1]})
	}
	return out
}

// Collinear reports whether every point lies on one line.
func Collinear(points []region.Point) bool {
	_, err := ConvexHull(points)
	return err != nil
}

// ExtremePoints returns the two points of a collinear set that are farthest
// apart.
func ExtremePoints(points []region.Point) (region.Point, region.Point) {
	a, b := points[0], points[0]
	best := -1.0
	hull := HullVertices(points)
	if len(hull) == 0 {
		hull = points
	}
	for i := range hull {
		for j := i + 1; j < len(hull); j++ {
			d := math.Hypot(hull[i].X-hull[j].X, hull[i].Y-hull[j].Y)
			if d > best {
				best, a, b = d, hull[i], hull[j]
			}
		}
	}
	return a, b
}
