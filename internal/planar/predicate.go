package planar

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/lineintersector"
	"github.com/twpayne/go-geom/xy/location"
)

// Intersects reports whether a and b have at least one point in common,
// boundaries included.
func Intersects(a, b geom.T) bool {
	return within(a, b, 0)
}

// TouchesOrIntersects reports whether a and b intersect or their boundaries
// come within tolerance of each other. The tolerance absorbs the slivers
// that independent simplification leaves between neighbours.
func TouchesOrIntersects(a, b geom.T, tolerance float64) bool {
	return within(a, b, math.Max(tolerance, 0))
}

func within(a, b geom.T, tol float64) bool {
	for _, p := range Polygons(a) {
		for _, q := range Polygons(b) {
			if partsWithin(p, q, tol) {
				return true
			}
		}
	}
	return false
}

func partsWithin(p, q *geom.Polygon, tol float64) bool {
	pb, qb := p.Bounds(), q.Bounds()
	if pb.Max(0)+tol < qb.Min(0) || qb.Max(0)+tol < pb.Min(0) ||
		pb.Max(1)+tol < qb.Min(1) || qb.Max(1)+tol < pb.Min(1) {
		return false
	}
	if edgesWithin(p, q, tol) {
		return true
	}
	// No edge contact: either disjoint or one part lies inside the other.
	pc := p.LinearRing(0).FlatCoords()
	qc := q.LinearRing(0).FlatCoords()
	return locate(geom.Coord{pc[0], pc[1]}, q) != location.Exterior ||
		locate(geom.Coord{qc[0], qc[1]}, p) != location.Exterior
}

type sideSegment struct {
	segment
	side int
}

func polygonSegments(p *geom.Polygon, side int, tol float64, out []sideSegment) []sideSegment {
	for ri := 0; ri < p.NumLinearRings(); ri++ {
		flat := p.LinearRing(ri).FlatCoords()
		for k := 0; k+3 < len(flat); k += 2 {
			a := geom.Coord{flat[k], flat[k+1]}
			b := geom.Coord{flat[k+2], flat[k+3]}
			out = append(out, sideSegment{
				segment: segment{
					a: a, b: b,
					minX: math.Min(a[0], b[0]) - tol, maxX: math.Max(a[0], b[0]) + tol,
					minY: math.Min(a[1], b[1]) - tol, maxY: math.Max(a[1], b[1]) + tol,
				},
				side: side,
			})
		}
	}
	return out
}

// edgesWithin sweeps the edges of both parts by x extent and reports the
// first pair from opposite parts that intersects or lies within tol.
func edgesWithin(p, q *geom.Polygon, tol float64) bool {
	segs := polygonSegments(p, 0, tol, nil)
	segs = polygonSegments(q, 1, tol, segs)
	sort.Slice(segs, func(i, j int) bool { return segs[i].minX < segs[j].minX })
	strategy := lineintersector.RobustLineIntersector{}
	for i := range segs {
		s := segs[i]
		for j := i + 1; j < len(segs) && segs[j].minX <= s.maxX; j++ {
			t := segs[j]
			if t.side == s.side || t.maxY < s.minY || t.minY > s.maxY {
				continue
			}
			if tol == 0 {
				res := lineintersector.LineIntersectsLine(strategy, s.a, s.b, t.a, t.b)
				if res.HasIntersection() {
					return true
				}
				continue
			}
			if xy.DistanceFromLineToLine(s.a, s.b, t.a, t.b) <= tol {
				return true
			}
		}
	}
	return false
}
