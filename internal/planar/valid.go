package planar

import (
	"math"
	"sort"

	ctgeom "github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/lineintersection"
	"github.com/twpayne/go-geom/xy/lineintersector"
	"github.com/twpayne/go-geom/xy/location"
)

// ErrInvalidGeometry marks a geometry that failed validation, including after repair.
var ErrInvalidGeometry = eris.New("planar: invalid geometry")

type segment struct {
	a, b       geom.Coord
	minX, maxX float64
	minY, maxY float64
	ring       int
	idx        int
	n          int
}

func (s segment) adjacent(t segment) bool {
	if s.ring != t.ring {
		return false
	}
	d := s.idx - t.idx
	return d == 1 || d == -1 || (s.idx == 0 && t.idx == s.n-1) || (t.idx == 0 && s.idx == t.n-1)
}

// Validate returns nil when g is a non-empty polygon or multipolygon with
// closed, finite rings of non-zero area, no crossing or overlapping edges,
// holes inside their shell and no part overlapping another part.
func Validate(g geom.T) error {
	polys := Polygons(g)
	if len(polys) == 0 {
		return eris.Wrap(ErrInvalidGeometry, "empty geometry")
	}

	var segs []segment
	ringID := 0
	for pi, p := range polys {
		for ri := 0; ri < p.NumLinearRings(); ri++ {
			flat := p.LinearRing(ri).FlatCoords()
			if err := checkRing(flat); err != nil {
				return eris.Wrapf(err, "polygon %d ring %d", pi, ri)
			}
			n := len(flat)/2 - 1
			for k := 0; k < n; k++ {
				a := geom.Coord{flat[2*k], flat[2*k+1]}
				b := geom.Coord{flat[2*k+2], flat[2*k+3]}
				segs = append(segs, segment{
					a: a, b: b,
					minX: math.Min(a[0], b[0]), maxX: math.Max(a[0], b[0]),
					minY: math.Min(a[1], b[1]), maxY: math.Max(a[1], b[1]),
					ring: ringID, idx: k, n: n,
				})
			}
			ringID++
		}
		shell := p.LinearRing(0).FlatCoords()
		for ri := 1; ri < p.NumLinearRings(); ri++ {
			if !ringContains(shell, p.LinearRing(ri).FlatCoords()) {
				return eris.Wrapf(ErrInvalidGeometry, "polygon %d hole %d outside shell", pi, ri)
			}
		}
	}

	if err := checkSegments(segs); err != nil {
		return err
	}

	for i := range polys {
		for j := range polys {
			if i != j && partInside(polys[i], polys[j]) {
				return eris.Wrapf(ErrInvalidGeometry, "polygon %d overlaps polygon %d", i, j)
			}
		}
	}
	return nil
}

// IsValid reports whether Validate accepts g.
func IsValid(g geom.T) bool {
	return Validate(g) == nil
}

func checkRing(flat []float64) error {
	if len(flat) < 8 {
		return eris.Wrap(ErrInvalidGeometry, "ring has fewer than four coordinates")
	}
	for _, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Wrap(ErrInvalidGeometry, "ring has non-finite coordinate")
		}
	}
	n := len(flat)
	if flat[0] != flat[n-2] || flat[1] != flat[n-1] {
		return eris.Wrap(ErrInvalidGeometry, "ring is not closed")
	}
	if xy.SignedArea(geom.XY, flat) == 0 {
		return eris.Wrap(ErrInvalidGeometry, "ring has zero area")
	}
	return nil
}

// checkSegments sweeps segments by x extent and rejects proper crossings and
// collinear overlaps. Touching at a vertex is allowed.
func checkSegments(segs []segment) error {
	sort.Slice(segs, func(i, j int) bool { return segs[i].minX < segs[j].minX })
	strategy := lineintersector.RobustLineIntersector{}
	for i := range segs {
		s := segs[i]
		for j := i + 1; j < len(segs) && segs[j].minX <= s.maxX; j++ {
			t := segs[j]
			if t.maxY < s.minY || t.minY > s.maxY {
				continue
			}
			res := lineintersector.LineIntersectsLine(strategy, s.a, s.b, t.a, t.b)
			switch res.Type() {
			case lineintersection.NoIntersection:
				continue
			case lineintersection.CollinearIntersection:
				pts := res.Intersection()
				if len(pts) == 2 && !sameCoord(pts[0], pts[1]) {
					return eris.Wrap(ErrInvalidGeometry, "overlapping edges")
				}
			case lineintersection.PointIntersection:
				if s.adjacent(t) {
					continue
				}
				p := res.Intersection()[0]
				if !isEndpoint(p, s) && !isEndpoint(p, t) {
					return eris.Wrapf(ErrInvalidGeometry, "self-intersection at (%g %g)", p[0], p[1])
				}
			}
		}
	}
	return nil
}

func isEndpoint(p geom.Coord, s segment) bool {
	return sameCoord(p, s.a) || sameCoord(p, s.b)
}

func sameCoord(a, b geom.Coord) bool {
	scale := 1 + math.Max(math.Max(math.Abs(a[0]), math.Abs(a[1])), math.Max(math.Abs(b[0]), math.Abs(b[1])))
	eps := 1e-12 * scale
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps
}

// partInside reports whether a shell vertex of a lies strictly inside the
// area of b.
func partInside(a, b *geom.Polygon) bool {
	ab, bb := a.Bounds(), b.Bounds()
	if !ab.Overlaps(geom.XY, bb) {
		return false
	}
	shell := a.LinearRing(0).FlatCoords()
	for i := 0; i+1 < len(shell); i += 2 {
		if locate(geom.Coord{shell[i], shell[i+1]}, b) == location.Interior {
			return true
		}
	}
	return false
}

// locate classifies c against polygon p, honouring holes.
func locate(c geom.Coord, p *geom.Polygon) location.Type {
	loc := xy.LocatePointInRing(geom.XY, c, p.LinearRing(0).FlatCoords())
	if loc != location.Interior {
		return loc
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		switch xy.LocatePointInRing(geom.XY, c, p.LinearRing(i).FlatCoords()) {
		case location.Interior:
			return location.Exterior
		case location.Boundary:
			return location.Boundary
		}
	}
	return location.Interior
}

// Repair removes self-intersections with the zero-width buffer idiom: an
// overlay of each part with its own bounding box rebuilds the part's rings
// from the arrangement of its edges. The rebuilt parts are then unioned, so
// parts that overlap each other merge instead of cancelling out.
func Repair(g geom.T) geom.T {
	polys := Polygons(g)
	if len(polys) == 0 {
		return nil
	}
	parts := make([]geom.T, 0, len(polys))
	for _, p := range polys {
		if r := repairPart(p); !IsEmpty(r) {
			parts = append(parts, r)
		}
	}
	return Union(parts)
}

func repairPart(p *geom.Polygon) geom.T {
	var rings ctgeom.Polygon
	for i := 0; i < p.NumLinearRings(); i++ {
		for _, loop := range splitPinches(p.LinearRing(i).FlatCoords()) {
			// Fewer than three distinct vertices: a spike.
			if len(loop) >= 8 {
				rings = append(rings, toCTPath(loop))
			}
		}
	}
	if len(rings) == 0 {
		return nil
	}
	b := p.Bounds()
	margin := 1 + math.Max(b.Max(0)-b.Min(0), b.Max(1)-b.Min(1))
	box := ctgeom.Polygon{{
		{X: b.Min(0) - margin, Y: b.Min(1) - margin},
		{X: b.Max(0) + margin, Y: b.Min(1) - margin},
		{X: b.Max(0) + margin, Y: b.Max(1) + margin},
		{X: b.Min(0) - margin, Y: b.Max(1) + margin},
		{X: b.Min(0) - margin, Y: b.Min(1) - margin},
	}}
	return fromCT(rings.Intersection(box))
}

// Ensure validates g, repairs it once when invalid and checks the repaired
// geometry once more. The error wraps ErrInvalidGeometry when the repaired
// geometry is still invalid.
func Ensure(g geom.T) (geom.T, error) {
	if Validate(g) == nil {
		return g, nil
	}
	repaired := Repair(g)
	if err := Validate(repaired); err != nil {
		return nil, eris.Wrap(err, "planar: repair")
	}
	return repaired, nil
}
