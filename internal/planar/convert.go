// Package planar wraps the 2D geometry primitives used to build region
// polygons: buffers, hulls, validity checks and repair, overlay operations,
// simplification and adjacency predicates.
package planar

import (
	"math"
	"sort"

	ctgeom "github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"

	"github.com/marekrost/mapa-psc/internal/region"
)

// Polygons returns the non-empty polygon parts of g. Non-areal geometries yield nil.
func Polygons(g geom.T) []*geom.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		if t == nil || t.NumLinearRings() == 0 {
			return nil
		}
		return []*geom.Polygon{t}
	case *geom.MultiPolygon:
		if t == nil {
			return nil
		}
		out := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			if p := t.Polygon(i); p.NumLinearRings() > 0 {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// IsEmpty reports whether g has no polygon parts.
func IsEmpty(g geom.T) bool {
	return len(Polygons(g)) == 0
}

// Collect returns a Polygon for a single part, a MultiPolygon for several
// parts and nil for none.
func Collect(polys []*geom.Polygon) geom.T {
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		// Every part is XY, so Push cannot fail on a layout mismatch.
		_ = mp.Push(p)
	}
	return mp
}

// Area returns the planar area of g: shells minus holes.
func Area(g geom.T) float64 {
	var total float64
	for _, p := range Polygons(g) {
		for i := 0; i < p.NumLinearRings(); i++ {
			a := math.Abs(xy.SignedArea(geom.XY, p.LinearRing(i).FlatCoords()))
			if i == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	return total
}

// NumVertices counts ring coordinates including closing points.
func NumVertices(g geom.T) int {
	var n int
	for _, p := range Polygons(g) {
		n += len(p.FlatCoords()) / 2
	}
	return n
}

// FlatPoints flattens points into XY coordinates.
func FlatPoints(points []region.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

// Bounds returns the XY extent of g, or nil for an empty geometry.
func Bounds(g geom.T) *geom.Bounds {
	if IsEmpty(g) {
		return nil
	}
	return g.Bounds()
}

// ccwArea is the signed ring area, positive for counter-clockwise rings.
func ccwArea(ring []float64) float64 {
	return -xy.SignedArea(geom.XY, ring)
}

// cleanRing removes consecutive duplicates, closes the ring and rejects
// rings that cannot enclose area.
func cleanRing(flat []float64) []float64 {
	out := make([]float64, 0, len(flat)+2)
	for i := 0; i+1 < len(flat); i += 2 {
		n := len(out)
		if n >= 2 && out[n-2] == flat[i] && out[n-1] == flat[i+1] {
			continue
		}
		out = append(out, flat[i], flat[i+1])
	}
	if len(out) >= 4 && (out[0] != out[len(out)-2] || out[1] != out[len(out)-1]) {
		out = append(out, out[0], out[1])
	}
	if len(out) < 8 || ccwArea(out) == 0 {
		return nil
	}
	return out
}

// splitPinches cuts a ring that passes through the same vertex more than
// once into simple loops. Spikes come out as loops without area.
func splitPinches(flat []float64) [][]float64 {
	n := len(flat) / 2
	if n > 1 && flat[0] == flat[2*n-2] && flat[1] == flat[2*n-1] {
		n--
	}
	var (
		out   [][]float64
		stack [][2]float64
	)
	seen := make(map[[2]float64]int, n)
	for i := 0; i < n; i++ {
		p := [2]float64{flat[2*i], flat[2*i+1]}
		k, ok := seen[p]
		if !ok {
			seen[p] = len(stack)
			stack = append(stack, p)
			continue
		}
		out = append(out, closeLoop(stack[k:]))
		for _, q := range stack[k+1:] {
			delete(seen, q)
		}
		stack = stack[:k+1]
	}
	return append(out, closeLoop(stack))
}

func closeLoop(pts [][2]float64) []float64 {
	flat := make([]float64, 0, 2*len(pts)+2)
	for _, p := range pts {
		flat = append(flat, p[0], p[1])
	}
	if len(pts) > 0 {
		flat = append(flat, pts[0][0], pts[0][1])
	}
	return flat
}

// orient reverses ring in place when its orientation differs from ccw.
func orient(ring []float64, ccw bool) {
	if (ccwArea(ring) > 0) == ccw {
		return
	}
	for i, j := 0, len(ring)-2; i < j; i, j = i+2, j-2 {
		ring[i], ring[j] = ring[j], ring[i]
		ring[i+1], ring[j+1] = ring[j+1], ring[i+1]
	}
}

// newPolygon builds a polygon from closed flat rings, shell first.
func newPolygon(rings [][]float64) *geom.Polygon {
	var flat []float64
	ends := make([]int, 0, len(rings))
	for _, r := range rings {
		flat = append(flat, r...)
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

// ringContains reports whether inner lies inside outer, judged by the first
// vertex of inner that is not on the boundary of outer.
func ringContains(outer, inner []float64) bool {
	for i := 0; i+1 < len(inner); i += 2 {
		switch xy.LocatePointInRing(geom.XY, geom.Coord{inner[i], inner[i+1]}, outer) {
		case location.Interior:
			return true
		case location.Exterior:
			return false
		}
	}
	// Every vertex is shared; fall back to an edge midpoint.
	for i := 0; i+3 < len(inner); i += 2 {
		mid := geom.Coord{(inner[i] + inner[i+2]) / 2, (inner[i+1] + inner[i+3]) / 2}
		switch xy.LocatePointInRing(geom.XY, mid, outer) {
		case location.Interior:
			return true
		case location.Exterior:
			return false
		}
	}
	return false
}

// AssembleRings turns a bag of closed rings of any orientation into polygons
// using nesting depth: even depth rings become shells, odd depth rings become
// holes of their smallest enclosing shell. Shells are oriented
// counter-clockwise and holes clockwise.
func AssembleRings(rings [][]float64) geom.T {
	type ringInfo struct {
		flat   []float64
		area   float64
		parent int
		depth  int
	}
	infos := make([]ringInfo, 0, len(rings))
	for _, r := range rings {
		for _, loop := range splitPinches(r) {
			c := cleanRing(loop)
			if c == nil {
				continue
			}
			infos = append(infos, ringInfo{flat: c, area: math.Abs(ccwArea(c)), parent: -1})
		}
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].area > infos[j].area })

	for i := range infos {
		for j := i - 1; j >= 0; j-- {
			if infos[j].area <= infos[i].area {
				continue
			}
			if ringContains(infos[j].flat, infos[i].flat) {
				infos[i].parent = j
				infos[i].depth = infos[j].depth + 1
				break
			}
		}
	}

	shellOf := make(map[int]int, len(infos))
	var parts [][][]float64
	for i := range infos {
		if infos[i].depth%2 == 0 {
			orient(infos[i].flat, true)
			shellOf[i] = len(parts)
			parts = append(parts, [][]float64{infos[i].flat})
		}
	}
	for i := range infos {
		if infos[i].depth%2 == 1 {
			orient(infos[i].flat, false)
			k := shellOf[infos[i].parent]
			parts[k] = append(parts[k], infos[i].flat)
		}
	}

	polys := make([]*geom.Polygon, 0, len(parts))
	for _, rs := range parts {
		polys = append(polys, newPolygon(rs))
	}
	return Collect(polys)
}

// toCT converts g into a ctessum polygon holding every ring as a closed path.
func toCT(g geom.T) ctgeom.Polygon {
	var out ctgeom.Polygon
	for _, p := range Polygons(g) {
		for i := 0; i < p.NumLinearRings(); i++ {
			out = append(out, toCTPath(p.LinearRing(i).FlatCoords()))
		}
	}
	return out
}

func toCTPath(flat []float64) ctgeom.Path {
	path := make(ctgeom.Path, 0, len(flat)/2)
	for k := 0; k+1 < len(flat); k += 2 {
		path = append(path, ctgeom.Point{X: flat[k], Y: flat[k+1]})
	}
	return path
}

// flattenCT merges the rings of every part of an overlay result into one
// ctessum polygon.
func flattenCT(p ctgeom.Polygonal) ctgeom.Polygon {
	if p == nil {
		return nil
	}
	var out ctgeom.Polygon
	for _, part := range p.Polygons() {
		out = append(out, part...)
	}
	return out
}

// fromCT converts a ctessum overlay result back into a go-geom geometry.
// Overlay output carries no reliable ring orientation or closure, so the
// rings are reassembled by nesting.
func fromCT(p ctgeom.Polygonal) geom.T {
	flat := flattenCT(p)
	rings := make([][]float64, 0, len(flat))
	for _, path := range flat {
		flat := make([]float64, 0, len(path)*2+2)
		for _, pt := range path {
			flat = append(flat, pt.X, pt.Y)
		}
		rings = append(rings, flat)
	}
	return AssembleRings(rings)
}

// boundsCT converts go-geom bounds into ctessum bounds.
func boundsCT(b *geom.Bounds) *ctgeom.Bounds {
	return &ctgeom.Bounds{
		Min: ctgeom.Point{X: b.Min(0), Y: b.Min(1)},
		Max: ctgeom.Point{X: b.Max(0), Y: b.Max(1)},
	}
}

// ExpandedBounds returns the ctessum bounds of g grown by margin on every side.
func ExpandedBounds(g geom.T, margin float64) *ctgeom.Bounds {
	b := Bounds(g)
	if b == nil {
		return nil
	}
	cb := boundsCT(b)
	cb.Min.X -= margin
	cb.Min.Y -= margin
	cb.Max.X += margin
	cb.Max.Y += margin
	return cb
}

// toOrbRing converts closed flat coordinates to an orb ring.
func toOrbRing(flat []float64) orb.Ring {
	r := make(orb.Ring, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		r = append(r, orb.Point{flat[i], flat[i+1]})
	}
	return r
}

// rotateRing returns a closed ring that starts at its lowest, then leftmost
// vertex. That vertex is a hull corner, so Douglas-Peucker never pins a
// collinear start point.
func rotateRing(flat []float64) []float64 {
	n := len(flat) - 2
	if n < 4 {
		return flat
	}
	start := 0
	for i := 2; i < n; i += 2 {
		if flat[i+1] < flat[start+1] || (flat[i+1] == flat[start+1] && flat[i] < flat[start]) {
			start = i
		}
	}
	if start == 0 {
		return flat
	}
	out := make([]float64, 0, len(flat))
	out = append(out, flat[start:n]...)
	out = append(out, flat[:start]...)
	return append(out, flat[start], flat[start+1])
}

// fromOrbRing converts an orb ring back to flat coordinates.
func fromOrbRing(r orb.Ring) []float64 {
	flat := make([]float64, 0, len(r)*2)
	for _, p := range r {
		flat = append(flat, p[0], p[1])
	}
	return flat
}
