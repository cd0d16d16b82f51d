package planar

import (
	ctgeom "github.com/ctessum/geom"
	"github.com/paulmach/orb/simplify"
	"github.com/twpayne/go-geom"
)

// Intersection returns the overlay intersection of a and b, or nil when they
// share no area.
func Intersection(a, b geom.T) geom.T {
	if IsEmpty(a) || IsEmpty(b) {
		return nil
	}
	if !Bounds(a).Overlaps(geom.XY, Bounds(b)) {
		return nil
	}
	return fromCT(toCT(a).Intersection(toCT(b)))
}

// Union dissolves gs into one geometry. Parts are merged pairwise in rounds
// so every overlay works on operands of similar size.
func Union(gs []geom.T) geom.T {
	parts := make([]ctgeom.Polygon, 0, len(gs))
	var single geom.T
	for _, g := range gs {
		if IsEmpty(g) {
			continue
		}
		single = g
		parts = append(parts, toCT(g))
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return single
	}
	for len(parts) > 1 {
		next := make([]ctgeom.Polygon, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 == len(parts) {
				next = append(next, parts[i])
				continue
			}
			next = append(next, flattenCT(parts[i].Union(parts[i+1])))
		}
		parts = next
	}
	return fromCT(parts[0])
}

// Simplify applies Douglas-Peucker to every ring of g. A hole that collapses
// is dropped; a shell that collapses is kept as it was so no part vanishes.
func Simplify(g geom.T, tolerance float64) geom.T {
	if tolerance <= 0 || IsEmpty(g) {
		return g
	}
	dp := simplify.DouglasPeucker(tolerance)
	polys := Polygons(g)
	out := make([]*geom.Polygon, 0, len(polys))
	for _, p := range polys {
		rings := make([][]float64, 0, p.NumLinearRings())
		for i := 0; i < p.NumLinearRings(); i++ {
			orig := p.LinearRing(i).FlatCoords()
			flat := cleanRing(fromOrbRing(dp.Ring(toOrbRing(rotateRing(orig)))))
			if flat == nil {
				if i > 0 {
					continue
				}
				flat = append([]float64(nil), orig...)
			}
			rings = append(rings, flat)
		}
		out = append(out, newPolygon(rings))
	}
	return Collect(out)
}
