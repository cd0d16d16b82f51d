package voronoi

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
)

// ClipOptions controls how the clip region is derived.
type ClipOptions struct {
	// Tolerance simplifies a supplied boundary once, before any clipping.
	Tolerance float64
	// Margin buffers the point hull when no boundary is usable.
	Margin   float64
	Segments int
}

// ClipBoundary returns the region every cell is clipped to. A supplied
// boundary is unioned into one region, simplified and validated. When it is
// missing, empty or cannot be made valid, the convex hull of points buffered
// by Margin is used instead.
func ClipBoundary(src geom.T, points []region.Point, opts ClipOptions) (geom.T, error) {
	if !planar.IsEmpty(src) {
		clip, err := fromBoundary(src, opts.Tolerance)
		if err == nil {
			return clip, nil
		}
		zap.L().Warn("voronoi: boundary unusable, clipping to buffered hull",
			zap.String("component", "voronoi"),
			zap.Error(err),
		)
	}
	return HullClip(points, opts.Margin, opts.Segments)
}

// HullClip buffers the convex hull of points outward by margin.
func HullClip(points []region.Point, margin float64, segments int) (geom.T, error) {
	hull := planar.HullVertices(points)
	if len(hull) == 0 {
		return nil, eris.Wrap(planar.ErrDegenerate, "voronoi: hull clip")
	}
	p, err := planar.BufferPoints(hull, margin, segments)
	if err != nil {
		return nil, eris.Wrap(err, "voronoi: hull clip")
	}
	g, err := planar.Ensure(p)
	if err != nil {
		return nil, eris.Wrap(err, "voronoi: hull clip")
	}
	return g, nil
}

func fromBoundary(src geom.T, tolerance float64) (geom.T, error) {
	polys := planar.Polygons(src)
	parts := make([]geom.T, len(polys))
	for i, p := range polys {
		parts[i] = p
	}
	merged := parts[0]
	if len(parts) > 1 {
		merged = planar.Union(parts)
	}
	g, err := planar.Ensure(planar.Simplify(merged, tolerance))
	if err != nil {
		return nil, eris.Wrap(err, "voronoi: boundary")
	}
	return g, nil
}
