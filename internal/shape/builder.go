// Package shape builds one region polygon per postal code group.
package shape

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/config"
	"github.com/marekrost/mapa-psc/internal/density"
	"github.com/marekrost/mapa-psc/internal/mesh"
	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
)

// ErrNoPolygon is returned when every construction attempt for a group failed.
var ErrNoPolygon = eris.New("shape: construction produced no polygon")

// Attempt is one fallible construction step. Attempts are tried in order
// and the first valid polygon wins.
type Attempt struct {
	Name string
	Run  func(points []region.Point) (geom.T, region.Method, error)
}

// Builder constructs region polygons from point groups.
type Builder struct {
	cfg   config.ShapeConfig
	alpha density.Policy
	edge  density.Policy
}

// NewBuilder creates a Builder from shape options.
func NewBuilder(cfg config.ShapeConfig) *Builder {
	return &Builder{
		cfg: cfg,
		alpha: density.Policy{
			Min:       cfg.AlphaMin,
			Max:       cfg.AlphaMax,
			Threshold: cfg.AlphaDensityThreshold,
			Sparse:    cfg.SparseDensity,
			AreaScale: cfg.DensityAreaScale,
		},
		edge: density.Policy{
			Min:       cfg.EdgeLengthBase,
			Max:       cfg.EdgeLengthMax,
			Threshold: cfg.EdgeDensityThreshold,
			Sparse:    cfg.SparseDensity,
			AreaScale: cfg.DensityAreaScale,
		},
	}
}

// Build constructs the region for one group. The ladder works on distinct
// points; PointCount still reports every input point.
func (b *Builder) Build(g region.PointGroup) (*region.Region, error) {
	if len(g.Points) == 0 {
		return nil, eris.Wrapf(ErrNoPolygon, "group %s has no points", g.Code)
	}
	pts := g.Unique()

	shape, method, err := b.run(g.Code, b.Attempts(len(pts)), pts)
	if err != nil {
		return nil, err
	}

	return &region.Region{
		Code:       g.Code,
		Geometry:   shape,
		PointCount: len(g.Points),
		Area:       planar.Area(shape),
		Method:     method,
	}, nil
}

// Attempts returns the ordered construction chain for n distinct points.
func (b *Builder) Attempts(n int) []Attempt {
	switch {
	case n <= 1:
		return []Attempt{b.buffer()}
	case n == 2:
		return []Attempt{b.bufferedLine()}
	case n == 3:
		return []Attempt{b.triangle(), b.bufferedLine()}
	}
	switch b.cfg.Mode {
	case config.ModeAlpha:
		return []Attempt{b.alphaShape(), b.hull(true), b.bufferedLine()}
	case config.ModeDelaunay:
		return []Attempt{b.delaunayFilter(), b.hull(true), b.bufferedLine()}
	default:
		// Voronoi groups only come here when the global diagram is unavailable.
		return []Attempt{b.hull(true), b.bufferedLine()}
	}
}

func (b *Builder) run(code string, attempts []Attempt, pts []region.Point) (geom.T, region.Method, error) {
	var (
		lastErr  error
		lastName string
	)
	for _, a := range attempts {
		shape, method, err := a.Run(pts)
		if err == nil {
			shape, err = planar.Ensure(shape)
		}
		if err != nil {
			zap.L().Debug("shape: attempt failed",
				zap.String("component", "shape"),
				zap.String("code", code),
				zap.String("attempt", a.Name),
				zap.Error(err),
			)
			lastErr, lastName = err, a.Name
			continue
		}
		return shape, method, nil
	}
	if lastErr == nil {
		return nil, region.Method{}, eris.Wrapf(ErrNoPolygon, "shape: build %s: no attempts", code)
	}
	return nil, region.Method{}, eris.Wrapf(ErrNoPolygon, "shape: build %s: last attempt %s: %v", code, lastName, lastErr)
}

func (b *Builder) buffer() Attempt {
	return Attempt{Name: "buffer", Run: func(pts []region.Point) (geom.T, region.Method, error) {
		return planar.Circle(pts[0], b.cfg.BufferRadius, b.cfg.BufferSegments), region.Buffer(), nil
	}}
}

func (b *Builder) bufferedLine() Attempt {
	return Attempt{Name: "buffered_line", Run: func(pts []region.Point) (geom.T, region.Method, error) {
		a, c := planar.ExtremePoints(pts)
		if a == c {
			return planar.Circle(a, b.cfg.BufferRadius, b.cfg.BufferSegments), region.Buffer(), nil
		}
		p, err := planar.Capsule(a, c, b.cfg.BufferRadius, b.cfg.BufferSegments)
		if err != nil {
			return nil, region.Method{}, err
		}
		return p, region.BufferedLine(), nil
	}}
}

func (b *Builder) triangle() Attempt {
	return Attempt{Name: "triangle", Run: func(pts []region.Point) (geom.T, region.Method, error) {
		p0, p1, p2 := pts[0], pts[1], pts[2]
		turn := (p1.X-p0.X)*(p2.Y-p0.Y) - (p1.Y-p0.Y)*(p2.X-p0.X)
		if turn == 0 {
			return nil, region.Method{}, planar.ErrDegenerate
		}
		if turn < 0 {
			p1, p2 = p2, p1
		}
		flat := []float64{p0.X, p0.Y, p1.X, p1.Y, p2.X, p2.Y, p0.X, p0.Y}
		return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}), region.Triangle(), nil
	}}
}

func (b *Builder) hull(fallback bool) Attempt {
	method := region.ConvexHull()
	if fallback {
		method = region.ConvexHullFallback()
	}
	return Attempt{Name: string(method.Kind), Run: func(pts []region.Point) (geom.T, region.Method, error) {
		p, err := planar.ConvexHull(pts)
		if err != nil {
			return nil, region.Method{}, err
		}
		return p, method, nil
	}}
}

func (b *Builder) alphaShape() Attempt {
	return Attempt{Name: "alpha_shape", Run: func(pts []region.Point) (geom.T, region.Method, error) {
		alpha := b.alpha.Parameter(pts)
		m, err := mesh.Triangulate(pts)
		if err != nil {
			return nil, region.Method{}, err
		}
		g, err := m.Outline(m.KeepCircumradius(alpha))
		if err != nil {
			return nil, region.Method{}, eris.Wrapf(err, "alpha %.3f", alpha)
		}
		return g, region.AlphaShape(alpha), nil
	}}
}

func (b *Builder) delaunayFilter() Attempt {
	return Attempt{Name: "delaunay_filter", Run: func(pts []region.Point) (geom.T, region.Method, error) {
		threshold := b.edge.Parameter(pts)
		m, err := mesh.Triangulate(pts)
		if err != nil {
			return nil, region.Method{}, err
		}
		g, err := m.Outline(m.KeepShortEdges(threshold))
		if err != nil {
			return nil, region.Method{}, eris.Wrapf(err, "max edge %.3f", threshold)
		}
		return g, region.DelaunayFilter(threshold), nil
	}}
}
