// Package region holds the data model shared by the polygon builders, the
// colouring stage and the exporters.
package region

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// Point is a planar address location. Immutable once read.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Coord returns the point as a go-geom coordinate.
func (p Point) Coord() geom.Coord {
	return geom.Coord{p.X, p.Y}
}

// PointGroup is the set of address points sharing one postal code.
type PointGroup struct {
	Code   string  `json:"code"`
	Points []Point `json:"points"`
}

// Unique returns the distinct points of the group in first-seen order.
func (g PointGroup) Unique() []Point {
	seen := make(map[Point]struct{}, len(g.Points))
	out := make([]Point, 0, len(g.Points))
	for _, p := range g.Points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// MethodKind identifies how a region polygon was constructed.
type MethodKind string

const (
	MethodBuffer             MethodKind = "buffer"
	MethodBufferedLine       MethodKind = "buffered_line"
	MethodTriangle           MethodKind = "triangle"
	MethodConvexHull         MethodKind = "convex_hull"
	MethodConvexHullFallback MethodKind = "convex_hull_fallback"
	MethodAlphaShape         MethodKind = "alpha_shape"
	MethodDelaunayFilter     MethodKind = "delaunay_filter"
	MethodVoronoi            MethodKind = "voronoi"
)

// Method is a tagged descriptor of a construction. Param carries the alpha
// radius for MethodAlphaShape and the edge threshold for MethodDelaunayFilter;
// it is zero for every other kind.
type Method struct {
	Kind  MethodKind `json:"kind" yaml:"kind"`
	Param float64    `json:"param,omitempty" yaml:"param,omitempty"`
}

// Buffer describes a circular buffer around a single point.
func Buffer() Method { return Method{Kind: MethodBuffer} }

// BufferedLine describes a buffered segment between two extreme points.
func BufferedLine() Method { return Method{Kind: MethodBufferedLine} }

// Triangle describes the exact triangle over three points.
func Triangle() Method { return Method{Kind: MethodTriangle} }

// ConvexHull describes a plain convex hull.
func ConvexHull() Method { return Method{Kind: MethodConvexHull} }

// ConvexHullFallback describes a convex hull taken after a failed attempt.
func ConvexHullFallback() Method { return Method{Kind: MethodConvexHullFallback} }

// AlphaShape describes a concave hull built at the given alpha radius.
func AlphaShape(alpha float64) Method { return Method{Kind: MethodAlphaShape, Param: alpha} }

// DelaunayFilter describes an edge-filtered triangulation at the given threshold.
func DelaunayFilter(threshold float64) Method {
	return Method{Kind: MethodDelaunayFilter, Param: threshold}
}

// Voronoi describes a dissolved set of clipped Voronoi cells.
func Voronoi() Method { return Method{Kind: MethodVoronoi} }

// HasParam reports whether the kind carries a numeric payload.
func (m Method) HasParam() bool {
	return m.Kind == MethodAlphaShape || m.Kind == MethodDelaunayFilter
}

func (m Method) String() string {
	switch m.Kind {
	case MethodAlphaShape:
		return fmt.Sprintf("alpha_shape(alpha=%.3f)", m.Param)
	case MethodDelaunayFilter:
		return fmt.Sprintf("delaunay_filter(max_edge=%.3f)", m.Param)
	default:
		return string(m.Kind)
	}
}

// Region is the polygon derived for one postal code.
// Geometry is a *geom.Polygon or *geom.MultiPolygon that has passed validation.
type Region struct {
	Code       string  `json:"code"`
	Geometry   geom.T  `json:"-"`
	PointCount int     `json:"point_count"`
	Area       float64 `json:"area"`
	Method     Method  `json:"method"`
	ColorIndex *int    `json:"color_index,omitempty"`
}

// Color returns the assigned colour index, if any.
func (r *Region) Color() (int, bool) {
	if r.ColorIndex == nil {
		return 0, false
	}
	return *r.ColorIndex, true
}

// SetColor assigns the colour index once. Later calls are ignored.
func (r *Region) SetColor(c int) {
	if r.ColorIndex != nil {
		return
	}
	r.ColorIndex = &c
}

// Failure records a group that produced no region.
type Failure struct {
	Code  string `json:"code" yaml:"code"`
	Stage string `json:"stage" yaml:"stage"`
	Err   error  `json:"-" yaml:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Code, f.Stage, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }
