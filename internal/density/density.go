// Package density adapts construction parameters to how tightly a group's
// address points are packed.
package density

import (
	"math"

	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
)

// Policy maps point density onto a parameter range. Dense groups get Min,
// sparse groups get Max and everything between is interpolated on a log
// scale.
type Policy struct {
	Min       float64
	Max       float64
	Threshold float64 // density above which Min applies
	Sparse    float64 // density below which Max applies
	AreaScale float64 // multiplies hull area before dividing, e.g. m² to km²
}

// Estimate returns points per scaled unit of convex hull area. ok is false
// when the hull is degenerate. A zero-area hull yields density 0.
func (p Policy) Estimate(points []region.Point) (density float64, ok bool) {
	hull, err := planar.ConvexHull(points)
	if err != nil {
		return 0, false
	}
	area := planar.Area(hull) * p.AreaScale
	if area <= 0 {
		return 0, true
	}
	return float64(len(points)) / area, true
}

// ForDensity maps a density onto [Min, Max]. The mapping is non-increasing.
func (p Policy) ForDensity(d float64) float64 {
	switch {
	case d > p.Threshold:
		return p.Min
	case d < p.Sparse:
		return p.Max
	}
	logThreshold := math.Log10(p.Threshold)
	if logThreshold <= 0 {
		return p.Min
	}
	ratio := math.Log10(d+1) / logThreshold
	v := p.Max - ratio*(p.Max-p.Min)
	return math.Min(math.Max(v, p.Min), p.Max)
}

// Midpoint is the parameter used when density cannot be estimated.
func (p Policy) Midpoint() float64 {
	return (p.Min + p.Max) / 2
}

// Parameter estimates the density of points and maps it. A degenerate hull
// yields the midpoint of the range instead of an error.
func (p Policy) Parameter(points []region.Point) float64 {
	d, ok := p.Estimate(points)
	if !ok {
		return p.Midpoint()
	}
	return p.ForDensity(d)
}
