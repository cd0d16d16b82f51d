package density

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marekrost/mapa-psc/internal/region"
)

func alphaPolicy() Policy {
	return Policy{Min: 150, Max: 3000, Threshold: 1000, Sparse: 10, AreaScale: 1e-6}
}

// grid returns n×n points spaced step apart.
func grid(n int, step float64) []region.Point {
	var pts []region.Point
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pts = append(pts, region.Point{X: float64(i) * step, Y: float64(j) * step})
		}
	}
	return pts
}

func TestForDensityBands(t *testing.T) {
	p := alphaPolicy()
	tests := []struct {
		name    string
		density float64
		want    float64
	}{
		{"urban", 5000, 150},
		{"sparse", 5, 3000},
		{"at sparse cutoff", 10, 3000 - 2850*math.Log10(11)/3},
		{"at threshold", 1000, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, p.ForDensity(tt.density), 0.01)
		})
	}
}

func TestForDensityMonotone(t *testing.T) {
	p := alphaPolicy()
	prev := p.ForDensity(0)
	for d := 0.5; d < 5000; d *= 1.3 {
		v := p.ForDensity(d)
		assert.LessOrEqual(t, v, prev, "density %g", d)
		assert.GreaterOrEqual(t, v, p.Min)
		assert.LessOrEqual(t, v, p.Max)
		prev = v
	}
}

func TestParameterDenserIsTighter(t *testing.T) {
	p := alphaPolicy()
	// Same point count, spacing 20 m versus 400 m.
	dense := p.Parameter(grid(5, 20))
	sparse := p.Parameter(grid(5, 400))
	assert.Less(t, dense, sparse)
	assert.InDelta(t, 150.0, dense, 1e-9)
}

func TestParameterDegenerateHull(t *testing.T) {
	p := alphaPolicy()
	collinear := []region.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}
	_, ok := p.Estimate(collinear)
	assert.False(t, ok)
	assert.InDelta(t, 1575.0, p.Parameter(collinear), 1e-9)
}
