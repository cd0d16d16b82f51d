package region

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodKindValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind MethodKind
		want string
	}{
		{MethodBuffer, "buffer"},
		{MethodBufferedLine, "buffered_line"},
		{MethodTriangle, "triangle"},
		{MethodConvexHull, "convex_hull"},
		{MethodConvexHullFallback, "convex_hull_fallback"},
		{MethodAlphaShape, "alpha_shape"},
		{MethodDelaunayFilter, "delaunay_filter"},
		{MethodVoronoi, "voronoi"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.kind))
		})
	}
}

func TestMethodString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "buffer", Buffer().String())
	assert.Equal(t, "alpha_shape(alpha=150.000)", AlphaShape(150).String())
	assert.Equal(t, "delaunay_filter(max_edge=1.500)", DelaunayFilter(1.5).String())
	assert.True(t, AlphaShape(1).HasParam())
	assert.False(t, Voronoi().HasParam())
	assert.Zero(t, ConvexHullFallback().Param)
}

func TestPointGroupUnique(t *testing.T) {
	t.Parallel()

	g := PointGroup{Code: "11000", Points: []Point{{1, 1}, {2, 2}, {1, 1}, {3, 3}, {2, 2}}}
	assert.Equal(t, []Point{{1, 1}, {2, 2}, {3, 3}}, g.Unique())
	assert.Len(t, g.Points, 5)
}

func TestRegionSetColorOnce(t *testing.T) {
	t.Parallel()

	r := &Region{Code: "11000"}
	_, ok := r.Color()
	assert.False(t, ok)

	r.SetColor(2)
	r.SetColor(5)

	c, ok := r.Color()
	require.True(t, ok)
	assert.Equal(t, 2, c)
}

func TestFailureUnwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	f := Failure{Code: "25001", Stage: "build", Err: sentinel}
	assert.ErrorIs(t, f, sentinel)
	assert.Equal(t, "25001: build: boom", f.Error())
}
