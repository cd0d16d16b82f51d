package coloring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/marekrost/mapa-psc/internal/config"
)

func square(x0, y0, x1, y1 float64) geom.T {
	return geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}, []int{10})
}

func TestGraphInvariants(t *testing.T) {
	t.Parallel()

	g := NewGraph(4)
	require.NoError(t, g.AddEdge(2, 0))
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(0, 2))

	assert.ErrorIs(t, g.AddEdge(3, 3), ErrLoop)
	assert.ErrorIs(t, g.AddEdge(0, 4), ErrNodeRange)
	assert.ErrorIs(t, g.AddEdge(-1, 0), ErrNodeRange)

	assert.Equal(t, []int{1, 2}, g.Neighbors(0))
	assert.True(t, g.HasEdge(1, 0))
	assert.False(t, g.HasEdge(1, 2))
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, 2, g.MaxDegree())
	assert.Equal(t, 0, g.Degree(3))
	assert.NoError(t, g.CheckSymmetric())

	g.adj[3] = []int{1}
	assert.ErrorIs(t, g.CheckSymmetric(), ErrAsymmetric)
}

func TestWelshPowell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		n         int
		edges     [][2]int
		want      []int
		maxColors int
	}{
		{name: "empty", n: 0, want: []int{}},
		{name: "isolated", n: 3, want: []int{0, 0, 0}, maxColors: 1},
		{name: "path", n: 3, edges: [][2]int{{0, 1}, {1, 2}}, want: []int{1, 0, 1}, maxColors: 2},
		{name: "triangle", n: 3, edges: [][2]int{{0, 1}, {1, 2}, {0, 2}}, want: []int{0, 1, 2}, maxColors: 3},
		{name: "star", n: 5, edges: [][2]int{{4, 0}, {4, 1}, {4, 2}, {4, 3}}, want: []int{1, 1, 1, 1, 0}, maxColors: 2},
		{name: "even cycle", n: 4, edges: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, want: []int{0, 1, 0, 1}, maxColors: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewGraph(tt.n)
			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}
			colors := WelshPowell(g)
			assert.Equal(t, tt.want, colors)
			assert.NoError(t, Verify(g, colors))
			assert.Len(t, Distribution(colors), tt.maxColors)
		})
	}
}

func TestWelshPowellRandomGraphs(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		g := NewGraph(n)
		for k := 0; k < n*3; k++ {
			i, j := rng.Intn(n), rng.Intn(n)
			if i != j {
				require.NoError(t, g.AddEdge(i, j))
			}
		}
		require.NoError(t, g.CheckSymmetric())

		colors := WelshPowell(g)
		require.NoError(t, Verify(g, colors), "round %d", round)
		assert.LessOrEqual(t, len(Distribution(colors)), g.MaxDegree()+1)
	}
}

func TestVerifyDetectsConflict(t *testing.T) {
	t.Parallel()

	g := NewGraph(2)
	require.NoError(t, g.AddEdge(0, 1))
	assert.ErrorIs(t, Verify(g, []int{0, 0}), ErrConflict)
	assert.Error(t, Verify(g, []int{0}))
	assert.Error(t, Verify(g, []int{0, -1}))
}

func TestAdjacencySharedEdgeGetsDistinctColors(t *testing.T) {
	t.Parallel()

	geoms := []geom.T{
		square(0, 0, 10, 10),
		square(10, 0, 20, 10),
		square(100, 100, 110, 110),
	}
	for _, name := range []string{config.PredicateIntersects, config.PredicateTouchesOrIntersects} {
		pred, err := PredicateFor(name, 1)
		require.NoError(t, err)

		g := Adjacency(geoms, pred, 1)
		require.NoError(t, g.CheckSymmetric())
		assert.True(t, g.HasEdge(0, 1), name)
		assert.Equal(t, 0, g.Degree(2), name)

		colors := WelshPowell(g)
		assert.NotEqual(t, colors[0], colors[1], name)
		assert.NoError(t, Verify(g, colors))
	}
}

func TestAdjacencyTolerance(t *testing.T) {
	t.Parallel()

	// A 0.5 gap, as simplification leaves between neighbours.
	geoms := []geom.T{square(0, 0, 10, 10), square(10.5, 0, 20, 10)}

	loose, err := PredicateFor(config.PredicateTouchesOrIntersects, 1)
	require.NoError(t, err)
	assert.True(t, Adjacency(geoms, loose, 1).HasEdge(0, 1))

	strict, err := PredicateFor(config.PredicateIntersects, 0)
	require.NoError(t, err)
	assert.False(t, Adjacency(geoms, strict, 0).HasEdge(0, 1))
}

func TestAdjacencyGrid(t *testing.T) {
	t.Parallel()

	// 4x4 grid of unit squares: rook and queen neighbours all touch.
	var geoms []geom.T
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			geoms = append(geoms, square(float64(x), float64(y), float64(x+1), float64(y+1)))
		}
	}
	pred, err := PredicateFor(config.PredicateIntersects, 0)
	require.NoError(t, err)
	g := Adjacency(geoms, pred, 0)

	// Interior cell (1,1) has eight neighbours, a corner three.
	assert.Equal(t, 8, g.Degree(5))
	assert.Equal(t, 3, g.Degree(0))

	colors := WelshPowell(g)
	require.NoError(t, Verify(g, colors))
	assert.Len(t, Distribution(colors), 4)
}

func TestAdjacencySkipsEmptyGeometry(t *testing.T) {
	t.Parallel()

	pred, err := PredicateFor(config.PredicateIntersects, 0)
	require.NoError(t, err)
	g := Adjacency([]geom.T{nil, square(0, 0, 1, 1)}, pred, 0)
	assert.Equal(t, 2, g.Len())
	assert.Zero(t, g.NumEdges())
}

func TestPredicateForUnknown(t *testing.T) {
	t.Parallel()

	_, err := PredicateFor("near", 0)
	assert.Error(t, err)
}

func TestAdjacencyIdenticalBounds(t *testing.T) {
	// The first two regions share one bounding box; each must stay its own node.
	geoms := []geom.T{
		square(0, 0, 10, 10),
		geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 0}, []int{8}),
		square(10, 0, 20, 10),
	}
	pred, err := PredicateFor(config.PredicateIntersects, 0)
	require.NoError(t, err)

	g := Adjacency(geoms, pred, 0)
	require.NoError(t, g.CheckSymmetric())
	assert.True(t, g.HasEdge(0, 1))
	assert.True(t, g.HasEdge(0, 2))
	assert.True(t, g.HasEdge(1, 2))

	colors := WelshPowell(g)
	require.NoError(t, Verify(g, colors))
	assert.Len(t, Distribution(colors), 3)
}
