package voronoi

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marekrost/mapa-psc/internal/mesh"
	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
)

// Cell is the clipped Voronoi cell of one distinct generating point.
type Cell struct {
	Code     string
	Point    region.Point
	Geometry geom.T
}

// Tessellation is the result of the global stage.
type Tessellation struct {
	Cells []Cell
	// Dropped counts generators whose cell could not be closed or fell
	// entirely outside the clip region.
	Dropped int
}

// Tessellate computes one Voronoi diagram over the points of every group
// and clips each cell to clip. A coordinate shared by several groups
// belongs to the group listed first. The returned error wraps
// mesh.ErrDegenerate when the combined point set cannot be triangulated.
func Tessellate(ctx context.Context, groups []region.PointGroup, clip geom.T, workers int) (*Tessellation, error) {
	var (
		points []region.Point
		owners []string
	)
	for _, g := range groups {
		for _, p := range g.Points {
			points = append(points, p)
			owners = append(owners, g.Code)
		}
	}

	m, err := mesh.Triangulate(points)
	if err != nil {
		return nil, eris.Wrap(err, "voronoi: triangulate")
	}
	codes := make([]string, len(m.Points))
	assigned := make([]bool, len(m.Points))
	for i := range points {
		j := m.Index(i)
		if !assigned[j] {
			codes[j], assigned[j] = owners[i], true
		}
	}

	d := New(m)
	fin := NewFinitizer(d, planar.Bounds(clip))

	cells := make([]geom.T, len(d.Points))
	eg, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i := range d.Points {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cell, err := clipCell(fin, d, i, clip)
			if err != nil {
				zap.L().Debug("voronoi: cell dropped",
					zap.String("component", "voronoi"),
					zap.String("code", codes[i]),
					zap.Int("point", i),
					zap.Error(err),
				)
				return nil
			}
			cells[i] = cell
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "voronoi: clip cells")
	}

	t := &Tessellation{Cells: make([]Cell, 0, len(cells))}
	for i, c := range cells {
		if c == nil {
			t.Dropped++
			continue
		}
		t.Cells = append(t.Cells, Cell{Code: codes[i], Point: d.Points[i], Geometry: c})
	}
	zap.L().Info("voronoi: tessellation complete",
		zap.String("component", "voronoi"),
		zap.Int("generators", len(d.Points)),
		zap.Int("cells", len(t.Cells)),
		zap.Int("dropped", t.Dropped),
	)
	return t, nil
}

func clipCell(fin Finitizer, d *Diagram, i int, clip geom.T) (geom.T, error) {
	poly, err := fin.Polygon(d, i)
	if err != nil {
		return nil, err
	}
	var g geom.T = poly
	if !planar.IsEmpty(clip) {
		g = planar.Intersection(poly, clip)
		if planar.IsEmpty(g) {
			return nil, eris.New("voronoi: cell outside clip region")
		}
	}
	return planar.Ensure(g)
}

// ByCode groups cell geometries by postal code. Codes are returned sorted.
func ByCode(cells []Cell) ([]string, map[string][]geom.T) {
	byCode := make(map[string][]geom.T)
	for _, c := range cells {
		byCode[c.Code] = append(byCode[c.Code], c.Geometry)
	}
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, byCode
}

// Dissolve unions the cells of one code and simplifies the result with
// tolerance. The simplified geometry is validated and repaired once.
func Dissolve(cells []geom.T, tolerance float64) (geom.T, error) {
	merged := planar.Union(cells)
	if planar.IsEmpty(merged) {
		return nil, eris.New("voronoi: dissolve produced no polygon")
	}
	g, err := planar.Ensure(planar.Simplify(merged, tolerance))
	if err != nil {
		return nil, eris.Wrap(err, "voronoi: dissolve")
	}
	return g, nil
}
