package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/planar"
)

// ReadShapefile reads every polygon record of a shapefile. Rings within a
// record are classified into shells and holes by nesting, so the
// clockwise-shell convention of the format is not relied upon.
func ReadShapefile(path string) (geom.T, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var (
		parts   []*geom.Polygon
		skipped int
	)
	for reader.Next() {
		_, shape := reader.Shape()
		rings := polygonRings(shape)
		if len(rings) == 0 {
			skipped++
			continue
		}
		parts = append(parts, planar.Polygons(planar.AssembleRings(rings))...)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "boundary: read shapefile %s", path)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("component", "boundary"),
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return planar.Collect(parts), nil
}

// polygonRings splits a shapefile polygon into closed flat rings. Parts
// with fewer than four points are dropped.
func polygonRings(shape shp.Shape) [][]float64 {
	var pl *shp.PolyLine
	switch s := shape.(type) {
	case *shp.Polygon:
		pl = (*shp.PolyLine)(s)
	default:
		return nil
	}
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	rings := make([][]float64, 0, pl.NumParts)
	for i := int32(0); i < pl.NumParts; i++ {
		start := pl.Parts[i]
		end := int32(len(pl.Points))
		if i+1 < pl.NumParts {
			end = pl.Parts[i+1]
		}
		if start < 0 || end > int32(len(pl.Points)) || end-start < 4 {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i))
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}
		rings = append(rings, flat)
	}
	return rings
}
