// Package boundary loads the optional outline that bounds Voronoi cells.
package boundary

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/planar"
)

// ErrEmptyBoundary is returned when no path is configured or the source
// holds no polygon. Callers recover by clipping to the buffered point hull.
var ErrEmptyBoundary = eris.New("boundary: source missing or empty")

// Load reads a boundary from a shapefile (.shp) or GeoJSON file (.geojson,
// .json). Every polygon part of every record is returned in one geometry;
// parts are not unioned here.
func Load(path string) (geom.T, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyBoundary
	}

	var (
		g   geom.T
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		g, err = ReadShapefile(path)
	case ".geojson", ".json":
		g, err = readGeoJSONFile(path)
	default:
		return nil, eris.Errorf("boundary: unsupported format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if planar.IsEmpty(g) {
		return nil, eris.Wrapf(ErrEmptyBoundary, "%s", path)
	}

	zap.L().Info("boundary: loaded",
		zap.String("component", "boundary"),
		zap.String("path", path),
		zap.Int("parts", len(planar.Polygons(g))),
		zap.Int("vertices", planar.NumVertices(g)),
	)
	return g, nil
}

func readGeoJSONFile(path string) (geom.T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadGeoJSON(f)
}

// ReadGeoJSON decodes a FeatureCollection, a Feature or a bare geometry and
// returns its polygon parts.
func ReadGeoJSON(r io.Reader) (geom.T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: read geojson")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, eris.Wrap(err, "boundary: decode geojson")
	}

	var geoms []geom.T
	switch head.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "boundary: decode feature collection")
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "boundary: decode feature")
		}
		geoms = append(geoms, f.Geometry)
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "boundary: decode geometry")
		}
		geoms = append(geoms, g)
	}

	var parts []*geom.Polygon
	for _, g := range geoms {
		parts = appendParts(parts, g)
	}
	return planar.Collect(parts), nil
}

// appendParts collects polygon parts, re-assembling rings so shells wind
// counter-clockwise and holes clockwise whatever the source order.
func appendParts(parts []*geom.Polygon, g geom.T) []*geom.Polygon {
	switch t := g.(type) {
	case *geom.GeometryCollection:
		for i := 0; i < t.NumGeoms(); i++ {
			parts = appendParts(parts, t.Geom(i))
		}
		return parts
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		if g != nil {
			zap.L().Debug("boundary: skipping non-areal geometry",
				zap.String("component", "boundary"),
				zap.String("type", typeName(g)),
			)
		}
		return parts
	}
	for _, p := range planar.Polygons(g) {
		rings := make([][]float64, 0, p.NumLinearRings())
		for i := 0; i < p.NumLinearRings(); i++ {
			rings = append(rings, append([]float64(nil), p.LinearRing(i).FlatCoords()...))
		}
		parts = append(parts, planar.Polygons(planar.AssembleRings(rings))...)
	}
	return parts
}

func typeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint:
		return "point"
	case *geom.LineString, *geom.MultiLineString:
		return "line"
	default:
		return "other"
	}
}
