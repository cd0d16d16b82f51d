package boundary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/xy"

	"github.com/marekrost/mapa-psc/internal/planar"
)

// Clockwise shell with a counter-clockwise hole, as many GIS tools write it.
const featureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "kraj"}, "geometry": {
      "type": "Polygon",
      "coordinates": [
        [[0,0],[0,10],[10,10],[10,0],[0,0]],
        [[4,4],[6,4],[6,6],[4,6],[4,4]]
      ]}},
    {"type": "Feature", "properties": {}, "geometry": {
      "type": "Point", "coordinates": [50, 50]}},
    {"type": "Feature", "properties": {}, "geometry": {
      "type": "MultiPolygon",
      "coordinates": [[[[20,0],[30,0],[30,10],[20,10],[20,0]]]]}}
  ]
}`

func TestReadGeoJSONFeatureCollection(t *testing.T) {
	g, err := ReadGeoJSON(strings.NewReader(featureCollection))
	require.NoError(t, err)
	require.NoError(t, planar.Validate(g))

	polys := planar.Polygons(g)
	require.Len(t, polys, 2)
	assert.Equal(t, 2, polys[0].NumLinearRings())
	assert.InDelta(t, 196.0, planar.Area(g), 1e-9)
	// Shell reoriented counter-clockwise (negative signed area in go-geom).
	assert.Less(t, xy.SignedArea(polys[0].Layout(), polys[0].LinearRing(0).FlatCoords()), 0.0)
}

func TestReadGeoJSONFeatureAndGeometry(t *testing.T) {
	feature := `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`
	g, err := ReadGeoJSON(strings.NewReader(feature))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, planar.Area(g), 1e-12)

	bare := `{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`
	g, err = ReadGeoJSON(strings.NewReader(bare))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, planar.Area(g), 1e-12)

	_, err = ReadGeoJSON(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestLoadMissingOrEmpty(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrEmptyBoundary)

	path := filepath.Join(t.TempDir(), "points.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Point","coordinates":[1,2]}`), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrEmptyBoundary)

	_, err = Load(filepath.Join(t.TempDir(), "boundary.kml"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestLoadGeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kraje.geojson")
	require.NoError(t, os.WriteFile(path, []byte(featureCollection), 0o600))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, planar.Polygons(g), 2)
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hranice.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	// Shell clockwise, hole counter-clockwise, per the format.
	withHole := shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
		{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4}},
	})
	w.Write((*shp.Polygon)(withHole))
	second := shp.NewPolyLine([][]shp.Point{
		{{X: 20, Y: 0}, {X: 20, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 0}, {X: 20, Y: 0}},
	})
	w.Write((*shp.Polygon)(second))
	w.Close()

	g, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, planar.Validate(g))

	polys := planar.Polygons(g)
	require.Len(t, polys, 2)
	assert.Equal(t, 2, polys[0].NumLinearRings())
	assert.InDelta(t, 196.0, planar.Area(g), 1e-9)
}
