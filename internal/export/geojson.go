// Package export writes coloured regions for the downstream tiler and GIS
// tools: GeoJSON, GeoPackage and a YAML run summary.
package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/marekrost/mapa-psc/internal/region"
)

// Fill maps a colour index onto the palette, wrapping around its length.
// Uncoloured regions and an empty palette yield "".
func Fill(palette []string, r *region.Region) string {
	c, ok := r.Color()
	if !ok || len(palette) == 0 {
		return ""
	}
	return palette[c%len(palette)]
}

// Properties returns the attribute set shared by every export format.
func Properties(r *region.Region, palette []string) map[string]interface{} {
	props := map[string]interface{}{
		"code":        r.Code,
		"point_count": r.PointCount,
		"area":        r.Area,
		"method":      r.Method.String(),
		"method_kind": string(r.Method.Kind),
	}
	if r.Method.HasParam() {
		props["method_param"] = r.Method.Param
	}
	if c, ok := r.Color(); ok {
		props["color_index"] = c
		props["fill"] = Fill(palette, r)
	}
	return props
}

// FeatureCollection converts regions into a GeoJSON feature collection.
// Feature IDs are the postal codes.
func FeatureCollection(regions []*region.Region, palette []string) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(regions))}
	for _, r := range regions {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         r.Code,
			Geometry:   r.Geometry,
			Properties: Properties(r, palette),
		})
	}
	return fc
}

// WriteGeoJSON writes regions as a FeatureCollection to path.
func WriteGeoJSON(path string, regions []*region.Region, palette []string) error {
	data, err := json.Marshal(FeatureCollection(regions, palette))
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
