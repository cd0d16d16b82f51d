package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
)

// knownSRS holds the name and OGC WKT definition of reference systems the
// layer may be written in besides the two defined by every GeoPackage.
var knownSRS = map[int]struct{ name, wkt string }{
	5514: {
		name: "S-JTSK / Krovak East North",
		wkt: `PROJCS["S-JTSK / Krovak East North",` +
			`GEOGCS["S-JTSK",DATUM["System_of_the_Unified_Trigonometrical_Cadastral_Network",` +
			`SPHEROID["Bessel 1841",6377397.155,299.1528128,AUTHORITY["EPSG","7004"]],` +
			`TOWGS84[589,76,480,0,0,0,0],AUTHORITY["EPSG","6156"]],` +
			`PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],` +
			`UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4156"]],` +
			`PROJECTION["Krovak"],` +
			`PARAMETER["latitude_of_center",49.5],` +
			`PARAMETER["longitude_of_center",24.8333333333333],` +
			`PARAMETER["azimuth",30.2881397527778],` +
			`PARAMETER["pseudo_standard_parallel_1",78.5],` +
			`PARAMETER["scale_factor",0.9999],` +
			`PARAMETER["false_easting",0],` +
			`PARAMETER["false_northing",0],` +
			`UNIT["metre",1,AUTHORITY["EPSG","9001"]],` +
			`AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","5514"]]`,
	},
}

// GeoPackageOptions names the layer and its spatial reference.
type GeoPackageOptions struct {
	Layer   string
	SRID    int
	Palette []string
	RunID   string
}

const gpkgSchema = `
PRAGMA application_id = 1196444487;
PRAGMA user_version = 10300;

CREATE TABLE gpkg_spatial_ref_sys (
	srs_name                 TEXT    NOT NULL,
	srs_id                   INTEGER NOT NULL PRIMARY KEY,
	organization             TEXT    NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT    NOT NULL,
	description              TEXT
);

CREATE TABLE gpkg_contents (
	table_name  TEXT     NOT NULL PRIMARY KEY,
	data_type   TEXT     NOT NULL,
	identifier  TEXT     UNIQUE,
	description TEXT     DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gpkg_geometry_columns (
	table_name         TEXT    NOT NULL,
	column_name        TEXT    NOT NULL,
	geometry_type_name TEXT    NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', 'undefined cartesian coordinate reference system'),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', 'undefined geographic coordinate reference system'),
	('WGS 84 geodetic', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]', 'longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid');
`

// WriteGeoPackage writes regions into a fresh GeoPackage at path as a
// MULTIPOLYGON feature table. An existing file is replaced.
func WriteGeoPackage(ctx context.Context, path string, regions []*region.Region, opts GeoPackageOptions) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "geopackage: remove %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "geopackage: open")
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, gpkgSchema); err != nil {
		return eris.Wrap(err, "geopackage: create schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "geopackage: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := writeLayer(ctx, tx, regions, opts); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "geopackage: commit")
}

func writeLayer(ctx context.Context, tx *sql.Tx, regions []*region.Region, opts GeoPackageOptions) error {
	table := quoteIdent(opts.Layer)

	if opts.SRID != 4326 && opts.SRID > 0 {
		name, def := fmt.Sprintf("EPSG:%d", opts.SRID), "undefined"
		if srs, ok := knownSRS[opts.SRID]; ok {
			name, def = srs.name, srs.wkt
		} else {
			zap.L().Warn("geopackage: no definition for srs, writing it as undefined",
				zap.String("component", "export"),
				zap.Int("srid", opts.SRID),
			)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition) VALUES (?, ?, 'EPSG', ?, ?)`,
			name, opts.SRID, opts.SRID, def)
		if err != nil {
			return eris.Wrap(err, "geopackage: insert srs")
		}
	}

	ddl := `CREATE TABLE ` + table + ` (
	fid         INTEGER PRIMARY KEY AUTOINCREMENT,
	geom        MULTIPOLYGON,
	code        TEXT NOT NULL,
	point_count INTEGER NOT NULL,
	area        REAL NOT NULL,
	method      TEXT NOT NULL,
	color_index INTEGER,
	fill        TEXT
)`
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return eris.Wrap(err, "geopackage: create layer")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (geom, code, point_count, area, method, color_index, fill) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "geopackage: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	extent := geom.NewBounds(geom.XY)
	for _, r := range regions {
		blob, err := EncodeGeometry(r.Geometry, opts.SRID)
		if err != nil {
			return eris.Wrapf(err, "geopackage: encode %s", r.Code)
		}
		extent.Extend(r.Geometry)

		var color, fill interface{}
		if c, ok := r.Color(); ok {
			color, fill = c, Fill(opts.Palette, r)
		}
		if _, err := stmt.ExecContext(ctx, blob, r.Code, r.PointCount, r.Area, r.Method.String(), color, fill); err != nil {
			return eris.Wrapf(err, "geopackage: insert %s", r.Code)
		}
	}

	var minX, minY, maxX, maxY interface{}
	if len(regions) > 0 && !extent.IsEmpty() {
		minX, minY, maxX, maxY = extent.Min(0), extent.Min(1), extent.Max(0), extent.Max(1)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, description, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		opts.Layer, opts.Layer, "run "+opts.RunID, minX, minY, maxX, maxY, opts.SRID)
	if err != nil {
		return eris.Wrap(err, "geopackage: insert contents")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, 'geom', 'MULTIPOLYGON', ?, 0, 0)`,
		opts.Layer, opts.SRID)
	return eris.Wrap(err, "geopackage: insert geometry column")
}

// EncodeGeometry returns a GeoPackage geometry blob: the "GP" header with a
// little-endian XY envelope followed by little-endian WKB of g promoted to
// a MultiPolygon.
func EncodeGeometry(g geom.T, srid int) ([]byte, error) {
	mp, ok := g.(*geom.MultiPolygon)
	if !ok {
		mp = geom.NewMultiPolygon(geom.XY)
		for _, p := range planar.Polygons(g) {
			if err := mp.Push(p); err != nil {
				return nil, eris.Wrap(err, "geopackage: promote polygon")
			}
		}
	}

	var buf bytes.Buffer
	buf.Write([]byte{'G', 'P', 0, 0x03})
	b := mp.Bounds()
	header := []interface{}{int32(srid), b.Min(0), b.Max(0), b.Min(1), b.Max(1)}
	if mp.Empty() {
		// Envelope of an empty geometry is NaN by convention.
		nan := math.NaN()
		header = []interface{}{int32(srid), nan, nan, nan, nan}
	}
	for _, v := range header {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, eris.Wrap(err, "geopackage: write header")
		}
	}
	if err := wkb.Write(&buf, wkb.NDR, mp); err != nil {
		return nil, eris.Wrap(err, "geopackage: write wkb")
	}
	return buf.Bytes(), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
