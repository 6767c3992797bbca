// Package persist writes the scored cell table to disk: a GeoPackage for GIS
// tools, a flat CSV, and a YAML run manifest.
package persist

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/orogen/prospector/internal/hexgrid"
	"github.com/orogen/prospector/internal/model"
)

const (
	gpkgApplicationID = 0x47504B47 // "GPKG"
	gpkgUserVersion   = 10300      // GeoPackage 1.3.0
	gpkgSRID          = 4326
	featureTable      = "prospectivity"
)

const gpkgSchema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE gpkg_contents (
	table_name  TEXT PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
);

CREATE TABLE prospectivity (
	fid          INTEGER PRIMARY KEY AUTOINCREMENT,
	cell         TEXT NOT NULL UNIQUE,
	distance_a   DOUBLE,
	distance_b   DOUBLE,
	membership_a DOUBLE NOT NULL,
	membership_b DOUBLE NOT NULL,
	score        DOUBLE NOT NULL,
	geom         BLOB
);

INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined Cartesian SRS', -1, 'NONE', -1, 'undefined', 'undefined cartesian coordinate reference system'),
	('Undefined Geographic SRS', 0, 'NONE', 0, 'undefined', 'undefined geographic coordinate reference system'),
	('WGS 84', 4326, 'EPSG', 4326,
	 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]',
	 'World Geodetic System 1984');

INSERT INTO gpkg_geometry_columns VALUES ('prospectivity', 'geom', 'POLYGON', 4326, 0, 0);
`

// WriteGeoPackage writes the scored table as a GeoPackage feature layer with
// one hexagon polygon per cell. Any existing file at path is replaced.
func WriteGeoPackage(ctx context.Context, path string, grid hexgrid.Grid, records []model.ScoreRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "persist: create output dir for %s", path)
	}
	_ = os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "persist: open geopackage")
	}
	defer func() { _ = db.Close() }()

	for _, pragma := range []string{
		"PRAGMA application_id = 1196444487",
		"PRAGMA user_version = 10300",
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return eris.Wrapf(err, "persist: exec %s", pragma)
		}
	}

	if _, err := db.ExecContext(ctx, gpkgSchema); err != nil {
		return eris.Wrap(err, "persist: create geopackage schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "persist: begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prospectivity (cell, distance_a, distance_b, membership_a, membership_b, score, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "persist: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, rec := range records {
		cell, err := hexgrid.ParseCell(rec.Cell)
		if err != nil {
			return err
		}
		ring, err := grid.CellBoundary(cell)
		if err != nil {
			return eris.Wrapf(err, "persist: boundary of %s", rec.Cell)
		}
		for _, c := range ring {
			minX, maxX = math.Min(minX, c.X()), math.Max(maxX, c.X())
			minY, maxY = math.Min(minY, c.Y()), math.Max(maxY, c.Y())
		}

		blob, err := gpkgGeometry(ring)
		if err != nil {
			return err
		}

		distA, distB := labelDistances(rec)
		muA, muB := labelMemberships(rec)
		if _, err := stmt.ExecContext(ctx, rec.Cell, distA, distB, muA, muB, rec.Score, blob); err != nil {
			return eris.Wrapf(err, "persist: insert cell %s", rec.Cell)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		featureTable, featureTable, minX, minY, maxX, maxY, gpkgSRID); err != nil {
		return eris.Wrap(err, "persist: register contents")
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "persist: commit")
	}

	zap.L().Info("wrote geopackage",
		zap.String("component", "persist"),
		zap.String("path", path),
		zap.Int("features", len(records)),
	)
	return nil
}

// gpkgGeometry encodes a boundary ring as a GeoPackage binary geometry:
// the "GP" header (little-endian, no envelope, SRID 4326) followed by WKB.
func gpkgGeometry(ring []geom.Coord) ([]byte, error) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring}).SetSRID(gpkgSRID)

	data, err := wkb.Marshal(poly, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "persist: encode WKB")
	}

	var buf bytes.Buffer
	buf.WriteByte('G')
	buf.WriteByte('P')
	buf.WriteByte(0)    // version
	buf.WriteByte(0x01) // little-endian, no envelope
	if err := binary.Write(&buf, binary.LittleEndian, int32(gpkgSRID)); err != nil {
		return nil, eris.Wrap(err, "persist: encode header")
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

// labelDistances returns the first two per-label km distances, NULL (nil) for
// unreached cells so GIS tools do not misread the sentinel as a distance.
func labelDistances(rec model.ScoreRecord) (a, b any) {
	vals := make([]any, 2)
	for i := 0; i < 2 && i < len(rec.Labels); i++ {
		if rec.Labels[i].DistanceKm >= 0 {
			vals[i] = rec.Labels[i].DistanceKm
		}
	}
	return vals[0], vals[1]
}

func labelMemberships(rec model.ScoreRecord) (a, b float64) {
	vals := make([]float64, 2)
	for i := 0; i < 2 && i < len(rec.Labels); i++ {
		vals[i] = rec.Labels[i].Membership
	}
	return vals[0], vals[1]
}
