package persist

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/orogen/prospector/internal/config"
	"github.com/orogen/prospector/internal/hexgrid/hexgridtest"
	"github.com/orogen/prospector/internal/model"
	"github.com/orogen/prospector/internal/pipeline"
)

func testRecords() []model.ScoreRecord {
	return []model.ScoreRecord{
		{
			Cell: hexgridtest.CellAt(0, 0).String(),
			Labels: []model.LabelScore{
				{Label: "serpentinite", Hops: 0, DistanceKm: 0, Membership: 1},
				{Label: "granodiorite", Hops: 3, DistanceKm: 3, Membership: 0.57},
			},
			Score: 0.57,
		},
		{
			Cell: hexgridtest.CellAt(1, 0).String(),
			Labels: []model.LabelScore{
				{Label: "serpentinite", Hops: 1, DistanceKm: 1, Membership: 0.94},
				{Label: "granodiorite", Hops: -1, DistanceKm: -1, Membership: 0},
			},
			Score: 0,
		},
	}
}

func TestWriteGeoPackage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prospectivity.gpkg")
	grid := hexgridtest.NewFake(8)

	require.NoError(t, WriteGeoPackage(context.Background(), path, grid, testRecords()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var appID int64
	require.NoError(t, db.QueryRow("PRAGMA application_id").Scan(&appID))
	assert.Equal(t, int64(gpkgApplicationID), appID)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM prospectivity").Scan(&n))
	assert.Equal(t, 2, n)

	var tableName string
	var srs int
	require.NoError(t, db.QueryRow(
		"SELECT table_name, srs_id FROM gpkg_contents").Scan(&tableName, &srs))
	assert.Equal(t, "prospectivity", tableName)
	assert.Equal(t, 4326, srs)

	// Unreached distances persist as NULL, memberships as numbers.
	var distB sql.NullFloat64
	var muB, scoreVal float64
	var geom []byte
	require.NoError(t, db.QueryRow(
		"SELECT distance_b, membership_b, score, geom FROM prospectivity WHERE cell = ?",
		testRecords()[1].Cell).Scan(&distB, &muB, &scoreVal, &geom))
	assert.False(t, distB.Valid)
	assert.Equal(t, 0.0, muB)
	assert.Equal(t, 0.0, scoreVal)
	// GeoPackage binary header precedes the WKB payload.
	require.Greater(t, len(geom), 8)
	assert.Equal(t, byte('G'), geom[0])
	assert.Equal(t, byte('P'), geom[1])
}

func TestWriteGeoPackage_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prospectivity.gpkg")
	grid := hexgridtest.NewFake(8)

	require.NoError(t, WriteGeoPackage(context.Background(), path, grid, testRecords()))
	require.NoError(t, WriteGeoPackage(context.Background(), path, grid, testRecords()[:1]))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM prospectivity").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prospectivity.csv")

	require.NoError(t, WriteCSV(path, testRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"cell", "distance_a", "distance_b", "membership_a", "membership_b", "score"}, rows[0])
	assert.Equal(t, testRecords()[0].Cell, rows[1][0])
	assert.Equal(t, "3", rows[1][2])
	// Unreached distance stays blank rather than carrying the sentinel.
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "0", rows[2][5])
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.yaml")
	cfg := &config.Config{
		CRS: "EPSG:4326", RockA: "serpentinite", RockB: "granodiorite",
		FalloffKm: 3.5, Alpha: 0.75, WeightA: 0.5,
		Grid: config.GridConfig{Resolution: 8},
	}
	res := &pipeline.Result{
		RunID:    "test-run",
		Records:  testRecords(),
		MaxHops:  4,
		CellKm:   1,
		Units:    2,
		Duration: 1500 * time.Millisecond,
	}

	require.NoError(t, WriteManifest(path, cfg, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, "test-run", m.RunID)
	assert.Equal(t, "serpentinite", m.RockA)
	assert.Equal(t, 2, m.Cells)
	assert.Equal(t, 4, m.MaxHops)
	assert.Equal(t, int64(1500), m.DurationMs)
}
