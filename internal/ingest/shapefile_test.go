package ingest

import (
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestShapefile creates a shapefile with two unit squares and a
// ROCK_CLASS attribute column.
func writeTestShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bedrock.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{shp.StringField("ROCK_CLASS", 40)})

	shapes := []struct {
		points []shp.Point
		class  string
	}{
		{squareRing(0, 0), "Serpentinite melange"},
		{squareRing(3, 0), "Granodiorite intrusion"},
	}
	for i, s := range shapes {
		poly := &shp.Polygon{
			Box:       shp.Box{MinX: s.points[0].X, MinY: s.points[0].Y, MaxX: s.points[2].X, MaxY: s.points[2].Y},
			NumParts:  1,
			NumPoints: int32(len(s.points)),
			Parts:     []int32{0},
			Points:    s.points,
		}
		w.Write(poly)
		w.WriteAttribute(i, 0, s.class)
	}
	w.Close()
	return path
}

func squareRing(x, y float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y}, {X: x, Y: y + 1}, {X: x + 1, Y: y + 1}, {X: x + 1, Y: y}, {X: x, Y: y},
	}
}

func TestReadShapefile_RoundTrip(t *testing.T) {
	path := writeTestShapefile(t)

	units, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "Serpentinite melange", units[0].Attrs["rock_class"])
	assert.Equal(t, "Granodiorite intrusion", units[1].Attrs["rock_class"])

	require.NotNil(t, units[0].Geometry)
	require.Equal(t, 1, units[0].Geometry.NumPolygons())
	b := units[0].Geometry.Bounds()
	assert.InDelta(t, 0, b.Min(0), 1e-9)
	assert.InDelta(t, 1, b.Max(0), 1e-9)

	// Labels are not assigned at read time.
	assert.Equal(t, "", units[0].Label)
}

func TestReadShapefile_MissingFile(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
}

func TestReadShapefile_EmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("ROCK_CLASS", 40)})
	w.Close()

	_, err = ReadShapefile(path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoPolygons))
}
