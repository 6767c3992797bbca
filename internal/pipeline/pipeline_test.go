package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/orogen/prospector/internal/config"
	"github.com/orogen/prospector/internal/distance"
	"github.com/orogen/prospector/internal/hexgrid"
	"github.com/orogen/prospector/internal/hexgrid/hexgridtest"
	"github.com/orogen/prospector/internal/index"
	"github.com/orogen/prospector/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		CRS:       "EPSG:4326",
		RockA:     "serpentinite",
		RockB:     "granodiorite",
		FalloffKm: 3.5,
		Alpha:     0.75,
		WeightA:   0.5,
		Grid:      config.GridConfig{Resolution: 8},
		Paths:     config.PathsConfig{InputShapefile: "testdata/bedrock.shp"},
	}
}

// boxUnit builds a unit covering [x0,x1] x [y0,y1] whose rock_class attribute
// will classify as the given label.
func boxUnit(desc string, x0, y0, x1, y1 float64) model.Unit {
	ring := []geom.Coord{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})); err != nil {
		panic(err)
	}
	return model.Unit{Geometry: mp, Attrs: map[string]string{"rock_class": desc}}
}

// twoSeedUnits places a single serpentinite cell and a single granodiorite
// cell exactly three hops apart on the fake grid.
func twoSeedUnits() []model.Unit {
	return []model.Unit{
		boxUnit("Serpentinite melange", 0, 0, 1, 1),
		boxUnit("Granodiorite intrusion", 3, 0, 4, 1),
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := NewWithGrid(cfg, hexgridtest.NewFake(cfg.Grid.Resolution))
	require.NoError(t, err)
	return p
}

func scoresByCell(res *Result) map[string]float64 {
	out := make(map[string]float64, len(res.Records))
	for _, rec := range res.Records {
		out[rec.Cell] = rec.Score
	}
	return out
}

func TestProcess_ThreeHopScenario(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	res, err := p.Process(context.Background(), twoSeedUnits())
	require.NoError(t, err)
	require.Len(t, res.Records, 4)

	byCell := make(map[string]model.ScoreRecord, len(res.Records))
	for _, rec := range res.Records {
		byCell[rec.Cell] = rec
	}

	seedA := byCell[hexgridtest.CellAt(0, 0).String()]
	lsA, ok := seedA.LabelScoreFor("serpentinite")
	require.True(t, ok)
	assert.Equal(t, 0, lsA.Hops)
	assert.Equal(t, 1.0, lsA.Membership, "a seed's own membership is exactly 1")

	seedB := byCell[hexgridtest.CellAt(3, 0).String()]
	lsB, ok := seedB.LabelScoreFor("granodiorite")
	require.True(t, ok)
	assert.Equal(t, 0, lsB.Hops)
	assert.Equal(t, 1.0, lsB.Membership)

	// The cells between the seeds score strictly between 0 and 1, below the
	// peak per-label membership of 1.
	for _, q := range []int32{1, 2} {
		mid := byCell[hexgridtest.CellAt(q, 0).String()]
		assert.Greater(t, mid.Score, 0.0, "cell q=%d", q)
		assert.Less(t, mid.Score, 1.0, "cell q=%d", q)
	}
}

func TestProcess_SymmetricUnderRelabel(t *testing.T) {
	for _, w := range []float64{0.2, 0.5, 0.9} {
		cfg := testConfig()
		cfg.WeightA = w
		resAB, err := newTestPipeline(t, cfg).Process(context.Background(), twoSeedUnits())
		require.NoError(t, err)

		swapped := testConfig()
		swapped.RockA, swapped.RockB = cfg.RockB, cfg.RockA
		swapped.WeightA = 1 - w
		resBA, err := newTestPipeline(t, swapped).Process(context.Background(), twoSeedUnits())
		require.NoError(t, err)

		a, b := scoresByCell(resAB), scoresByCell(resBA)
		require.Equal(t, len(a), len(b))
		for cell, s := range a {
			assert.InDelta(t, s, b[cell], 1e-12, "weight %v cell %s", w, cell)
		}
	}
}

func TestProcess_WeightZeroIgnoresRockA(t *testing.T) {
	cfg := testConfig()
	cfg.WeightA = 0
	p := newTestPipeline(t, cfg)

	res, err := p.Process(context.Background(), twoSeedUnits())
	require.NoError(t, err)

	// With weight_a = 0 the score must equal rock_b's membership exactly.
	for _, rec := range res.Records {
		lsB, ok := rec.LabelScoreFor("granodiorite")
		require.True(t, ok)
		assert.InDelta(t, lsB.Membership, rec.Score, 1e-12, "cell %s", rec.Cell)
	}
}

func TestProcess_Idempotent(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	first, err := p.Process(context.Background(), twoSeedUnits())
	require.NoError(t, err)
	second, err := p.Process(context.Background(), twoSeedUnits())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Records, second.Records)
}

func TestProcess_RecordsSortedByCell(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	res, err := p.Process(context.Background(), twoSeedUnits())
	require.NoError(t, err)

	for i := 1; i < len(res.Records); i++ {
		prev, err := hexgrid.ParseCell(res.Records[i-1].Cell)
		require.NoError(t, err)
		cur, err := hexgrid.ParseCell(res.Records[i].Cell)
		require.NoError(t, err)
		assert.Less(t, prev, cur)
	}
}

func TestProcess_MembershipBounds(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	res, err := p.Process(context.Background(), twoSeedUnits())
	require.NoError(t, err)

	for _, rec := range res.Records {
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 1.0)
		for _, ls := range rec.Labels {
			assert.GreaterOrEqual(t, ls.Membership, 0.0)
			assert.LessOrEqual(t, ls.Membership, 1.0)
		}
	}
}

func TestProcess_EmptyInput(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	_, err := p.Process(context.Background(), []model.Unit{
		boxUnit("Basalt flow", 0, 0, 1, 1),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, index.ErrEmptyInput))
}

func TestProcess_EmptyRockClassAborts(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	_, err := p.Process(context.Background(), []model.Unit{
		boxUnit("Serpentinite melange", 0, 0, 1, 1),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, distance.ErrEmptyRockClass))
}

func TestProcess_EmptyRockClassDegradesWhenAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.Score.AllowEmptyClass = true
	p := newTestPipeline(t, cfg)

	res, err := p.Process(context.Background(), []model.Unit{
		boxUnit("Serpentinite melange", 0, 0, 1, 1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Records)

	// The missing class contributes membership 0, so the AND is 0 everywhere.
	for _, rec := range res.Records {
		assert.Equal(t, 0.0, rec.Score)
		lsB, ok := rec.LabelScoreFor("granodiorite")
		require.True(t, ok)
		assert.Equal(t, 0.0, lsB.Membership)
		assert.Equal(t, distance.Unreached, lsB.Hops)
	}
}

func TestNewWithGrid_RejectsInvalidParameters(t *testing.T) {
	cfg := testConfig()
	cfg.WeightA = 1.5
	_, err := NewWithGrid(cfg, hexgridtest.NewFake(8))
	require.Error(t, err)

	cfg = testConfig()
	cfg.Alpha = -1
	_, err = NewWithGrid(cfg, hexgridtest.NewFake(8))
	require.Error(t, err)

	cfg = testConfig()
	cfg.Index.OverlapPolicy = "coinflip"
	_, err = NewWithGrid(cfg, hexgridtest.NewFake(8))
	require.Error(t, err)
}

func TestNew_RejectsInvalidResolution(t *testing.T) {
	cfg := testConfig()
	cfg.Grid.Resolution = 42
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, hexgrid.ErrInvalidResolution))
}
