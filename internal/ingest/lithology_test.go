package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orogen/prospector/internal/config"
	"github.com/orogen/prospector/internal/model"
)

var testLabels = []string{"serpentinite", "granodiorite"}

func unitWith(attrs map[string]string) model.Unit {
	return model.Unit{Attrs: attrs}
}

func TestClassifyLithology_KeywordMatch(t *testing.T) {
	cfg := config.LithologyConfig{
		SearchColumns: []string{"rock_class", "rock_name"},
		Keywords: map[string][]string{
			"serpentinite": {"serpentinite", "ultramafic"},
			"granodiorite": {"granodiorite", "tonalite"},
		},
	}

	units := ClassifyLithology([]model.Unit{
		unitWith(map[string]string{"rock_class": "ULTRAMAFIC ROCKS, SERPENTINIZED"}),
		unitWith(map[string]string{"rock_name": "Coast Tonalite suite"}),
		unitWith(map[string]string{"rock_class": "Basaltic andesite"}),
		unitWith(map[string]string{"strat_name": "serpentinite (not searched)"}),
	}, testLabels, cfg)

	assert.Equal(t, "serpentinite", units[0].Label)
	assert.Equal(t, "granodiorite", units[1].Label)
	assert.Equal(t, "", units[2].Label)
	// strat_name is not in the configured search columns.
	assert.Equal(t, "", units[3].Label)
}

func TestClassifyLithology_LabelOrderBreaksMultiMatch(t *testing.T) {
	cfg := config.LithologyConfig{
		SearchColumns: []string{"desc"},
		Keywords: map[string][]string{
			"serpentinite": {"contact"},
			"granodiorite": {"contact"},
		},
	}

	units := ClassifyLithology([]model.Unit{
		unitWith(map[string]string{"desc": "contact zone"}),
	}, testLabels, cfg)

	// Both keyword lists match; the first label in order wins.
	assert.Equal(t, "serpentinite", units[0].Label)
}

func TestClassifyLithology_FallsBackToLabelKeyword(t *testing.T) {
	units := ClassifyLithology([]model.Unit{
		unitWith(map[string]string{"rock_class": "Serpentinite melange"}),
		unitWith(map[string]string{"anything": "granodiorite of the batholith"}),
	}, testLabels, config.LithologyConfig{})

	assert.Equal(t, "serpentinite", units[0].Label)
	assert.Equal(t, "granodiorite", units[1].Label)
}

func TestClassifyLithology_PreservesOrderAndGeometry(t *testing.T) {
	in := []model.Unit{
		unitWith(map[string]string{"rock_class": "granodiorite"}),
		unitWith(map[string]string{"rock_class": "serpentinite"}),
	}
	out := ClassifyLithology(in, testLabels, config.LithologyConfig{})

	require.Len(t, out, 2)
	assert.Equal(t, "granodiorite", out[0].Label)
	assert.Equal(t, "serpentinite", out[1].Label)
	// Input slice is not relabeled in place.
	assert.Equal(t, "", in[0].Label)
}
