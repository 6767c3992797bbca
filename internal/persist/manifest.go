package persist

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/orogen/prospector/internal/config"
	"github.com/orogen/prospector/internal/pipeline"
)

// Manifest records the parameters and shape of one run so outputs can be
// traced back to the configuration that produced them.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	FinishedAt time.Time `yaml:"finished_at"`

	CRS        string  `yaml:"crs"`
	RockA      string  `yaml:"rock_a"`
	RockB      string  `yaml:"rock_b"`
	FalloffKm  float64 `yaml:"falloff_km"`
	Alpha      float64 `yaml:"alpha"`
	WeightA    float64 `yaml:"weight_a"`
	Resolution int     `yaml:"resolution"`

	Units      int     `yaml:"units"`
	Cells      int     `yaml:"cells"`
	MaxHops    int     `yaml:"max_hops"`
	CellKm     float64 `yaml:"cell_km"`
	DurationMs int64   `yaml:"duration_ms"`
}

// WriteManifest serializes the run manifest as YAML.
func WriteManifest(path string, cfg *config.Config, res *pipeline.Result) error {
	m := Manifest{
		RunID:      res.RunID,
		FinishedAt: time.Now().UTC(),
		CRS:        cfg.CRS,
		RockA:      cfg.RockA,
		RockB:      cfg.RockB,
		FalloffKm:  cfg.FalloffKm,
		Alpha:      cfg.Alpha,
		WeightA:    cfg.WeightA,
		Resolution: cfg.Grid.Resolution,
		Units:      res.Units,
		Cells:      len(res.Records),
		MaxHops:    res.MaxHops,
		CellKm:     res.CellKm,
		DurationMs: res.Duration.Milliseconds(),
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return eris.Wrap(err, "persist: marshal manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "persist: create output dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "persist: write manifest %s", path)
	}
	return nil
}
