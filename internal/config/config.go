// Package config loads and validates the run configuration.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	CRS       string          `yaml:"crs" mapstructure:"crs"`
	RockA     string          `yaml:"rock_a" mapstructure:"rock_a"`
	RockB     string          `yaml:"rock_b" mapstructure:"rock_b"`
	FalloffKm float64         `yaml:"falloff_km" mapstructure:"falloff_km"`
	Alpha     float64         `yaml:"alpha" mapstructure:"alpha"`
	WeightA   float64         `yaml:"weight_a" mapstructure:"weight_a"`
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Score     ScoreConfig     `yaml:"score" mapstructure:"score"`
	Lithology LithologyConfig `yaml:"lithology" mapstructure:"lithology"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Viz       VizConfig       `yaml:"viz" mapstructure:"viz"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GridConfig configures the hexagonal grid.
type GridConfig struct {
	Resolution int `yaml:"resolution" mapstructure:"resolution"`
}

// IndexConfig configures polygon-to-cell classification.
type IndexConfig struct {
	// OverlapPolicy resolves cells touched by differently-labeled polygons:
	// "both" keeps all labels, "majority" keeps the most frequent.
	OverlapPolicy string `yaml:"overlap_policy" mapstructure:"overlap_policy"`
}

// ScoreConfig configures scoring behavior beyond the kernel parameters.
type ScoreConfig struct {
	// AllowEmptyClass degrades a rock type with no classified cells to a
	// zero membership contribution instead of aborting the run.
	AllowEmptyClass bool `yaml:"allow_empty_class" mapstructure:"allow_empty_class"`
}

// LithologyConfig configures rock-type classification by text search over
// descriptive attribute columns.
type LithologyConfig struct {
	SearchColumns []string            `yaml:"search_columns" mapstructure:"search_columns"`
	Keywords      map[string][]string `yaml:"keywords" mapstructure:"keywords"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	InputShapefile string `yaml:"input_shp" mapstructure:"input_shp"`
	OutputGpkg     string `yaml:"output_gpkg" mapstructure:"output_gpkg"`
	OutputCSV      string `yaml:"output_csv" mapstructure:"output_csv"`
	GeoJSON        string `yaml:"geojson" mapstructure:"geojson"`
	StaticMap      string `yaml:"static_map" mapstructure:"static_map"`
	Manifest       string `yaml:"manifest" mapstructure:"manifest"`
}

// VizConfig configures map rendering.
type VizConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from the given file (or ./config.yaml when empty)
// and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("crs", "EPSG:4326")
	v.SetDefault("falloff_km", 5.0)
	v.SetDefault("alpha", 2.0)
	v.SetDefault("weight_a", 0.5)
	v.SetDefault("grid.resolution", 8)
	v.SetDefault("index.overlap_policy", "both")
	v.SetDefault("score.allow_empty_class", false)
	v.SetDefault("viz.enabled", true)
	v.SetDefault("paths.output_gpkg", "out/prospectivity.gpkg")
	v.SetDefault("paths.output_csv", "out/prospectivity.csv")
	v.SetDefault("paths.geojson", "out/prospectivity.geojson")
	v.SetDefault("paths.static_map", "out/prospectivity.html")
	v.SetDefault("paths.manifest", "out/run.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration invariants the pipeline relies on.
// Kernel parameter domains are re-checked by the scoring kernel itself.
func (c *Config) Validate() error {
	if c.CRS == "" {
		return eris.New("config: crs is required")
	}
	if c.RockA == "" || c.RockB == "" {
		return eris.New("config: rock_a and rock_b are required")
	}
	if c.RockA == c.RockB {
		return eris.Errorf("config: rock_a and rock_b must differ, both are %q", c.RockA)
	}
	if c.FalloffKm <= 0 {
		return eris.Errorf("config: falloff_km must be positive, got %v", c.FalloffKm)
	}
	if c.Alpha <= 0 {
		return eris.Errorf("config: alpha must be positive, got %v", c.Alpha)
	}
	if c.WeightA < 0 || c.WeightA > 1 {
		return eris.Errorf("config: weight_a must be in [0,1], got %v", c.WeightA)
	}
	if c.Paths.InputShapefile == "" {
		return eris.New("config: paths.input_shp is required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
