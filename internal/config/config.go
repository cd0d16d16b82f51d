package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Shape generation modes.
const (
	ModeAlpha    = "alpha"
	ModeDelaunay = "delaunay"
	ModeVoronoi  = "voronoi"
)

// Adjacency predicates.
const (
	PredicateIntersects          = "intersects"
	PredicateTouchesOrIntersects = "touches_or_intersects"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Shape    ShapeConfig    `yaml:"shape" mapstructure:"shape"`
	Voronoi  VoronoiConfig  `yaml:"voronoi" mapstructure:"voronoi"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Coloring ColoringConfig `yaml:"coloring" mapstructure:"coloring"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
}

// InputConfig describes the address point CSV.
type InputConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
	CodeColumn string `yaml:"code_column" mapstructure:"code_column"`
	XColumn    string `yaml:"x_column" mapstructure:"x_column"`
	YColumn    string `yaml:"y_column" mapstructure:"y_column"`
}

// ShapeConfig configures polygon construction per postal code.
type ShapeConfig struct {
	Mode                  string  `yaml:"mode" mapstructure:"mode"`
	BufferRadius          float64 `yaml:"buffer_radius" mapstructure:"buffer_radius"`
	BufferSegments        int     `yaml:"buffer_segments" mapstructure:"buffer_segments"`
	AlphaMin              float64 `yaml:"alpha_min" mapstructure:"alpha_min"`
	AlphaMax              float64 `yaml:"alpha_max" mapstructure:"alpha_max"`
	AlphaDensityThreshold float64 `yaml:"alpha_density_threshold" mapstructure:"alpha_density_threshold"`
	EdgeLengthBase        float64 `yaml:"edge_length_base" mapstructure:"edge_length_base"`
	EdgeLengthMax         float64 `yaml:"edge_length_max" mapstructure:"edge_length_max"`
	EdgeDensityThreshold  float64 `yaml:"edge_density_threshold" mapstructure:"edge_density_threshold"`
	SparseDensity         float64 `yaml:"sparse_density" mapstructure:"sparse_density"`
	DensityAreaScale      float64 `yaml:"density_area_scale" mapstructure:"density_area_scale"`
}

// VoronoiConfig configures the Voronoi tessellation mode.
type VoronoiConfig struct {
	ClipBuffer        float64 `yaml:"clip_buffer" mapstructure:"clip_buffer"`
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
}

// BoundaryConfig points at an optional clip boundary for Voronoi mode.
type BoundaryConfig struct {
	Path              string  `yaml:"path" mapstructure:"path"`
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
}

// ColoringConfig configures the adjacency graph and palette.
type ColoringConfig struct {
	Predicate string   `yaml:"predicate" mapstructure:"predicate"`
	Tolerance float64  `yaml:"tolerance" mapstructure:"tolerance"`
	Palette   []string `yaml:"palette" mapstructure:"palette"`
}

// ExportConfig configures output files. Empty paths disable a writer.
type ExportConfig struct {
	GeoJSON    string `yaml:"geojson" mapstructure:"geojson"`
	GeoPackage string `yaml:"geopackage" mapstructure:"geopackage"`
	Summary    string `yaml:"summary" mapstructure:"summary"`
	Layer      string `yaml:"layer" mapstructure:"layer"`
	SRID       int    `yaml:"srid" mapstructure:"srid"`
}

// BatchConfig configures per-group parallelism.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPalette mirrors the map's fill colours (red, teal, orange, purple, green, pink).
var DefaultPalette = []string{"#ff6b6b", "#4ecdc4", "#ffc371", "#a29bfe", "#81c784", "#ffb7c5"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MAPAPSC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.delimiter", ";")
	v.SetDefault("input.encoding", "windows-1250")
	v.SetDefault("input.code_column", "psc")
	v.SetDefault("input.x_column", "x")
	v.SetDefault("input.y_column", "y")
	v.SetDefault("shape.mode", ModeDelaunay)
	v.SetDefault("shape.buffer_radius", 500.0)
	v.SetDefault("shape.buffer_segments", 16)
	v.SetDefault("shape.alpha_min", 150.0)
	v.SetDefault("shape.alpha_max", 3000.0)
	v.SetDefault("shape.alpha_density_threshold", 1000.0)
	v.SetDefault("shape.edge_length_base", 250.0)
	v.SetDefault("shape.edge_length_max", 2500.0)
	v.SetDefault("shape.edge_density_threshold", 1000.0)
	v.SetDefault("shape.sparse_density", 10.0)
	v.SetDefault("shape.density_area_scale", 1e-6) // m² → km²
	v.SetDefault("voronoi.clip_buffer", 500.0)
	v.SetDefault("voronoi.simplify_tolerance", 20.0)
	v.SetDefault("boundary.simplify_tolerance", 100.0)
	v.SetDefault("coloring.predicate", PredicateTouchesOrIntersects)
	v.SetDefault("coloring.tolerance", 1.0)
	v.SetDefault("coloring.palette", DefaultPalette)
	v.SetDefault("export.layer", "zip_codes")
	v.SetDefault("export.srid", 5514)
	v.SetDefault("batch.workers", 8)
}

// Validate checks option ranges that would otherwise surface as odd geometry.
func (c *Config) Validate() error {
	switch c.Shape.Mode {
	case ModeAlpha, ModeDelaunay, ModeVoronoi:
	default:
		return eris.Errorf("config: unknown shape.mode %q", c.Shape.Mode)
	}
	switch c.Coloring.Predicate {
	case PredicateIntersects, PredicateTouchesOrIntersects:
	default:
		return eris.Errorf("config: unknown coloring.predicate %q", c.Coloring.Predicate)
	}
	if c.Shape.BufferRadius <= 0 {
		return eris.New("config: shape.buffer_radius must be positive")
	}
	if c.Shape.BufferSegments < 1 {
		return eris.New("config: shape.buffer_segments must be at least 1")
	}
	if c.Shape.AlphaMin <= 0 || c.Shape.AlphaMin > c.Shape.AlphaMax {
		return eris.Errorf("config: alpha bounds [%g, %g] are invalid", c.Shape.AlphaMin, c.Shape.AlphaMax)
	}
	if c.Shape.EdgeLengthBase <= 0 || c.Shape.EdgeLengthBase > c.Shape.EdgeLengthMax {
		return eris.Errorf("config: edge length bounds [%g, %g] are invalid", c.Shape.EdgeLengthBase, c.Shape.EdgeLengthMax)
	}
	if c.Shape.SparseDensity <= 0 || c.Shape.DensityAreaScale <= 0 {
		return eris.New("config: shape.sparse_density and shape.density_area_scale must be positive")
	}
	if c.Voronoi.ClipBuffer < 0 || c.Voronoi.SimplifyTolerance < 0 || c.Boundary.SimplifyTolerance < 0 {
		return eris.New("config: voronoi and boundary tolerances must not be negative")
	}
	if c.Coloring.Tolerance < 0 {
		return eris.New("config: coloring.tolerance must not be negative")
	}
	if c.Batch.Workers < 1 {
		return eris.New("config: batch.workers must be at least 1")
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
