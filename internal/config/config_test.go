package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ";", cfg.Input.Delimiter)
	assert.Equal(t, "windows-1250", cfg.Input.Encoding)
	assert.Equal(t, "psc", cfg.Input.CodeColumn)
	assert.Equal(t, ModeDelaunay, cfg.Shape.Mode)
	assert.InDelta(t, 500.0, cfg.Shape.BufferRadius, 1e-9)
	assert.Equal(t, 16, cfg.Shape.BufferSegments)
	assert.InDelta(t, 150.0, cfg.Shape.AlphaMin, 1e-9)
	assert.InDelta(t, 3000.0, cfg.Shape.AlphaMax, 1e-9)
	assert.InDelta(t, 10.0, cfg.Shape.SparseDensity, 1e-9)
	assert.InDelta(t, 1e-6, cfg.Shape.DensityAreaScale, 1e-12)
	assert.InDelta(t, 500.0, cfg.Voronoi.ClipBuffer, 1e-9)
	assert.InDelta(t, 20.0, cfg.Voronoi.SimplifyTolerance, 1e-9)
	assert.Equal(t, PredicateTouchesOrIntersects, cfg.Coloring.Predicate)
	assert.InDelta(t, 1.0, cfg.Coloring.Tolerance, 1e-12)
	assert.Equal(t, DefaultPalette, cfg.Coloring.Palette)
	assert.Equal(t, "zip_codes", cfg.Export.Layer)
	assert.Equal(t, 5514, cfg.Export.SRID)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
shape:
  mode: voronoi
  buffer_radius: 250
voronoi:
  clip_buffer: 1000
batch:
  workers: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, ModeVoronoi, cfg.Shape.Mode)
	assert.InDelta(t, 250.0, cfg.Shape.BufferRadius, 1e-9)
	assert.InDelta(t, 1000.0, cfg.Voronoi.ClipBuffer, 1e-9)
	assert.Equal(t, 2, cfg.Batch.Workers)
	// Defaults still apply for unset values
	assert.InDelta(t, 20.0, cfg.Voronoi.SimplifyTolerance, 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
shape:
  mode: alpha
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MAPAPSC_SHAPE_MODE", "voronoi")
	t.Setenv("MAPAPSC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, ModeVoronoi, cfg.Shape.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("shape: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Shape: ShapeConfig{
			Mode:                  ModeDelaunay,
			BufferRadius:          500,
			BufferSegments:        16,
			AlphaMin:              150,
			AlphaMax:              3000,
			AlphaDensityThreshold: 1000,
			EdgeLengthBase:        250,
			EdgeLengthMax:         2500,
			EdgeDensityThreshold:  1000,
			SparseDensity:         10,
			DensityAreaScale:      1e-6,
		},
		Voronoi:  VoronoiConfig{ClipBuffer: 500, SimplifyTolerance: 20},
		Coloring: ColoringConfig{Predicate: PredicateTouchesOrIntersects},
		Batch:    BatchConfig{Workers: 4},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.Shape.Mode = "kriging" }, wantErr: "unknown shape.mode"},
		{name: "unknown predicate", mutate: func(c *Config) { c.Coloring.Predicate = "near" }, wantErr: "unknown coloring.predicate"},
		{name: "zero radius", mutate: func(c *Config) { c.Shape.BufferRadius = 0 }, wantErr: "buffer_radius"},
		{name: "alpha inverted", mutate: func(c *Config) { c.Shape.AlphaMin = 5000 }, wantErr: "alpha bounds"},
		{name: "edge inverted", mutate: func(c *Config) { c.Shape.EdgeLengthBase = 9000 }, wantErr: "edge length bounds"},
		{name: "negative clip buffer", mutate: func(c *Config) { c.Voronoi.ClipBuffer = -1 }, wantErr: "must not be negative"},
		{name: "no workers", mutate: func(c *Config) { c.Batch.Workers = 0 }, wantErr: "batch.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
