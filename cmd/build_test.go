package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marekrost/mapa-psc/internal/config"
	"github.com/marekrost/mapa-psc/internal/pipeline"
)

const buildConfig = `
log:
  level: error
input:
  encoding: utf-8
`

func TestBuildCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "mode", "boundary", "geojson", "geopackage", "summary", "workers"} {
		assert.NotNil(t, buildCmd.Flags().Lookup(name), "build should have --%s flag", name)
	}
	assert.Equal(t, "0", buildCmd.Flags().Lookup("workers").DefValue)
}

func TestApplyBuildFlags_OnlyChanged(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&buildMode, "mode", "", "")
	cmd.Flags().StringVar(&buildInput, "input", "", "")
	cmd.Flags().IntVar(&buildWorkers, "workers", 0, "")
	require.NoError(t, cmd.Flags().Set("mode", "alpha"))
	require.NoError(t, cmd.Flags().Set("workers", "2"))

	c := &config.Config{
		Input: config.InputConfig{Path: "adresy.csv"},
		Shape: config.ShapeConfig{Mode: config.ModeDelaunay},
		Batch: config.BatchConfig{Workers: 8},
	}
	applyBuildFlags(cmd, c)
	assert.Equal(t, config.ModeAlpha, c.Shape.Mode)
	assert.Equal(t, 2, c.Batch.Workers)
	assert.Equal(t, "adresy.csv", c.Input.Path)
}

func TestBuildCommand_NoGroups(t *testing.T) {
	dir := chdirTemp(t, buildConfig)
	input := filepath.Join(dir, "adresy.csv")
	require.NoError(t, os.WriteFile(input, []byte("psc;x;y\n"), 0o644))

	rootCmd.SetArgs([]string{"build", "--input", input})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, pipeline.ErrNoGroups)
}

func TestBuildCommand_EndToEnd(t *testing.T) {
	dir := chdirTemp(t, buildConfig)
	input := filepath.Join(dir, "adresy.csv")
	csv := "psc;x;y\n" +
		"110 00;100;100\n" +
		"11000;-200;100\n" +
		"11000;-50;400\n" +
		"12000;5000;5000\n" +
		"abc;1;1\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))

	geojsonPath := filepath.Join(dir, "zip_codes.geojson")
	gpkgPath := filepath.Join(dir, "zip_codes.gpkg")
	summaryPath := filepath.Join(dir, "summary.yaml")
	rootCmd.SetArgs([]string{
		"build",
		"--input", input,
		"--mode", "alpha",
		"--workers", "2",
		"--geojson", geojsonPath,
		"--geopackage", gpkgPath,
		"--summary", summaryPath,
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, config.ModeAlpha, cfg.Shape.Mode)
	assert.Equal(t, 2, cfg.Batch.Workers)

	assert.FileExists(t, geojsonPath)
	assert.FileExists(t, gpkgPath)

	data, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	var summary pipeline.Summary
	require.NoError(t, yaml.Unmarshal(data, &summary))
	assert.Equal(t, "alpha", summary.Mode)
	assert.Equal(t, 2, summary.Groups)
	assert.Equal(t, 2, summary.Polygons)
	assert.Equal(t, 4, summary.PointsUsed)
	assert.Equal(t, map[string]int{"triangle": 1, "buffer": 1}, summary.Methods)
	require.NotNil(t, summary.Input)
	assert.Equal(t, 5, summary.Input.Rows)
	assert.Equal(t, 4, summary.Input.Accepted)
	assert.Equal(t, 1, summary.Input.InvalidCode)
}

func TestWriteOutputs_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	c := &config.Config{Export: config.ExportConfig{
		GeoJSON: filepath.Join(dir, "missing", "zip_codes.geojson"),
		Summary: filepath.Join(dir, "summary.yaml"),
	}}
	res := &pipeline.Result{Summary: &pipeline.Summary{RunID: "r1", Mode: config.ModeAlpha}}

	err := writeOutputs(context.Background(), c, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorContains(t, err, "build: 1 output(s) failed")
	assert.FileExists(t, c.Export.Summary)
}
