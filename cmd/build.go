package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/config"
	"github.com/marekrost/mapa-psc/internal/export"
	"github.com/marekrost/mapa-psc/internal/pipeline"
	"github.com/marekrost/mapa-psc/internal/points"
)

var (
	buildInput      string
	buildMode       string
	buildBoundary   string
	buildGeoJSON    string
	buildGeoPackage string
	buildSummary    string
	buildWorkers    int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build coloured postal code polygons from an address CSV",
	Long: `Reads address points, builds one polygon per postal code and colours
adjacent polygons differently. Flags override the matching config keys.

Examples:
  # Edge-filtered triangulation, GeoJSON for the tiler
  mapa-psc build --input adresy.csv --geojson zip_codes.geojson

  # Voronoi cells clipped to the country border
  mapa-psc build --input adresy.csv --mode voronoi --boundary hranice.shp \
    --geopackage zip_codes.gpkg --summary summary.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyBuildFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Input.Path == "" {
			return eris.New("build: no input (set --input or input.path)")
		}

		in, err := points.LoadFile(ctx, cfg.Input)
		if err != nil {
			return eris.Wrap(err, "build: load points")
		}

		res, runErr := pipeline.New(cfg).Run(ctx, in.Groups)
		if res == nil {
			return eris.Wrap(runErr, "build: pipeline")
		}
		res.Summary.Input = &in.Stats

		if err := writeOutputs(ctx, cfg, res); err != nil {
			return err
		}
		if runErr != nil {
			return eris.Wrap(runErr, "build: pipeline")
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildInput, "input", "", "address CSV (overrides input.path)")
	buildCmd.Flags().StringVar(&buildMode, "mode", "", "shape mode: alpha, delaunay or voronoi (overrides shape.mode)")
	buildCmd.Flags().StringVar(&buildBoundary, "boundary", "", "clip boundary .shp or .geojson for voronoi mode")
	buildCmd.Flags().StringVar(&buildGeoJSON, "geojson", "", "write GeoJSON to this path")
	buildCmd.Flags().StringVar(&buildGeoPackage, "geopackage", "", "write GeoPackage to this path")
	buildCmd.Flags().StringVar(&buildSummary, "summary", "", "write YAML run summary to this path")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "parallel groups (overrides batch.workers)")
	rootCmd.AddCommand(buildCmd)
}

// applyBuildFlags copies explicitly set flags over the loaded config.
func applyBuildFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		c.Input.Path = buildInput
	}
	if flags.Changed("mode") {
		c.Shape.Mode = buildMode
	}
	if flags.Changed("boundary") {
		c.Boundary.Path = buildBoundary
	}
	if flags.Changed("geojson") {
		c.Export.GeoJSON = buildGeoJSON
	}
	if flags.Changed("geopackage") {
		c.Export.GeoPackage = buildGeoPackage
	}
	if flags.Changed("summary") {
		c.Export.Summary = buildSummary
	}
	if flags.Changed("workers") {
		c.Batch.Workers = buildWorkers
	}
}

// writeOutputs runs every configured writer. All writers run even when one
// fails; each failure is logged and the last one is returned.
func writeOutputs(ctx context.Context, c *config.Config, res *pipeline.Result) error {
	var (
		lastErr error
		failed  int
	)
	fail := func(output string, err error) {
		zap.L().Error("build: write failed", zap.String("output", output), zap.Error(err))
		lastErr = err
		failed++
	}

	if path := c.Export.GeoJSON; path != "" {
		if err := export.WriteGeoJSON(path, res.Regions, c.Coloring.Palette); err != nil {
			fail("geojson", err)
		} else {
			zap.L().Info("build: wrote geojson", zap.String("path", path), zap.Int("features", len(res.Regions)))
		}
	}
	if path := c.Export.GeoPackage; path != "" {
		opts := export.GeoPackageOptions{
			Layer:   c.Export.Layer,
			SRID:    c.Export.SRID,
			Palette: c.Coloring.Palette,
			RunID:   res.Summary.RunID,
		}
		if err := export.WriteGeoPackage(ctx, path, res.Regions, opts); err != nil {
			fail("geopackage", err)
		} else {
			zap.L().Info("build: wrote geopackage", zap.String("path", path), zap.String("layer", opts.Layer))
		}
	}
	if path := c.Export.Summary; path != "" {
		if err := export.WriteSummary(path, res.Summary); err != nil {
			fail("summary", err)
		} else {
			zap.L().Info("build: wrote summary", zap.String("path", path))
		}
	}
	if lastErr != nil {
		return eris.Wrapf(lastErr, "build: %d output(s) failed", failed)
	}
	return nil
}
