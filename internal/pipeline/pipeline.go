// Package pipeline orchestrates one batch run: polygon construction per
// postal code, the global Voronoi stage when enabled, adjacency and
// colouring, and the run summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marekrost/mapa-psc/internal/boundary"
	"github.com/marekrost/mapa-psc/internal/coloring"
	"github.com/marekrost/mapa-psc/internal/config"
	"github.com/marekrost/mapa-psc/internal/planar"
	"github.com/marekrost/mapa-psc/internal/region"
	"github.com/marekrost/mapa-psc/internal/shape"
	"github.com/marekrost/mapa-psc/internal/voronoi"
)

var (
	// ErrNoGroups is returned when the input holds no point groups at all.
	ErrNoGroups = eris.New("pipeline: no point groups")
	// ErrNoValidRegions is returned when groups existed but none produced a region.
	ErrNoValidRegions = eris.New("pipeline: no valid regions")
)

// Stage names recorded on failures.
const (
	StageShape    = "shape"
	StageDissolve = "dissolve"
)

// minVoronoiPoints is the smallest distinct point count dissolved from cells.
const minVoronoiPoints = 4

// Result is the outcome of one run. Regions are sorted by code and their
// index is the node index in Graph.
type Result struct {
	Regions  []*region.Region
	Failures []region.Failure
	Graph    *coloring.Graph
	Summary  *Summary
}

// Pipeline builds and colours regions for a set of point groups.
type Pipeline struct {
	cfg   *config.Config
	build func(g region.PointGroup) (*region.Region, error)
}

// New creates a Pipeline from the run configuration.
func New(cfg *config.Config) *Pipeline {
	b := shape.NewBuilder(cfg.Shape)
	return &Pipeline{cfg: cfg, build: b.Build}
}

// Run executes the batch. Groups that fail are logged, skipped and listed
// in the summary. When every group fails the partial Result is returned
// together with ErrNoValidRegions.
func (p *Pipeline) Run(ctx context.Context, groups []region.PointGroup) (*Result, error) {
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	start := time.Now()
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
		zap.String("mode", p.cfg.Shape.Mode),
	)
	log.Info("pipeline: starting run", zap.Int("groups", len(groups)))

	var (
		regions  []*region.Region
		failures []region.Failure
		dropped  int
		err      error
	)
	if p.cfg.Shape.Mode == config.ModeVoronoi {
		regions, failures, dropped, err = p.voronoiStage(ctx, groups)
	} else {
		regions, failures, err = p.buildGroups(ctx, groups, p.shapeOne)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].Code < regions[j].Code })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Code < failures[j].Code })

	res := &Result{Regions: regions, Failures: failures}
	if len(regions) > 0 {
		res.Graph, err = p.color(regions)
		if err != nil {
			return nil, err
		}
	}

	res.Summary = Summarize(runID, p.cfg.Shape.Mode, len(groups), regions, failures)
	res.Summary.DroppedCells = dropped

	log.Info("pipeline: run complete",
		zap.Int("groups", res.Summary.Groups),
		zap.Int("polygons", res.Summary.Polygons),
		zap.Int("failed", len(res.Summary.Failed)),
		zap.Int("colors", res.Summary.Colors),
		zap.Duration("elapsed", time.Since(start)),
	)

	if len(regions) == 0 {
		return res, eris.Wrapf(ErrNoValidRegions, "all %d groups failed", len(groups))
	}
	return res, nil
}

// buildGroups runs fn for every group on a bounded worker pool. A failing
// or panicking group is recorded and never cancels its siblings.
func (p *Pipeline) buildGroups(
	ctx context.Context,
	groups []region.PointGroup,
	fn func(region.PointGroup) (*region.Region, error),
) ([]*region.Region, []region.Failure, error) {
	slots := make([]*region.Region, len(groups))
	errs := make([]error, len(groups))
	var succeeded, failed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, grp := range groups {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			r, err := safeBuild(fn, grp)
			if err != nil {
				errs[i] = err
				failed.Add(1)
				zap.L().Warn("pipeline: group failed",
					zap.String("component", "pipeline"),
					zap.String("code", grp.Code),
					zap.Error(err),
				)
				return nil
			}
			slots[i] = r
			succeeded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: build groups")
	}

	regions := make([]*region.Region, 0, succeeded.Load())
	failures := make([]region.Failure, 0, failed.Load())
	for i, grp := range groups {
		if errs[i] != nil {
			failures = append(failures, asFailure(grp.Code, errs[i]))
			continue
		}
		regions = append(regions, slots[i])
	}

	zap.L().Info("pipeline: group stage complete",
		zap.String("component", "pipeline"),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return regions, failures, nil
}

// safeBuild converts a panic inside fn into an error.
func safeBuild(fn func(region.PointGroup) (*region.Region, error), g region.PointGroup) (r *region.Region, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, eris.Errorf("pipeline: panic building %s: %v", g.Code, rec)
		}
	}()
	return fn(g)
}

func asFailure(code string, err error) region.Failure {
	var f region.Failure
	if errors.As(err, &f) {
		return f
	}
	return region.Failure{Code: code, Stage: StageShape, Err: err}
}

func (p *Pipeline) shapeOne(g region.PointGroup) (*region.Region, error) {
	return p.build(g)
}

// voronoiStage tessellates every point once, then dissolves the cells of
// each group. Groups too small for a cell-based region, and groups that
// own no cell, go through the shape builder instead.
func (p *Pipeline) voronoiStage(ctx context.Context, groups []region.PointGroup) ([]*region.Region, []region.Failure, int, error) {
	var all []region.Point
	for _, g := range groups {
		all = append(all, g.Points...)
	}

	clip, err := voronoi.ClipBoundary(p.loadBoundary(), all, voronoi.ClipOptions{
		Tolerance: p.cfg.Boundary.SimplifyTolerance,
		Margin:    p.cfg.Voronoi.ClipBuffer,
		Segments:  p.cfg.Shape.BufferSegments,
	})
	if err != nil {
		zap.L().Warn("pipeline: no clip region, building groups individually",
			zap.String("component", "pipeline"),
			zap.Error(err),
		)
		regions, failures, err := p.buildGroups(ctx, groups, p.shapeOne)
		return regions, failures, 0, err
	}

	tess, err := voronoi.Tessellate(ctx, groups, clip, p.workers())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, 0, eris.Wrap(err, "pipeline: voronoi")
		}
		zap.L().Warn("pipeline: tessellation failed, building groups individually",
			zap.String("component", "pipeline"),
			zap.Error(err),
		)
		regions, failures, err := p.buildGroups(ctx, groups, p.shapeOne)
		return regions, failures, 0, err
	}

	_, byCode := voronoi.ByCode(tess.Cells)
	tolerance := p.cfg.Voronoi.SimplifyTolerance
	dissolve := func(g region.PointGroup) (*region.Region, error) {
		cells := byCode[g.Code]
		if len(g.Unique()) < minVoronoiPoints || len(cells) == 0 {
			return p.build(g)
		}
		merged, err := voronoi.Dissolve(cells, tolerance)
		if err != nil {
			return nil, region.Failure{Code: g.Code, Stage: StageDissolve, Err: err}
		}
		return &region.Region{
			Code:       g.Code,
			Geometry:   merged,
			PointCount: len(g.Points),
			Area:       planar.Area(merged),
			Method:     region.Voronoi(),
		}, nil
	}

	regions, failures, err := p.buildGroups(ctx, groups, dissolve)
	return regions, failures, tess.Dropped, err
}

// loadBoundary returns the configured clip boundary or nil. A missing or
// unreadable source is recovered by the hull fallback.
func (p *Pipeline) loadBoundary() geom.T {
	if p.cfg.Boundary.Path == "" {
		zap.L().Info("pipeline: no boundary configured, clipping to buffered hull",
			zap.String("component", "pipeline"),
		)
		return nil
	}
	b, err := boundary.Load(p.cfg.Boundary.Path)
	if err != nil {
		zap.L().Warn("pipeline: boundary unavailable, clipping to buffered hull",
			zap.String("component", "pipeline"),
			zap.String("path", p.cfg.Boundary.Path),
			zap.Error(err),
		)
		return nil
	}
	return b
}

// color builds the adjacency graph over regions and assigns colour indices.
func (p *Pipeline) color(regions []*region.Region) (*coloring.Graph, error) {
	pred, err := coloring.PredicateFor(p.cfg.Coloring.Predicate, p.cfg.Coloring.Tolerance)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: adjacency predicate")
	}
	geoms := make([]geom.T, len(regions))
	for i, r := range regions {
		geoms[i] = r.Geometry
	}

	g := coloring.Adjacency(geoms, pred, p.cfg.Coloring.Tolerance)
	colors := coloring.WelshPowell(g)
	if err := coloring.Verify(g, colors); err != nil {
		return nil, eris.Wrap(err, "pipeline: colouring")
	}
	for i, r := range regions {
		r.SetColor(colors[i])
	}
	return g, nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Batch.Workers < 1 {
		return 1
	}
	return p.cfg.Batch.Workers
}

// describe formats a failure reason for the summary.
func describe(f region.Failure) string {
	if f.Err == nil {
		return f.Stage
	}
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}
