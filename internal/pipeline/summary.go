package pipeline

import (
	"sort"

	"github.com/marekrost/mapa-psc/internal/coloring"
	"github.com/marekrost/mapa-psc/internal/points"
	"github.com/marekrost/mapa-psc/internal/region"
)

// FailedGroup is a group that produced no region.
type FailedGroup struct {
	Code   string `yaml:"code"`
	Stage  string `yaml:"stage"`
	Reason string `yaml:"reason"`
}

// Summary reports the outcome of a run. Groups minus Polygons equals the
// number of Failed entries.
type Summary struct {
	RunID             string         `yaml:"run_id"`
	Mode              string         `yaml:"mode"`
	Groups            int            `yaml:"groups"`
	Polygons          int            `yaml:"polygons"`
	Failed            []FailedGroup  `yaml:"failed,omitempty"`
	PointsUsed        int            `yaml:"points_used"`
	Methods           map[string]int `yaml:"methods"`
	MedianArea        float64        `yaml:"median_area"`
	TotalArea         float64        `yaml:"total_area"`
	Colors            int            `yaml:"colors"`
	ColorDistribution []int          `yaml:"color_distribution,omitempty"`
	DroppedCells      int            `yaml:"dropped_cells,omitempty"`
	Input             *points.Stats  `yaml:"input,omitempty"`
}

// Summarize aggregates the regions and failures of a run.
func Summarize(runID, mode string, groups int, regions []*region.Region, failures []region.Failure) *Summary {
	s := &Summary{
		RunID:    runID,
		Mode:     mode,
		Groups:   groups,
		Polygons: len(regions),
		Methods:  make(map[string]int),
	}
	for _, f := range failures {
		s.Failed = append(s.Failed, FailedGroup{Code: f.Code, Stage: f.Stage, Reason: describe(f)})
	}

	areas := make([]float64, 0, len(regions))
	colors := make([]int, 0, len(regions))
	for _, r := range regions {
		s.PointsUsed += r.PointCount
		s.Methods[string(r.Method.Kind)]++
		s.TotalArea += r.Area
		areas = append(areas, r.Area)
		if c, ok := r.Color(); ok {
			colors = append(colors, c)
		}
	}
	s.MedianArea = median(areas)
	s.ColorDistribution = coloring.Distribution(colors)
	for _, n := range s.ColorDistribution {
		if n > 0 {
			s.Colors++
		}
	}
	return s
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
