// Package plot renders per-level PNG line charts of analysis results with
// generation on the x axis.
package plot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/summary"
)

type Point struct {
	X float64
	Y float64
}

// Series is one named line. Points with a NaN Y are gaps.
type Series struct {
	Label  string
	Points []Point
}

// Chart is one level's figure.
type Chart struct {
	Kind   string
	Level  string
	Title  string
	YLabel string
	Series []Series
	// YMin and YMax fix the y range when YMax > YMin.
	YMin, YMax float64
}

func (c Chart) empty() bool {
	for _, s := range c.Series {
		for _, p := range s.Points {
			if !math.IsNaN(p.Y) {
				return false
			}
		}
	}
	return true
}

// Save writes c as a PNG to path.
func (c Chart) Save(path string) error {
	p := gplot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = c.YLabel

	for i, s := range c.Series {
		pts := make(plotter.XYs, 0, len(s.Points))
		for _, pt := range s.Points {
			if math.IsNaN(pt.Y) || math.IsInf(pt.Y, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: pt.X, Y: pt.Y})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		if s.Label != "" {
			p.Legend.Add(s.Label, line)
		}
	}
	if c.YMax > c.YMin {
		p.Y.Min = c.YMin
		p.Y.Max = c.YMax
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// DissimilarityCharts plots the median dissimilarity per generation, one
// chart per level.
func DissimilarityCharts(report summary.Report, names levelid.Names) []Chart {
	byLevel := make(map[string][]Point)
	for _, row := range report.Dissimilarity {
		byLevel[row.Cohort.Level] = append(byLevel[row.Cohort.Level], Point{X: float64(row.Cohort.Generation), Y: row.Distribution.Median})
	}
	return perLevel(report.Levels(), names, "dissimilarity", "Median dissimilarity", func(level string) []Series {
		return []Series{{Label: "median", Points: sortedPoints(byLevel[level])}}
	})
}

// GeneGroupCharts plots the share of every gene group per generation.
func GeneGroupCharts(report summary.Report, names levelid.Names) []Chart {
	shares := make(map[string]map[string][]Point)
	for _, table := range report.GeneGroups {
		level := table.Cohort.Level
		if shares[level] == nil {
			shares[level] = make(map[string][]Point)
		}
		for _, entry := range table.Entries {
			shares[level][entry.Key] = append(shares[level][entry.Key], Point{X: float64(table.Cohort.Generation), Y: entry.Share})
		}
	}
	charts := perLevel(report.Levels(), names, "gene groups", "Share", func(level string) []Series {
		return namedSeries(shares[level])
	})
	for i := range charts {
		charts[i].YMin, charts[i].YMax = 0, 1
	}
	return charts
}

// ComponentCharts plots the unique gene count per component.
func ComponentCharts(report summary.Report, names levelid.Names) []Chart {
	counts := make(map[string]map[string][]Point)
	for _, row := range report.Components {
		level := row.Cohort.Level
		if counts[level] == nil {
			counts[level] = make(map[string][]Point)
		}
		counts[level][row.Component] = append(counts[level][row.Component], Point{X: float64(row.Cohort.Generation), Y: float64(row.UniqueGenes)})
	}
	return perLevel(report.Levels(), names, "components", "Unique genes", func(level string) []Series {
		return namedSeries(counts[level])
	})
}

// ExperimentCharts plots the mean fitness of every experiment per
// generation.
func ExperimentCharts(rows []summary.ExperimentRow, names levelid.Names) []Chart {
	var levels []string
	seen := make(map[string]bool)
	var experiments []string
	seenExperiment := make(map[string]bool)
	means := make(map[string]map[string][]Point)
	for _, row := range rows {
		level := row.Cohort.Level
		if !seen[level] {
			seen[level] = true
			levels = append(levels, level)
			means[level] = make(map[string][]Point)
		}
		if !seenExperiment[row.Experiment] {
			seenExperiment[row.Experiment] = true
			experiments = append(experiments, row.Experiment)
		}
		means[level][row.Experiment] = append(means[level][row.Experiment], Point{X: float64(row.Cohort.Generation), Y: row.Fitness.Mean})
	}
	charts := perLevel(levels, names, "fitness", "Mean fitness", func(level string) []Series {
		series := make([]Series, 0, len(experiments))
		for _, experiment := range experiments {
			if points, ok := means[level][experiment]; ok {
				series = append(series, Series{Label: experiment, Points: sortedPoints(points)})
			}
		}
		return series
	})
	for i := range charts {
		charts[i].YMin, charts[i].YMax = 0, 1
	}
	return charts
}

// WriteCharts saves every non-empty chart into dir as
// "<kind> level <level>.png" and returns the written paths.
func WriteCharts(dir string, charts []Chart) ([]string, error) {
	var paths []string
	for _, chart := range charts {
		if chart.empty() {
			continue
		}
		path := filepath.Join(dir, fileName(chart))
		if err := chart.Save(path); err != nil {
			return nil, fmt.Errorf("plot %s: %w", chart.Title, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteReportPlots renders the dissimilarity, gene group and component
// charts of report.
func WriteReportPlots(dir string, report summary.Report, names levelid.Names) ([]string, error) {
	var charts []Chart
	charts = append(charts, DissimilarityCharts(report, names)...)
	charts = append(charts, GeneGroupCharts(report, names)...)
	charts = append(charts, ComponentCharts(report, names)...)
	return WriteCharts(dir, charts)
}

func perLevel(levels []string, names levelid.Names, kind, yLabel string, series func(level string) []Series) []Chart {
	charts := make([]Chart, 0, len(levels))
	for _, level := range levels {
		charts = append(charts, Chart{
			Kind:   kind,
			Level:  level,
			Title:  fmt.Sprintf("%s: %s", names.Display(level), kind),
			YLabel: yLabel,
			Series: series(level),
		})
	}
	return charts
}

func namedSeries(byName map[string][]Point) []Series {
	labels := make([]string, 0, len(byName))
	for label := range byName {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	series := make([]Series, 0, len(labels))
	for _, label := range labels {
		series = append(series, Series{Label: label, Points: sortedPoints(byName[label])})
	}
	return series
}

func sortedPoints(points []Point) []Point {
	out := append([]Point(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

func fileName(chart Chart) string {
	return fmt.Sprintf("%s level %s.png", chart.Kind, strings.ReplaceAll(chart.Level, string(filepath.Separator), "-"))
}
