package plot

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
	"tgmdiversity/internal/summary"
)

func buildReport(t *testing.T) summary.Report {
	t.Helper()
	var raws []model.RawRecord
	for gen := 1; gen <= 3; gen++ {
		raws = append(raws,
			model.RawRecord{Level: "3", Generation: gen, Run: "a", GameObject: "Level", Component: "BoxCollider2D", ComponentField: "size", Modifier: "x", Fitness: 0.5},
			model.RawRecord{Level: "3", Generation: gen, Run: "a", GameObject: "PlayerAgent", Component: "Rigidbody2D", ComponentField: "mass", Modifier: "y", Fitness: 0.6},
			model.RawRecord{Level: "5", Generation: gen, Run: "b", GameObject: "Level", Component: "Grid", ComponentField: "cellSize", Modifier: "x", Fitness: 0},
		)
	}
	report, err := summary.Build(context.Background(), raws, summary.Config{Workers: 1})
	require.NoError(t, err)
	return report
}

func TestDissimilarityChartsPerLevel(t *testing.T) {
	charts := DissimilarityCharts(buildReport(t), levelid.DefaultNames())
	require.Len(t, charts, 2)
	assert.Equal(t, "Wall: dissimilarity", charts[0].Title)
	require.Len(t, charts[0].Series, 1)
	points := charts[0].Series[0].Points
	require.Len(t, points, 3)
	assert.Equal(t, Point{X: 1, Y: 2}, points[0])

	assert.Equal(t, "Ceiling: dissimilarity", charts[1].Title)
	assert.True(t, charts[1].empty())
}

func TestGeneGroupChartsSeriesPerGroup(t *testing.T) {
	charts := GeneGroupCharts(buildReport(t), nil)
	require.Len(t, charts, 2)
	assert.Equal(t, "Level 3: gene groups", charts[0].Title)
	require.Len(t, charts[0].Series, 2)
	assert.Equal(t, "level-collider", charts[0].Series[0].Label)
	assert.Equal(t, "player-rigidbody", charts[0].Series[1].Label)
	assert.Equal(t, 0.5, charts[0].Series[0].Points[0].Y)
	assert.Equal(t, 1.0, charts[0].YMax)
}

func TestExperimentChartsKeepExperimentOrder(t *testing.T) {
	rows := []summary.ExperimentRow{
		{Experiment: "25% elite", Cohort: model.CohortKey{Level: "4", Generation: 2}, Fitness: stats.Summarize([]float64{0.4}, nil)},
		{Experiment: "0% elite", Cohort: model.CohortKey{Level: "4", Generation: 1}, Fitness: stats.Summarize([]float64{0.2}, nil)},
		{Experiment: "25% elite", Cohort: model.CohortKey{Level: "4", Generation: 1}, Fitness: stats.Summarize([]float64{0.3}, nil)},
	}
	charts := ExperimentCharts(rows, levelid.DefaultNames())
	require.Len(t, charts, 1)
	assert.Equal(t, "Wall + Elevation: fitness", charts[0].Title)
	require.Len(t, charts[0].Series, 2)
	assert.Equal(t, "25% elite", charts[0].Series[0].Label)
	assert.Equal(t, []Point{{X: 1, Y: 0.3}, {X: 2, Y: 0.4}}, charts[0].Series[0].Points)
}

func TestWriteReportPlotsSkipsEmptyCharts(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteReportPlots(dir, buildReport(t), levelid.DefaultNames())
	require.NoError(t, err)
	// Level 5 has no valid records so all of its charts are skipped.
	require.Len(t, paths, 3)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), filepath.Base(path))
	}
	assert.FileExists(t, filepath.Join(dir, "dissimilarity level 3.png"))
}

func TestChartSaveSkipsNaNPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.png")
	chart := Chart{Kind: "test", Level: "3", Title: "gaps", Series: []Series{
		{Label: "a", Points: []Point{{X: 1, Y: 1}, {X: 2, Y: math.NaN()}, {X: 3, Y: 2}}},
		{Label: "b", Points: []Point{{X: 1, Y: math.NaN()}}},
	}}
	require.NoError(t, chart.Save(path))
	assert.FileExists(t, path)
}
