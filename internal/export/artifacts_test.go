package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmdiversity/internal/model"
	"tgmdiversity/internal/summary"
)

func sampleReport(t *testing.T) summary.Report {
	t.Helper()
	report, err := summary.Build(context.Background(), []model.RawRecord{
		{Level: "3", Generation: 1, Run: "a", GameObject: "Level", Component: "BoxCollider2D", ComponentField: "size", Modifier: "x", Fitness: 0.8},
		{Level: "3", Generation: 1, Run: "b", GameObject: "PlayerAgent", Component: "Rigidbody2D", ComponentField: "mass", Modifier: "y", Fitness: 0},
		{Level: "4", Generation: 1, Run: "a", GameObject: "Level", Component: "Grid", ComponentField: "cellSize", Modifier: "x", Fitness: 0},
		{Level: "4", Generation: 1, Run: "a", GameObject: "", Component: "Grid", ComponentField: "cellSize", Modifier: "x", Fitness: 0.3},
	}, summary.Config{Workers: 1})
	require.NoError(t, err)
	return report
}

func TestWriteAnalysisArtifactsAndIndex(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := AnalysisArtifacts{
		Config: AnalysisConfig{AnalysisID: NewAnalysisID(), Label: "2% elite", Source: "data/2p"},
		Report: sampleReport(t),
	}
	_, err := uuid.Parse(artifacts.Config.AnalysisID)
	require.NoError(t, err)

	dir, err := WriteAnalysisArtifacts(baseDir, artifacts)
	require.NoError(t, err)
	for _, file := range []string{"config.json", "analysis.json", "diagnostics.json"} {
		_, err := os.Stat(filepath.Join(dir, file))
		require.NoError(t, err, file)
	}
	_, err = os.Stat(filepath.Join(dir, "experiments.json"))
	assert.True(t, os.IsNotExist(err))

	report, ok, err := ReadAnalysisReport(baseDir, artifacts.Config.AnalysisID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, report.Diversity, 2)
	assert.Equal(t, 0.8, report.Diversity[0].Fitness.Median)
	assert.True(t, report.Diversity[1].Fitness.Empty())

	diag, ok, err := ReadDiagnostics(baseDir, artifacts.Config.AnalysisID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, diag.DroppedRecords)
	assert.Equal(t, []model.CohortKey{{Level: "4", Generation: 1}}, diag.EmptyCohorts)

	require.NoError(t, AppendAnalysisIndex(baseDir, IndexEntry(artifacts, "2024-05-01T10:00:00Z")))
	require.NoError(t, AppendAnalysisIndex(baseDir, AnalysisIndexEntry{AnalysisID: "later", CreatedAtUTC: "2024-05-02T10:00:00Z"}))
	require.NoError(t, AppendAnalysisIndex(baseDir, IndexEntry(artifacts, "2024-05-03T10:00:00Z")))

	index, err := ListAnalysisIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, artifacts.Config.AnalysisID, index[0].AnalysisID)
	assert.Equal(t, 2, index[0].Cohorts)
	assert.Equal(t, 4, index[0].Records)
	assert.Equal(t, 1, index[0].EmptyCohorts)
	assert.Equal(t, "later", index[1].AnalysisID)
}

func TestAnalysisArtifactsRequireID(t *testing.T) {
	_, err := WriteAnalysisArtifacts(t.TempDir(), AnalysisArtifacts{})
	require.Error(t, err)
	require.Error(t, AppendAnalysisIndex(t.TempDir(), AnalysisIndexEntry{}))

	_, ok, err := ReadAnalysisReport(t.TempDir(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	index, err := ListAnalysisIndex(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, index)
}
