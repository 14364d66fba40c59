package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
pattern: "run *.csv"
fitness_epsilon: 1e-10
quantiles: [0.1, 0.9]
granularity: cohort
levels:
  "Level 7": Bridge
  "3": Tall wall
experiments:
  - label: "0% elite"
    dir: logs/elite0
  - dir: logs/elite25
workers: 2
store: sqlite
plots: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tgmdiversity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileConfigOverlaysDefaults(t *testing.T) {
	cfg, err := loadFileConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "run *.csv", cfg.Pattern)
	assert.Equal(t, 1e-10, cfg.FitnessEpsilon)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []float64{0.1, 0.9}, cfg.Quantiles)
	assert.Equal(t, "cohort", cfg.Granularity)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.True(t, cfg.Plots)
	assert.Equal(t, []experimentConfig{{Label: "0% elite", Dir: "logs/elite0"}, {Dir: "logs/elite25"}}, cfg.Experiments)

	// untouched keys keep their defaults
	assert.Equal(t, "Player", cfg.PlayerPrefix)
	assert.Equal(t, "analyses", cfg.OutputDir)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Len(t, cfg.DissimilarityFields, 4)

	names := cfg.names()
	assert.Equal(t, "Bridge", names.Display("7"))
	assert.Equal(t, "Tall wall", names.Display("Level 3"))
	assert.Equal(t, "Ceiling", names.Display("5"))
}

func TestLoadFileConfigErrors(t *testing.T) {
	_, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "missing config file")
	_, err = loadFileConfig(writeConfig(t, "quantiles: {bad"))
	assert.Error(t, err, "malformed yaml")

	cfg, err := loadFileConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultFileConfig(), cfg)
}

func TestOverlayFlagsOnlyAppliesSetFlags(t *testing.T) {
	cmd := newAnalyzeCmd(&cli{})
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "5", "--quantiles", "0.2,0.8", "--fields", "component,fitness", "--plots"}))
	cfg, err := loadFileConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.overlayFlags(cmd.Flags()))

	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, []float64{0.2, 0.8}, cfg.Quantiles)
	assert.Equal(t, []string{"component", "fitness"}, cfg.DissimilarityFields)
	assert.Equal(t, "cohort", cfg.Granularity, "unset flags keep file values")
	assert.Equal(t, "run *.csv", cfg.Pattern, "unset flags keep file values")

	sc := cfg.summaryConfig()
	assert.NoError(t, sc.Validate())
}

func TestParseExperiments(t *testing.T) {
	got := parseExperiments([]string{"25% elite = logs/a", "logs/b"})
	assert.Equal(t, []experimentConfig{{Label: "25% elite", Dir: "logs/a"}, {Dir: "logs/b"}}, got)
}
