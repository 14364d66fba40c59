package galog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "GA log a.csv"), sampleLog)
	writeFile(t, filepath.Join(dir, "GA log b.csv"), "generation,fitness\n")

	infos, err := InspectDir(dir, "")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	a := infos[0]
	assert.Equal(t, "GA log a.csv", a.Run)
	assert.Equal(t, 3, a.Rows)
	assert.Equal(t, 1, a.MinGeneration)
	assert.Equal(t, 2, a.MaxGeneration)
	assert.Equal(t, []string{"3"}, a.Levels)
	assert.Equal(t, 1, a.UnparsedFitness)
	assert.Empty(t, a.MissingColumns)

	b := infos[1]
	assert.Equal(t, 0, b.Rows)
	assert.Len(t, b.MissingColumns, len(KnownColumns)-2)
}

func TestInspectKeepsLevelIdsExact(t *testing.T) {
	in := "level,generation,fitness\n" +
		"10,1,0.5\n" +
		"Level 4,1,0.5\n" +
		"4.0,2,0.5\n" +
		"tutorial,3,0.5\n" +
		"Tutorial,3,0.5\n"
	info, err := inspect(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "10", "Level 4", "Tutorial", "tutorial"}, info.Levels)
	assert.Equal(t, 1, info.MinGeneration)
	assert.Equal(t, 3, info.MaxGeneration)
}
