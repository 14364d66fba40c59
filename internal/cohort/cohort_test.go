package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmdiversity/internal/model"
)

func record(level string, generation int, run string, valid bool) model.GeneRecord {
	return model.GeneRecord{
		Level:        level,
		Generation:   generation,
		Run:          run,
		Key:          model.GeneKey{GameObject: "Level", Component: "Grid", ComponentField: "cellSize", Modifier: "half"},
		FitnessValid: valid,
	}
}

func TestGroupKeepsFirstSeenOrder(t *testing.T) {
	records := []model.GeneRecord{
		record("4", 2, "b", true),
		record("3", 1, "a", true),
		record("4", 2, "a", false),
		record("3", 1, "a", true),
		record("4", 2, "b", true),
		record("03", 1, "a", true),
	}
	cohorts := Group(records)
	require.Len(t, cohorts, 3)

	assert.Equal(t, model.CohortKey{Level: "4", Generation: 2}, cohorts[0].Key)
	assert.Equal(t, model.CohortKey{Level: "3", Generation: 1}, cohorts[1].Key)
	assert.Equal(t, model.CohortKey{Level: "03", Generation: 1}, cohorts[2].Key, "level keys are not fuzzy matched")

	first := cohorts[0]
	assert.Len(t, first.Records, 3)
	assert.Equal(t, []string{"b", "a"}, first.RunNames())
	assert.Len(t, first.Runs[0].Records, 2)
	assert.Len(t, first.Runs[1].Records, 1)
	assert.Empty(t, first.Runs[1].ValidRecords())
	assert.Len(t, first.ValidRecords(), 2)
}

func TestGroupEmpty(t *testing.T) {
	assert.Empty(t, Group(nil))
}

func TestGroupByLevel(t *testing.T) {
	levels, byLevel := GroupByLevel([]model.GeneRecord{
		record("5", 1, "a", true),
		record("3", 1, "a", true),
		record("5", 2, "a", true),
	})
	assert.Equal(t, []string{"5", "3"}, levels)
	assert.Len(t, byLevel["5"], 2)
}

func TestSortByLevelOrder(t *testing.T) {
	keys := []model.CohortKey{
		{Level: "9", Generation: 2},
		{Level: "5", Generation: 2},
		{Level: "3", Generation: 2},
		{Level: "9", Generation: 1},
		{Level: "3", Generation: 1},
		{Level: "7", Generation: 1},
	}
	SortByLevelOrder(keys, []string{"3", "5"})
	assert.Equal(t, []model.CohortKey{
		{Level: "3", Generation: 1},
		{Level: "3", Generation: 2},
		{Level: "5", Generation: 2},
		{Level: "9", Generation: 1},
		{Level: "9", Generation: 2},
		{Level: "7", Generation: 1},
	}, keys)
}

func TestReorderKeepsCohortContents(t *testing.T) {
	cohorts := Group([]model.GeneRecord{
		record("3", 2, "a", true),
		record("5", 1, "a", true),
		record("3", 1, "b", false),
	})
	ordered := Reorder(cohorts, []string{"5"})
	require.Len(t, ordered, 3)
	assert.Equal(t, model.CohortKey{Level: "5", Generation: 1}, ordered[0].Key)
	assert.Equal(t, model.CohortKey{Level: "3", Generation: 1}, ordered[1].Key)
	assert.Equal(t, []string{"b"}, ordered[1].RunNames())
	assert.Equal(t, model.CohortKey{Level: "3", Generation: 2}, ordered[2].Key)
}
