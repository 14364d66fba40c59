package frequency

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmdiversity/internal/cohort"
	"tgmdiversity/internal/genes"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

func buildCohort(t *testing.T, raws ...model.RawRecord) cohort.Cohort {
	t.Helper()
	records, diag := genes.Normalizer{}.NormalizeAll(raws)
	require.Zero(t, diag.DroppedRecords)
	cohorts := cohort.Group(records)
	require.Len(t, cohorts, 1)
	return cohorts[0]
}

func gene(run, gameObject, component string, fitness float64) model.RawRecord {
	return model.RawRecord{
		Level:          "3",
		Generation:     1,
		Run:            run,
		GameObject:     gameObject,
		Component:      component,
		ComponentField: "size",
		Modifier:       "x",
		Fitness:        fitness,
	}
}

func TestTabulateOneCountPerRun(t *testing.T) {
	c := buildCohort(t,
		gene("a", "Level", "BoxCollider2D", 0.5),
		gene("a", "Level", "BoxCollider2D", 0.7),
		gene("b", "Level", "BoxCollider2D", 0.2),
		gene("b", "PlayerAgent", "Rigidbody2D", 0.9),
	)
	table := GeneKeys(c, stats.DefaultQuantiles)
	assert.Equal(t, []string{"a", "b"}, table.Runs)
	require.Len(t, table.Entries, 2)

	collider, ok := table.Entry("Level,BoxCollider2D,size,x")
	require.True(t, ok)
	assert.Equal(t, []int{2, 1}, collider.PerRun)
	assert.Equal(t, 3, collider.Total)
	assert.Equal(t, 1.5, collider.Counts.Median)

	rigidbody, ok := table.Entry("PlayerAgent,Rigidbody2D,size,x")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, rigidbody.PerRun)
	assert.Equal(t, 0.5, rigidbody.Counts.Median)

	assert.InDelta(t, 0.75, collider.Share, 1e-12)
	assert.InDelta(t, 0.25, rigidbody.Share, 1e-12)
	assert.InDelta(t, 1.0, table.ShareSum(), 1e-12)
	assert.False(t, table.ZeroShareTotal)
}

func TestTabulateAbsentKeyActsAsExplicitZero(t *testing.T) {
	base := []model.RawRecord{
		gene("a", "Level", "Grid", 0.5),
		gene("a", "Level", "Grid", 0.5),
		gene("b", "Level", "Grid", 0.5),
	}
	withRunC := append(append([]model.RawRecord(nil), base...), gene("c", "PlayerAgent", "Transform", 0.5))

	table := GeneKeys(buildCohort(t, withRunC...), stats.DefaultQuantiles)
	entry, ok := table.Entry("Level,Grid,size,x")
	require.True(t, ok)
	assert.Equal(t, []int{2, 1, 0}, entry.PerRun)

	explicit := stats.Summarize([]float64{2, 1, 0}, stats.DefaultQuantiles)
	assert.Equal(t, explicit, entry.Counts)
}

func TestTabulateGroupsCountOnlyValidFitness(t *testing.T) {
	c := buildCohort(t,
		gene("a", "Level", "BoxCollider2D", 0.8),
		gene("b", "PlayerAgent", "Rigidbody2D", 0.0),
	)
	table := GeneGroups(c, stats.DefaultQuantiles)
	assert.Equal(t, []string{"a", "b"}, table.Runs)
	require.Len(t, table.Entries, 1)
	entry := table.Entries[0]
	assert.Equal(t, "level-collider", entry.Key)
	assert.Equal(t, 1, entry.Total)
	assert.Equal(t, []int{1, 0}, entry.PerRun)
	assert.Equal(t, 1.0, entry.Share)
}

func TestTabulateZeroShareTotal(t *testing.T) {
	c := buildCohort(t,
		gene("a", "Level", "Grid", 0.5),
		gene("b", "PlayerAgent", "Transform", 0.5),
		gene("c", "Level", "Rigidbody2D", 0.5),
	)
	table := GeneGroups(c, stats.DefaultQuantiles)
	require.Len(t, table.Entries, 3)
	assert.True(t, table.ZeroShareTotal)
	for _, entry := range table.Entries {
		assert.True(t, math.IsNaN(entry.Share), entry.Key)
	}
	assert.Equal(t, 0.0, table.ShareSum())
}

func TestTabulateEmptyCohort(t *testing.T) {
	c := buildCohort(t, gene("a", "Level", "Grid", 0))
	table := GeneKeys(c, stats.DefaultQuantiles)
	assert.Empty(t, table.Entries)
	assert.False(t, table.ZeroShareTotal)
}

func TestEntryJSONShareNull(t *testing.T) {
	entry := Entry{Key: "k", PerRun: []int{0}, Counts: stats.Summarize([]float64{0}, nil), Share: math.NaN()}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"share":null`)

	var decoded Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, math.IsNaN(decoded.Share))
	assert.Equal(t, "k", decoded.Key)
}
