package genes

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmdiversity/internal/model"
)

func rawRecord(gameObject, component string, fitness float64) model.RawRecord {
	return model.RawRecord{
		Level:          "3",
		Generation:     1,
		Run:            "GA log a.csv",
		GameObject:     gameObject,
		Component:      component,
		ComponentField: "size",
		Modifier:       "double",
		Fitness:        fitness,
	}
}

func TestComponentCategoryPriority(t *testing.T) {
	cases := map[string]model.ComponentCategory{
		"BoxCollider2D":         model.ComponentCollider,
		"TilemapCollider2D":     model.ComponentCollider,
		"GridCollider":          model.ComponentCollider,
		"CompositeColliderGrid": model.ComponentCollider,
		"Rigidbody2D":           model.ComponentRigidbody,
		"RigidbodyTransform":    model.ComponentRigidbody,
		"Transform":             model.ComponentTransform,
		"TransformGrid":         model.ComponentTransform,
		"Grid":                  model.ComponentGrid,
		"PlayerController":      model.ComponentOther,
		"collider":              model.ComponentOther,
		"RigidBody2D":           model.ComponentOther,
	}
	for component, want := range cases {
		assert.Equal(t, want, ComponentCategoryOf(component), component)
	}
}

func TestGameObjectCategory(t *testing.T) {
	assert.Equal(t, model.GameObjectPlayer, GameObjectCategoryOf("PlayerAgent", ""))
	assert.Equal(t, model.GameObjectLevel, GameObjectCategoryOf("Level", ""))
	assert.Equal(t, model.GameObjectLevel, GameObjectCategoryOf("playerAgent", ""))
	assert.Equal(t, model.GameObjectPlayer, GameObjectCategoryOf("Hero(Clone)", "Hero"))
}

func TestNormalizeDerivesKeyAndGroup(t *testing.T) {
	n := Normalizer{}
	record, err := n.Normalize(rawRecord("PlayerAgent", "Rigidbody2D", 0.5))
	require.NoError(t, err)
	assert.Equal(t, "PlayerAgent,Rigidbody2D,size,double", record.Key.String())
	assert.Equal(t, "player-rigidbody", record.GeneGroup)
	assert.True(t, record.FitnessValid)
	assert.Equal(t, model.CohortKey{Level: "3", Generation: 1}, record.Cohort())
}

func TestNormalizeFitnessEpsilon(t *testing.T) {
	strict := Normalizer{}
	near := Normalizer{Epsilon: 1e-10}

	zero, err := strict.Normalize(rawRecord("Level", "Grid", 0))
	require.NoError(t, err)
	assert.False(t, zero.FitnessValid)
	assert.Equal(t, "Level", zero.Key.GameObject, "invalid fitness keeps identity fields")

	tiny := rawRecord("Level", "Grid", 1e-12)
	got, err := strict.Normalize(tiny)
	require.NoError(t, err)
	assert.True(t, got.FitnessValid)
	got, err = near.Normalize(tiny)
	require.NoError(t, err)
	assert.False(t, got.FitnessValid)

	missing, err := strict.Normalize(rawRecord("Level", "Grid", math.NaN()))
	require.NoError(t, err)
	assert.False(t, missing.FitnessValid)
}

func TestNormalizeDropsMalformedRecords(t *testing.T) {
	n := Normalizer{}
	noComponent := rawRecord("Level", "  ", 0.4)
	_, err := n.Normalize(noComponent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMalformedRecord))

	nanModifier := rawRecord("Level", "Grid", 0.4)
	nanModifier.Modifier = "nan"
	noGeneration := rawRecord("Level", "Grid", 0.4)
	noGeneration.Generation = 0

	records, diag := n.NormalizeAll([]model.RawRecord{
		rawRecord("Level", "Grid", 0.4),
		noComponent,
		nanModifier,
		noGeneration,
		rawRecord("PlayerAgent", "Transform", 0),
	})
	require.Len(t, records, 2)
	assert.Equal(t, 5, diag.TotalRecords)
	assert.Equal(t, 3, diag.DroppedRecords)
	assert.Equal(t, 1, diag.InvalidFitnessRecords)
	assert.Equal(t, map[string]int{"component": 1, "modifier": 1, "generation": 1}, diag.DroppedByField)
	assert.Equal(t, []string{"component", "generation", "modifier"}, diag.DroppedFields())
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := Normalizer{Epsilon: 1e-10}
	raw := rawRecord(" Level ", "BoxCollider2D", 0.9)
	first, err := n.Normalize(raw)
	require.NoError(t, err)

	again, err := n.Normalize(model.RawRecord{
		Level:          first.Level,
		Generation:     first.Generation,
		Run:            first.Run,
		GameObject:     first.Key.GameObject,
		Component:      first.Key.Component,
		ComponentField: first.Key.ComponentField,
		Modifier:       first.Key.Modifier,
		Fitness:        first.Fitness,
	})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestNormalizeKeepsLevelExact(t *testing.T) {
	cases := map[string]string{
		" Forest ":  "Forest",
		"forest":    "forest",
		"Level 3":   "Level 3",
		"3.0":       "3",
		"level_3.0": "level_3.0",
	}
	for in, want := range cases {
		raw := rawRecord("Level", "Grid", 0.4)
		raw.Level = in
		record, err := Normalizer{}.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, want, record.Level, "level %q", in)
	}
}
