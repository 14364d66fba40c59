package model

import (
	"fmt"
	"strings"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RawRecord is one row of a GA log as produced by a data source. Generation
// is 0 and Fitness is NaN when the source value was absent or unparseable.
type RawRecord struct {
	Level          string  `json:"level"`
	Generation     int     `json:"generation"`
	Run            string  `json:"run"`
	Individual     string  `json:"individual,omitempty"`
	Experiment     string  `json:"experiment,omitempty"`
	GameObject     string  `json:"game_object"`
	Component      string  `json:"component"`
	ComponentField string  `json:"component_field"`
	Modifier       string  `json:"modifier"`
	Fitness        float64 `json:"fitness"`
}

// GeneKey identifies a mutation locus.
type GeneKey struct {
	GameObject     string `json:"game_object"`
	Component      string `json:"component"`
	ComponentField string `json:"component_field"`
	Modifier       string `json:"modifier"`
}

func (k GeneKey) String() string {
	return strings.Join([]string{k.GameObject, k.Component, k.ComponentField, k.Modifier}, ",")
}

type GameObjectCategory string

const (
	GameObjectPlayer GameObjectCategory = "player"
	GameObjectLevel  GameObjectCategory = "level"
)

type ComponentCategory string

const (
	ComponentCollider  ComponentCategory = "collider"
	ComponentRigidbody ComponentCategory = "rigidbody"
	ComponentTransform ComponentCategory = "transform"
	ComponentGrid      ComponentCategory = "grid"
	ComponentOther     ComponentCategory = "other"
)

// GeneRecord is a normalized RawRecord. It is never mutated after
// normalization.
type GeneRecord struct {
	Level              string             `json:"level"`
	Generation         int                `json:"generation"`
	Run                string             `json:"run"`
	Individual         string             `json:"individual,omitempty"`
	Experiment         string             `json:"experiment,omitempty"`
	Key                GeneKey            `json:"key"`
	Fitness            float64            `json:"fitness"`
	FitnessValid       bool               `json:"fitness_valid"`
	GameObjectCategory GameObjectCategory `json:"game_object_category"`
	ComponentCategory  ComponentCategory  `json:"component_category"`
	GeneGroup          string             `json:"gene_group"`
}

func (r GeneRecord) Cohort() CohortKey {
	return CohortKey{Level: r.Level, Generation: r.Generation}
}

// CohortKey identifies all records sharing a level and generation.
type CohortKey struct {
	Level      string `json:"level"`
	Generation int    `json:"generation"`
}

func (k CohortKey) String() string {
	return fmt.Sprintf("level=%s generation=%d", k.Level, k.Generation)
}
