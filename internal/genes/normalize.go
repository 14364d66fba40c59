package genes

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"tgmdiversity/internal/levelid"
	"tgmdiversity/internal/model"
)

// Normalizer turns raw log rows into GeneRecords.
type Normalizer struct {
	// Epsilon is the fitness validity threshold: fitness <= Epsilon is
	// invalid. The zero value gives the strict fitness > 0 rule.
	Epsilon      float64
	PlayerPrefix string
}

// Normalize derives the gene key and categories of raw. Records that cannot
// be keyed return an error wrapping model.ErrMalformedRecord.
func (n Normalizer) Normalize(raw model.RawRecord) (model.GeneRecord, error) {
	level := levelid.Key(cleanIdentity(raw.Level))
	run := strings.TrimSpace(raw.Run)
	key := model.GeneKey{
		GameObject:     cleanIdentity(raw.GameObject),
		Component:      cleanIdentity(raw.Component),
		ComponentField: cleanIdentity(raw.ComponentField),
		Modifier:       cleanIdentity(raw.Modifier),
	}

	if field := firstMissing(level, raw.Generation, run, key); field != "" {
		return model.GeneRecord{}, &MalformedRecordError{Field: field, Record: raw}
	}

	goCategory := GameObjectCategoryOf(key.GameObject, n.PlayerPrefix)
	compCategory := ComponentCategoryOf(key.Component)
	return model.GeneRecord{
		Level:              level,
		Generation:         raw.Generation,
		Run:                run,
		Individual:         strings.TrimSpace(raw.Individual),
		Experiment:         strings.TrimSpace(raw.Experiment),
		Key:                key,
		Fitness:            raw.Fitness,
		FitnessValid:       n.FitnessValid(raw.Fitness),
		GameObjectCategory: goCategory,
		ComponentCategory:  compCategory,
		GeneGroup:          GeneGroupOf(goCategory, compCategory),
	}, nil
}

func (n Normalizer) FitnessValid(fitness float64) bool {
	if math.IsNaN(fitness) {
		return false
	}
	return fitness > n.Epsilon
}

// NormalizeAll normalizes every raw row, dropping (and counting) the
// malformed ones. The returned diagnostics only carry record counters.
func (n Normalizer) NormalizeAll(raws []model.RawRecord) ([]model.GeneRecord, model.Diagnostics) {
	diag := model.Diagnostics{TotalRecords: len(raws)}
	records := make([]model.GeneRecord, 0, len(raws))
	for _, raw := range raws {
		record, err := n.Normalize(raw)
		if err != nil {
			field := "unknown"
			var malformed *MalformedRecordError
			if errors.As(err, &malformed) {
				field = malformed.Field
			}
			diag.AddDropped(field)
			continue
		}
		if !record.FitnessValid {
			diag.InvalidFitnessRecords++
		}
		records = append(records, record)
	}
	return records, diag
}

type MalformedRecordError struct {
	Field  string
	Record model.RawRecord
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s: missing %s (run=%q generation=%d)", model.ErrMalformedRecord, e.Field, e.Record.Run, e.Record.Generation)
}

func (e *MalformedRecordError) Unwrap() error {
	return model.ErrMalformedRecord
}

func firstMissing(level string, generation int, run string, key model.GeneKey) string {
	switch {
	case key.GameObject == "":
		return "gameObject"
	case key.Component == "":
		return "component"
	case key.ComponentField == "":
		return "componentField"
	case key.Modifier == "":
		return "modifier"
	case level == "":
		return "level"
	case generation < 1:
		return "generation"
	case run == "":
		return "run"
	}
	return ""
}

// cleanIdentity trims value and treats the textual NaN marker some log
// writers emit as missing.
func cleanIdentity(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "nan") {
		return ""
	}
	return value
}
