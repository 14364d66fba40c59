package summary

import (
	"math"
	"sort"

	"tgmdiversity/internal/cohort"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

// ConsistencyRow describes how stable the fitness of one gene key is within
// a level, across every generation and run.
type ConsistencyRow struct {
	Level   string             `json:"level"`
	Key     model.GeneKey      `json:"key"`
	Fitness stats.Distribution `json:"fitness"`
}

// FitnessConsistency summarizes the parsed fitness of every gene key per
// level. Unlike the cohort tables it keeps fitness values at or below the
// validity threshold; keys whose samples are all zero are left out. Rows
// are ordered by level first-seen, then key.
func FitnessConsistency(records []model.GeneRecord, quantiles []float64) []ConsistencyRow {
	levels, byLevel := cohort.GroupByLevel(records)
	var rows []ConsistencyRow
	for _, level := range levels {
		samples := make(map[model.GeneKey][]float64)
		for _, record := range byLevel[level] {
			if math.IsNaN(record.Fitness) {
				continue
			}
			samples[record.Key] = append(samples[record.Key], record.Fitness)
		}

		keys := make([]model.GeneKey, 0, len(samples))
		for key, values := range samples {
			if allZero(values) {
				continue
			}
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		for _, key := range keys {
			rows = append(rows, ConsistencyRow{
				Level:   level,
				Key:     key,
				Fitness: stats.Summarize(samples[key], quantiles),
			})
		}
	}
	return rows
}

// BuildConsistency normalizes raws with cfg and runs FitnessConsistency.
func BuildConsistency(raws []model.RawRecord, cfg Config) ([]ConsistencyRow, model.Diagnostics, error) {
	rc, err := cfg.resolve()
	if err != nil {
		return nil, model.Diagnostics{}, err
	}
	records, diag := rc.normalizer.NormalizeAll(raws)
	rows := FitnessConsistency(records, rc.quantiles)
	rc.logger.Info("fitness consistency complete", "records", len(records), "rows", len(rows))
	return rows, diag, nil
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}
