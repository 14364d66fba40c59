package summary

import (
	"context"
	"strings"

	"tgmdiversity/internal/cohort"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

// Dataset is one labelled experiment, e.g. one selection strategy.
type Dataset struct {
	Label   string
	Records []model.RawRecord
}

// ExperimentRow is the pooled valid-fitness distribution of one experiment
// at one (level, generation).
type ExperimentRow struct {
	Experiment   string             `json:"experiment"`
	Cohort       model.CohortKey    `json:"cohort"`
	Runs         int                `json:"runs"`
	ValidRecords int                `json:"valid_records"`
	Fitness      stats.Distribution `json:"fitness"`
}

// CompareExperiments summarizes fitness per experiment and cohort.
// Experiments keep the order of datasets, cohorts their first-seen order
// within an experiment.
func CompareExperiments(ctx context.Context, datasets []Dataset, cfg Config) ([]ExperimentRow, model.Diagnostics, error) {
	rc, err := cfg.resolve()
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	perDataset := make([][]ExperimentRow, len(datasets))
	diags := make([]model.Diagnostics, len(datasets))
	err = forEachIndex(ctx, len(datasets), rc.workers, func(i int) {
		perDataset[i], diags[i] = compareDataset(datasets[i], rc)
	})
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	var rows []ExperimentRow
	var diag model.Diagnostics
	for i := range datasets {
		rows = append(rows, perDataset[i]...)
		diag.Merge(diags[i])
	}
	rc.logger.Info("experiment comparison complete", "experiments", len(datasets), "rows", len(rows))
	return rows, diag, nil
}

func compareDataset(ds Dataset, rc resolvedConfig) ([]ExperimentRow, model.Diagnostics) {
	label := strings.TrimSpace(ds.Label)
	records, diag := rc.normalizer.NormalizeAll(ds.Records)
	cohorts := cohort.Group(records)

	rows := make([]ExperimentRow, 0, len(cohorts))
	for _, c := range cohorts {
		valid := c.ValidRecords()
		fitness := make([]float64, 0, len(valid))
		for _, record := range valid {
			fitness = append(fitness, record.Fitness)
		}
		rows = append(rows, ExperimentRow{
			Experiment:   label,
			Cohort:       c.Key,
			Runs:         len(c.Runs),
			ValidRecords: len(valid),
			Fitness:      stats.Summarize(fitness, rc.quantiles),
		})
		diag.Cohorts++
		if len(valid) == 0 {
			diag.EmptyCohorts = append(diag.EmptyCohorts, c.Key)
		}
	}
	return rows, diag
}
