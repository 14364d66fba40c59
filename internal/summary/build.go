// Package summary assembles per-cohort diversity, frequency, dissimilarity
// and component tables from raw GA log records.
package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tgmdiversity/internal/cohort"
	"tgmdiversity/internal/dissimilarity"
	"tgmdiversity/internal/frequency"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

type cohortResult struct {
	diversity     DiversityRow
	geneKeys      frequency.Table
	geneGroups    frequency.Table
	dissimilarity DissimilarityRow
	components    []ComponentRow
	diag          model.Diagnostics
}

// Build normalizes raws, groups them into cohorts and summarizes every
// cohort. Data problems never fail the build; they are counted in
// Report.Diagnostics. Only an invalid cfg or a cancelled ctx return an
// error.
func Build(ctx context.Context, raws []model.RawRecord, cfg Config) (Report, error) {
	rc, err := cfg.resolve()
	if err != nil {
		return Report{}, err
	}
	start := time.Now()

	records, diag := rc.normalizer.NormalizeAll(raws)
	cohorts := cohort.Group(records)
	if len(rc.levelOrder) > 0 {
		cohorts = cohort.Reorder(cohorts, rc.levelOrder)
	}

	results := make([]cohortResult, len(cohorts))
	err = forEachIndex(ctx, len(cohorts), rc.workers, func(i int) {
		results[i] = summarizeCohort(cohorts[i], rc)
	})
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Quantiles:     rc.quantiles,
		Cohorts:       make([]model.CohortKey, 0, len(cohorts)),
		Diversity:     make([]DiversityRow, 0, len(cohorts)),
		GeneKeys:      make([]frequency.Table, 0, len(cohorts)),
		GeneGroups:    make([]frequency.Table, 0, len(cohorts)),
		Dissimilarity: make([]DissimilarityRow, 0, len(cohorts)),
	}
	for i, result := range results {
		report.Cohorts = append(report.Cohorts, cohorts[i].Key)
		report.Diversity = append(report.Diversity, result.diversity)
		report.GeneKeys = append(report.GeneKeys, result.geneKeys)
		report.GeneGroups = append(report.GeneGroups, result.geneGroups)
		report.Dissimilarity = append(report.Dissimilarity, result.dissimilarity)
		report.Components = append(report.Components, result.components...)
		diag.Merge(result.diag)
	}
	report.Diagnostics = diag

	rc.logger.Info("analysis complete",
		"records", diag.TotalRecords,
		"dropped", diag.DroppedRecords,
		"invalid_fitness", diag.InvalidFitnessRecords,
		"cohorts", diag.Cohorts,
		"empty_cohorts", len(diag.EmptyCohorts),
		"workers", rc.workers,
		"elapsed", time.Since(start),
	)
	for _, field := range diag.DroppedFields() {
		rc.logger.Debug("dropped malformed records", "field", field, "count", diag.DroppedByField[field])
	}
	for _, table := range diag.ZeroShareTotals {
		rc.logger.Debug("share total is zero", "table", table)
	}
	return report, nil
}

// forEachIndex runs fn(0..n-1) on at most workers goroutines. Each call owns
// its index; ctx is checked before every call.
func forEachIndex(ctx context.Context, n, workers int, fn func(int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if err := gctx.Err(); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("summarize cohorts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("summarize cohorts: %w", err)
	}
	return nil
}

func summarizeCohort(c cohort.Cohort, rc resolvedConfig) cohortResult {
	result := cohortResult{
		diversity:     diversityRow(c, rc.quantiles),
		geneKeys:      frequency.GeneKeys(c, rc.quantiles),
		geneGroups:    frequency.GeneGroups(c, rc.quantiles),
		dissimilarity: dissimilarityRow(c, rc),
		components:    componentRows(c),
	}
	result.diag.Cohorts = 1
	if result.diversity.Empty {
		result.diag.EmptyCohorts = []model.CohortKey{c.Key}
	}
	if result.geneKeys.ZeroShareTotal {
		result.diag.ZeroShareTotals = append(result.diag.ZeroShareTotals, "gene_keys "+c.Key.String())
	}
	if result.geneGroups.ZeroShareTotal {
		result.diag.ZeroShareTotals = append(result.diag.ZeroShareTotals, "gene_groups "+c.Key.String())
	}
	result.diag.InconsistentFieldPairs = result.dissimilarity.InconsistentFieldPairs
	result.diag.UndefinedPairs = result.dissimilarity.UndefinedPairs
	return result
}

func diversityRow(c cohort.Cohort, quantiles []float64) DiversityRow {
	row := DiversityRow{
		Cohort:          c.Key,
		Runs:            len(c.Runs),
		Records:         len(c.Records),
		PopulationByRun: make([]RunCount, 0, len(c.Runs)),
	}

	pooled := make([]float64, 0, len(c.Records))
	runMedians := make([]float64, 0, len(c.Runs))
	populations := make([]int, 0, len(c.Runs))
	uniquePerRun := make([]int, 0, len(c.Runs))
	cohortKeys := make(map[model.GeneKey]struct{})

	for _, run := range c.Runs {
		valid := run.ValidRecords()
		fitness := make([]float64, 0, len(valid))
		runKeys := make(map[model.GeneKey]struct{}, len(valid))
		for _, record := range valid {
			fitness = append(fitness, record.Fitness)
			runKeys[record.Key] = struct{}{}
			cohortKeys[record.Key] = struct{}{}
		}
		pooled = append(pooled, fitness...)
		if len(fitness) > 0 {
			runMedians = append(runMedians, stats.Summarize(fitness, nil).Median)
		}
		populations = append(populations, len(valid))
		uniquePerRun = append(uniquePerRun, len(runKeys))
		row.PopulationByRun = append(row.PopulationByRun, RunCount{Run: run.Name, Count: len(valid)})
	}

	row.ValidRecords = len(pooled)
	row.Fitness = stats.Summarize(pooled, quantiles)
	row.RunMedianFitness = stats.Summarize(runMedians, quantiles)
	row.UniqueGenes = stats.SummarizeInts(uniquePerRun, quantiles)
	row.PopulationSize = stats.SummarizeInts(populations, quantiles)
	row.TotalUniqueGenes = len(cohortKeys)
	row.Empty = row.ValidRecords == 0
	return row
}

func dissimilarityRow(c cohort.Cohort, rc resolvedConfig) DissimilarityRow {
	row := DissimilarityRow{
		Cohort:      c.Key,
		Granularity: rc.granularity,
		Fields:      rc.fieldNames,
	}

	score := func(name string, records []model.GeneRecord) {
		if len(records) == 0 {
			return
		}
		value, pairStats := dissimilarity.Score(dissimilarity.Individuals(records, rc.fields))
		row.Scores = append(row.Scores, RunScore{Run: name, Individuals: len(records), Score: value})
		row.InconsistentFieldPairs += pairStats.InconsistentFieldPairs
		row.UndefinedPairs += pairStats.UndefinedPairs
	}
	if rc.granularity == GranularityCohort {
		score(PooledRun, c.ValidRecords())
	} else {
		for _, run := range c.Runs {
			score(run.Name, run.ValidRecords())
		}
	}

	samples := make([]float64, 0, len(row.Scores))
	for _, s := range row.Scores {
		samples = append(samples, s.Score)
	}
	row.Distribution = stats.Summarize(samples, rc.quantiles)
	return row
}

// PooledRun names the single score of a cohort-granularity row.
const PooledRun = "*"

func componentRows(c cohort.Cohort) []ComponentRow {
	type componentStats struct {
		keys    map[model.GeneKey]struct{}
		records int
		cat     model.ComponentCategory
	}
	byComponent := make(map[string]*componentStats)
	for _, record := range c.ValidRecords() {
		cs, ok := byComponent[record.Key.Component]
		if !ok {
			cs = &componentStats{keys: make(map[model.GeneKey]struct{}), cat: record.ComponentCategory}
			byComponent[record.Key.Component] = cs
		}
		cs.keys[record.Key] = struct{}{}
		cs.records++
	}

	names := make([]string, 0, len(byComponent))
	for name := range byComponent {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]ComponentRow, 0, len(names))
	for _, name := range names {
		cs := byComponent[name]
		rows = append(rows, ComponentRow{
			Cohort:            c.Key,
			Component:         name,
			ComponentCategory: cs.cat,
			UniqueGenes:       len(cs.keys),
			Records:           cs.records,
		})
	}
	return rows
}
