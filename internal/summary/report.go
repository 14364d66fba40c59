package summary

import (
	"sort"

	"tgmdiversity/internal/frequency"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

type RunCount struct {
	Run   string `json:"run"`
	Count int    `json:"count"`
}

// DiversityRow is the population and fitness summary of one cohort.
type DiversityRow struct {
	Cohort       model.CohortKey `json:"cohort"`
	Runs         int             `json:"runs"`
	Records      int             `json:"records"`
	ValidRecords int             `json:"valid_records"`
	// Fitness pools the valid fitness of every individual of the cohort.
	Fitness stats.Distribution `json:"fitness"`
	// RunMedianFitness is taken over runs with at least one valid record.
	RunMedianFitness stats.Distribution `json:"run_median_fitness"`
	UniqueGenes      stats.Distribution `json:"unique_genes"`
	PopulationSize   stats.Distribution `json:"population_size"`
	PopulationByRun  []RunCount         `json:"population_by_run"`
	TotalUniqueGenes int                `json:"total_unique_genes"`
	// Empty marks a cohort without a single fitness-valid record.
	Empty bool `json:"empty,omitempty"`
}

type RunScore struct {
	Run         string  `json:"run"`
	Individuals int     `json:"individuals"`
	Score       float64 `json:"score"`
}

// DissimilarityRow holds the dissimilarity scalars of one cohort.
type DissimilarityRow struct {
	Cohort                 model.CohortKey    `json:"cohort"`
	Granularity            Granularity        `json:"granularity"`
	Fields                 []string           `json:"fields"`
	Scores                 []RunScore         `json:"scores"`
	Distribution           stats.Distribution `json:"distribution"`
	InconsistentFieldPairs int                `json:"inconsistent_field_pairs,omitempty"`
	UndefinedPairs         int                `json:"undefined_pairs,omitempty"`
}

// ComponentRow counts the distinct gene keys of one component in a cohort.
type ComponentRow struct {
	Cohort            model.CohortKey         `json:"cohort"`
	Component         string                  `json:"component"`
	ComponentCategory model.ComponentCategory `json:"component_category"`
	UniqueGenes       int                     `json:"unique_genes"`
	Records           int                     `json:"records"`
}

// Report is the complete output of Build. Every slice is in cohort
// first-seen order; Components is additionally sorted by component name
// within a cohort.
type Report struct {
	Quantiles     []float64          `json:"quantiles"`
	Cohorts       []model.CohortKey  `json:"cohorts"`
	Diversity     []DiversityRow     `json:"diversity"`
	GeneKeys      []frequency.Table  `json:"gene_keys"`
	GeneGroups    []frequency.Table  `json:"gene_groups"`
	Dissimilarity []DissimilarityRow `json:"dissimilarity"`
	Components    []ComponentRow     `json:"components"`
	Diagnostics   model.Diagnostics  `json:"diagnostics"`
}

// Levels lists the report's levels in first-seen order.
func (r Report) Levels() []string {
	seen := make(map[string]bool)
	levels := make([]string, 0, 8)
	for _, key := range r.Cohorts {
		if !seen[key.Level] {
			seen[key.Level] = true
			levels = append(levels, key.Level)
		}
	}
	return levels
}

// ComponentNames lists every component seen in Components, sorted.
func (r Report) ComponentNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, 8)
	for _, row := range r.Components {
		if !seen[row.Component] {
			seen[row.Component] = true
			names = append(names, row.Component)
		}
	}
	sort.Strings(names)
	return names
}
