package model

import (
	"errors"
	"sort"
)

var (
	ErrMalformedRecord      = errors.New("malformed record")
	ErrEmptyCohort          = errors.New("empty cohort")
	ErrZeroShareTotal       = errors.New("share total is zero")
	ErrInconsistentFieldSet = errors.New("inconsistent field set")
	ErrInvalidConfig        = errors.New("invalid config")
)

// Diagnostics aggregates the non-fatal conditions met during one analysis
// pass. Every counter refers to one of the sentinel errors above.
type Diagnostics struct {
	TotalRecords           int            `json:"total_records"`
	DroppedRecords         int            `json:"dropped_records"`
	DroppedByField         map[string]int `json:"dropped_by_field,omitempty"`
	InvalidFitnessRecords  int            `json:"invalid_fitness_records"`
	Cohorts                int            `json:"cohorts"`
	EmptyCohorts           []CohortKey    `json:"empty_cohorts,omitempty"`
	ZeroShareTotals        []string       `json:"zero_share_totals,omitempty"`
	InconsistentFieldPairs int            `json:"inconsistent_field_pairs"`
	UndefinedPairs         int            `json:"undefined_pairs"`
}

func (d *Diagnostics) AddDropped(field string) {
	d.DroppedRecords++
	if d.DroppedByField == nil {
		d.DroppedByField = make(map[string]int)
	}
	d.DroppedByField[field]++
}

// Merge folds other into d. Cohort-scoped lists keep d's entries first.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.TotalRecords += other.TotalRecords
	d.DroppedRecords += other.DroppedRecords
	for field, count := range other.DroppedByField {
		if d.DroppedByField == nil {
			d.DroppedByField = make(map[string]int)
		}
		d.DroppedByField[field] += count
	}
	d.InvalidFitnessRecords += other.InvalidFitnessRecords
	d.Cohorts += other.Cohorts
	d.EmptyCohorts = append(d.EmptyCohorts, other.EmptyCohorts...)
	d.ZeroShareTotals = append(d.ZeroShareTotals, other.ZeroShareTotals...)
	d.InconsistentFieldPairs += other.InconsistentFieldPairs
	d.UndefinedPairs += other.UndefinedPairs
}

// DroppedFields lists the fields that caused drops, sorted.
func (d Diagnostics) DroppedFields() []string {
	fields := make([]string, 0, len(d.DroppedByField))
	for field := range d.DroppedByField {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
