package cohort

import (
	"sort"

	"tgmdiversity/internal/model"
)

// Run is the part of a cohort that came from one log file.
type Run struct {
	Name    string
	Records []model.GeneRecord
}

func (r Run) ValidRecords() []model.GeneRecord {
	return validOnly(r.Records)
}

// Cohort holds every record sharing a (level, generation) key, further
// partitioned by run in first-seen order.
type Cohort struct {
	Key     model.CohortKey
	Records []model.GeneRecord
	Runs    []Run
}

func (c Cohort) ValidRecords() []model.GeneRecord {
	return validOnly(c.Records)
}

func (c Cohort) RunNames() []string {
	names := make([]string, 0, len(c.Runs))
	for _, run := range c.Runs {
		names = append(names, run.Name)
	}
	return names
}

// Group partitions records by cohort key and then by run. Both levels keep
// first-seen order and key equality is exact.
func Group(records []model.GeneRecord) []Cohort {
	cohorts := make([]Cohort, 0, 16)
	cohortIdx := make(map[model.CohortKey]int)
	runIdx := make([]map[string]int, 0, 16)

	for _, record := range records {
		key := record.Cohort()
		ci, ok := cohortIdx[key]
		if !ok {
			ci = len(cohorts)
			cohortIdx[key] = ci
			cohorts = append(cohorts, Cohort{Key: key})
			runIdx = append(runIdx, make(map[string]int))
		}
		c := &cohorts[ci]
		c.Records = append(c.Records, record)

		ri, ok := runIdx[ci][record.Run]
		if !ok {
			ri = len(c.Runs)
			runIdx[ci][record.Run] = ri
			c.Runs = append(c.Runs, Run{Name: record.Run})
		}
		c.Runs[ri].Records = append(c.Runs[ri].Records, record)
	}
	return cohorts
}

// GroupByLevel partitions records by level only, in first-seen order.
func GroupByLevel(records []model.GeneRecord) ([]string, map[string][]model.GeneRecord) {
	levels := make([]string, 0, 8)
	byLevel := make(map[string][]model.GeneRecord)
	for _, record := range records {
		if _, ok := byLevel[record.Level]; !ok {
			levels = append(levels, record.Level)
		}
		byLevel[record.Level] = append(byLevel[record.Level], record)
	}
	return levels, byLevel
}

// SortByLevelOrder orders keys for presentation: levels listed in order come
// first in that order, the rest keep their relative order; generations
// ascend within a level.
func SortByLevelOrder(keys []model.CohortKey, order []string) {
	rank := make(map[string]int, len(order))
	for i, level := range order {
		rank[level] = i
	}
	firstSeen := make(map[string]int)
	for _, key := range keys {
		if _, ok := firstSeen[key.Level]; !ok {
			firstSeen[key.Level] = len(firstSeen)
		}
	}
	levelRank := func(level string) (int, int) {
		if r, ok := rank[level]; ok {
			return 0, r
		}
		return 1, firstSeen[level]
	}
	sort.SliceStable(keys, func(i, j int) bool {
		gi, ri := levelRank(keys[i].Level)
		gj, rj := levelRank(keys[j].Level)
		if gi != gj {
			return gi < gj
		}
		if ri != rj {
			return ri < rj
		}
		return keys[i].Generation < keys[j].Generation
	})
}

// Reorder returns cohorts arranged like SortByLevelOrder arranges their keys.
func Reorder(cohorts []Cohort, order []string) []Cohort {
	keys := make([]model.CohortKey, len(cohorts))
	byKey := make(map[model.CohortKey]Cohort, len(cohorts))
	for i, c := range cohorts {
		keys[i] = c.Key
		byKey[c.Key] = c
	}
	SortByLevelOrder(keys, order)
	out := make([]Cohort, len(keys))
	for i, key := range keys {
		out[i] = byKey[key]
	}
	return out
}

func validOnly(records []model.GeneRecord) []model.GeneRecord {
	out := make([]model.GeneRecord, 0, len(records))
	for _, record := range records {
		if record.FitnessValid {
			out = append(out, record)
		}
	}
	return out
}
