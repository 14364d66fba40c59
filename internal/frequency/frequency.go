package frequency

import (
	"encoding/json"
	"math"
	"sort"

	"tgmdiversity/internal/cohort"
	"tgmdiversity/internal/model"
	"tgmdiversity/internal/stats"
)

// KeyFunc extracts the categorical key a record is counted under.
type KeyFunc func(model.GeneRecord) string

func ByGeneKey(r model.GeneRecord) string   { return r.Key.String() }
func ByGeneGroup(r model.GeneRecord) string { return r.GeneGroup }

// Entry is the cross-run occurrence distribution of one key in a cohort.
type Entry struct {
	Key    string
	Total  int
	PerRun []int
	Counts stats.Distribution
	// Share is Counts.Median over the cohort's sum of medians; NaN when
	// that sum is zero.
	Share float64
}

type Table struct {
	Cohort         model.CohortKey `json:"cohort"`
	Runs           []string        `json:"runs"`
	Entries        []Entry         `json:"entries"`
	MedianTotal    float64         `json:"median_total"`
	ZeroShareTotal bool            `json:"zero_share_total,omitempty"`
}

func GeneKeys(c cohort.Cohort, quantiles []float64) Table {
	return Tabulate(c, ByGeneKey, quantiles)
}

func GeneGroups(c cohort.Cohort, quantiles []float64) Table {
	return Tabulate(c, ByGeneGroup, quantiles)
}

// Tabulate counts fitness-valid records per key and run. Every key gets
// exactly one count per run of the cohort; runs without the key contribute
// an explicit zero so medians are not biased upward.
func Tabulate(c cohort.Cohort, keyFn KeyFunc, quantiles []float64) Table {
	table := Table{
		Cohort: c.Key,
		Runs:   c.RunNames(),
	}

	perRun := make(map[string][]int)
	for i, run := range c.Runs {
		for _, record := range run.Records {
			if !record.FitnessValid {
				continue
			}
			key := keyFn(record)
			counts, ok := perRun[key]
			if !ok {
				counts = make([]int, len(c.Runs))
				perRun[key] = counts
			}
			counts[i]++
		}
	}

	keys := make([]string, 0, len(perRun))
	for key := range perRun {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	table.Entries = make([]Entry, 0, len(keys))
	for _, key := range keys {
		counts := perRun[key]
		total := 0
		for _, count := range counts {
			total += count
		}
		dist := stats.SummarizeInts(counts, quantiles)
		table.Entries = append(table.Entries, Entry{
			Key:    key,
			Total:  total,
			PerRun: counts,
			Counts: dist,
		})
		table.MedianTotal += dist.Median
	}

	for i := range table.Entries {
		if table.MedianTotal == 0 {
			table.Entries[i].Share = math.NaN()
			continue
		}
		table.Entries[i].Share = table.Entries[i].Counts.Median / table.MedianTotal
	}
	table.ZeroShareTotal = len(table.Entries) > 0 && table.MedianTotal == 0
	return table
}

func (t Table) Entry(key string) (Entry, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Key >= key })
	if i < len(t.Entries) && t.Entries[i].Key == key {
		return t.Entries[i], true
	}
	return Entry{}, false
}

// ShareSum adds up the defined shares; 1 for any cohort with a non-zero
// median total.
func (t Table) ShareSum() float64 {
	sum := 0.0
	for _, entry := range t.Entries {
		if !math.IsNaN(entry.Share) {
			sum += entry.Share
		}
	}
	return sum
}

type entryJSON struct {
	Key    string             `json:"key"`
	Total  int                `json:"total"`
	PerRun []int              `json:"per_run"`
	Counts stats.Distribution `json:"counts"`
	Share  *float64           `json:"share"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Key:    e.Key,
		Total:  e.Total,
		PerRun: e.PerRun,
		Counts: e.Counts,
		Share:  stats.Nullable(e.Share),
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var wire entryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Entry{
		Key:    wire.Key,
		Total:  wire.Total,
		PerRun: wire.PerRun,
		Counts: wire.Counts,
		Share:  stats.FromNullable(wire.Share),
	}
	return nil
}
