package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultQuantiles is the percentile set reported when none is configured.
var DefaultQuantiles = []float64{0.05, 0.25, 0.5, 0.75, 0.95}

type QuantileValue struct {
	P     float64
	Value float64
}

// Distribution summarizes a sample. An empty Distribution (Count == 0) is the
// "no data" marker: every statistic is NaN.
type Distribution struct {
	Count     int
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
	Median    float64
	Quantiles []QuantileValue
}

// Summarize computes order statistics of samples. Quantiles use linear
// interpolation between the bracketing order statistics, the default of R
// (type 7), numpy and pandas. NaN samples are ignored and samples is never
// modified.
func Summarize(samples []float64, quantiles []float64) Distribution {
	sorted := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return Empty(quantiles)
	}
	sort.Float64s(sorted)

	d := Distribution{
		Count:     len(sorted),
		Min:       floats.Min(sorted),
		Max:       floats.Max(sorted),
		Mean:      stat.Mean(sorted, nil),
		Median:    Quantile(sorted, 0.5),
		Quantiles: make([]QuantileValue, 0, len(quantiles)),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	for _, p := range quantiles {
		d.Quantiles = append(d.Quantiles, QuantileValue{P: p, Value: Quantile(sorted, p)})
	}
	return d
}

// SummarizeInts is Summarize for count samples.
func SummarizeInts(samples []int, quantiles []float64) Distribution {
	values := make([]float64, len(samples))
	for i, v := range samples {
		values[i] = float64(v)
	}
	return Summarize(values, quantiles)
}

// Empty returns the no-data Distribution for the given quantile set.
func Empty(quantiles []float64) Distribution {
	nan := math.NaN()
	d := Distribution{
		Min:       nan,
		Max:       nan,
		Mean:      nan,
		StdDev:    nan,
		Median:    nan,
		Quantiles: make([]QuantileValue, 0, len(quantiles)),
	}
	for _, p := range quantiles {
		d.Quantiles = append(d.Quantiles, QuantileValue{P: p, Value: nan})
	}
	return d
}

func (d Distribution) Empty() bool {
	return d.Count == 0
}

// Quantile returns the value computed for p, if p was part of the set.
func (d Distribution) Quantile(p float64) (float64, bool) {
	for _, q := range d.Quantiles {
		if math.Abs(q.P-p) < 1e-9 {
			return q.Value, true
		}
	}
	if math.Abs(p-0.5) < 1e-9 {
		return d.Median, true
	}
	return math.NaN(), false
}

// Quantile computes the p-quantile of an ascending sample with linear
// interpolation: h = (n-1)p, q = x[floor(h)] + (h-floor(h))(x[floor(h)+1]-x[floor(h)]).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1 || p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// NormalizeQuantiles validates a configured percentile set and returns it
// sorted ascending without duplicates.
func NormalizeQuantiles(quantiles []float64) ([]float64, error) {
	if len(quantiles) == 0 {
		return append([]float64(nil), DefaultQuantiles...), nil
	}
	out := append([]float64(nil), quantiles...)
	for _, p := range out {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("quantile %g out of range [0,1]", p)
		}
	}
	sort.Float64s(out)
	deduped := out[:1]
	for _, p := range out[1:] {
		if math.Abs(p-deduped[len(deduped)-1]) > 1e-9 {
			deduped = append(deduped, p)
		}
	}
	return deduped, nil
}

// QuantileLabel names a quantile column, e.g. 0.05 -> "p5", 0.025 -> "p2.5".
func QuantileLabel(p float64) string {
	percent := math.Round(p*1e6) / 1e4
	return "p" + strconv.FormatFloat(percent, 'f', -1, 64)
}

type distributionJSON struct {
	Count     int                 `json:"count"`
	Min       *float64            `json:"min"`
	Max       *float64            `json:"max"`
	Mean      *float64            `json:"mean"`
	StdDev    *float64            `json:"stddev"`
	Median    *float64            `json:"median"`
	Quantiles []quantileValueJSON `json:"quantiles,omitempty"`
}

type quantileValueJSON struct {
	P     float64  `json:"p"`
	Value *float64 `json:"value"`
}

// MarshalJSON encodes no-data statistics as null.
func (d Distribution) MarshalJSON() ([]byte, error) {
	wire := distributionJSON{
		Count:  d.Count,
		Min:    Nullable(d.Min),
		Max:    Nullable(d.Max),
		Mean:   Nullable(d.Mean),
		StdDev: Nullable(d.StdDev),
		Median: Nullable(d.Median),
	}
	for _, q := range d.Quantiles {
		wire.Quantiles = append(wire.Quantiles, quantileValueJSON{P: q.P, Value: Nullable(q.Value)})
	}
	return json.Marshal(wire)
}

func (d *Distribution) UnmarshalJSON(data []byte) error {
	var wire distributionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*d = Distribution{
		Count:  wire.Count,
		Min:    FromNullable(wire.Min),
		Max:    FromNullable(wire.Max),
		Mean:   FromNullable(wire.Mean),
		StdDev: FromNullable(wire.StdDev),
		Median: FromNullable(wire.Median),
	}
	for _, q := range wire.Quantiles {
		d.Quantiles = append(d.Quantiles, QuantileValue{P: q.P, Value: FromNullable(q.Value)})
	}
	return nil
}

// Nullable maps the NaN no-data marker to nil.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func FromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
