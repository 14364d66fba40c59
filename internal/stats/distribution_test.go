package stats

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quantile(t *testing.T, d Distribution, p float64) float64 {
	t.Helper()
	v, ok := d.Quantile(p)
	require.True(t, ok, "quantile %g missing", p)
	return v
}

func TestSummarizeLinearInterpolation(t *testing.T) {
	d := Summarize([]float64{4, 1, 3, 2}, DefaultQuantiles)
	require.Equal(t, 4, d.Count)
	assert.InDelta(t, 1.15, quantile(t, d, 0.05), 1e-12)
	assert.InDelta(t, 1.75, quantile(t, d, 0.25), 1e-12)
	assert.InDelta(t, 2.5, d.Median, 1e-12)
	assert.InDelta(t, 3.25, quantile(t, d, 0.75), 1e-12)
	assert.InDelta(t, 3.85, quantile(t, d, 0.95), 1e-12)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 4.0, d.Max)
	assert.InDelta(t, 2.5, d.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487358056, d.StdDev, 1e-12)
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	samples := []float64{3, 1, 2}
	Summarize(samples, DefaultQuantiles)
	assert.Equal(t, []float64{3, 1, 2}, samples)
}

func TestSummarizeEmptyIsNoData(t *testing.T) {
	for _, samples := range [][]float64{nil, {}, {math.NaN()}} {
		d := Summarize(samples, DefaultQuantiles)
		assert.True(t, d.Empty())
		assert.True(t, math.IsNaN(d.Median))
		assert.True(t, math.IsNaN(d.Min))
		assert.True(t, math.IsNaN(d.Max))
		assert.True(t, math.IsNaN(d.Mean))
		assert.True(t, math.IsNaN(d.StdDev))
		require.Len(t, d.Quantiles, len(DefaultQuantiles))
		for _, q := range d.Quantiles {
			assert.True(t, math.IsNaN(q.Value))
		}
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	d := Summarize([]float64{0.8}, DefaultQuantiles)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, 0.8, d.Median)
	for _, q := range d.Quantiles {
		assert.Equal(t, 0.8, q.Value)
	}
	assert.Equal(t, 0.0, d.StdDev)
	assert.Equal(t, 0.8, d.Min)
	assert.Equal(t, 0.8, d.Max)
}

func TestSummarizeOrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(40)
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = rng.NormFloat64() * 10
		}
		d := Summarize(samples, DefaultQuantiles)
		p5 := quantile(t, d, 0.05)
		p25 := quantile(t, d, 0.25)
		p75 := quantile(t, d, 0.75)
		p95 := quantile(t, d, 0.95)
		require.LessOrEqual(t, d.Min, p5)
		require.LessOrEqual(t, p5, p25)
		require.LessOrEqual(t, p25, d.Median)
		require.LessOrEqual(t, d.Median, p75)
		require.LessOrEqual(t, p75, p95)
		require.GreaterOrEqual(t, d.Max, p95)
	}
}

func TestSummarizeInts(t *testing.T) {
	d := SummarizeInts([]int{1, 0, 0}, DefaultQuantiles)
	assert.Equal(t, 0.0, d.Median)
	assert.Equal(t, 1.0, d.Max)
}

func TestNormalizeQuantiles(t *testing.T) {
	got, err := NormalizeQuantiles(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuantiles, got)

	got, err = NormalizeQuantiles([]float64{0.9, 0.1, 0.9, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, got)

	_, err = NormalizeQuantiles([]float64{1.5})
	require.Error(t, err)
}

func TestQuantileLabel(t *testing.T) {
	assert.Equal(t, "p5", QuantileLabel(0.05))
	assert.Equal(t, "p25", QuantileLabel(0.25))
	assert.Equal(t, "p50", QuantileLabel(0.5))
	assert.Equal(t, "p95", QuantileLabel(0.95))
	assert.Equal(t, "p2.5", QuantileLabel(0.025))
	assert.Equal(t, "p7", QuantileLabel(0.07))
}

func TestDistributionJSONEncodesNoDataAsNull(t *testing.T) {
	data, err := json.Marshal(Summarize(nil, []float64{0.5}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"min":null,"max":null,"mean":null,"stddev":null,"median":null,"quantiles":[{"p":0.5,"value":null}]}`, string(data))

	var decoded Distribution
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Empty())
	assert.True(t, math.IsNaN(decoded.Median))

	full := Summarize([]float64{1, 2}, []float64{0.5})
	data, err = json.Marshal(full)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, full, decoded)
}
