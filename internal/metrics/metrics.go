// Package metrics exposes per-analysis counters on a private Prometheus
// registry. Batch runs write the registry to a node-exporter textfile.
package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tgmdiversity/internal/model"
)

const namespace = "tgmdiversity"

// AnalysisMetrics holds the counters updated after every analysis.
type AnalysisMetrics struct {
	registry *prometheus.Registry

	RecordsTotal        prometheus.Counter
	RecordsDroppedTotal prometheus.Counter
	CohortsTotal        prometheus.Counter
	EmptyCohortsTotal   prometheus.Counter
	// ZeroShareTotals is labelled by table family (gene_keys, gene_groups).
	ZeroShareTotals *prometheus.CounterVec
	LastDuration    prometheus.Gauge
}

func New() *AnalysisMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &AnalysisMetrics{
		RecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Raw GA log records read.",
		}),
		RecordsDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Records dropped because an identity field was missing.",
		}),
		CohortsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cohorts_total",
			Help:      "Level and generation cohorts summarized.",
		}),
		EmptyCohortsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_cohorts_total",
			Help:      "Cohorts without a single fitness-valid record.",
		}),
		ZeroShareTotals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zero_share_totals_total",
			Help:      "Frequency tables whose medians sum to zero.",
		}, []string{"table"}),
		LastDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_analysis_duration_seconds",
			Help:      "Wall time of the most recent analysis.",
		}),
	}
	m.registry = reg
	return m
}

func (m *AnalysisMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe adds the counters of one analysis.
func (m *AnalysisMetrics) Observe(diag model.Diagnostics, elapsed time.Duration) {
	m.RecordsTotal.Add(float64(diag.TotalRecords))
	m.RecordsDroppedTotal.Add(float64(diag.DroppedRecords))
	m.CohortsTotal.Add(float64(diag.Cohorts))
	m.EmptyCohortsTotal.Add(float64(len(diag.EmptyCohorts)))
	for _, entry := range diag.ZeroShareTotals {
		m.ZeroShareTotals.WithLabelValues(tableOf(entry)).Inc()
	}
	m.LastDuration.Set(elapsed.Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (m *AnalysisMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// tableOf extracts the family prefix of a ZeroShareTotals entry such as
// "gene_groups level=3 generation=1".
func tableOf(entry string) string {
	table, _, _ := strings.Cut(entry, " ")
	return table
}
