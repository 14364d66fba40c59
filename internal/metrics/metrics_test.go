package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmdiversity/internal/model"
)

func sampleDiagnostics() model.Diagnostics {
	return model.Diagnostics{
		TotalRecords:    10,
		DroppedRecords:  2,
		Cohorts:         3,
		EmptyCohorts:    []model.CohortKey{{Level: "4", Generation: 1}},
		ZeroShareTotals: []string{"gene_keys level=4 generation=1", "gene_groups level=4 generation=1"},
	}
}

func TestObserveAccumulates(t *testing.T) {
	m := New()
	m.Observe(sampleDiagnostics(), 1500*time.Millisecond)
	m.Observe(sampleDiagnostics(), 250*time.Millisecond)

	assert.Equal(t, 20.0, testutil.ToFloat64(m.RecordsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RecordsDroppedTotal))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.CohortsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmptyCohortsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ZeroShareTotals.WithLabelValues("gene_groups")))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.LastDuration))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Observe(sampleDiagnostics(), time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(b.ZeroShareTotals))
	assert.Equal(t, 2, testutil.CollectAndCount(a.ZeroShareTotals))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(sampleDiagnostics(), time.Second)
	path := filepath.Join(t.TempDir(), "textfiles", "tgmdiversity.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "tgmdiversity_records_total 10"), text)
	assert.True(t, strings.Contains(text, "tgmdiversity_last_analysis_duration_seconds 1"), text)
	assert.True(t, strings.Contains(text, `tgmdiversity_zero_share_totals_total{table="gene_keys"} 1`), text)
}

func TestTableOf(t *testing.T) {
	assert.Equal(t, "gene_keys", tableOf("gene_keys level=3 generation=2"))
	assert.Equal(t, "plain", tableOf("plain"))
}
