package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIngest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveIngest(nil, 10*time.Millisecond, 2048, 12, 1)
	m.ObserveIngest(errors.New("too few rows"), time.Millisecond, 10, 0, 0)

	if got := testutil.ToFloat64(m.ingestionsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success ingestions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ingestionsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("failed ingestions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rowsIngested); got != 12 {
		t.Errorf("rows ingested = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.ingestBytes); got != 2058 {
		t.Errorf("bytes = %v, want 2058", got)
	}
}

func TestObserveSaveAndExport(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSave("autosave", "stale", time.Millisecond)
	m.ObserveSave("manual", "success", time.Millisecond)
	m.ObserveExport("xlsx")
	m.ObserveExport("xlsx")

	if got := testutil.ToFloat64(m.stateSavesTotal.WithLabelValues("autosave", "stale")); got != 1 {
		t.Errorf("stale autosaves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.exportsTotal.WithLabelValues("xlsx")); got != 2 {
		t.Errorf("xlsx exports = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveIngest(nil, time.Second, 1, 1, 0)
	m.ObserveSave("manual", "success", time.Second)
	m.ObserveExport("csv")
	m.ObserveHTTP("GET", "/api/report", "200", time.Second)
}
