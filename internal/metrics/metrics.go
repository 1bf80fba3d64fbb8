// Package metrics provides the Prometheus collectors of the lab report
// service. A nil *Metrics is valid and records nothing, so the domain code
// can run without a registry (CLI, tests).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "labreport"

// Metrics holds every collector, registered on one registry.
type Metrics struct {
	ingestionsTotal   *prometheus.CounterVec
	ingestDuration    prometheus.Histogram
	ingestBytes       prometheus.Counter
	rowsIngested      prometheus.Counter
	rowsSkipped       prometheus.Counter
	stateSavesTotal   *prometheus.CounterVec
	stateSaveDuration *prometheus.HistogramVec
	exportsTotal      *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ingestionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Lab export ingestions by outcome.",
		}, []string{"status"}), // status: success, error
		ingestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time taken to decode and parse a lab export.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		ingestBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_bytes_total",
			Help:      "Bytes read from uploaded lab exports.",
		}),
		rowsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Sample rows parsed from lab exports.",
		}),
		rowsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Empty or malformed data rows skipped during ingestion.",
		}),
		stateSavesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_saves_total",
			Help:      "State persistence runs by trigger and outcome.",
		}, []string{"trigger", "status"}), // trigger: manual, autosave; status: success, error, stale
		stateSaveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "state_save_duration_seconds",
			Help:      "Time taken to persist the session state.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		exportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Generated exports by kind.",
		}, []string{"kind"}), // kind: csv, xlsx
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status_code"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveIngest records one ingestion attempt.
func (m *Metrics) ObserveIngest(err error, d time.Duration, bytes int64, rows, skipped int) {
	if m == nil {
		return
	}
	m.ingestionsTotal.WithLabelValues(status(err)).Inc()
	m.ingestDuration.Observe(d.Seconds())
	m.ingestBytes.Add(float64(bytes))
	if err == nil {
		m.rowsIngested.Add(float64(rows))
		m.rowsSkipped.Add(float64(skipped))
	}
}

// ObserveSave records one persistence run. outcome is "success", "error"
// or "stale".
func (m *Metrics) ObserveSave(trigger, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stateSavesTotal.WithLabelValues(trigger, outcome).Inc()
	m.stateSaveDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

// ObserveExport counts a generated export.
func (m *Metrics) ObserveExport(kind string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, statusCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
