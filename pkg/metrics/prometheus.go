package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus.
// Each Recorder owns its registry so batch steps can push a clean snapshot.
type Recorder struct {
	registry *prometheus.Registry

	rows       *prometheus.GaugeVec
	missing    *prometheus.GaugeVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	registered *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		rows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockml_rows",
				Help: "Rows produced by the last run of a pipeline step",
			},
			[]string{"step"},
		),
		missing: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockml_missing_values",
				Help: "Missing values per column in the last prepared dataset",
			},
			[]string{"column"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockml_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockml_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		registered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockml_assets_registered_total",
				Help: "Total number of asset versions registered",
			},
			[]string{"name", "type"},
		),
	}
}

// RecordRows records the row count produced by a step.
func (r *Recorder) RecordRows(step string, rows int) {
	r.rows.WithLabelValues(step).Set(float64(rows))
}

// RecordMissing records the missing-value count of a column.
func (r *Recorder) RecordMissing(column string, n int) {
	r.missing.WithLabelValues(column).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordAssetRegistered counts a registered asset version.
func (r *Recorder) RecordAssetRegistered(name, assetType string) {
	r.registered.WithLabelValues(name, assetType).Inc()
}

// Registry exposes the recorder's registry for scraping and for other
// collectors such as the HTTP middleware.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push sends the current metrics to a Pushgateway. Batch steps call it once
// before exiting. An empty url is a no-op.
func (r *Recorder) Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
