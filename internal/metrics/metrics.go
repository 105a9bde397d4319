// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/mtsload/internal/core"
)

// Metrics implements core.Recorder.
type Metrics struct {
	files       *prometheus.CounterVec
	rows        *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtsload_files_processed_total",
			Help: "Files handled per station and outcome.",
		}, []string{"station", "outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtsload_rows_inserted_total",
			Help: "Measurement rows appended to station tables.",
		}, []string{"station"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtsload_lines_rejected_total",
			Help: "Data lines discarded as malformed.",
		}, []string{"station"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtsload_runs_total",
			Help: "Ingestion passes by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtsload_run_duration_seconds",
			Help:    "Wall time of an ingestion pass.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtsload_last_success_timestamp_seconds",
			Help: "Unix time of the last pass that completed without error.",
		}),
	}

	reg.MustRegister(m.files, m.rows, m.rejected, m.runs, m.runDuration, m.lastSuccess)
	return m
}

func (m *Metrics) FileProcessed(station string, outcome core.Outcome) {
	m.files.WithLabelValues(station, string(outcome)).Inc()
}

func (m *Metrics) RowsInserted(station string, n int) {
	if n > 0 {
		m.rows.WithLabelValues(station).Add(float64(n))
	}
}

func (m *Metrics) LinesRejected(station string, n int) {
	if n > 0 {
		m.rejected.WithLabelValues(station).Add(float64(n))
	}
}

func (m *Metrics) RunCompleted(d time.Duration, err error) {
	m.runDuration.Observe(d.Seconds())
	if err != nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.lastSuccess.SetToCurrentTime()
}
