// Package metrics holds the Prometheus collectors for ingestion and exports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	sessionsIngested  *prometheus.CounterVec
	durationMismatch  prometheus.Counter
	exportJobs        *prometheus.CounterVec
	exportRecords     prometheus.Counter
	exportGenDuration prometheus.Histogram
}

// New registers the collectors on reg. A nil *Metrics is valid and records nothing.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iot_sessions_ingested_total",
			Help: "Sessions accepted by ingestion, by outcome (new or duplicate).",
		}, []string{"outcome"}),
		durationMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iot_session_duration_mismatch_total",
			Help: "Sessions whose claimed duration differed from the computed one by more than the tolerance.",
		}),
		exportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iot_export_jobs_total",
			Help: "Export jobs that reached a terminal state.",
		}, []string{"status"}),
		exportRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iot_export_records_total",
			Help: "Session rows written into completed export artifacts.",
		}),
		exportGenDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iot_export_generation_seconds",
			Help:    "Wall time spent generating an export artifact.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(m.sessionsIngested, m.durationMismatch, m.exportJobs, m.exportRecords, m.exportGenDuration)
	return m
}

func (m *Metrics) SessionIngested(duplicate bool) {
	if m == nil {
		return
	}
	outcome := "new"
	if duplicate {
		outcome = "duplicate"
	}
	m.sessionsIngested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DurationMismatch() {
	if m == nil {
		return
	}
	m.durationMismatch.Inc()
}

func (m *Metrics) ExportFinished(status string, records int64, took time.Duration) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(status).Inc()
	m.exportRecords.Add(float64(records))
	m.exportGenDuration.Observe(took.Seconds())
}
