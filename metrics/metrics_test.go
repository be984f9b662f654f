package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionIngested(false)
	m.SessionIngested(false)
	m.SessionIngested(true)
	m.DurationMismatch()
	m.ExportFinished("completed", 12, time.Second)
	m.ExportFinished("failed", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsIngested.WithLabelValues("new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsIngested.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.durationMismatch))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportJobs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportJobs.WithLabelValues("failed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.exportRecords))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionIngested(true)
		m.DurationMismatch()
		m.ExportFinished("completed", 1, time.Second)
	})
}
