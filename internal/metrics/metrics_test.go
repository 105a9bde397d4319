package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mtsload/internal/core"
)

var _ core.Recorder = (*Metrics)(nil)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FileProcessed("rotary", core.OutcomeLoaded)
	m.FileProcessed("rotary", core.OutcomeLoaded)
	m.FileProcessed("", core.OutcomeUnrecognizedCategory)
	m.RowsInserted("rotary", 120)
	m.RowsInserted("rotary", 0)
	m.LinesRejected("rotary", 3)
	m.RunCompleted(2*time.Second, nil)
	m.RunCompleted(time.Second, errors.New("no watched directories exist"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.files.WithLabelValues("rotary", "loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues("", "unrecognized_category")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.rows.WithLabelValues("rotary")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rejected.WithLabelValues("rotary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("error")))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess), 0.0)

	n, err := testutil.GatherAndCount(reg, "mtsload_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
