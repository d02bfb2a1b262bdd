package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("resolve", 150*time.Millisecond)
	pr.ObserveCycleDuration(500 * time.Millisecond)
	pr.IncStageResult("resolve", ResultSuccess)
	pr.IncCycleOutcome(CycleSuccess)
	pr.IncPostprocessorResult("lint", ResultFailed)
	pr.AddDroppedInputs(2)
	pr.AddFilesWritten(3)
	pr.AddFilesWritten(0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 7)

	assert.InDelta(t, 1, testutil.ToFloat64(pr.cycleOutcome.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.postprocessors.WithLabelValues("lint", "failed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.droppedInputs), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.filesWritten), 0)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("resolve", time.Second)
		pr.IncCycleOutcome(CycleFailed)
		pr.AddFilesWritten(1)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncCycleOutcome(CycleRejected)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `interleave_cycle_outcomes_total{outcome="rejected"} 1`)
}
