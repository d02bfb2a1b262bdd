package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interleave"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	cycleDuration  prom.Histogram
	cycleOutcome   *prom.CounterVec
	postprocessors *prom.CounterVec
	droppedInputs  prom.Counter
	filesWritten   prom.Counter
}

// NewPrometheusRecorder constructs and registers the pipeline metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Total compile cycle duration",
			Buckets:   prom.DefBuckets,
		})
		pr.cycleOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_outcomes_total",
			Help:      "Compile cycles by final status",
		}, []string{"outcome"})
		pr.postprocessors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "postprocessor_results_total",
			Help:      "Postprocessor runs by name and outcome",
		}, []string{"postprocessor", "result"})
		pr.droppedInputs = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_inputs_total",
			Help:      "Target paths dropped during expansion because they could not be read",
		})
		pr.filesWritten = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Output files written",
		})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.cycleDuration, pr.cycleOutcome, pr.postprocessors, pr.droppedInputs, pr.filesWritten)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCycleDuration(d time.Duration) {
	if p == nil || p.cycleDuration == nil {
		return
	}
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycleOutcome(outcome CycleOutcome) {
	if p == nil || p.cycleOutcome == nil {
		return
	}
	p.cycleOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncPostprocessorResult(name string, result ResultLabel) {
	if p == nil || p.postprocessors == nil {
		return
	}
	p.postprocessors.WithLabelValues(name, string(result)).Inc()
}

func (p *PrometheusRecorder) AddDroppedInputs(n int) {
	if p == nil || p.droppedInputs == nil || n <= 0 {
		return
	}
	p.droppedInputs.Add(float64(n))
}

func (p *PrometheusRecorder) AddFilesWritten(n int) {
	if p == nil || p.filesWritten == nil || n <= 0 {
		return
	}
	p.filesWritten.Add(float64(n))
}

// HTTPHandler returns an http.Handler that serves metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
