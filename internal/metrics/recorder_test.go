package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testRecorder counts calls; it is safe for concurrent use.
type testRecorder struct {
	mu             sync.Mutex
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	cycleDurations int
	cycleOutcomes  map[CycleOutcome]int
	postprocessors map[string]map[ResultLabel]int
	dropped        int
	written        int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		stageDurations: map[string]int{},
		stageResults:   map[string]map[ResultLabel]int{},
		cycleOutcomes:  map[CycleOutcome]int{},
		postprocessors: map[string]map[ResultLabel]int{},
	}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stageDurations[stage]++
}

func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	inc(t.stageResults, stage, result)
}

func (t *testRecorder) ObserveCycleDuration(time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycleDurations++
}

func (t *testRecorder) IncCycleOutcome(outcome CycleOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycleOutcomes[outcome]++
}

func (t *testRecorder) IncPostprocessorResult(name string, result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	inc(t.postprocessors, name, result)
}

func (t *testRecorder) AddDroppedInputs(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropped += n
}

func (t *testRecorder) AddFilesWritten(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written += n
}

func inc(m map[string]map[ResultLabel]int, key string, result ResultLabel) {
	inner, ok := m[key]
	if !ok {
		inner = map[ResultLabel]int{}
		m[key] = inner
	}
	inner[result]++
}

func TestRecorderInterfaceCompliance(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)
	var _ Recorder = newTestRecorder()
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))

	tr := newTestRecorder()
	rec := OrNoop(tr)
	rec.IncCycleOutcome(CycleSuccess)
	rec.AddDroppedInputs(2)
	assert.Equal(t, 1, tr.cycleOutcomes[CycleSuccess])
	assert.Equal(t, 2, tr.dropped)
}
