package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// CycleOutcome is the final status of one compile cycle.
type CycleOutcome string

const (
	CycleSuccess  CycleOutcome = "success"
	CycleFailed   CycleOutcome = "failed"
	CycleRejected CycleOutcome = "rejected"
)

// Recorder defines observability hooks for compile cycles and their stages.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveCycleDuration(d time.Duration)
	IncCycleOutcome(outcome CycleOutcome)
	IncPostprocessorResult(name string, result ResultLabel)
	AddDroppedInputs(n int)
	AddFilesWritten(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)  {}
func (NoopRecorder) IncStageResult(string, ResultLabel)          {}
func (NoopRecorder) ObserveCycleDuration(time.Duration)          {}
func (NoopRecorder) IncCycleOutcome(CycleOutcome)                {}
func (NoopRecorder) IncPostprocessorResult(string, ResultLabel)  {}
func (NoopRecorder) AddDroppedInputs(int)                        {}
func (NoopRecorder) AddFilesWritten(int)                         {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
