package pipeline

import (
	"context"
	"time"
)

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerRun      Trigger = "run"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
)

type triggerKey struct{}

// WithTrigger records what started the cycles compiled with ctx.
func WithTrigger(ctx context.Context, t Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, t)
}

func triggerFrom(ctx context.Context) Trigger {
	if t, ok := ctx.Value(triggerKey{}).(Trigger); ok {
		return t
	}
	return TriggerRun
}

// CycleInfo describes a cycle that is starting.
type CycleInfo struct {
	ID        string
	Trigger   Trigger
	Files     []string
	StartedAt time.Time
}

// StageResult describes one finished stage.
type StageResult struct {
	CycleID  string
	Stage    string
	Duration time.Duration
	Err      error
}

// CycleResult is the done notification of a cycle. Err is nil on success;
// Stage names the stage that failed.
type CycleResult struct {
	CycleInfo
	Duration time.Duration
	Units    int
	Outputs  []string
	Stage    string
	Err      error
}

// Observer receives cycle notifications. OnCycleDone is called exactly once
// per started cycle, after the controller is idle again.
type Observer interface {
	OnCycleStart(ctx context.Context, info CycleInfo)
	OnStageComplete(ctx context.Context, result StageResult)
	OnCycleDone(ctx context.Context, result CycleResult)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	Start func(ctx context.Context, info CycleInfo)
	Stage func(ctx context.Context, result StageResult)
	Done  func(ctx context.Context, result CycleResult)
}

func (o ObserverFuncs) OnCycleStart(ctx context.Context, info CycleInfo) {
	if o.Start != nil {
		o.Start(ctx, info)
	}
}

func (o ObserverFuncs) OnStageComplete(ctx context.Context, result StageResult) {
	if o.Stage != nil {
		o.Stage(ctx, result)
	}
}

func (o ObserverFuncs) OnCycleDone(ctx context.Context, result CycleResult) {
	if o.Done != nil {
		o.Done(ctx, result)
	}
}
