package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CycleSummary is the read model of one compile cycle.
type CycleSummary struct {
	CycleID      string        `json:"cycle_id"`
	Status       string        `json:"status"`
	Trigger      string        `json:"trigger,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Files        []string      `json:"files,omitempty"`
	Outputs      []string      `json:"outputs,omitempty"`
	ErrorStage   string        `json:"error_stage,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// CycleHistoryProjection is an in-memory view of cycle history rebuilt from
// the store.
type CycleHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	cycles  map[string]*CycleSummary
	history []*CycleSummary // newest first
	maxSize int
}

// NewCycleHistoryProjection creates a projection keeping at most
// maxHistorySize finished cycles (100 when not positive).
func NewCycleHistoryProjection(store Store, maxHistorySize int) *CycleHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &CycleHistoryProjection{
		store:   store,
		cycles:  make(map[string]*CycleSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from every stored event.
func (p *CycleHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cycles = make(map[string]*CycleSummary)
	p.history = nil
	for _, event := range events {
		p.applyLocked(event)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	return nil
}

// Apply processes a single event.
func (p *CycleHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
}

func (p *CycleHistoryProjection) applyLocked(event Event) {
	id := event.CycleID()
	if id == "" {
		return
	}
	summary, ok := p.cycles[id]
	if !ok {
		summary = &CycleSummary{CycleID: id, Status: StatusRunning, StartedAt: event.Timestamp()}
		p.cycles[id] = summary
	}

	switch event.Type() {
	case TypeCycleStarted:
		summary.StartedAt = event.Timestamp()
		var payload CycleStartedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Files = payload.Files
			summary.Trigger = payload.Trigger
		}

	case TypeCycleCompleted:
		p.finishLocked(summary, event, StatusCompleted)
		var payload CycleCompletedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Outputs = payload.Outputs
		}

	case TypeCycleFailed:
		p.finishLocked(summary, event, StatusFailed)
		var payload CycleFailedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
	}
}

func (p *CycleHistoryProjection) finishLocked(summary *CycleSummary, event Event, status string) {
	done := event.Timestamp()
	summary.CompletedAt = &done
	summary.Duration = done.Sub(summary.StartedAt)
	summary.Status = status

	for _, h := range p.history {
		if h.CycleID == summary.CycleID {
			return
		}
	}
	p.history = append([]*CycleSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		for _, dropped := range p.history[p.maxSize:] {
			delete(p.cycles, dropped.CycleID)
		}
		p.history = p.history[:p.maxSize]
	}
}

// History returns finished cycles, newest first.
func (p *CycleHistoryProjection) History() []CycleSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]CycleSummary, len(p.history))
	for i, h := range p.history {
		out[i] = *h
	}
	return out
}

// Get returns the summary for one cycle.
func (p *CycleHistoryProjection) Get(cycleID string) (CycleSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.cycles[cycleID]
	if !ok {
		return CycleSummary{}, false
	}
	return *s, true
}
