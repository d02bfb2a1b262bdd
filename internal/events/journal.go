// Package events turns compile cycle notifications into stored events and,
// when configured, publishes them to NATS.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/interleave/internal/eventstore"
	"git.home.luguber.info/inful/interleave/internal/logfields"
	"git.home.luguber.info/inful/interleave/internal/pipeline"
)

// Publisher sends a message to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON envelope published for every event.
type Message struct {
	CycleID   string            `json:"cycle_id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Journal is a pipeline.Observer that appends cycle events to a store.
// Failures are logged and never reach the pipeline.
type Journal struct {
	store     eventstore.Store
	publisher Publisher
	subject   string
	logger    *slog.Logger
}

var _ pipeline.Observer = (*Journal)(nil)

// Option configures a Journal.
type Option func(*Journal)

// WithPublisher also sends every event to subject.
func WithPublisher(p Publisher, subject string) Option {
	return func(j *Journal) {
		j.publisher = p
		j.subject = subject
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.logger = l
		}
	}
}

// NewJournal creates a Journal. store may be nil when only publishing.
func NewJournal(store eventstore.Store, opts ...Option) *Journal {
	j := &Journal{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) OnCycleStart(ctx context.Context, info pipeline.CycleInfo) {
	j.emit(ctx, info.ID, eventstore.TypeCycleStarted, eventstore.CycleStartedPayload{
		Files:   info.Files,
		Trigger: string(info.Trigger),
	}, map[string]string{"trigger": string(info.Trigger)})
}

func (j *Journal) OnStageComplete(context.Context, pipeline.StageResult) {}

func (j *Journal) OnCycleDone(ctx context.Context, r pipeline.CycleResult) {
	meta := map[string]string{"trigger": string(r.Trigger)}
	if r.Err != nil {
		j.emit(ctx, r.ID, eventstore.TypeCycleFailed, eventstore.CycleFailedPayload{
			Stage:      r.Stage,
			Error:      r.Err.Error(),
			DurationMS: r.Duration.Milliseconds(),
		}, meta)
		return
	}
	j.emit(ctx, r.ID, eventstore.TypeCycleCompleted, eventstore.CycleCompletedPayload{
		Units:      r.Units,
		Outputs:    r.Outputs,
		DurationMS: r.Duration.Milliseconds(),
	}, meta)
}

func (j *Journal) emit(ctx context.Context, cycleID, eventType string, payload any, meta map[string]string) {
	log := j.logger.With(logfields.CycleID(cycleID), slog.String("event_type", eventType))

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to marshal event payload", logfields.Error(err))
		return
	}

	if j.store != nil {
		// Cycle events are recorded even when the cycle's context was canceled.
		if err := j.store.Append(context.WithoutCancel(ctx), cycleID, eventType, data, meta); err != nil {
			log.Warn("Failed to append event", logfields.Error(err))
		}
	}

	if j.publisher != nil {
		j.publish(log, &eventstore.BaseEvent{
			EventCycleID:   cycleID,
			EventType:      eventType,
			EventTimestamp: time.Now(),
			EventPayload:   data,
			EventMetadata:  meta,
		})
	}
}

func (j *Journal) publish(log *slog.Logger, e eventstore.Event) {
	msg, err := json.Marshal(Message{
		CycleID:   e.CycleID(),
		Type:      e.Type(),
		Timestamp: e.Timestamp(),
		Payload:   e.Payload(),
		Metadata:  e.Metadata(),
	})
	if err != nil {
		log.Error("Failed to marshal event message", logfields.Error(err))
		return
	}
	if err := j.publisher.Publish(j.subject, msg); err != nil {
		log.Warn("Failed to publish event", slog.String("subject", j.subject), logfields.Error(err))
		return
	}
	log.Debug("Published event", slog.String("subject", j.subject))
}
