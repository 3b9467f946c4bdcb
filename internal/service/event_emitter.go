package service

import (
	"context"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventEmitter publishes committed ledger events and forwards settlement
// events to the notification sink. Failures are logged, never returned:
// the mutation has already committed.
type EventEmitter struct {
	publisher ports.EventPublisher
	sink      ports.NotificationSink
	log       zerolog.Logger
}

// NewEventEmitter creates a new EventEmitter. Either collaborator may be nil.
func NewEventEmitter(publisher ports.EventPublisher, sink ports.NotificationSink, log zerolog.Logger) *EventEmitter {
	return &EventEmitter{publisher: publisher, sink: sink, log: log}
}

// Emit stamps and dispatches event.
func (e *EventEmitter) Emit(ctx context.Context, event *domain.LedgerEvent) {
	if e == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("event publish failed")
		}
	}
	if e.sink != nil && event.Type.IsSettlement() {
		if err := e.sink.Notify(ctx, event); err != nil {
			e.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("settlement notification failed")
		}
	}
}
