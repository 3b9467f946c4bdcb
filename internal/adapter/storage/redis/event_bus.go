package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"value-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventChannel is the pub/sub channel carrying committed ledger events.
const EventChannel = keyPrefix + "events"

// EventBus implements ports.EventPublisher and ports.EventSubscriber over
// Redis pub/sub, so every API replica sees events committed by any other.
type EventBus struct {
	client *goredis.Client
	log    zerolog.Logger
}

// NewEventBus creates a Redis-backed event bus.
func NewEventBus(client *goredis.Client, log zerolog.Logger) *EventBus {
	return &EventBus{client: client, log: log}
}

// Publish serializes the event and fans it out to current subscribers.
func (b *EventBus) Publish(ctx context.Context, event *domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	if err := b.client.Publish(ctx, EventChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe streams events until ctx is done, then closes the channel.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan domain.LedgerEvent, error) {
	sub := b.client.Subscribe(ctx, EventChannel)
	// Wait for the subscription to be confirmed before returning.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan domain.LedgerEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.LedgerEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Warn().Err(err).Msg("Dropping malformed ledger event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
