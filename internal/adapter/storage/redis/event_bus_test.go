package redis

import (
	"context"
	"testing"
	"time"

	"value-ledger/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	_, client := newTestClient(t)
	bus := NewEventBus(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	amount := decimal.RequireFromString("40")
	published := &domain.LedgerEvent{
		ID:         "evt-1",
		Type:       domain.EventTransferCommitted,
		EntryID:    "e-1",
		AccountIDs: []string{"alice", "bob"},
		Amount:     &amount,
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, bus.Publish(ctx, published))

	select {
	case got := <-events:
		assert.Equal(t, "evt-1", got.ID)
		assert.Equal(t, domain.EventTransferCommitted, got.Type)
		assert.True(t, got.Concerns("bob"))
		require.NotNil(t, got.Amount)
		assert.True(t, got.Amount.Equal(amount))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_SkipsMalformedPayload(t *testing.T) {
	_, client := newTestClient(t)
	bus := NewEventBus(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, EventChannel, "not-json").Err())
	require.NoError(t, bus.Publish(ctx, &domain.LedgerEvent{ID: "evt-2", Type: domain.EventVaultLocked, VaultID: "FLOAT"}))

	select {
	case got := <-events:
		assert.Equal(t, "evt-2", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_ClosesOnCancel(t *testing.T) {
	_, client := newTestClient(t)
	bus := NewEventBus(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not closed")
	}
}
