package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports/mocks"
	"value-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestEventEmitter_Emit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := mocks.NewMockEventPublisher(ctrl)
	sink := mocks.NewMockNotificationSink(ctrl)
	emitter := NewEventEmitter(publisher, sink, newTestLogger())

	t.Run("settlement goes to both", func(t *testing.T) {
		event := &domain.LedgerEvent{Type: domain.EventBridgeCompleted, OrderID: "o-1"}
		publisher.EXPECT().Publish(gomock.Any(), event).Return(nil)
		sink.EXPECT().Notify(gomock.Any(), event).Return(nil)

		emitter.Emit(context.Background(), event)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.OccurredAt.IsZero())
	})

	t.Run("transfer is only published", func(t *testing.T) {
		event := &domain.LedgerEvent{ID: "fixed", Type: domain.EventTransferCommitted}
		publisher.EXPECT().Publish(gomock.Any(), event).Return(nil)

		emitter.Emit(context.Background(), event)
		assert.Equal(t, "fixed", event.ID)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		event := &domain.LedgerEvent{Type: domain.EventBridgeVerified}
		publisher.EXPECT().Publish(gomock.Any(), event).Return(errors.New("redis down"))
		sink.EXPECT().Notify(gomock.Any(), event).Return(errors.New("db down"))

		emitter.Emit(context.Background(), event)
	})
}

func TestEventEmitter_NilSafe(t *testing.T) {
	var emitter *EventEmitter
	emitter.Emit(context.Background(), &domain.LedgerEvent{Type: domain.EventVaultLocked})

	NewEventEmitter(nil, nil, newTestLogger()).Emit(context.Background(), &domain.LedgerEvent{Type: domain.EventBridgeVerified})
}

func TestWithConflictRetry(t *testing.T) {
	t.Run("retries conflicts", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(context.Background(), 3, nil, func() error {
			calls++
			if calls < 3 {
				return apperror.ErrConcurrentConflict(errors.New("40001"))
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on other errors", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(context.Background(), 3, nil, func() error {
			calls++
			return apperror.ErrInsufficientFunds()
		})
		requireCode(t, err, apperror.CodeInsufficientFunds)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(context.Background(), 2, nil, func() error {
			calls++
			return apperror.ErrConcurrentConflict(errors.New("40P01"))
		})
		requireCode(t, err, apperror.CodeConcurrentConflict)
		assert.Equal(t, 3, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := withConflictRetry(ctx, 5, nil, func() error {
			return apperror.ErrConcurrentConflict(errors.New("40001"))
		})
		assert.Error(t, err)
	})
}

func TestStorageError(t *testing.T) {
	wrapped := fmt.Errorf("lock: %w", apperror.ErrVaultLocked())
	requireCode(t, storageError("op", wrapped), apperror.CodeVaultLocked)
	requireCode(t, storageError("op", errors.New("boom")), apperror.CodeInternal)
}
