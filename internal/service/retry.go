package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
)

const (
	conflictInitialInterval = 10 * time.Millisecond
	conflictMaxInterval     = 200 * time.Millisecond
)

// withConflictRetry runs op until it succeeds or fails with anything other
// than ConcurrentConflict. Conflicts are retried up to maxRetries times with
// exponential backoff; the last conflict is surfaced when retries run out.
func withConflictRetry(ctx context.Context, maxRetries uint64, m *metrics.Collector, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = conflictInitialInterval
	b.MaxInterval = conflictMaxInterval

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if apperror.Is(err, apperror.CodeConcurrentConflict) {
			m.RecordConflictRetry()
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}

// storageError passes AppErrors through and wraps anything else as SYS_001.
func storageError(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}

// requireAuthority rejects administrative calls from ordinary actors.
func requireAuthority(actor ports.Actor) error {
	if !actor.Authority {
		return apperror.ErrForbidden()
	}
	return nil
}
