package service

import (
	"context"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OracleServiceImpl implements ports.OracleService. It is the only writer
// of EconomyState.
type OracleServiceImpl struct {
	vaults     ports.VaultRepository
	economy    ports.EconomyRepository
	transactor ports.DBTransactor
	events     *EventEmitter
	audit      ports.AuditService
	metrics    *metrics.Collector
	settings   LedgerSettings
	log        zerolog.Logger
	now        func() time.Time
}

// NewOracleService creates a new OracleServiceImpl.
func NewOracleService(
	vaults ports.VaultRepository,
	economy ports.EconomyRepository,
	transactor ports.DBTransactor,
	events *EventEmitter,
	audit ports.AuditService,
	m *metrics.Collector,
	settings LedgerSettings,
	log zerolog.Logger,
) *OracleServiceImpl {
	return &OracleServiceImpl{
		vaults:     vaults,
		economy:    economy,
		transactor: transactor,
		events:     events,
		audit:      audit,
		metrics:    m,
		settings:   settings,
		log:        log,
		now:        time.Now,
	}
}

// SyncPrice recomputes circulating supply and unit price from the current
// issuance vault balance and backing.
func (s *OracleServiceImpl) SyncPrice(ctx context.Context) (*domain.EconomyState, error) {
	state, err := s.update(ctx, "sync price", nil)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("unit_price", state.UnitPrice.String()).
		Str("circulating_supply", state.CirculatingSupply.String()).
		Msg("price synced")
	return state, nil
}

// InjectBacking adds externally reported USD backing, then resyncs.
func (s *OracleServiceImpl) InjectBacking(ctx context.Context, usd decimal.Decimal, actor ports.Actor) (*domain.EconomyState, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	if !usd.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	state, err := s.update(ctx, "inject backing", func(st *domain.EconomyState) error {
		st.USDBacking = st.USDBacking.Add(usd)
		return nil
	})
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, newAuditLog(domain.AuditActionBackingInjected, actor.ID, "economy", "", actor.ClientIP,
		map[string]any{"usd": usd.String(), "usd_backing": state.USDBacking.String()}))
	return state, nil
}

// OpenRedemptionWindow starts accepting liquidation orders until closesAt,
// or until closed explicitly when closesAt is nil.
func (s *OracleServiceImpl) OpenRedemptionWindow(ctx context.Context, closesAt *time.Time, actor ports.Actor) (*domain.EconomyState, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if closesAt != nil && !closesAt.After(now) {
		return nil, apperror.Validation("redemption window must close in the future")
	}

	state, err := s.update(ctx, "open redemption window", func(st *domain.EconomyState) error {
		st.RedemptionWindowOpen = true
		st.RedemptionWindowOpensAt = &now
		st.RedemptionWindowClosesAt = closesAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, newAuditLog(domain.AuditActionRedemptionWindow, actor.ID, "economy", "", actor.ClientIP,
		map[string]any{"open": true}))
	return state, nil
}

// CloseRedemptionWindow stops accepting liquidation orders.
func (s *OracleServiceImpl) CloseRedemptionWindow(ctx context.Context, actor ports.Actor) (*domain.EconomyState, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	state, err := s.update(ctx, "close redemption window", func(st *domain.EconomyState) error {
		st.RedemptionWindowOpen = false
		st.RedemptionWindowClosesAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, newAuditLog(domain.AuditActionRedemptionWindow, actor.ID, "economy", "", actor.ClientIP,
		map[string]any{"open": false}))
	return state, nil
}

// Get returns the committed economy state.
func (s *OracleServiceImpl) Get(ctx context.Context) (*domain.EconomyState, error) {
	state, err := s.economy.Get(ctx)
	if err != nil {
		return nil, storageError("get economy", err)
	}
	if state == nil {
		return nil, apperror.ErrNotFound("economy state")
	}
	return state, nil
}

// update runs syncTx in its own serializable transaction with conflict retry.
func (s *OracleServiceImpl) update(ctx context.Context, op string, mutate func(*domain.EconomyState) error) (*domain.EconomyState, error) {
	var state *domain.EconomyState
	err := withConflictRetry(ctx, s.settings.MaxConflictRetries, s.metrics, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return storageError("begin tx", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		st, err := s.syncTx(ctx, tx, mutate)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return storageError("commit", err)
		}
		state = st
		return nil
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	s.announce(ctx, state)
	return state, nil
}

// syncTx locks the issuance vault then the economy row, applies mutate and
// recomputes derived fields. Callers running a transfer use it to keep the
// price write in the same transaction as the balance change.
func (s *OracleServiceImpl) syncTx(ctx context.Context, tx pgx.Tx, mutate func(*domain.EconomyState) error) (*domain.EconomyState, error) {
	vault, err := s.vaults.GetByIDForUpdate(ctx, tx, s.settings.IssuanceVaultID)
	if err != nil {
		return nil, storageError("lock issuance vault", err)
	}
	state, err := s.economy.GetForUpdate(ctx, tx)
	if err != nil {
		return nil, storageError("lock economy", err)
	}
	if vault == nil || state == nil {
		return nil, apperror.ErrNotFound("economy state")
	}

	if mutate != nil {
		if err := mutate(state); err != nil {
			return nil, err
		}
	}
	state.Recompute(vault.Balance, s.now().UTC())

	if err := s.economy.Save(ctx, tx, state); err != nil {
		return nil, storageError("save economy", err)
	}
	return state, nil
}

// announce records metrics and publishes economy.synced after a commit.
func (s *OracleServiceImpl) announce(ctx context.Context, state *domain.EconomyState) {
	if state == nil {
		return
	}
	s.metrics.RecordEconomy(state.UnitPrice, state.CirculatingSupply)
	price := state.UnitPrice
	s.events.Emit(ctx, &domain.LedgerEvent{Type: domain.EventEconomySynced, Amount: &price})
}
