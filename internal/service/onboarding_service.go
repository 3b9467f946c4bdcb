package service

import (
	"context"
	"strings"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OnboardingServiceImpl implements ports.OnboardingService.
type OnboardingServiceImpl struct {
	engine *TransferEngine
}

// NewOnboardingService creates a new OnboardingServiceImpl.
func NewOnboardingService(engine *TransferEngine) *OnboardingServiceImpl {
	return &OnboardingServiceImpl{engine: engine}
}

// Genesis creates the issuance vault holding the whole supply, the
// liquidity vault, the system authority account and the economy state.
// Once the economy exists it returns it unchanged.
func (s *OnboardingServiceImpl) Genesis(ctx context.Context, req ports.GenesisRequest) (*domain.EconomyState, error) {
	if err := requireAuthority(req.Actor); err != nil {
		return nil, err
	}
	if !req.TotalSupply.IsPositive() || req.USDBacking.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	e := s.engine
	var (
		state   *domain.EconomyState
		created bool
	)
	err := withConflictRetry(ctx, e.settings.MaxConflictRetries, e.infra.Metrics, func() error {
		tx, err := e.stores.Transactor.Begin(ctx)
		if err != nil {
			return storageError("begin tx", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		existing, err := e.stores.Economy.GetForUpdate(ctx, tx)
		if err != nil {
			return storageError("lock economy", err)
		}
		if existing != nil {
			state, created = existing, false
			return nil
		}

		if err := s.createGenesisParties(ctx, tx, req.TotalSupply); err != nil {
			return err
		}
		if err := e.stores.Economy.Save(ctx, tx, &domain.EconomyState{
			TotalSupply: req.TotalSupply,
			USDBacking:  req.USDBacking,
		}); err != nil {
			return storageError("save economy", err)
		}
		st, err := e.oracle.syncTx(ctx, tx, nil)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return storageError("commit", err)
		}
		state, created = st, true
		return nil
	})
	if err != nil {
		return nil, storageError("genesis", err)
	}
	if !created {
		return state, nil
	}

	e.oracle.announce(ctx, state)
	record(ctx, e.infra.Audit, newAuditLog(domain.AuditActionGenesis, req.Actor.ID, "economy", e.settings.IssuanceVaultID, req.Actor.ClientIP,
		map[string]any{"total_supply": req.TotalSupply.String(), "usd_backing": req.USDBacking.String()}))
	e.log.Info().
		Str("total_supply", state.TotalSupply.String()).
		Str("unit_price", state.UnitPrice.String()).
		Msg("genesis completed")
	return state, nil
}

func (s *OnboardingServiceImpl) createGenesisParties(ctx context.Context, tx pgx.Tx, totalSupply decimal.Decimal) error {
	e := s.engine
	now := e.now().UTC()
	authorityKey := e.infra.Authority.PublicKey()

	vaults := []*domain.Vault{
		{
			ID:             e.settings.IssuanceVaultID,
			Name:           "Genesis issuance reserve",
			Balance:        totalSupply,
			GenesisBalance: totalSupply,
			PublicKey:      authorityKey,
			Type:           domain.VaultTypeIssuance,
		},
		{
			ID:        e.settings.LiquidityVaultID,
			Name:      "Liquidity float",
			PublicKey: authorityKey,
			Type:      domain.VaultTypeLiquidity,
		},
	}
	for _, v := range vaults {
		v.CreatedAt, v.UpdatedAt = now, now
		if err := e.stores.Vaults.Create(ctx, tx, v); err != nil {
			return storageError("create vault", err)
		}
	}

	system := &domain.Account{
		ID:        e.settings.SystemAccountID,
		PublicKey: authorityKey,
		Role:      domain.AccountRoleAuthority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.stores.Accounts.Create(ctx, tx, system); err != nil {
		return storageError("create system account", err)
	}
	return nil
}

// OpenAccount registers an ordinary account. A genesis stake moves out of
// the issuance vault without a ledger entry and seeds reconciliation.
func (s *OnboardingServiceImpl) OpenAccount(ctx context.Context, req ports.OpenAccountRequest) (*domain.Account, error) {
	if err := requireAuthority(req.Actor); err != nil {
		return nil, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return nil, apperror.Validation("account id is required")
	}
	if _, err := DecodePublicKey(req.PublicKey); err != nil {
		return nil, apperror.Validation("public_key must be a base64 ed25519 key")
	}
	if req.GenesisStake.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	e := s.engine
	now := e.now().UTC()
	account := &domain.Account{
		ID:           req.ID,
		PublicKey:    req.PublicKey,
		Balance:      req.GenesisStake,
		Role:         domain.AccountRoleOrdinary,
		GenesisStake: req.GenesisStake,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var economy *domain.EconomyState
	err := withConflictRetry(ctx, e.settings.MaxConflictRetries, e.infra.Metrics, func() error {
		tx, err := e.stores.Transactor.Begin(ctx)
		if err != nil {
			return storageError("begin tx", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		if taken, err := e.idTaken(ctx, tx, account.ID); err != nil {
			return err
		} else if taken {
			return apperror.Validation("id already in use: " + account.ID)
		}

		var st *domain.EconomyState
		if account.GenesisStake.IsPositive() {
			reserve, err := e.stores.Vaults.GetByIDForUpdate(ctx, tx, e.settings.IssuanceVaultID)
			if err != nil {
				return storageError("lock issuance vault", err)
			}
			if reserve == nil {
				return apperror.ErrNotFound("issuance vault")
			}
			if reserve.Balance.LessThan(account.GenesisStake) {
				return apperror.ErrInsufficientFunds()
			}
			if err := e.stores.Vaults.UpdateBalance(ctx, tx, reserve.ID, reserve.Balance.Sub(account.GenesisStake)); err != nil {
				return storageError("update issuance vault", err)
			}
		}
		if err := e.stores.Accounts.Create(ctx, tx, account); err != nil {
			return storageError("create account", err)
		}
		if account.GenesisStake.IsPositive() {
			if st, err = e.oracle.syncTx(ctx, tx, nil); err != nil {
				return err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return storageError("commit", err)
		}
		economy = st
		return nil
	})
	if err != nil {
		return nil, storageError("open account", err)
	}

	if economy != nil {
		e.oracle.announce(ctx, economy)
	}
	record(ctx, e.infra.Audit, newAuditLog(domain.AuditActionAccountOpened, req.Actor.ID, "account", account.ID, req.Actor.ClientIP,
		map[string]any{"genesis_stake": account.GenesisStake.String()}))
	e.log.Info().Str("account_id", account.ID).Str("genesis_stake", account.GenesisStake.String()).Msg("account opened")
	return account, nil
}

// GetAccount returns an account by id.
func (s *OnboardingServiceImpl) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.engine.stores.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}
