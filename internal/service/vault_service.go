package service

import (
	"context"
	"strings"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
)

// VaultServiceImpl implements ports.VaultService on top of the TransferEngine.
type VaultServiceImpl struct {
	engine *TransferEngine
}

// NewVaultService creates a new VaultServiceImpl.
func NewVaultService(engine *TransferEngine) *VaultServiceImpl {
	return &VaultServiceImpl{engine: engine}
}

// CreateVault registers a special-purpose or extra liquidity vault with a
// zero balance. Issuance vaults only come from genesis.
func (s *VaultServiceImpl) CreateVault(ctx context.Context, req ports.CreateVaultRequest) (*domain.Vault, error) {
	if err := requireAuthority(req.Actor); err != nil {
		return nil, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("vault id and name are required")
	}
	if !req.Type.IsValid() || req.Type == domain.VaultTypeIssuance {
		return nil, apperror.Validation("vault type must be LIQUIDITY or SPECIAL")
	}
	publicKey := req.PublicKey
	if publicKey == "" {
		publicKey = s.engine.infra.Authority.PublicKey()
	} else if _, err := DecodePublicKey(publicKey); err != nil {
		return nil, apperror.Validation("public_key must be a base64 ed25519 key")
	}

	e := s.engine
	now := e.now().UTC()
	vault := &domain.Vault{
		ID:        req.ID,
		Name:      req.Name,
		PublicKey: publicKey,
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := withConflictRetry(ctx, e.settings.MaxConflictRetries, e.infra.Metrics, func() error {
		tx, err := e.stores.Transactor.Begin(ctx)
		if err != nil {
			return storageError("begin tx", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		if taken, err := e.idTaken(ctx, tx, vault.ID); err != nil {
			return err
		} else if taken {
			return apperror.Validation("id already in use: " + vault.ID)
		}
		if err := e.stores.Vaults.Create(ctx, tx, vault); err != nil {
			return storageError("create vault", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return storageError("commit", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageError("create vault", err)
	}

	record(ctx, e.infra.Audit, newAuditLog(domain.AuditActionVaultCreated, req.Actor.ID, "vault", vault.ID, req.Actor.ClientIP,
		map[string]any{"type": string(vault.Type), "name": vault.Name}))
	e.log.Info().Str("vault_id", vault.ID).Str("type", string(vault.Type)).Msg("vault created")
	return vault, nil
}

// GetVault returns a vault by id.
func (s *VaultServiceImpl) GetVault(ctx context.Context, id string) (*domain.Vault, error) {
	vault, err := s.engine.stores.Vaults.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get vault", err)
	}
	if vault == nil {
		return nil, apperror.ErrNotFound("vault")
	}
	return vault, nil
}

// ListVaults returns every vault.
func (s *VaultServiceImpl) ListVaults(ctx context.Context) ([]domain.Vault, error) {
	vaults, err := s.engine.stores.Vaults.List(ctx)
	if err != nil {
		return nil, storageError("list vaults", err)
	}
	return vaults, nil
}

// Lock stops the vault from sending. Incoming transfers still land.
func (s *VaultServiceImpl) Lock(ctx context.Context, vaultID string, actor ports.Actor) (*domain.Vault, error) {
	return s.setLocked(ctx, vaultID, true, actor)
}

// Unlock lets the vault send again.
func (s *VaultServiceImpl) Unlock(ctx context.Context, vaultID string, actor ports.Actor) (*domain.Vault, error) {
	return s.setLocked(ctx, vaultID, false, actor)
}

func (s *VaultServiceImpl) setLocked(ctx context.Context, vaultID string, locked bool, actor ports.Actor) (*domain.Vault, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	e := s.engine

	var vault *domain.Vault
	err := withConflictRetry(ctx, e.settings.MaxConflictRetries, e.infra.Metrics, func() error {
		tx, err := e.stores.Transactor.Begin(ctx)
		if err != nil {
			return storageError("begin tx", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		v, err := e.stores.Vaults.GetByIDForUpdate(ctx, tx, vaultID)
		if err != nil {
			return storageError("lock vault row", err)
		}
		if v == nil {
			return apperror.ErrNotFound("vault")
		}
		if err := e.stores.Vaults.SetLocked(ctx, tx, vaultID, locked); err != nil {
			return storageError("set vault lock", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return storageError("commit", err)
		}
		v.IsLocked = locked
		vault = v
		return nil
	})
	if err != nil {
		return nil, storageError("set vault lock", err)
	}

	action, event := domain.AuditActionVaultUnlocked, domain.EventVaultUnlocked
	if locked {
		action, event = domain.AuditActionVaultLocked, domain.EventVaultLocked
	}
	record(ctx, e.infra.Audit, newAuditLog(action, actor.ID, "vault", vaultID, actor.ClientIP, nil))
	e.infra.Events.Emit(ctx, &domain.LedgerEvent{Type: event, VaultID: vaultID})
	e.log.Info().Str("vault_id", vaultID).Bool("locked", locked).Msg("vault lock changed")
	return vault, nil
}

// Dispatch sends value from a vault to an account or another vault. A
// caller-supplied entry must match the request; otherwise the authority
// builds one.
func (s *VaultServiceImpl) Dispatch(ctx context.Context, req ports.DispatchRequest) (*domain.LedgerEntry, error) {
	if err := requireAuthority(req.Actor); err != nil {
		return nil, err
	}
	if _, err := s.GetVault(ctx, req.VaultID); err != nil {
		return nil, err
	}

	entry := req.Entry
	if entry != nil {
		if entry.SenderID != req.VaultID || entry.ReceiverID != req.TargetID ||
			(!req.Amount.IsZero() && !entry.Amount.Equal(req.Amount)) {
			return nil, apperror.Validation("entry does not match dispatch request")
		}
		if entry.Kind != domain.EntryKindAdminDispatch {
			return nil, apperror.Validation("dispatch entries must be ADMIN_DISPATCH")
		}
	} else {
		if !req.Amount.IsPositive() {
			return nil, apperror.ErrInvalidAmount()
		}
		built, err := s.engine.infra.Authority.BuildEntry(req.VaultID, req.TargetID, req.Amount, domain.EntryKindAdminDispatch, "dispatch")
		if err != nil {
			return nil, err
		}
		entry = built
	}

	recorded, err := s.engine.execute(ctx, entry, executeOptions{
		event:    domain.EventTransferCommitted,
		clientIP: req.Actor.ClientIP,
	}, nil)
	if err != nil {
		return nil, err
	}

	record(ctx, s.engine.infra.Audit, newAuditLog(domain.AuditActionDispatch, req.Actor.ID, "vault", req.VaultID, req.Actor.ClientIP,
		map[string]any{"entry_id": recorded.ID, "target_id": req.TargetID, "amount": recorded.Amount.String()}))
	return recorded, nil
}

// Rebalance moves value between two vaults. Both legs are authority
// controlled so the authority builds the entry.
func (s *VaultServiceImpl) Rebalance(ctx context.Context, req ports.RebalanceRequest) (*domain.LedgerEntry, error) {
	if err := requireAuthority(req.Actor); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.FromVaultID == req.ToVaultID {
		return nil, apperror.ErrSelfTransfer()
	}
	for _, id := range []string{req.FromVaultID, req.ToVaultID} {
		if _, err := s.GetVault(ctx, id); err != nil {
			return nil, err
		}
	}

	entry, err := s.engine.infra.Authority.BuildEntry(req.FromVaultID, req.ToVaultID, req.Amount, domain.EntryKindAdminDispatch, "rebalance")
	if err != nil {
		return nil, err
	}
	recorded, err := s.engine.execute(ctx, entry, executeOptions{
		event:    domain.EventTransferCommitted,
		clientIP: req.Actor.ClientIP,
	}, nil)
	if err != nil {
		return nil, err
	}

	record(ctx, s.engine.infra.Audit, newAuditLog(domain.AuditActionRebalance, req.Actor.ID, "vault", req.FromVaultID, req.Actor.ClientIP,
		map[string]any{"entry_id": recorded.ID, "to_vault_id": req.ToVaultID, "amount": recorded.Amount.String()}))
	return recorded, nil
}
