package service

import (
	"context"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VouchServiceImpl implements ports.VouchService. A vouch is a zero-amount
// VOUCH entry plus a credibility bump, unique per ordered pair.
type VouchServiceImpl struct {
	engine *TransferEngine
}

// NewVouchService creates a new VouchServiceImpl.
func NewVouchService(engine *TransferEngine) *VouchServiceImpl {
	return &VouchServiceImpl{engine: engine}
}

// Vouch records the attestation. A second vouch for the same pair fails
// with DuplicateVouch and leaves the target's credibility untouched.
func (s *VouchServiceImpl) Vouch(ctx context.Context, req ports.VouchRequest) (*domain.VouchRecord, error) {
	entry := req.Entry
	if entry.Kind != domain.EntryKindVouch {
		return nil, apperror.Validation("vouches accept VOUCH entries only")
	}
	if req.ActorID != "" && req.ActorID != entry.SenderID {
		return nil, apperror.ErrForbidden()
	}
	e := s.engine

	var vouch *domain.VouchRecord
	_, err := e.execute(ctx, &entry, executeOptions{
		allowZero: true,
		event:     domain.EventVouchRecorded,
		clientIP:  req.ClientIP,
	}, func(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error) {
		exists, err := e.stores.Vouches.ExistsForPair(ctx, tx, entry.SenderID, entry.ReceiverID)
		if err != nil {
			return nil, storageError("check vouch", err)
		}
		if exists {
			return nil, apperror.ErrDuplicateVouch()
		}

		target, err := e.stores.Accounts.GetByIDForUpdate(ctx, tx, entry.ReceiverID)
		if err != nil {
			return nil, storageError("lock vouch target", err)
		}
		if target == nil {
			return nil, apperror.Validation("vouches target accounts only")
		}

		attestation := &domain.VouchRecord{
			ID:              uuid.NewString(),
			FromID:          entry.SenderID,
			ToID:            entry.ReceiverID,
			EntryID:         entry.ID,
			Signature:       entry.Signature,
			PayloadHash:     entry.CanonicalPayload(),
			SignerPublicKey: entry.SenderPublicKey,
			Timestamp:       entry.Timestamp,
			CreatedAt:       e.now().UTC(),
		}
		if err := e.stores.Vouches.Create(ctx, tx, attestation); err != nil {
			return nil, storageError("create vouch", err)
		}
		if err := e.stores.Accounts.AddCredibility(ctx, tx, entry.ReceiverID, e.settings.VouchCredibilityIncrement); err != nil {
			return nil, storageError("add credibility", err)
		}
		vouch = attestation
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return vouch, nil
}

// ListForAccount returns the vouches an account has received.
func (s *VouchServiceImpl) ListForAccount(ctx context.Context, accountID string) ([]domain.VouchRecord, error) {
	vouches, err := s.engine.stores.Vouches.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, storageError("list vouches", err)
	}
	return vouches, nil
}
