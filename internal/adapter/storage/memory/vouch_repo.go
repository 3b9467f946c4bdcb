package memory

import (
	"context"
	"sort"

	"value-ledger/internal/core/domain"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// VouchRepo implements ports.VouchRepository.
type VouchRepo struct {
	store *Store
}

// NewVouchRepo creates a new VouchRepo.
func NewVouchRepo(store *Store) *VouchRepo {
	return &VouchRepo{store: store}
}

func (r *VouchRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.VouchRecord) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t.vouchExists(v.FromID, v.ToID) {
		return apperror.ErrDuplicateVouch()
	}
	t.vouches = append(t.vouches, *v)
	return nil
}

func (r *VouchRepo) ExistsForPair(ctx context.Context, tx pgx.Tx, fromID, toID string) (bool, error) {
	t, err := asTx(tx)
	if err != nil {
		return false, err
	}
	return t.vouchExists(fromID, toID), nil
}

func (r *VouchRepo) ListForAccount(ctx context.Context, toID string) ([]domain.VouchRecord, error) {
	r.store.mu.RLock()
	var vouches []domain.VouchRecord
	for _, v := range r.store.vouches {
		if v.ToID == toID {
			vouches = append(vouches, v)
		}
	}
	r.store.mu.RUnlock()

	sort.SliceStable(vouches, func(i, j int) bool { return vouches[i].CreatedAt.Before(vouches[j].CreatedAt) })
	return vouches, nil
}
