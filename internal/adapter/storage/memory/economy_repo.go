package memory

import (
	"context"

	"value-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EconomyRepo implements ports.EconomyRepository.
type EconomyRepo struct {
	store *Store
}

// NewEconomyRepo creates a new EconomyRepo.
func NewEconomyRepo(store *Store) *EconomyRepo {
	return &EconomyRepo{store: store}
}

func (r *EconomyRepo) Get(ctx context.Context) (*domain.EconomyState, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.economy == nil {
		return nil, nil
	}
	state := *r.store.economy
	return &state, nil
}

func (r *EconomyRepo) GetForUpdate(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	return t.economyState(), nil
}

func (r *EconomyRepo) Save(ctx context.Context, tx pgx.Tx, s *domain.EconomyState) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	state := *s
	t.economy = &state
	return nil
}
