package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"value-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if _, exists := t.account(a.ID); exists {
		return fmt.Errorf("account already exists: %s", a.ID)
	}
	t.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	a, ok := t.account(id)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	a, ok := t.account(id)
	if !ok {
		return fmt.Errorf("account not found: %s", id)
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	t.accounts[id] = a
	return nil
}

func (r *AccountRepo) AddCredibility(ctx context.Context, tx pgx.Tx, id string, delta int) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	a, ok := t.account(id)
	if !ok {
		return fmt.Errorf("account not found: %s", id)
	}
	a.CredibilityScore += delta
	a.VouchCount++
	a.UpdatedAt = time.Now().UTC()
	t.accounts[id] = a
	return nil
}

func (r *AccountRepo) ListIDs(ctx context.Context) ([]string, error) {
	r.store.mu.RLock()
	accounts := make([]domain.Account, 0, len(r.store.accounts))
	for _, a := range r.store.accounts {
		accounts = append(accounts, a)
	}
	r.store.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids, nil
}
