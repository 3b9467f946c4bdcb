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

// VaultRepo implements ports.VaultRepository.
type VaultRepo struct {
	store *Store
}

// NewVaultRepo creates a new VaultRepo.
func NewVaultRepo(store *Store) *VaultRepo {
	return &VaultRepo{store: store}
}

func (r *VaultRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if _, exists := t.vault(v.ID); exists {
		return fmt.Errorf("vault already exists: %s", v.ID)
	}
	t.vaults[v.ID] = *v
	return nil
}

func (r *VaultRepo) GetByID(ctx context.Context, id string) (*domain.Vault, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	v, ok := r.store.vaults[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *VaultRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Vault, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	v, ok := t.vault(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *VaultRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error {
	return r.modify(tx, id, func(v *domain.Vault) { v.Balance = balance })
}

func (r *VaultRepo) SetLocked(ctx context.Context, tx pgx.Tx, id string, locked bool) error {
	return r.modify(tx, id, func(v *domain.Vault) { v.IsLocked = locked })
}

func (r *VaultRepo) modify(tx pgx.Tx, id string, fn func(*domain.Vault)) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	v, ok := t.vault(id)
	if !ok {
		return fmt.Errorf("vault not found: %s", id)
	}
	fn(&v)
	v.UpdatedAt = time.Now().UTC()
	t.vaults[id] = v
	return nil
}

func (r *VaultRepo) List(ctx context.Context) ([]domain.Vault, error) {
	r.store.mu.RLock()
	vaults := make([]domain.Vault, 0, len(r.store.vaults))
	for _, v := range r.store.vaults {
		vaults = append(vaults, v)
	}
	r.store.mu.RUnlock()

	sort.Slice(vaults, func(i, j int) bool { return vaults[i].ID < vaults[j].ID })
	return vaults, nil
}
