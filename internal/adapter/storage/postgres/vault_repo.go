package postgres

import (
	"context"
	"errors"
	"fmt"

	"value-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const vaultColumns = `id, name, balance, public_key, type, is_locked, genesis_balance, created_at, updated_at`

// VaultRepo implements ports.VaultRepository.
type VaultRepo struct {
	pool Pool
}

// NewVaultRepo creates a new VaultRepo.
func NewVaultRepo(pool Pool) *VaultRepo {
	return &VaultRepo{pool: pool}
}

// Create inserts a new vault within a transaction.
func (r *VaultRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	query := `INSERT INTO vaults (` + vaultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.Name, v.Balance, v.PublicKey, v.Type,
		v.IsLocked, v.GenesisBalance, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vault: %w", classify(err))
	}
	return nil
}

// GetByID fetches a vault by id (without locking).
func (r *VaultRepo) GetByID(ctx context.Context, id string) (*domain.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1`
	return scanVault(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a vault by id with pessimistic locking.
// This MUST be called within a transaction.
func (r *VaultRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1 FOR UPDATE`
	v, err := scanVault(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// UpdateBalance sets a vault's cached balance within a transaction.
func (r *VaultRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error {
	query := `UPDATE vaults SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("update vault balance: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vault not found: %s", id)
	}
	return nil
}

// SetLocked flips the vault's lock flag within a transaction.
func (r *VaultRepo) SetLocked(ctx context.Context, tx pgx.Tx, id string, locked bool) error {
	query := `UPDATE vaults SET is_locked = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, locked, id)
	if err != nil {
		return fmt.Errorf("set vault lock: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vault not found: %s", id)
	}
	return nil
}

// List returns every vault ordered by id.
func (r *VaultRepo) List(ctx context.Context) ([]domain.Vault, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vaultColumns+` FROM vaults ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	defer rows.Close()

	var vaults []domain.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault rows: %w", err)
	}
	return vaults, nil
}

func scanVault(row pgx.Row) (*domain.Vault, error) {
	v := &domain.Vault{}
	err := row.Scan(
		&v.ID, &v.Name, &v.Balance, &v.PublicKey, &v.Type,
		&v.IsLocked, &v.GenesisBalance, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	return v, nil
}
