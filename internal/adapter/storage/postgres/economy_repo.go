package postgres

import (
	"context"
	"errors"
	"fmt"

	"value-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const economyColumns = `total_supply, circulating_supply, usd_backing, unit_price, last_synced_at,
	redemption_window_open, redemption_window_opens_at, redemption_window_closes_at`

// EconomyRepo implements ports.EconomyRepository over a single-row table.
type EconomyRepo struct {
	pool Pool
}

// NewEconomyRepo creates a new EconomyRepo.
func NewEconomyRepo(pool Pool) *EconomyRepo {
	return &EconomyRepo{pool: pool}
}

// Get reads the economy state; nil before genesis.
func (r *EconomyRepo) Get(ctx context.Context) (*domain.EconomyState, error) {
	query := `SELECT ` + economyColumns + ` FROM economy_state WHERE id = 1`
	return scanEconomy(r.pool.QueryRow(ctx, query))
}

// GetForUpdate reads and locks the economy state.
// This MUST be called within a transaction.
func (r *EconomyRepo) GetForUpdate(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error) {
	query := `SELECT ` + economyColumns + ` FROM economy_state WHERE id = 1 FOR UPDATE`
	s, err := scanEconomy(tx.QueryRow(ctx, query))
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// Save upserts the economy state within a transaction.
func (r *EconomyRepo) Save(ctx context.Context, tx pgx.Tx, s *domain.EconomyState) error {
	query := `INSERT INTO economy_state (id, ` + economyColumns + `)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			total_supply = EXCLUDED.total_supply,
			circulating_supply = EXCLUDED.circulating_supply,
			usd_backing = EXCLUDED.usd_backing,
			unit_price = EXCLUDED.unit_price,
			last_synced_at = EXCLUDED.last_synced_at,
			redemption_window_open = EXCLUDED.redemption_window_open,
			redemption_window_opens_at = EXCLUDED.redemption_window_opens_at,
			redemption_window_closes_at = EXCLUDED.redemption_window_closes_at`

	_, err := tx.Exec(ctx, query,
		s.TotalSupply, s.CirculatingSupply, s.USDBacking, s.UnitPrice, s.LastSyncedAt,
		s.RedemptionWindowOpen, s.RedemptionWindowOpensAt, s.RedemptionWindowClosesAt,
	)
	if err != nil {
		return fmt.Errorf("save economy state: %w", classify(err))
	}
	return nil
}

func scanEconomy(row pgx.Row) (*domain.EconomyState, error) {
	s := &domain.EconomyState{}
	err := row.Scan(
		&s.TotalSupply, &s.CirculatingSupply, &s.USDBacking, &s.UnitPrice, &s.LastSyncedAt,
		&s.RedemptionWindowOpen, &s.RedemptionWindowOpensAt, &s.RedemptionWindowClosesAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan economy state: %w", err)
	}
	return s, nil
}
