package postgres

import (
	"context"
	"errors"
	"fmt"
)

// errSchemaMissing reports a reachable database that has not been migrated.
var errSchemaMissing = errors.New("ledger schema missing, run `ledgerctl migrate up`")

// HealthCheck implements ports.HealthChecker for PostgreSQL. Healthy means
// reachable and migrated.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks connectivity and that the ledger tables exist.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var migrated bool
	err := h.pool.QueryRow(ctx,
		`SELECT to_regclass('ledger_entries') IS NOT NULL AND to_regclass('accounts') IS NOT NULL`,
	).Scan(&migrated)
	if err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	if !migrated {
		return errSchemaMissing
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
