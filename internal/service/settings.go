package service

import (
	"fmt"
	"time"

	"value-ledger/config"
	"value-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// entryCacheTTL is how long a committed entry id stays in the fast-path cache.
const entryCacheTTL = 24 * time.Hour

// LedgerSettings are the well-known identities and tuning knobs shared by
// the ledger services.
type LedgerSettings struct {
	Mode                      domain.NetworkMode
	IssuanceVaultID           string
	LiquidityVaultID          string
	SystemAccountID           string
	MaxConflictRetries        uint64
	ReconcileEpsilon          decimal.Decimal
	VouchCredibilityIncrement int
	NonceTTL                  time.Duration
	SessionChallengeDrift     time.Duration
}

// NewLedgerSettings validates the ledger section of the configuration.
func NewLedgerSettings(cfg config.LedgerConfig) (LedgerSettings, error) {
	mode := domain.NetworkMode(cfg.Mode)
	if mode != domain.NetworkModeMainnet && mode != domain.NetworkModeTestnet {
		return LedgerSettings{}, fmt.Errorf("ledger mode must be MAINNET or TESTNET, got %q", cfg.Mode)
	}
	if cfg.IssuanceVaultID == "" || cfg.LiquidityVaultID == "" || cfg.SystemAccountID == "" {
		return LedgerSettings{}, fmt.Errorf("issuance vault, liquidity vault and system account ids are required")
	}
	epsilon, err := decimal.NewFromString(cfg.ReconcileEpsilon)
	if err != nil {
		return LedgerSettings{}, fmt.Errorf("parsing reconcile epsilon: %w", err)
	}
	if epsilon.IsNegative() {
		return LedgerSettings{}, fmt.Errorf("reconcile epsilon must not be negative")
	}
	return LedgerSettings{
		Mode:                      mode,
		IssuanceVaultID:           cfg.IssuanceVaultID,
		LiquidityVaultID:          cfg.LiquidityVaultID,
		SystemAccountID:           cfg.SystemAccountID,
		MaxConflictRetries:        cfg.MaxConflictRetries,
		ReconcileEpsilon:          epsilon,
		VouchCredibilityIncrement: cfg.VouchCredibilityIncrement,
		NonceTTL:                  cfg.NonceTTL,
		SessionChallengeDrift:     cfg.SessionChallengeDrift,
	}, nil
}
