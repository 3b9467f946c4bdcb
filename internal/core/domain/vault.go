package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VaultType classifies a treasury pool.
type VaultType string

const (
	VaultTypeIssuance  VaultType = "ISSUANCE"
	VaultTypeLiquidity VaultType = "LIQUIDITY"
	VaultTypeSpecial   VaultType = "SPECIAL"
)

// IsValid reports whether t is a known vault type.
func (t VaultType) IsValid() bool {
	switch t {
	case VaultTypeIssuance, VaultTypeLiquidity, VaultTypeSpecial:
		return true
	}
	return false
}

// Vault is a named, lockable pool of value under authority control.
// A locked vault accepts incoming transfers but sends none.
type Vault struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	PublicKey      string          `json:"public_key"`
	Type           VaultType       `json:"type"`
	IsLocked       bool            `json:"is_locked"`
	GenesisBalance decimal.Decimal `json:"genesis_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
