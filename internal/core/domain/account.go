package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRole separates ordinary holders from the issuing authority.
type AccountRole string

const (
	AccountRoleOrdinary  AccountRole = "ORDINARY"
	AccountRoleAuthority AccountRole = "AUTHORITY"
)

// Account is a ledger identity holding a cached balance mirror.
type Account struct {
	ID               string          `json:"id"`
	PublicKey        string          `json:"public_key"` // base64 ed25519
	Balance          decimal.Decimal `json:"balance"`
	Role             AccountRole     `json:"role"`
	GenesisStake     decimal.Decimal `json:"genesis_stake"` // seeds reconciliation
	CredibilityScore int             `json:"credibility_score"`
	VouchCount       int             `json:"vouch_count"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsAuthority returns true for the issuing authority's own accounts.
func (a *Account) IsAuthority() bool {
	return a.Role == AccountRoleAuthority
}
