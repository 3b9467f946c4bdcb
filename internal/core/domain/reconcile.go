package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconcileReport is the outcome of replaying one party's history.
// Inconsistency is data, not an error.
type ReconcileReport struct {
	AccountID         string          `json:"account_id"`
	EntryCount        int             `json:"entry_count"`
	VerifiedCount     int             `json:"verified_count"`
	AuthorityCount    int             `json:"authority_count"`
	ComputedBalance   decimal.Decimal `json:"computed_balance"`
	CachedBalance     decimal.Decimal `json:"cached_balance"`
	IsConsistent      bool            `json:"is_consistent"`
	AnomalousEntryIDs []string        `json:"anomalous_entry_ids"`
	ReplayedAt        time.Time       `json:"replayed_at"`
}
