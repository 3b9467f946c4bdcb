package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places kept on the unit price.
const PricePrecision = 12

// EconomyState is the singleton describing supply, backing and price.
type EconomyState struct {
	TotalSupply              decimal.Decimal `json:"total_supply"`
	CirculatingSupply        decimal.Decimal `json:"circulating_supply"`
	USDBacking               decimal.Decimal `json:"usd_backing"`
	UnitPrice                decimal.Decimal `json:"unit_price"`
	LastSyncedAt             time.Time       `json:"last_synced_at"`
	RedemptionWindowOpen     bool            `json:"redemption_window_open"`
	RedemptionWindowOpensAt  *time.Time      `json:"redemption_window_opens_at,omitempty"`
	RedemptionWindowClosesAt *time.Time      `json:"redemption_window_closes_at,omitempty"`
}

// Recompute derives circulating supply and unit price from the issuance
// reserve balance. Given equal inputs it produces equal outputs.
func (s *EconomyState) Recompute(issuanceBalance decimal.Decimal, now time.Time) {
	s.CirculatingSupply = s.TotalSupply.Sub(issuanceBalance)
	s.UnitPrice = UnitPrice(s.USDBacking, s.CirculatingSupply)
	s.LastSyncedAt = now
}

// UnitPrice is usdBacking / max(1, circulating).
func UnitPrice(usdBacking, circulating decimal.Decimal) decimal.Decimal {
	divisor := decimal.Max(decimal.NewFromInt(1), circulating)
	return usdBacking.DivRound(divisor, PricePrecision)
}

// RedemptionOpen reports whether liquidation orders are accepted at now.
func (s *EconomyState) RedemptionOpen(now time.Time) bool {
	if !s.RedemptionWindowOpen {
		return false
	}
	if s.RedemptionWindowOpensAt != nil && now.Before(*s.RedemptionWindowOpensAt) {
		return false
	}
	if s.RedemptionWindowClosesAt != nil && !now.Before(*s.RedemptionWindowClosesAt) {
		return false
	}
	return true
}
