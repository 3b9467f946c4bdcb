package dto

import (
	"time"

	"value-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SignedEntryRequest is a client-built, client-signed ledger entry. The
// server never rewrites these fields: any change invalidates the signature.
type SignedEntryRequest struct {
	ID              string `json:"id" binding:"required,safe_id,max=64"`
	SenderID        string `json:"sender_id" binding:"required,safe_id,max=64"`
	ReceiverID      string `json:"receiver_id" binding:"required,safe_id,max=64"`
	Amount          string `json:"amount" binding:"required,amount"`
	Timestamp       int64  `json:"timestamp" binding:"required,gt=0"`
	Nonce           string `json:"nonce" binding:"required,safe_id,max=128"`
	Signature       string `json:"signature" binding:"required,base64"`
	SenderPublicKey string `json:"sender_public_key" binding:"omitempty,base64"`
	ParentHash      string `json:"parent_hash,omitempty" binding:"max=512"`
	Kind            string `json:"kind" binding:"required"`
	Mode            string `json:"mode,omitempty" binding:"omitempty,oneof=MAINNET TESTNET"`
}

// ToDomain converts the request into a ledger entry. Amount has already
// been validated by the binding layer.
func (r SignedEntryRequest) ToDomain() domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:              r.ID,
		SenderID:        r.SenderID,
		ReceiverID:      r.ReceiverID,
		Amount:          MustAmount(r.Amount),
		Timestamp:       r.Timestamp,
		Nonce:           r.Nonce,
		Signature:       r.Signature,
		SenderPublicKey: r.SenderPublicKey,
		ParentHash:      r.ParentHash,
		Kind:            domain.EntryKind(r.Kind),
		Mode:            domain.NetworkMode(r.Mode),
	}
}

// MustAmount parses a validated amount string. Invalid input yields zero.
func MustAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// OpenSessionRequest is the SESSION challenge signed with the account key.
type OpenSessionRequest struct {
	AccountID string `json:"account_id" binding:"required,safe_id,max=64"`
	Timestamp int64  `json:"timestamp" binding:"required,gt=0"`
	Nonce     string `json:"nonce" binding:"required,safe_id,max=128"`
	Signature string `json:"signature" binding:"required,base64"`
}

// SessionResponse carries the session token.
type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // Unix timestamp
}

// GenesisRequest bootstraps the economy.
type GenesisRequest struct {
	TotalSupply string `json:"total_supply" binding:"required,amount"`
	USDBacking  string `json:"usd_backing" binding:"required,amount"`
}

// OpenAccountRequest registers an ordinary account.
type OpenAccountRequest struct {
	ID           string `json:"id" binding:"required,safe_id,max=64"`
	PublicKey    string `json:"public_key" binding:"required,base64"`
	GenesisStake string `json:"genesis_stake,omitempty" binding:"omitempty,amount"`
}

// CreateVaultRequest creates a special-purpose vault.
type CreateVaultRequest struct {
	ID        string `json:"id" binding:"required,safe_id,max=64"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Type      string `json:"type" binding:"omitempty,oneof=ISSUANCE LIQUIDITY SPECIAL"`
	PublicKey string `json:"public_key,omitempty" binding:"omitempty,base64"`
}

// DispatchRequest moves value out of a vault. Entry is optional; without it
// the server builds and signs the entry.
type DispatchRequest struct {
	TargetID string              `json:"target_id" binding:"required,safe_id,max=64"`
	Amount   string              `json:"amount" binding:"required,amount"`
	Entry    *SignedEntryRequest `json:"entry,omitempty"`
}

// RebalanceRequest moves value between vaults.
type RebalanceRequest struct {
	FromVaultID string `json:"from_vault_id" binding:"required,safe_id,max=64"`
	ToVaultID   string `json:"to_vault_id" binding:"required,safe_id,max=64"`
	Amount      string `json:"amount" binding:"required,amount"`
}

// CreatePurchaseRequest opens a purchase order.
type CreatePurchaseRequest struct {
	USDValue      string `json:"usd_value" binding:"required,amount"`
	AssetAmount   string `json:"asset_amount" binding:"required,amount"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=FIAT CRYPTO"`
}

// CreateLiquidationRequest opens a liquidation order with the signed
// BRIDGE_OUT entry towards the liquidity vault.
type CreateLiquidationRequest struct {
	USDValue      string             `json:"usd_value" binding:"required,amount"`
	PaymentMethod string             `json:"payment_method" binding:"required,oneof=FIAT CRYPTO"`
	Entry         SignedEntryRequest `json:"entry"`
}

// PaymentReferenceRequest submits the off-chain payment reference.
type PaymentReferenceRequest struct {
	Reference string `json:"reference" binding:"required,min=1,max=256"`
}

// DispatchedRequest records the facilitator's payout proof.
type DispatchedRequest struct {
	PayoutProof string `json:"payout_proof" binding:"required,min=1,max=512"`
}

// InjectBackingRequest adds USD backing.
type InjectBackingRequest struct {
	USD string `json:"usd" binding:"required,amount"`
}

// RedemptionWindowRequest opens the redemption window, optionally bounded.
type RedemptionWindowRequest struct {
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}

// EntryResponse is a committed ledger entry.
type EntryResponse struct {
	ID              string `json:"id"`
	SenderID        string `json:"sender_id"`
	ReceiverID      string `json:"receiver_id"`
	Amount          string `json:"amount"`
	Timestamp       int64  `json:"timestamp"`
	Nonce           string `json:"nonce"`
	Signature       string `json:"signature"`
	Hash            string `json:"hash"`
	SenderPublicKey string `json:"sender_public_key"`
	ParentHash      string `json:"parent_hash,omitempty"`
	Kind            string `json:"kind"`
	Mode            string `json:"mode"`
	RecordedAt      string `json:"recorded_at"`
}

// AccountResponse is an account profile.
type AccountResponse struct {
	ID               string `json:"id"`
	PublicKey        string `json:"public_key"`
	Balance          string `json:"balance"`
	Role             string `json:"role"`
	GenesisStake     string `json:"genesis_stake"`
	CredibilityScore int    `json:"credibility_score"`
	VouchCount       int    `json:"vouch_count"`
	CreatedAt        string `json:"created_at"`
}

// BalanceResponse is a balance projection.
type BalanceResponse struct {
	PartyID string `json:"party_id"`
	Balance string `json:"balance"`
	Mode    string `json:"mode"` // cached, replayed
}

// VaultResponse is a treasury vault.
type VaultResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Balance        string `json:"balance"`
	GenesisBalance string `json:"genesis_balance"`
	PublicKey      string `json:"public_key,omitempty"`
	IsLocked       bool   `json:"is_locked"`
	UpdatedAt      string `json:"updated_at"`
}

// BridgeOrderResponse is a bridge order. The payment reference is only
// returned to the owner and the authority.
type BridgeOrderResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Direction         string  `json:"direction"`
	USDValue          string  `json:"usd_value"`
	AssetAmount       string  `json:"asset_amount"`
	PaymentMethod     string  `json:"payment_method"`
	Status            string  `json:"status"`
	ExternalReference string  `json:"external_reference,omitempty"`
	ClaimerID         *string `json:"claimer_id,omitempty"`
	EntryID           *string `json:"entry_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// EconomyResponse is the economy state.
type EconomyResponse struct {
	TotalSupply          string  `json:"total_supply"`
	CirculatingSupply    string  `json:"circulating_supply"`
	USDBacking           string  `json:"usd_backing"`
	UnitPrice            string  `json:"unit_price"`
	LastSyncedAt         string  `json:"last_synced_at"`
	RedemptionWindowOpen bool    `json:"redemption_window_open"`
	RedemptionClosesAt   *string `json:"redemption_closes_at,omitempty"`
}

// VouchResponse is a recorded vouch.
type VouchResponse struct {
	ID        string `json:"id"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	EntryID   string `json:"entry_id"`
	Timestamp int64  `json:"timestamp"`
	CreatedAt string `json:"created_at"`
}

// ReconcileResponse is the outcome of a ledger replay.
type ReconcileResponse struct {
	AccountID         string   `json:"account_id"`
	EntryCount        int      `json:"entry_count"`
	VerifiedCount     int      `json:"verified_count"`
	AuthorityCount    int      `json:"authority_count"`
	ComputedBalance   string   `json:"computed_balance"`
	CachedBalance     string   `json:"cached_balance"`
	IsConsistent      bool     `json:"is_consistent"`
	AnomalousEntryIDs []string `json:"anomalous_entry_ids"`
	ReplayedAt        string   `json:"replayed_at"`
}
