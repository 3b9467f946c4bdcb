package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BridgeDirection says whether value enters or leaves the ledger.
type BridgeDirection string

const (
	BridgeDirectionPurchase    BridgeDirection = "PURCHASE"
	BridgeDirectionLiquidation BridgeDirection = "LIQUIDATION"
)

// PaymentMethod is the off-ledger rail used to settle an order.
type PaymentMethod string

const (
	PaymentMethodFiat   PaymentMethod = "FIAT"
	PaymentMethodCrypto PaymentMethod = "CRYPTO"
)

// BridgeStatus is the lifecycle state of a bridge order.
type BridgeStatus string

const (
	BridgeStatusPending              BridgeStatus = "PENDING"
	BridgeStatusAwaitingConfirmation BridgeStatus = "AWAITING_CONFIRMATION"
	BridgeStatusVerified             BridgeStatus = "VERIFIED"
	BridgeStatusRejected             BridgeStatus = "REJECTED"
	BridgeStatusClaimed              BridgeStatus = "CLAIMED"
	BridgeStatusDispatched           BridgeStatus = "DISPATCHED"
	BridgeStatusCompleted            BridgeStatus = "COMPLETED"
	BridgeStatusCancelled            BridgeStatus = "CANCELLED"
)

// BridgeAction is a transition request against an order.
type BridgeAction string

const (
	BridgeActionSubmitReference BridgeAction = "submit_reference"
	BridgeActionConfirm         BridgeAction = "confirm"
	BridgeActionReject          BridgeAction = "reject"
	BridgeActionClaim           BridgeAction = "claim"
	BridgeActionDispatch        BridgeAction = "dispatch"
	BridgeActionComplete        BridgeAction = "complete"
	BridgeActionCancel          BridgeAction = "cancel"
)

type transitionKey struct {
	from   BridgeStatus
	action BridgeAction
}

var bridgeTransitions = map[BridgeDirection]map[transitionKey]BridgeStatus{
	BridgeDirectionPurchase: {
		{BridgeStatusPending, BridgeActionSubmitReference}:      BridgeStatusAwaitingConfirmation,
		{BridgeStatusPending, BridgeActionConfirm}:              BridgeStatusVerified,
		{BridgeStatusAwaitingConfirmation, BridgeActionConfirm}: BridgeStatusVerified,
		{BridgeStatusPending, BridgeActionReject}:               BridgeStatusRejected,
		{BridgeStatusAwaitingConfirmation, BridgeActionReject}:  BridgeStatusRejected,
	},
	BridgeDirectionLiquidation: {
		{BridgeStatusPending, BridgeActionClaim}:       BridgeStatusClaimed,
		{BridgeStatusClaimed, BridgeActionDispatch}:    BridgeStatusDispatched,
		{BridgeStatusDispatched, BridgeActionComplete}: BridgeStatusCompleted,
		{BridgeStatusPending, BridgeActionCancel}:      BridgeStatusCancelled,
		{BridgeStatusClaimed, BridgeActionCancel}:      BridgeStatusCancelled,
		{BridgeStatusDispatched, BridgeActionCancel}:   BridgeStatusCancelled,
	},
}

// NextBridgeStatus returns the status reached by applying action, or false
// when the action is not allowed from the current status.
func NextBridgeStatus(direction BridgeDirection, from BridgeStatus, action BridgeAction) (BridgeStatus, bool) {
	next, ok := bridgeTransitions[direction][transitionKey{from, action}]
	return next, ok
}

// BridgeOrder links an off-ledger payment to an on-ledger balance change.
type BridgeOrder struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	Direction          BridgeDirection `json:"direction"`
	USDValue           decimal.Decimal `json:"usd_value"`
	AssetAmount        decimal.Decimal `json:"asset_amount"`
	ExternalReference  string          `json:"external_reference,omitempty"` // plaintext, never persisted
	EncryptedReference string          `json:"-"`                            // AES-256-GCM at rest
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	Status             BridgeStatus    `json:"status"`
	ClaimerID          *string         `json:"claimer_id,omitempty"`
	SettlementEntry    *LedgerEntry    `json:"settlement_entry,omitempty"` // user-signed escrow entry for liquidations
	EntryID            *string         `json:"entry_id,omitempty"`         // BRIDGE_IN credit, or the liquidation escrow
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	SubmittedAt        *time.Time      `json:"submitted_at,omitempty"`
	VerifiedAt         *time.Time      `json:"verified_at,omitempty"`
	RejectedAt         *time.Time      `json:"rejected_at,omitempty"`
	ClaimedAt          *time.Time      `json:"claimed_at,omitempty"`
	DispatchedAt       *time.Time      `json:"dispatched_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
}

// IsTerminal returns true once the order can no longer move.
func (o *BridgeOrder) IsTerminal() bool {
	switch o.Status {
	case BridgeStatusVerified, BridgeStatusRejected, BridgeStatusCompleted, BridgeStatusCancelled:
		return true
	}
	return false
}

// Escrowed reports whether the order holds the user's value in the
// liquidity vault until it completes or is refunded.
func (o *BridgeOrder) Escrowed() bool {
	return o.Direction == BridgeDirectionLiquidation && o.EntryID != nil
}

// RefundEntryID is the id of the entry returning a cancelled liquidation's
// escrow. It is derived from the order so a retried cancel cannot refund twice.
func (o *BridgeOrder) RefundEntryID() string {
	return "refund-" + o.ID
}

// CanReveal reports whether viewerID may read the decrypted reference: the
// owner, the facilitator holding the claim, or the authority.
func (o *BridgeOrder) CanReveal(viewerID string, authority bool) bool {
	if authority {
		return true
	}
	if viewerID == "" {
		return false
	}
	return viewerID == o.UserID || (o.ClaimerID != nil && *o.ClaimerID == viewerID)
}

// Transition moves the order forward and stamps the transition time.
func (o *BridgeOrder) Transition(action BridgeAction, now time.Time) bool {
	next, ok := NextBridgeStatus(o.Direction, o.Status, action)
	if !ok {
		return false
	}
	o.Status = next
	o.UpdatedAt = now
	t := now
	switch next {
	case BridgeStatusAwaitingConfirmation:
		o.SubmittedAt = &t
	case BridgeStatusVerified:
		o.VerifiedAt = &t
	case BridgeStatusRejected:
		o.RejectedAt = &t
	case BridgeStatusClaimed:
		o.ClaimedAt = &t
	case BridgeStatusDispatched:
		o.DispatchedAt = &t
	case BridgeStatusCompleted:
		o.CompletedAt = &t
	case BridgeStatusCancelled:
		o.CancelledAt = &t
	}
	return true
}
