package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a ledger notification.
type EventType string

const (
	EventTransferCommitted EventType = "transfer.committed"
	EventVouchRecorded     EventType = "vouch.recorded"
	EventBridgeCreated     EventType = "bridge.created"
	EventBridgeVerified    EventType = "bridge.verified"
	EventBridgeRejected    EventType = "bridge.rejected"
	EventBridgeClaimed     EventType = "bridge.claimed"
	EventBridgeDispatched  EventType = "bridge.dispatched"
	EventBridgeCompleted   EventType = "bridge.completed"
	EventBridgeCancelled   EventType = "bridge.cancelled"
	EventVaultLocked       EventType = "vault.locked"
	EventVaultUnlocked     EventType = "vault.unlocked"
	EventEconomySynced     EventType = "economy.synced"
)

// IsSettlement returns true for events forwarded to the notification sink.
func (t EventType) IsSettlement() bool {
	return t == EventBridgeVerified || t == EventBridgeCompleted
}

// LedgerEvent is published after a mutation commits.
type LedgerEvent struct {
	ID         string           `json:"id"`
	Type       EventType        `json:"type"`
	EntryID    string           `json:"entry_id,omitempty"`
	OrderID    string           `json:"order_id,omitempty"`
	VaultID    string           `json:"vault_id,omitempty"`
	AccountIDs []string         `json:"account_ids,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Concerns returns true if accountID is one of the parties of the event.
func (e *LedgerEvent) Concerns(accountID string) bool {
	for _, id := range e.AccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}
