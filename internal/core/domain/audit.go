package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names an audited ledger operation.
type AuditAction string

// Rejections. These are also written to the security log stream.
const (
	AuditActionSignatureRejected AuditAction = "SIGNATURE_REJECTED"
	AuditActionNonceReplay       AuditAction = "NONCE_REPLAY"
	AuditActionAuthorityRejected AuditAction = "AUTHORITY_KEY_REJECTED"
)

// Accounts, sessions and vaults.
const (
	AuditActionSessionOpened AuditAction = "SESSION_OPENED"
	AuditActionGenesis       AuditAction = "GENESIS"
	AuditActionAccountOpened AuditAction = "ACCOUNT_OPENED"
	AuditActionVaultCreated  AuditAction = "VAULT_CREATED"
	AuditActionVaultLocked   AuditAction = "VAULT_LOCKED"
	AuditActionVaultUnlocked AuditAction = "VAULT_UNLOCKED"
	AuditActionDispatch      AuditAction = "DISPATCH"
	AuditActionRebalance     AuditAction = "REBALANCE"
)

// Bridge settlement.
const (
	AuditActionBridgeCreated    AuditAction = "BRIDGE_CREATED"
	AuditActionBridgeReference  AuditAction = "BRIDGE_REFERENCE_SUBMITTED"
	AuditActionBridgeConfirmed  AuditAction = "BRIDGE_CONFIRMED"
	AuditActionBridgeRejected   AuditAction = "BRIDGE_REJECTED"
	AuditActionBridgeClaimed    AuditAction = "BRIDGE_CLAIMED"
	AuditActionBridgeDispatched AuditAction = "BRIDGE_DISPATCHED"
	AuditActionBridgeCompleted  AuditAction = "BRIDGE_COMPLETED"
	AuditActionBridgeCancelled  AuditAction = "BRIDGE_CANCELLED"
)

// Economy and maintenance.
const (
	AuditActionBackingInjected    AuditAction = "BACKING_INJECTED"
	AuditActionRedemptionWindow   AuditAction = "REDEMPTION_WINDOW"
	AuditActionPriceSynced        AuditAction = "PRICE_SYNCED"
	AuditActionReconcileAnomalies AuditAction = "RECONCILE_ANOMALIES"
)

// IsSecurity reports whether the action records a rejected credential.
func (a AuditAction) IsSecurity() bool {
	switch a {
	case AuditActionSignatureRejected, AuditActionNonceReplay, AuditActionAuthorityRejected:
		return true
	}
	return false
}

// AuditLog is one row of the append-only audit trail. Details holds a JSON
// object.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *string     `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"`
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
