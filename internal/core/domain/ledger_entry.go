package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the purpose of a ledger entry.
type EntryKind string

const (
	EntryKindPeerTransfer  EntryKind = "PEER_TRANSFER"
	EntryKindVouch         EntryKind = "VOUCH"
	EntryKindBridgeIn      EntryKind = "BRIDGE_IN"
	EntryKindBridgeOut     EntryKind = "BRIDGE_OUT"
	EntryKindBridgeRefund  EntryKind = "BRIDGE_REFUND"
	EntryKindAdminDispatch EntryKind = "ADMIN_DISPATCH"
	EntryKindSystemMint    EntryKind = "SYSTEM_MINT"
)

// IsValid reports whether k is a known entry kind.
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryKindPeerTransfer, EntryKindVouch, EntryKindBridgeIn, EntryKindBridgeOut,
		EntryKindBridgeRefund, EntryKindAdminDispatch, EntryKindSystemMint:
		return true
	}
	return false
}

// NetworkMode tags entries with the network they were produced for.
type NetworkMode string

const (
	NetworkModeMainnet NetworkMode = "MAINNET"
	NetworkModeTestnet NetworkMode = "TESTNET"
)

// PayloadDelimiter separates canonical payload fields.
const PayloadDelimiter = "|"

// LedgerEntry is an immutable, append-only record of value moving between two parties.
type LedgerEntry struct {
	ID              string          `json:"id"`
	SenderID        string          `json:"sender_id"`
	ReceiverID      string          `json:"receiver_id"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       int64           `json:"timestamp"` // logical, unix ms
	Nonce           string          `json:"nonce"`
	Signature       string          `json:"signature"` // base64
	Hash            string          `json:"hash"`
	SenderPublicKey string          `json:"sender_public_key"`
	ParentHash      string          `json:"parent_hash,omitempty"`
	Kind            EntryKind       `json:"kind"`
	Mode            NetworkMode     `json:"mode"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

// CanonicalPayload builds the exact string a sender signs:
// sender|receiver|amount|timestamp|nonce|kind. The amount is rendered in
// its shortest decimal form so "40.00" and "40" sign identically.
func CanonicalPayload(senderID, receiverID string, amount decimal.Decimal, timestamp int64, nonce string, kind EntryKind) string {
	return strings.Join([]string{
		senderID,
		receiverID,
		amount.String(),
		strconv.FormatInt(timestamp, 10),
		nonce,
		string(kind),
	}, PayloadDelimiter)
}

// CanonicalPayload returns the payload this entry's signature must cover.
func (e *LedgerEntry) CanonicalPayload() string {
	return CanonicalPayload(e.SenderID, e.ReceiverID, e.Amount, e.Timestamp, e.Nonce, e.Kind)
}

// Involves returns true if id is the sender or the receiver.
func (e *LedgerEntry) Involves(id string) bool {
	return e.SenderID == id || e.ReceiverID == id
}

// DeltaFor returns the signed balance change the entry causes for id.
func (e *LedgerEntry) DeltaFor(id string) decimal.Decimal {
	switch id {
	case e.SenderID:
		return e.Amount.Neg()
	case e.ReceiverID:
		return e.Amount
	}
	return decimal.Zero
}
