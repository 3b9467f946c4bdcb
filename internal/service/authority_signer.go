package service

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// authoritySessionTTL bounds each short-lived session the authority opens
// to sign one server-built entry.
const authoritySessionTTL = time.Minute

// AuthoritySigner builds and signs the entries the server produces on the
// authority's behalf: dispatches, rebalances and bridge credits. Those
// entries are accepted without verification; the signature is provenance.
type AuthoritySigner struct {
	accountID string
	key       ed25519.PrivateKey
	signer    ports.SigningService
	now       func() time.Time
}

// NewAuthoritySigner loads the authority key from a base64 seed. An empty
// seed yields a signer that leaves server-built entries unsigned.
func NewAuthoritySigner(accountID, seed string, signer ports.SigningService) (*AuthoritySigner, error) {
	a := &AuthoritySigner{accountID: accountID, signer: signer, now: time.Now}
	if seed == "" {
		return a, nil
	}
	key, err := ParseSigningSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("authority signer: %w", err)
	}
	a.key = key
	return a, nil
}

// PublicKey returns the base64 authority public key, or "" without a key.
func (a *AuthoritySigner) PublicKey() string {
	if a == nil || a.key == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(a.key.Public().(ed25519.PublicKey))
}

// Session opens a signing session for the authority account.
func (a *AuthoritySigner) Session() *domain.SigningSession {
	if a == nil || a.key == nil {
		return nil
	}
	return domain.NewSigningSession(a.accountID, a.key, a.now(), authoritySessionTTL)
}

// BuildEntry creates a fresh entry from sender to receiver and signs it
// when a key is configured.
func (a *AuthoritySigner) BuildEntry(senderID, receiverID string, amount decimal.Decimal, kind domain.EntryKind, parentHash string) (*domain.LedgerEntry, error) {
	now := time.Now()
	if a != nil {
		now = a.now()
	}
	entry := &domain.LedgerEntry{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Timestamp:  now.UnixMilli(),
		Nonce:      uuid.NewString(),
		ParentHash: parentHash,
		Kind:       kind,
	}
	session := a.Session()
	if session == nil {
		entry.Hash = entry.CanonicalPayload()
		return entry, nil
	}
	if err := a.signer.SignEntry(session, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
