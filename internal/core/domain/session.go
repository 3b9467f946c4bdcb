package domain

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// SigningSession carries an unlocked signing key for the lifetime of a
// request or CLI invocation. A nil or expired session cannot sign.
type SigningSession struct {
	AccountID  string
	PrivateKey ed25519.PrivateKey
	UnlockedAt time.Time
	ExpiresAt  time.Time
}

// NewSigningSession unlocks key for ttl starting at now.
func NewSigningSession(accountID string, key ed25519.PrivateKey, now time.Time, ttl time.Duration) *SigningSession {
	return &SigningSession{
		AccountID:  accountID,
		PrivateKey: key,
		UnlockedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsUnlocked reports whether the session may sign at now.
func (s *SigningSession) IsUnlocked(now time.Time) bool {
	return s != nil && len(s.PrivateKey) == ed25519.PrivateKeySize && now.Before(s.ExpiresAt)
}

// PublicKey returns the base64 public half of the session key.
func (s *SigningSession) PublicKey() string {
	pub := s.PrivateKey.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub)
}

// SessionChallengePayload is the string an account signs to prove key
// possession when opening an API session.
func SessionChallengePayload(accountID string, timestamp int64, nonce string) string {
	return strings.Join([]string{"SESSION", accountID, strconv.FormatInt(timestamp, 10), nonce}, PayloadDelimiter)
}
