package service

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/pkg/apperror"
)

// Ed25519SigningService implements ports.SigningService. Keys and
// signatures travel as standard base64.
type Ed25519SigningService struct {
	now func() time.Time
}

// NewEd25519SigningService creates a new ed25519 signing service.
func NewEd25519SigningService() *Ed25519SigningService {
	return &Ed25519SigningService{now: time.Now}
}

// Sign signs payload with the session key. A nil, expired or keyless
// session fails with SessionLocked.
func (s *Ed25519SigningService) Sign(session *domain.SigningSession, payload string) (string, error) {
	if !session.IsUnlocked(s.now()) {
		return "", apperror.ErrSessionLocked()
	}
	sig := ed25519.Sign(session.PrivateKey, []byte(payload))
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature over payload against a base64 public key.
// Malformed keys or signatures never verify.
func (s *Ed25519SigningService) Verify(payload string, signature string, publicKey string) bool {
	pub, err := DecodePublicKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, []byte(payload), sig)
}

// SignEntry stamps the sender key, payload hash and signature on entry.
func (s *Ed25519SigningService) SignEntry(session *domain.SigningSession, entry *domain.LedgerEntry) error {
	payload := entry.CanonicalPayload()
	sig, err := s.Sign(session, payload)
	if err != nil {
		return err
	}
	entry.SenderPublicKey = session.PublicKey()
	entry.Hash = payload
	entry.Signature = sig
	return nil
}

// VerifyEntry checks the entry signature against its claimed sender key.
// The stored hash, when present, must match the recomputed payload.
func (s *Ed25519SigningService) VerifyEntry(entry *domain.LedgerEntry) bool {
	payload := entry.CanonicalPayload()
	if entry.Hash != "" && entry.Hash != payload {
		return false
	}
	return s.Verify(payload, entry.Signature, entry.SenderPublicKey)
}

// DecodePublicKey parses a base64 ed25519 public key.
func DecodePublicKey(publicKey string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// ParseSigningSeed turns a base64 32-byte seed into a private key.
func ParseSigningSeed(seed string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("decoding signing seed: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

// GenerateKeyPair returns a fresh base64 seed and its base64 public key.
func GenerateKeyPair() (seed string, publicKey string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(priv.Seed()), base64.StdEncoding.EncodeToString(pub), nil
}
