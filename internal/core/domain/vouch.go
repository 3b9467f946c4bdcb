package domain

import "time"

// VouchRecord is a one-per-ordered-pair signed attestation.
type VouchRecord struct {
	ID              string    `json:"id"`
	FromID          string    `json:"from_id"`
	ToID            string    `json:"to_id"`
	EntryID         string    `json:"entry_id"`
	Signature       string    `json:"signature"`
	PayloadHash     string    `json:"payload_hash"`
	SignerPublicKey string    `json:"signer_public_key"`
	Timestamp       int64     `json:"timestamp"`
	CreatedAt       time.Time `json:"created_at"`
}
