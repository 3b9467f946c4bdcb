package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// sealedPrefix versions the at-rest format of sealed references.
const sealedPrefix = "v1."

var errSealedFormat = errors.New("sealed reference has an unknown format")

// AESReferenceCipher implements ports.ReferenceCipher with AES-256-GCM.
// The order id is authenticated as associated data, so a reference copied
// onto another order fails to open.
type AESReferenceCipher struct {
	aead cipher.AEAD
}

// NewAESReferenceCipher builds a cipher from a 64-character hex key.
func NewAESReferenceCipher(hexKey string) (*AESReferenceCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding reference key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("reference key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESReferenceCipher{aead: aead}, nil
}

// Seal encrypts plaintext for orderID. Output: "v1." + base64url(nonce|ciphertext).
func (c *AESReferenceCipher) Seal(orderID, plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), orderAD(orderID))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same orderID.
func (c *AESReferenceCipher) Open(orderID, sealed string) (string, error) {
	body, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", errSealedFormat
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("decoding sealed reference: %w", err)
	}

	n := c.aead.NonceSize()
	if len(raw) < n+c.aead.Overhead() {
		return "", errSealedFormat
	}

	plain, err := c.aead.Open(nil, raw[:n], raw[n:], orderAD(orderID))
	if err != nil {
		return "", fmt.Errorf("opening reference for order %s: %w", orderID, err)
	}
	return string(plain), nil
}

func orderAD(orderID string) []byte {
	return []byte("bridge_order:" + orderID)
}
