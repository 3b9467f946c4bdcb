package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNewAESReferenceCipher_InvalidKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not hex", "zz" + testAESKey[2:]},
		{"too short", "0123456789abcdef"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESReferenceCipher(tt.key)
			assert.Error(t, err)
		})
	}
}

func TestAESReferenceCipher_SealOpen(t *testing.T) {
	c, err := NewAESReferenceCipher(testAESKey)
	require.NoError(t, err)

	sealed, err := c.Seal("order-1", "WIRE-2024-001")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "WIRE-2024-001")

	plain, err := c.Open("order-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, "WIRE-2024-001", plain)
}

func TestAESReferenceCipher_BoundToOrder(t *testing.T) {
	c, err := NewAESReferenceCipher(testAESKey)
	require.NoError(t, err)

	sealed, err := c.Seal("order-1", "tx:0xabc")
	require.NoError(t, err)

	_, err = c.Open("order-2", sealed)
	assert.Error(t, err)
}

func TestAESReferenceCipher_FreshNonces(t *testing.T) {
	c, err := NewAESReferenceCipher(testAESKey)
	require.NoError(t, err)

	a, err := c.Seal("order-1", "same")
	require.NoError(t, err)
	b, err := c.Seal("order-1", "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESReferenceCipher_Rejects(t *testing.T) {
	c, err := NewAESReferenceCipher(testAESKey)
	require.NoError(t, err)
	sealed, err := c.Seal("order-1", "ref")
	require.NoError(t, err)

	other, err := NewAESReferenceCipher(strings.Repeat("ab", 32))
	require.NoError(t, err)

	tampered := []byte(sealed)
	mid := len(sealedPrefix) + 20
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	tests := []struct {
		name   string
		cipher *AESReferenceCipher
		sealed string
	}{
		{"unversioned", c, strings.TrimPrefix(sealed, sealedPrefix)},
		{"bad encoding", c, sealedPrefix + "***"},
		{"too short", c, sealedPrefix + "AAAA"},
		{"tampered", c, string(tampered)},
		{"wrong key", other, sealed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cipher.Open("order-1", tt.sealed)
			assert.Error(t, err)
		})
	}
}
