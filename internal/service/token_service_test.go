package service

import (
	"testing"
	"time"

	"value-ledger/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func newTestTokens(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return NewJWTTokenService(secret, expiry, issuer, domain.NetworkModeTestnet)
}

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := newTestTokens(testJWTSecret, 24*time.Hour, "test-issuer")

	tokenStr, expiresAt, err := svc.Generate("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.AccountID)
	assert.Equal(t, domain.NetworkModeTestnet, claims.Mode)
	assert.NotEmpty(t, claims.SessionID)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestJWTTokenService_SessionIDsAreUnique(t *testing.T) {
	svc := newTestTokens(testJWTSecret, time.Hour, "test-issuer")

	a, _, err := svc.Generate("alice")
	require.NoError(t, err)
	b, _, err := svc.Generate("alice")
	require.NoError(t, err)

	ca, err := svc.Validate(a)
	require.NoError(t, err)
	cb, err := svc.Validate(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.SessionID, cb.SessionID)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "value-ledger", domain.NetworkModeTestnet)

	mint := func(t *testing.T, issuer *JWTTokenService) string {
		t.Helper()
		tok, _, err := issuer.Generate("alice")
		require.NoError(t, err)
		return tok
	}

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice", "iss": "value-ledger", "aud": sessionAudience, "net": "TESTNET",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice", "jti": "s-1", "iss": "value-ledger", "aud": "other", "net": "TESTNET",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"expired", func(t *testing.T) string {
			return mint(t, NewJWTTokenService(testJWTSecret, -time.Hour, "value-ledger", domain.NetworkModeTestnet))
		}},
		{"other secret", func(t *testing.T) string {
			return mint(t, NewJWTTokenService("secret-2", time.Hour, "value-ledger", domain.NetworkModeTestnet))
		}},
		{"other issuer", func(t *testing.T) string {
			return mint(t, NewJWTTokenService(testJWTSecret, time.Hour, "someone-else", domain.NetworkModeTestnet))
		}},
		{"other network", func(t *testing.T) string {
			return mint(t, NewJWTTokenService(testJWTSecret, time.Hour, "value-ledger", domain.NetworkModeMainnet))
		}},
		{"alg none", func(t *testing.T) string { return noneAlg }},
		{"wrong audience", func(t *testing.T) string { return wrongAudience }},
		{"garbage", func(t *testing.T) string { return "not.a.valid.jwt" }},
		{"empty", func(t *testing.T) string { return "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token(t))
			assert.Error(t, err)
		})
	}
}
