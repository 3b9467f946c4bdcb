package service

import (
	"errors"
	"fmt"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionAudience is the only audience session tokens are minted for.
const sessionAudience = "ledger-session"

// sessionClaims binds a session to one account on one network.
type sessionClaims struct {
	Mode domain.NetworkMode `json:"net"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService using HS256 JWT. A token
// proves its holder passed the key-possession challenge for one account and
// is only honoured by ledgers running in the same network mode.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	mode   domain.NetworkMode
}

func NewJWTTokenService(secret string, expiry time.Duration, issuer string, mode domain.NetworkMode) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		mode:   mode,
	}
}

// Generate mints a session token for accountID.
func (s *JWTTokenService) Generate(accountID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := sessionClaims{
		Mode: s.mode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a session token and checks issuer, audience, expiry and
// network mode.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	switch {
	case claims.Subject == "":
		return nil, errors.New("missing subject claim")
	case claims.ID == "":
		return nil, errors.New("missing session id claim")
	case claims.Mode != s.mode:
		return nil, fmt.Errorf("token issued for %s, ledger runs %s", claims.Mode, s.mode)
	}

	return &ports.TokenClaims{
		AccountID: claims.Subject,
		SessionID: claims.ID,
		Mode:      claims.Mode,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
