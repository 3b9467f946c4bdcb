package service

import (
	"context"
	"fmt"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sessionNoncePrefix keeps challenge nonces apart from entry nonces.
const sessionNoncePrefix = "session:"

// SessionServiceImpl implements ports.SessionService: an account proves it
// holds its signing key by signing a fresh SESSION challenge.
type SessionServiceImpl struct {
	accounts ports.AccountRepository
	signer   ports.SigningService
	nonces   ports.NonceStore
	tokens   ports.TokenService
	audit    ports.AuditService
	settings LedgerSettings
	log      zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionServiceImpl.
func NewSessionService(
	accounts ports.AccountRepository,
	signer ports.SigningService,
	nonces ports.NonceStore,
	tokens ports.TokenService,
	audit ports.AuditService,
	settings LedgerSettings,
	log zerolog.Logger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		accounts: accounts,
		signer:   signer,
		nonces:   nonces,
		tokens:   tokens,
		audit:    audit,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// Open verifies the challenge and issues a session token.
func (s *SessionServiceImpl) Open(ctx context.Context, req ports.OpenSessionRequest) (string, time.Time, error) {
	if req.AccountID == "" || req.Nonce == "" || req.Signature == "" {
		return "", time.Time{}, apperror.Validation("account_id, nonce and signature are required")
	}
	now := s.now()
	drift := now.Sub(time.UnixMilli(req.Timestamp))
	if drift < 0 {
		drift = -drift
	}
	if drift > s.settings.SessionChallengeDrift {
		return "", time.Time{}, apperror.Validation("challenge timestamp outside the allowed window")
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return "", time.Time{}, storageError("get account", err)
	}
	payload := domain.SessionChallengePayload(req.AccountID, req.Timestamp, req.Nonce)
	if account == nil || !s.signer.Verify(payload, req.Signature, account.PublicKey) {
		logger.Security(&s.log).Str("account_id", req.AccountID).Str("ip", req.ClientIP).Msg("session challenge rejected")
		record(ctx, s.audit, newAuditLog(domain.AuditActionSignatureRejected, req.AccountID, "session", req.AccountID, req.ClientIP, nil))
		return "", time.Time{}, apperror.ErrUnauthorized()
	}

	// A fresh binding id per attempt means a replayed challenge never
	// matches the first claim.
	ok, err := s.nonces.Claim(ctx, req.AccountID, sessionNoncePrefix+req.Nonce, uuid.NewString(), s.settings.NonceTTL)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("claim session nonce: %w", err))
	}
	if !ok {
		logger.Security(&s.log).Str("account_id", req.AccountID).Str("nonce", req.Nonce).Msg("session challenge replayed")
		record(ctx, s.audit, newAuditLog(domain.AuditActionNonceReplay, req.AccountID, "session", req.AccountID, req.ClientIP, nil))
		return "", time.Time{}, apperror.ErrNonceUsed()
	}

	token, expiresAt, err := s.tokens.Generate(req.AccountID)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(err)
	}

	record(ctx, s.audit, newAuditLog(domain.AuditActionSessionOpened, req.AccountID, "session", req.AccountID, req.ClientIP, nil))
	s.log.Info().Str("account_id", req.AccountID).Time("expires_at", expiresAt).Msg("session opened")
	return token, expiresAt, nil
}
