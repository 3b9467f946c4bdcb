package service

import (
	"context"
	"encoding/json"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// auditPersistTimeout bounds the background insert of one audit row.
const auditPersistTimeout = 5 * time.Second

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService writes audit rows to repo and the log. A nil repo keeps the
// trail in the log only.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: logger.Component(log, "audit")}
}

// Log records entry without blocking the caller. The insert outlives the
// request context so a client hanging up does not drop the row.
func (s *auditService) Log(ctx context.Context, entry *domain.AuditLog) {
	persistCtx := context.WithoutCancel(ctx)

	go func() {
		event := s.log.Info()
		if entry.Action.IsSecurity() {
			event = logger.Security(&s.log)
		}
		event.
			Str("action", string(entry.Action)).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("ip", entry.IPAddress).
			Msg("audit")

		if s.repo == nil {
			return
		}
		ctx, cancel := context.WithTimeout(persistCtx, auditPersistTimeout)
		defer cancel()
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("audit row not persisted")
		}
	}()
}

// newAuditLog builds an audit row; details, when given, is stored as JSON.
func newAuditLog(action domain.AuditAction, actorID, resourceType, resourceID, ip string, details map[string]any) *domain.AuditLog {
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ip,
		CreatedAt:    time.Now().UTC(),
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	return entry
}

func record(ctx context.Context, audit ports.AuditService, entry *domain.AuditLog) {
	if audit == nil {
		return
	}
	audit.Log(ctx, entry)
}
