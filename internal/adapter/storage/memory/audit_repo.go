package memory

import (
	"context"
	"sort"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
)

type auditRepo struct {
	store *Store
}

// NewAuditRepository creates a memory-backed AuditRepository.
func NewAuditRepository(store *Store) ports.AuditRepository {
	return &auditRepo{store: store}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.auditLogs = append(r.store.auditLogs, *log)
	return nil
}

func (r *auditRepo) List(ctx context.Context, params ports.AuditListParams) ([]domain.AuditLog, int64, error) {
	r.store.mu.RLock()
	var logs []domain.AuditLog
	for _, l := range r.store.auditLogs {
		if params.Action != nil && l.Action != *params.Action {
			continue
		}
		if params.ResourceID != "" && l.ResourceID != params.ResourceID {
			continue
		}
		logs = append(logs, l)
	}
	r.store.mu.RUnlock()

	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	return paginate(logs, params.Page, params.PageSize), int64(len(logs)), nil
}
