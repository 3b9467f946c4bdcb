package memory

import (
	"context"
	"sort"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are append-only.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t.entryExists(e.ID) {
		return apperror.ErrDuplicateEntry()
	}
	t.entries = append(t.entries, *e)
	return nil
}

func (r *LedgerRepo) Exists(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	t, err := asTx(tx)
	if err != nil {
		return false, err
	}
	return t.entryExists(id), nil
}

func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	idx, ok := r.store.entryIndex[id]
	if !ok {
		return nil, nil
	}
	e := r.store.entries[idx]
	return &e, nil
}

func (r *LedgerRepo) ListByParty(ctx context.Context, partyID string) ([]domain.LedgerEntry, error) {
	return r.filter(func(e *domain.LedgerEntry) bool { return e.Involves(partyID) }), nil
}

func (r *LedgerRepo) ListByPartyPage(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	matched := r.filter(func(e *domain.LedgerEntry) bool {
		if !e.Involves(params.PartyID) {
			return false
		}
		if params.Kind != nil && e.Kind != *params.Kind {
			return false
		}
		if params.From != nil && e.Timestamp < *params.From {
			return false
		}
		if params.To != nil && e.Timestamp > *params.To {
			return false
		}
		return true
	})
	return paginate(matched, params.Page, params.PageSize), int64(len(matched)), nil
}

// filter returns matching committed entries in replay order.
func (r *LedgerRepo) filter(keep func(*domain.LedgerEntry) bool) []domain.LedgerEntry {
	r.store.mu.RLock()
	var out []domain.LedgerEntry
	for i := range r.store.entries {
		if keep(&r.store.entries[i]) {
			out = append(out, r.store.entries[i])
		}
	}
	r.store.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return items
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
