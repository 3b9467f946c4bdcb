package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, sender_id, receiver_id, amount, logical_ts, nonce, signature, hash,
	sender_public_key, parent_hash, kind, mode, recorded_at`

// LedgerRepo implements ports.LedgerRepository. Rows are never updated or deleted.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts an entry within a transaction. A colliding id is DuplicateEntry.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.SenderID, e.ReceiverID, e.Amount, e.Timestamp, e.Nonce, e.Signature, e.Hash,
		e.SenderPublicKey, e.ParentHash, e.Kind, e.Mode, e.RecordedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateEntry()
		}
		return fmt.Errorf("insert ledger entry: %w", classify(err))
	}
	return nil
}

// Exists checks whether an entry id is already recorded, inside the caller's transaction.
func (r *LedgerRepo) Exists(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check entry exists: %w", classify(err))
	}
	return exists, nil
}

// GetByID fetches a single entry.
func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	e := &domain.LedgerEntry{}
	if err := scanEntry(r.pool.QueryRow(ctx, query, id), e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// ListByParty returns the full history of a party in replay order.
func (r *LedgerRepo) ListByParty(ctx context.Context, partyID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY logical_ts ASC, recorded_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("list entries by party: %w", err)
	}
	return collectEntries(rows)
}

// ListByPartyPage fetches a party's entries with filtering and pagination.
func (r *LedgerRepo) ListByPartyPage(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("(sender_id = $%d OR receiver_id = $%d)", argIdx, argIdx))
	args = append(args, params.PartyID)
	argIdx++

	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, *params.Kind)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("logical_ts >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("logical_ts <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	var total int64
	err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where), args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s
		ORDER BY logical_ts ASC, recorded_at ASC, id ASC LIMIT $%d OFFSET $%d`, entryColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row, e *domain.LedgerEntry) error {
	return row.Scan(
		&e.ID, &e.SenderID, &e.ReceiverID, &e.Amount, &e.Timestamp, &e.Nonce, &e.Signature, &e.Hash,
		&e.SenderPublicKey, &e.ParentHash, &e.Kind, &e.Mode, &e.RecordedAt,
	)
}
