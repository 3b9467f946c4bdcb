package postgres

import (
	"context"
	"fmt"

	"value-ledger/internal/core/domain"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// VouchRepo implements ports.VouchRepository.
type VouchRepo struct {
	pool Pool
}

// NewVouchRepo creates a new VouchRepo.
func NewVouchRepo(pool Pool) *VouchRepo {
	return &VouchRepo{pool: pool}
}

// Create inserts a vouch record within a transaction. The (from_id, to_id)
// unique constraint turns a racing second vouch into DuplicateVouch.
func (r *VouchRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.VouchRecord) error {
	query := `INSERT INTO vouches (id, from_id, to_id, entry_id, signature, payload_hash, signer_public_key, logical_ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.FromID, v.ToID, v.EntryID, v.Signature,
		v.PayloadHash, v.SignerPublicKey, v.Timestamp, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateVouch()
		}
		return fmt.Errorf("insert vouch: %w", classify(err))
	}
	return nil
}

// ExistsForPair checks the ordered pair inside the caller's transaction.
func (r *VouchRepo) ExistsForPair(ctx context.Context, tx pgx.Tx, fromID, toID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vouches WHERE from_id = $1 AND to_id = $2)`, fromID, toID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vouch exists: %w", classify(err))
	}
	return exists, nil
}

// ListForAccount returns the vouches received by toID, oldest first.
func (r *VouchRepo) ListForAccount(ctx context.Context, toID string) ([]domain.VouchRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_id, to_id, entry_id, signature, payload_hash, signer_public_key, logical_ts, created_at
		 FROM vouches WHERE to_id = $1 ORDER BY created_at ASC`, toID)
	if err != nil {
		return nil, fmt.Errorf("list vouches: %w", err)
	}
	defer rows.Close()

	var vouches []domain.VouchRecord
	for rows.Next() {
		var v domain.VouchRecord
		if err := rows.Scan(
			&v.ID, &v.FromID, &v.ToID, &v.EntryID, &v.Signature,
			&v.PayloadHash, &v.SignerPublicKey, &v.Timestamp, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vouch row: %w", err)
		}
		vouches = append(vouches, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vouch rows: %w", err)
	}
	return vouches, nil
}
