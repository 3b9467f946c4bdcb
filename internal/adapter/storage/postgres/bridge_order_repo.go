package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"value-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const bridgeOrderColumns = `id, user_id, direction, usd_value, asset_amount, encrypted_reference, payment_method,
	status, claimer_id, settlement_entry, entry_id, created_at, updated_at, submitted_at, verified_at,
	rejected_at, claimed_at, dispatched_at, completed_at, cancelled_at`

// BridgeOrderRepo implements ports.BridgeOrderRepository.
type BridgeOrderRepo struct {
	pool Pool
}

// NewBridgeOrderRepo creates a new BridgeOrderRepo.
func NewBridgeOrderRepo(pool Pool) *BridgeOrderRepo {
	return &BridgeOrderRepo{pool: pool}
}

// Create inserts a new order within a transaction, so a liquidation's escrow
// entry and its order land together.
func (r *BridgeOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.BridgeOrder) error {
	entryJSON, err := marshalSettlementEntry(o.SettlementEntry)
	if err != nil {
		return err
	}

	query := `INSERT INTO bridge_orders (` + bridgeOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = tx.Exec(ctx, query,
		o.ID, o.UserID, o.Direction, o.USDValue, o.AssetAmount, o.EncryptedReference, o.PaymentMethod,
		o.Status, o.ClaimerID, entryJSON, o.EntryID, o.CreatedAt, o.UpdatedAt, o.SubmittedAt, o.VerifiedAt,
		o.RejectedAt, o.ClaimedAt, o.DispatchedAt, o.CompletedAt, o.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert bridge order: %w", classify(err))
	}
	return nil
}

// GetByID fetches an order (without locking).
func (r *BridgeOrderRepo) GetByID(ctx context.Context, id string) (*domain.BridgeOrder, error) {
	query := `SELECT ` + bridgeOrderColumns + ` FROM bridge_orders WHERE id = $1`
	return scanBridgeOrder(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches an order with pessimistic locking.
// This MUST be called within a transaction.
func (r *BridgeOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.BridgeOrder, error) {
	query := `SELECT ` + bridgeOrderColumns + ` FROM bridge_orders WHERE id = $1 FOR UPDATE`
	o, err := scanBridgeOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err)
	}
	return o, nil
}

// Update writes the mutable state of an order within a transaction.
func (r *BridgeOrderRepo) Update(ctx context.Context, tx pgx.Tx, o *domain.BridgeOrder) error {
	query := `UPDATE bridge_orders SET
		encrypted_reference = $1, status = $2, claimer_id = $3, entry_id = $4, updated_at = $5,
		submitted_at = $6, verified_at = $7, rejected_at = $8, claimed_at = $9,
		dispatched_at = $10, completed_at = $11, cancelled_at = $12
		WHERE id = $13`

	tag, err := tx.Exec(ctx, query,
		o.EncryptedReference, o.Status, o.ClaimerID, o.EntryID, o.UpdatedAt,
		o.SubmittedAt, o.VerifiedAt, o.RejectedAt, o.ClaimedAt,
		o.DispatchedAt, o.CompletedAt, o.CancelledAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update bridge order: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bridge order not found: %s", o.ID)
	}
	return nil
}

// ListByUser returns a user's orders, newest first.
func (r *BridgeOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.BridgeOrder, error) {
	query := `SELECT ` + bridgeOrderColumns + ` FROM bridge_orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bridge orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.BridgeOrder
	for rows.Next() {
		o, err := scanBridgeOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bridge order rows: %w", err)
	}
	return orders, nil
}

func marshalSettlementEntry(e *domain.LedgerEntry) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal settlement entry: %w", err)
	}
	return b, nil
}

func scanBridgeOrder(row pgx.Row) (*domain.BridgeOrder, error) {
	o := &domain.BridgeOrder{}
	var entryJSON []byte
	err := row.Scan(
		&o.ID, &o.UserID, &o.Direction, &o.USDValue, &o.AssetAmount, &o.EncryptedReference, &o.PaymentMethod,
		&o.Status, &o.ClaimerID, &entryJSON, &o.EntryID, &o.CreatedAt, &o.UpdatedAt, &o.SubmittedAt, &o.VerifiedAt,
		&o.RejectedAt, &o.ClaimedAt, &o.DispatchedAt, &o.CompletedAt, &o.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan bridge order: %w", err)
	}
	if len(entryJSON) > 0 {
		o.SettlementEntry = &domain.LedgerEntry{}
		if err := json.Unmarshal(entryJSON, o.SettlementEntry); err != nil {
			return nil, fmt.Errorf("unmarshal settlement entry: %w", err)
		}
	}
	return o, nil
}
