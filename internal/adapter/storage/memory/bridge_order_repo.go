package memory

import (
	"context"
	"fmt"
	"sort"

	"value-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BridgeOrderRepo implements ports.BridgeOrderRepository. Like the
// PostgreSQL table it never keeps the plaintext external reference.
type BridgeOrderRepo struct {
	store *Store
}

// NewBridgeOrderRepo creates a new BridgeOrderRepo.
func NewBridgeOrderRepo(store *Store) *BridgeOrderRepo {
	return &BridgeOrderRepo{store: store}
}

func (r *BridgeOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.BridgeOrder) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if _, exists := t.order(o.ID); exists {
		return fmt.Errorf("bridge order already exists: %s", o.ID)
	}
	t.orders[o.ID] = stored(o)
	return nil
}

func (r *BridgeOrderRepo) GetByID(ctx context.Context, id string) (*domain.BridgeOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *BridgeOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.BridgeOrder, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	o, ok := t.order(id)
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *BridgeOrderRepo) Update(ctx context.Context, tx pgx.Tx, o *domain.BridgeOrder) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if _, ok := t.order(o.ID); !ok {
		return fmt.Errorf("bridge order not found: %s", o.ID)
	}
	t.orders[o.ID] = stored(o)
	return nil
}

func (r *BridgeOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.BridgeOrder, error) {
	r.store.mu.RLock()
	var orders []domain.BridgeOrder
	for _, o := range r.store.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func stored(o *domain.BridgeOrder) domain.BridgeOrder {
	c := *o
	c.ExternalReference = ""
	if o.SettlementEntry != nil {
		e := *o.SettlementEntry
		c.SettlementEntry = &e
	}
	return c
}
