// Package memory is an in-process storage backend. Transactions are
// serialized by a single writer slot; writes are staged on the Tx and become
// visible to other readers only on Commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"value-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errSQLUnsupported = errors.New("memory: SQL is not supported")

// Store holds the committed state shared by all memory repositories.
type Store struct {
	writer chan struct{} // one open transaction at a time

	mu         sync.RWMutex
	accounts   map[string]domain.Account
	vaults     map[string]domain.Vault
	entries    []domain.LedgerEntry
	entryIndex map[string]int
	economy    *domain.EconomyState
	orders     map[string]domain.BridgeOrder
	vouches    []domain.VouchRecord
	vouchPairs map[[2]string]struct{}
	auditLogs  []domain.AuditLog
	deliveries map[uuid.UUID]domain.NotificationDelivery
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		writer:     make(chan struct{}, 1),
		accounts:   make(map[string]domain.Account),
		vaults:     make(map[string]domain.Vault),
		entryIndex: make(map[string]int),
		orders:     make(map[string]domain.BridgeOrder),
		vouchPairs: make(map[[2]string]struct{}),
		deliveries: make(map[uuid.UUID]domain.NotificationDelivery),
	}
}

// Transactor implements ports.DBTransactor over a Store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a new Transactor.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin waits for the writer slot and opens a transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case t.store.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("begin memory tx: %w", ctx.Err())
	}
	return &Tx{
		store:    t.store,
		accounts: make(map[string]domain.Account),
		vaults:   make(map[string]domain.Vault),
		orders:   make(map[string]domain.BridgeOrder),
	}, nil
}

// Tx is a staged write set. It satisfies pgx.Tx so the memory repositories
// plug into services written against ports.DBTransactor.
type Tx struct {
	store    *Store
	closed   bool
	accounts map[string]domain.Account
	vaults   map[string]domain.Vault
	entries  []domain.LedgerEntry
	economy  *domain.EconomyState
	orders   map[string]domain.BridgeOrder
	vouches  []domain.VouchRecord
}

// Commit publishes the staged writes and releases the writer slot.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	s := t.store
	s.mu.Lock()
	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	for id, v := range t.vaults {
		s.vaults[id] = v
	}
	for _, e := range t.entries {
		s.entryIndex[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	if t.economy != nil {
		state := *t.economy
		s.economy = &state
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	for _, v := range t.vouches {
		s.vouches = append(s.vouches, v)
		s.vouchPairs[[2]string{v.FromID, v.ToID}] = struct{}{}
	}
	s.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards the staged writes.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	t.closed = true
	<-t.store.writer
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("memory: nested transactions are not supported")
}

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errSQLUnsupported
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }

func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errSQLUnsupported
}

func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errSQLUnsupported
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errSQLUnsupported
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errSQLUnsupported }

// asTx unwraps the memory transaction handed back through the ports.
func asTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, fmt.Errorf("memory: foreign transaction %T", tx)
	}
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// The lookups below read through the staged write set to committed state.

func (t *Tx) account(id string) (domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.accounts[id]
	return a, ok
}

func (t *Tx) vault(id string) (domain.Vault, bool) {
	if v, ok := t.vaults[id]; ok {
		return v, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.store.vaults[id]
	return v, ok
}

func (t *Tx) entryExists(id string) bool {
	for _, e := range t.entries {
		if e.ID == id {
			return true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.entryIndex[id]
	return ok
}

func (t *Tx) economyState() *domain.EconomyState {
	if t.economy != nil {
		state := *t.economy
		return &state
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if t.store.economy == nil {
		return nil
	}
	state := *t.store.economy
	return &state
}

func (t *Tx) order(id string) (domain.BridgeOrder, bool) {
	if o, ok := t.orders[id]; ok {
		return o, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	o, ok := t.store.orders[id]
	return o, ok
}

func (t *Tx) vouchExists(fromID, toID string) bool {
	for _, v := range t.vouches {
		if v.FromID == fromID && v.ToID == toID {
			return true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.vouchPairs[[2]string{fromID, toID}]
	return ok
}
