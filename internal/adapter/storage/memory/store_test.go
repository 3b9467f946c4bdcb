package memory

import (
	"context"
	"testing"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.DBTransactor          = (*Transactor)(nil)
	_ ports.AccountRepository     = (*AccountRepo)(nil)
	_ ports.VaultRepository       = (*VaultRepo)(nil)
	_ ports.LedgerRepository      = (*LedgerRepo)(nil)
	_ ports.EconomyRepository     = (*EconomyRepo)(nil)
	_ ports.BridgeOrderRepository = (*BridgeOrderRepo)(nil)
	_ ports.VouchRepository       = (*VouchRepo)(nil)
	_ ports.HealthChecker         = (*HealthCheck)(nil)
)

func newAccount(id, balance string) *domain.Account {
	now := time.Now().UTC()
	return &domain.Account{
		ID:        id,
		PublicKey: "key-" + id,
		Balance:   decimal.RequireFromString(balance),
		Role:      domain.AccountRoleOrdinary,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTx_CommitPublishesWrites(t *testing.T) {
	store := NewStore()
	transactor := NewTransactor(store)
	accounts := NewAccountRepo(store)
	ctx := context.Background()

	tx, err := transactor.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, accounts.Create(ctx, tx, newAccount("alice", "100")))

	// Staged writes are visible inside the tx only.
	inTx, err := accounts.GetByIDForUpdate(ctx, tx, "alice")
	require.NoError(t, err)
	require.NotNil(t, inTx)
	outside, err := accounts.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, outside)

	require.NoError(t, tx.Commit(ctx))

	committed, err := accounts.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, committed)
	assert.True(t, committed.Balance.Equal(decimal.NewFromInt(100)))
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	store := NewStore()
	transactor := NewTransactor(store)
	accounts := NewAccountRepo(store)
	ctx := context.Background()

	seed(t, store, newAccount("alice", "100"))

	tx, err := transactor.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, accounts.UpdateBalance(ctx, tx, "alice", decimal.NewFromInt(1)))
	require.NoError(t, tx.Rollback(ctx))

	a, err := accounts.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(100)))

	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
}

func TestTransactor_SerializesWriters(t *testing.T) {
	store := NewStore()
	transactor := NewTransactor(store)
	ctx := context.Background()

	first, err := transactor.Begin(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = transactor.Begin(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Commit(ctx))

	second, err := transactor.Begin(ctx)
	require.NoError(t, err)
	assert.NoError(t, second.Rollback(ctx))
}

func TestRepos_RejectForeignTx(t *testing.T) {
	store := NewStore()
	accounts := NewAccountRepo(store)

	err := accounts.Create(context.Background(), nil, newAccount("alice", "1"))
	assert.ErrorContains(t, err, "foreign transaction")
}

func TestTx_SQLIsUnsupported(t *testing.T) {
	tx, err := NewTransactor(NewStore()).Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback(context.Background())

	_, err = tx.Exec(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, errSQLUnsupported)
	var n int
	assert.ErrorIs(t, tx.QueryRow(context.Background(), "SELECT 1").Scan(&n), errSQLUnsupported)
}

// seed commits accounts through a throwaway transaction.
func seed(t *testing.T, store *Store, accounts ...*domain.Account) {
	t.Helper()
	ctx := context.Background()
	tx, err := NewTransactor(store).Begin(ctx)
	require.NoError(t, err)
	repo := NewAccountRepo(store)
	for _, a := range accounts {
		require.NoError(t, repo.Create(ctx, tx, a))
	}
	require.NoError(t, tx.Commit(ctx))
}
