package postgres

import (
	"context"
	"testing"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(id string) *domain.LedgerEntry {
	e := &domain.LedgerEntry{
		ID:              id,
		SenderID:        "alice",
		ReceiverID:      "bob",
		Amount:          dec("40"),
		Timestamp:       1700000000000,
		Nonce:           "n-" + id,
		Signature:       "c2ln",
		SenderPublicKey: "cHViLWtleQ==",
		Kind:            domain.EntryKindPeerTransfer,
		Mode:            domain.NetworkModeTestnet,
		RecordedAt:      testNow(),
	}
	e.Hash = e.CanonicalPayload()
	return e
}

func entryRows(entries ...*domain.LedgerEntry) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "sender_id", "receiver_id", "amount", "logical_ts", "nonce", "signature", "hash",
		"sender_public_key", "parent_hash", "kind", "mode", "recorded_at"})
	for _, e := range entries {
		rows.AddRow(e.ID, e.SenderID, e.ReceiverID, e.Amount, e.Timestamp, e.Nonce, e.Signature, e.Hash,
			e.SenderPublicKey, e.ParentHash, e.Kind, e.Mode, e.RecordedAt)
	}
	return rows
}

func TestLedgerRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry("e-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(e.ID, e.SenderID, e.ReceiverID, e.Amount, e.Timestamp, e.Nonce, e.Signature, e.Hash,
			e.SenderPublicKey, e.ParentHash, e.Kind, e.Mode, e.RecordedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Append(context.Background(), tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Append_DuplicateID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry("e-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(anyArgs(13)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_pkey"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, e)
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateEntry))
}

func TestLedgerRepo_Exists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("e-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	exists, err := repo.Exists(context.Background(), tx, "e-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLedgerRepo_ListByParty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	first := newTestEntry("e-1")
	second := newTestEntry("e-2")
	second.Timestamp++

	mock.ExpectQuery("SELECT .+ FROM ledger_entries\\s+WHERE sender_id = \\$1 OR receiver_id = \\$1\\s+ORDER BY logical_ts ASC").
		WithArgs("alice").
		WillReturnRows(entryRows(first, second))

	entries, err := repo.ListByParty(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e-1", entries[0].ID)
	assert.True(t, entries[1].Amount.Equal(dec("40")))
	assert.Equal(t, domain.EntryKindPeerTransfer, entries[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByPartyPage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	kind := domain.EntryKindPeerTransfer

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("alice", kind).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries .+ LIMIT").
		WithArgs("alice", kind, 2, 2).
		WillReturnRows(entryRows(newTestEntry("e-3")))

	entries, total, err := repo.ListByPartyPage(context.Background(), ports.EntryListParams{
		PartyID: "alice", Kind: &kind, Page: 2, PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "e-3", entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE id").
		WithArgs("missing").
		WillReturnRows(entryRows())

	e, err := repo.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, e)
}
