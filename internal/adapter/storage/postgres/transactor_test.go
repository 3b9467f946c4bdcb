package postgres

import (
	"context"
	"testing"

	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_BeginsSerializable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit()

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)
	assert.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_CommitSerializationFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)

	err = tx.Commit(context.Background())
	assert.True(t, apperror.Is(err, apperror.CodeConcurrentConflict))
}

func TestTransactor_CommitOtherFailurePassesThrough(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "08006"})

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)

	err = tx.Commit(context.Background())
	require.Error(t, err)
	assert.False(t, apperror.Is(err, apperror.CodeConcurrentConflict))
}

func TestClassify(t *testing.T) {
	assert.True(t, apperror.Is(classify(&pgconn.PgError{Code: "40001"}), apperror.CodeConcurrentConflict))
	assert.True(t, apperror.Is(classify(&pgconn.PgError{Code: "40P01"}), apperror.CodeConcurrentConflict))
	assert.False(t, apperror.Is(classify(&pgconn.PgError{Code: "23505"}), apperror.CodeConcurrentConflict))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.Nil(t, classify(nil))
}
