package postgres

import (
	"context"
	"testing"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func economyRows(states ...*domain.EconomyState) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"total_supply", "circulating_supply", "usd_backing", "unit_price", "last_synced_at",
		"redemption_window_open", "redemption_window_opens_at", "redemption_window_closes_at"})
	for _, s := range states {
		rows.AddRow(s.TotalSupply, s.CirculatingSupply, s.USDBacking, s.UnitPrice, s.LastSyncedAt,
			s.RedemptionWindowOpen, s.RedemptionWindowOpensAt, s.RedemptionWindowClosesAt)
	}
	return rows
}

func newTestEconomy() *domain.EconomyState {
	return &domain.EconomyState{
		TotalSupply:       dec("1000000"),
		CirculatingSupply: dec("1000"),
		USDBacking:        dec("1"),
		UnitPrice:         dec("0.001"),
		LastSyncedAt:      testNow(),
	}
}

func TestEconomyRepo_Get_BeforeGenesis(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEconomyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM economy_state WHERE id = 1").
		WillReturnRows(economyRows())

	s, err := repo.Get(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestEconomyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEconomyRepo(mock)
	state := newTestEconomy()
	closes := testNow().Add(24 * time.Hour)
	state.RedemptionWindowOpen = true
	state.RedemptionWindowClosesAt = &closes

	mock.ExpectQuery("SELECT .+ FROM economy_state WHERE id = 1").
		WillReturnRows(economyRows(state))

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.UnitPrice.Equal(dec("0.001")))
	assert.True(t, s.RedemptionWindowOpen)
	require.NotNil(t, s.RedemptionWindowClosesAt)
	assert.Equal(t, closes, *s.RedemptionWindowClosesAt)
}

func TestEconomyRepo_GetForUpdate_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEconomyRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM economy_state WHERE id = 1 FOR UPDATE").
		WillReturnError(&pgconn.PgError{Code: "40P01"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.GetForUpdate(context.Background(), tx)
	assert.True(t, apperror.Is(err, apperror.CodeConcurrentConflict))
}

func TestEconomyRepo_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEconomyRepo(mock)
	s := newTestEconomy()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO economy_state .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(s.TotalSupply, s.CirculatingSupply, s.USDBacking, s.UnitPrice, s.LastSyncedAt,
			s.RedemptionWindowOpen, s.RedemptionWindowOpensAt, s.RedemptionWindowClosesAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Save(context.Background(), tx, s))
	assert.NoError(t, mock.ExpectationsWereMet())
}
