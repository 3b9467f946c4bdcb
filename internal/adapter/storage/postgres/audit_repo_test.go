package postgres

import (
	"context"
	"testing"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      strPtr("SYSTEM"),
		Action:       domain.AuditActionVaultLocked,
		ResourceType: "vault",
		ResourceID:   "FLOAT",
		Details:      `{"locked":true}`,
		IPAddress:    "10.0.0.1",
		CreatedAt:    testNow(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.ActorID, string(entry.Action), entry.ResourceType,
			entry.ResourceID, entry.Details, entry.IPAddress, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_List_FilteredByAction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	action := domain.AuditActionSignatureRejected
	id := uuid.New()
	now := testNow()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audit_logs WHERE action").
		WithArgs(string(action)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE action .+ LIMIT").
		WithArgs(string(action), 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "actor_id", "action", "resource_type", "resource_id", "details", "ip_address", "created_at"}).
			AddRow(id, strPtr("alice"), string(action), "ledger_entry", "e-1", `{}`, "10.0.0.2", now))

	logs, total, err := repo.List(context.Background(), ports.AuditListParams{Action: &action, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditActionSignatureRejected, logs[0].Action)
	assert.Equal(t, "e-1", logs[0].ResourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
