package service

import (
	"testing"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tamper writes a forged entry straight into storage and bumps the
// receiver's cached balance, the way a compromised database would.
func (h *ledgerHarness) tamper(t *testing.T, entry domain.LedgerEntry) {
	t.Helper()
	tx, err := h.stores.Transactor.Begin(h.ctx)
	require.NoError(t, err)
	defer tx.Rollback(h.ctx) //nolint:errcheck

	require.NoError(t, h.ledger.Append(h.ctx, tx, &entry))
	receiver, err := h.accounts.GetByIDForUpdate(h.ctx, tx, entry.ReceiverID)
	require.NoError(t, err)
	require.NoError(t, h.accounts.UpdateBalance(h.ctx, tx, entry.ReceiverID, receiver.Balance.Add(entry.Amount)))
	require.NoError(t, tx.Commit(h.ctx))
}

func TestReconcileService_Consistent(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	alice := h.openAccount(t, "alice", "100")
	h.openAccount(t, "bob", "0")
	h.fundFloat(t, "500")

	_, err := h.engine.Transfer(h.ctx, ports.TransferRequest{Entry: alice.entry(t, "bob", "40", domain.EntryKindPeerTransfer)})
	require.NoError(t, err)
	_, err = h.vaults.Dispatch(h.ctx, ports.DispatchRequest{VaultID: "FLOAT", TargetID: "bob", Amount: dec("25"), Actor: authorityActor})
	require.NoError(t, err)

	report, err := h.reconcile.Reconcile(h.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", report.AccountID)
	assert.Equal(t, 2, report.EntryCount)
	assert.Equal(t, 1, report.VerifiedCount)
	assert.Equal(t, 1, report.AuthorityCount)
	assert.True(t, report.ComputedBalance.Equal(dec("65")))
	assert.True(t, report.CachedBalance.Equal(dec("65")))
	assert.True(t, report.IsConsistent)
	assert.Empty(t, report.AnomalousEntryIDs)

	again, err := h.reconcile.Reconcile(h.ctx, "bob")
	require.NoError(t, err)
	assert.True(t, again.ComputedBalance.Equal(report.ComputedBalance))
	assert.Equal(t, report.IsConsistent, again.IsConsistent)

	for _, id := range []string{"alice", "GENESIS", "FLOAT", "SYSTEM"} {
		r, err := h.reconcile.Reconcile(h.ctx, id)
		require.NoError(t, err)
		assert.Truef(t, r.IsConsistent, "%s computed %s cached %s", id, r.ComputedBalance, r.CachedBalance)
	}

	inconsistent, err := h.reconcile.ReconcileAll(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, inconsistent)
}

func TestReconcileService_TamperedEntry(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	alice := h.openAccount(t, "alice", "100")
	h.openAccount(t, "bob", "0")

	_, err := h.engine.Transfer(h.ctx, ports.TransferRequest{Entry: alice.entry(t, "bob", "10", domain.EntryKindPeerTransfer)})
	require.NoError(t, err)

	forged := alice.entry(t, "bob", "5", domain.EntryKindPeerTransfer)
	forged.Amount = dec("50")
	forged.Hash = forged.CanonicalPayload()
	h.tamper(t, forged)

	report, err := h.reconcile.Reconcile(h.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, report.EntryCount)
	assert.Equal(t, []string{forged.ID}, report.AnomalousEntryIDs)
	assert.True(t, report.ComputedBalance.Equal(dec("10")))
	assert.True(t, report.CachedBalance.Equal(dec("60")))
	assert.False(t, report.IsConsistent)

	replayed, err := h.reconcile.ProjectBalance(h.ctx, "bob", true)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(dec("10")))
	cached, err := h.reconcile.ProjectBalance(h.ctx, "bob", false)
	require.NoError(t, err)
	assert.True(t, cached.Equal(dec("60")))

	inconsistent, err := h.reconcile.ReconcileAll(h.ctx)
	require.NoError(t, err)
	require.Len(t, inconsistent, 2)
	ids := []string{inconsistent[0].AccountID, inconsistent[1].AccountID}
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)
}

func TestReconcileService_DriftWithoutAnomaly(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	h.openAccount(t, "alice", "100")

	tx, err := h.stores.Transactor.Begin(h.ctx)
	require.NoError(t, err)
	require.NoError(t, h.accounts.UpdateBalance(h.ctx, tx, "alice", dec("100.5")))
	require.NoError(t, tx.Commit(h.ctx))

	report, err := h.reconcile.Reconcile(h.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, report.AnomalousEntryIDs)
	assert.True(t, report.ComputedBalance.Equal(dec("100")))
	assert.False(t, report.IsConsistent)
}

func TestReconcileService_NotFound(t *testing.T) {
	h := newLedgerHarness(t)

	_, err := h.reconcile.Reconcile(h.ctx, "ghost")
	requireCode(t, err, apperror.CodeNotFound)

	_, err = h.reconcile.ProjectBalance(h.ctx, "ghost", false)
	requireCode(t, err, apperror.CodeNotFound)
}
