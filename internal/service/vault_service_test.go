package service

import (
	"testing"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultService_DispatchFromLockedVault(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	h.openAccount(t, "alice", "0")
	h.fundFloat(t, "500")

	vault, err := h.vaults.Lock(h.ctx, "FLOAT", authorityActor)
	require.NoError(t, err)
	assert.True(t, vault.IsLocked)

	_, err = h.vaults.Dispatch(h.ctx, ports.DispatchRequest{
		VaultID:  "FLOAT",
		TargetID: "alice",
		Amount:   dec("100"),
		Actor:    authorityActor,
	})
	requireCode(t, err, apperror.CodeVaultLocked)
	assert.True(t, h.balance(t, "FLOAT").Equal(dec("500")))
	assert.True(t, h.balance(t, "alice").IsZero())

	_, err = h.vaults.Unlock(h.ctx, "FLOAT", authorityActor)
	require.NoError(t, err)

	entry, err := h.vaults.Dispatch(h.ctx, ports.DispatchRequest{
		VaultID:  "FLOAT",
		TargetID: "alice",
		Amount:   dec("100"),
		Actor:    authorityActor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryKindAdminDispatch, entry.Kind)
	assert.True(t, h.balance(t, "FLOAT").Equal(dec("400")))
	assert.True(t, h.balance(t, "alice").Equal(dec("100")))
}

func TestVaultService_LockedVaultStillReceives(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")

	_, err := h.vaults.Lock(h.ctx, "FLOAT", authorityActor)
	require.NoError(t, err)

	h.fundFloat(t, "250")
	assert.True(t, h.balance(t, "FLOAT").Equal(dec("250")))
}

func TestVaultService_Dispatch_ExceedsBalance(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	h.openAccount(t, "alice", "0")
	h.fundFloat(t, "50")

	_, err := h.vaults.Dispatch(h.ctx, ports.DispatchRequest{
		VaultID:  "FLOAT",
		TargetID: "alice",
		Amount:   dec("50.5"),
		Actor:    authorityActor,
	})
	requireCode(t, err, apperror.CodeInsufficientFunds)
}

func TestVaultService_Dispatch_SuppliedEntry(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	h.openAccount(t, "alice", "0")
	h.fundFloat(t, "500")

	entry, err := h.authority.BuildEntry("FLOAT", "alice", dec("20"), domain.EntryKindAdminDispatch, "")
	require.NoError(t, err)

	t.Run("mismatched target", func(t *testing.T) {
		_, err := h.vaults.Dispatch(h.ctx, ports.DispatchRequest{VaultID: "FLOAT", TargetID: "bob", Entry: entry, Actor: authorityActor})
		requireCode(t, err, apperror.CodeInvalidAmount)
	})

	t.Run("mismatched amount", func(t *testing.T) {
		_, err := h.vaults.Dispatch(h.ctx, ports.DispatchRequest{VaultID: "FLOAT", TargetID: "alice", Amount: dec("21"), Entry: entry, Actor: authorityActor})
		requireCode(t, err, apperror.CodeInvalidAmount)
	})

	t.Run("matching entry", func(t *testing.T) {
		recorded, err := h.vaults.Dispatch(h.ctx, ports.DispatchRequest{VaultID: "FLOAT", TargetID: "alice", Entry: entry, Actor: authorityActor})
		require.NoError(t, err)
		assert.Equal(t, entry.ID, recorded.ID)
	})

	assert.True(t, h.balance(t, "alice").Equal(dec("20")))
}

func TestVaultService_Forbidden(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	user := ports.Actor{ID: "alice"}

	_, err := h.vaults.Lock(h.ctx, "FLOAT", user)
	requireCode(t, err, apperror.CodeForbidden)

	_, err = h.vaults.Dispatch(h.ctx, ports.DispatchRequest{VaultID: "FLOAT", TargetID: "alice", Amount: dec("1"), Actor: user})
	requireCode(t, err, apperror.CodeForbidden)

	_, err = h.vaults.Rebalance(h.ctx, ports.RebalanceRequest{FromVaultID: "GENESIS", ToVaultID: "FLOAT", Amount: dec("1"), Actor: user})
	requireCode(t, err, apperror.CodeForbidden)

	_, err = h.vaults.CreateVault(h.ctx, ports.CreateVaultRequest{ID: "OPS", Name: "ops", Type: domain.VaultTypeSpecial, Actor: user})
	requireCode(t, err, apperror.CodeForbidden)
}

func TestVaultService_Lock_NotFound(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")

	_, err := h.vaults.Lock(h.ctx, "NOPE", authorityActor)
	requireCode(t, err, apperror.CodeNotFound)
}

func TestVaultService_Rebalance_SyncsEconomy(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")

	h.fundFloat(t, "1000")

	state, err := h.oracle.Get(h.ctx)
	require.NoError(t, err)
	assert.True(t, state.CirculatingSupply.Equal(dec("1000")))
	assert.True(t, state.UnitPrice.Equal(dec("1")))
	assert.True(t, h.totalHeld(t).Equal(dec("1000000")))

	_, err = h.vaults.Rebalance(h.ctx, ports.RebalanceRequest{FromVaultID: "FLOAT", ToVaultID: "FLOAT", Amount: dec("1"), Actor: authorityActor})
	requireCode(t, err, apperror.CodeSelfTransfer)

	_, err = h.vaults.Rebalance(h.ctx, ports.RebalanceRequest{FromVaultID: "FLOAT", ToVaultID: "alice", Amount: dec("1"), Actor: authorityActor})
	requireCode(t, err, apperror.CodeNotFound)
}

func TestVaultService_CreateVault(t *testing.T) {
	h := newLedgerHarness(t)
	h.genesis(t, "1000000", "1000")
	h.openAccount(t, "alice", "0")

	vault, err := h.vaults.CreateVault(h.ctx, ports.CreateVaultRequest{
		ID:    "OPS",
		Name:  "Operations",
		Type:  domain.VaultTypeSpecial,
		Actor: authorityActor,
	})
	require.NoError(t, err)
	assert.Equal(t, h.authority.PublicKey(), vault.PublicKey)
	assert.True(t, vault.Balance.IsZero())

	got, err := h.vaults.GetVault(h.ctx, "OPS")
	require.NoError(t, err)
	assert.Equal(t, "Operations", got.Name)

	vaults, err := h.vaults.ListVaults(h.ctx)
	require.NoError(t, err)
	assert.Len(t, vaults, 3)

	tests := []struct {
		name string
		req  ports.CreateVaultRequest
	}{
		{"issuance type", ports.CreateVaultRequest{ID: "MINT2", Name: "x", Type: domain.VaultTypeIssuance}},
		{"unknown type", ports.CreateVaultRequest{ID: "X", Name: "x", Type: "PIGGY"}},
		{"missing name", ports.CreateVaultRequest{ID: "X", Type: domain.VaultTypeSpecial}},
		{"bad key", ports.CreateVaultRequest{ID: "X", Name: "x", Type: domain.VaultTypeSpecial, PublicKey: "short"}},
		{"id taken by vault", ports.CreateVaultRequest{ID: "OPS", Name: "x", Type: domain.VaultTypeSpecial}},
		{"id taken by account", ports.CreateVaultRequest{ID: "alice", Name: "x", Type: domain.VaultTypeSpecial}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Actor = authorityActor
			_, err := h.vaults.CreateVault(h.ctx, tt.req)
			requireCode(t, err, apperror.CodeInvalidAmount)
		})
	}
}

func TestVaultService_GetVault_NotFound(t *testing.T) {
	h := newLedgerHarness(t)

	_, err := h.vaults.GetVault(h.ctx, "FLOAT")
	requireCode(t, err, apperror.CodeNotFound)
}
