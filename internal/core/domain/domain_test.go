package domain

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCanonicalPayload(t *testing.T) {
	payload := CanonicalPayload("alice", "bob", dec("40.00"), 1700000000000, "n-1", EntryKindPeerTransfer)
	assert.Equal(t, "alice|bob|40|1700000000000|n-1|PEER_TRANSFER", payload)

	e := &LedgerEntry{
		SenderID: "alice", ReceiverID: "bob", Amount: dec("40"),
		Timestamp: 1700000000000, Nonce: "n-1", Kind: EntryKindPeerTransfer,
	}
	assert.Equal(t, payload, e.CanonicalPayload())
}

func TestLedgerEntry_DeltaFor(t *testing.T) {
	e := &LedgerEntry{SenderID: "a", ReceiverID: "b", Amount: dec("12.5")}

	assert.True(t, e.DeltaFor("a").Equal(dec("-12.5")))
	assert.True(t, e.DeltaFor("b").Equal(dec("12.5")))
	assert.True(t, e.DeltaFor("c").IsZero())
	assert.True(t, e.Involves("a"))
	assert.False(t, e.Involves("c"))
}

func TestEntryKind_IsValid(t *testing.T) {
	assert.True(t, EntryKindVouch.IsValid())
	assert.True(t, EntryKindBridgeOut.IsValid())
	assert.False(t, EntryKind("MINT").IsValid())
}

func TestIsAuthorityOrigin(t *testing.T) {
	ordinary := AccountParty(&Account{ID: "u1", Role: AccountRoleOrdinary})
	authority := AccountParty(&Account{ID: "SYSTEM", Role: AccountRoleAuthority})
	vault := VaultParty(&Vault{ID: "FLOAT", Type: VaultTypeLiquidity})

	tests := []struct {
		name   string
		sender Party
		kind   EntryKind
		want   bool
	}{
		{"ordinary peer transfer", ordinary, EntryKindPeerTransfer, false},
		{"ordinary vouch", ordinary, EntryKindVouch, false},
		{"ordinary bridge out", ordinary, EntryKindBridgeOut, false},
		{"authority account", authority, EntryKindPeerTransfer, true},
		{"vault dispatch", vault, EntryKindAdminDispatch, true},
		{"system mint kind", ordinary, EntryKindSystemMint, true},
		{"bridge in kind", ordinary, EntryKindBridgeIn, true},
		{"bridge refund from vault", vault, EntryKindBridgeRefund, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorityOrigin(tt.sender, tt.kind))
		})
	}
}

func TestParty_UnlimitedIssuance(t *testing.T) {
	assert.True(t, AccountParty(&Account{Role: AccountRoleAuthority}).UnlimitedIssuance())
	assert.False(t, AccountParty(&Account{Role: AccountRoleOrdinary}).UnlimitedIssuance())
	assert.False(t, VaultParty(&Vault{}).UnlimitedIssuance())
}

func TestVaultParty_CarriesLock(t *testing.T) {
	p := VaultParty(&Vault{ID: "FLOAT", IsLocked: true, Balance: dec("500"), GenesisBalance: dec("500")})

	assert.True(t, p.IsVault())
	assert.True(t, p.Locked)
	assert.True(t, p.Balance.Equal(dec("500")))
	assert.True(t, p.GenesisBalance.Equal(dec("500")))
}

func TestEconomyState_Recompute(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &EconomyState{TotalSupply: dec("15000000"), USDBacking: dec("1000")}

	s.Recompute(dec("14000000"), now)

	assert.True(t, s.CirculatingSupply.Equal(dec("1000000")))
	assert.True(t, s.UnitPrice.Equal(dec("0.001")), s.UnitPrice.String())
	assert.Equal(t, now, s.LastSyncedAt)

	first := s.UnitPrice
	s.Recompute(dec("14000000"), now.Add(time.Minute))
	assert.True(t, first.Equal(s.UnitPrice))
}

func TestUnitPrice_NoCirculation(t *testing.T) {
	assert.True(t, UnitPrice(dec("250"), decimal.Zero).Equal(dec("250")))
	assert.True(t, UnitPrice(dec("250"), dec("0.5")).Equal(dec("250")))
}

func TestEconomyState_RedemptionOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		state EconomyState
		want  bool
	}{
		{"closed flag", EconomyState{RedemptionWindowOpen: false}, false},
		{"open without bounds", EconomyState{RedemptionWindowOpen: true}, true},
		{"open inside bounds", EconomyState{RedemptionWindowOpen: true, RedemptionWindowOpensAt: &past, RedemptionWindowClosesAt: &future}, true},
		{"not yet open", EconomyState{RedemptionWindowOpen: true, RedemptionWindowOpensAt: &future}, false},
		{"already closed", EconomyState{RedemptionWindowOpen: true, RedemptionWindowClosesAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.RedemptionOpen(now))
		})
	}
}

func TestNextBridgeStatus(t *testing.T) {
	tests := []struct {
		name      string
		direction BridgeDirection
		from      BridgeStatus
		action    BridgeAction
		want      BridgeStatus
		ok        bool
	}{
		{"purchase submit", BridgeDirectionPurchase, BridgeStatusPending, BridgeActionSubmitReference, BridgeStatusAwaitingConfirmation, true},
		{"purchase confirm from pending", BridgeDirectionPurchase, BridgeStatusPending, BridgeActionConfirm, BridgeStatusVerified, true},
		{"purchase confirm from awaiting", BridgeDirectionPurchase, BridgeStatusAwaitingConfirmation, BridgeActionConfirm, BridgeStatusVerified, true},
		{"purchase reject", BridgeDirectionPurchase, BridgeStatusAwaitingConfirmation, BridgeActionReject, BridgeStatusRejected, true},
		{"purchase confirm twice", BridgeDirectionPurchase, BridgeStatusVerified, BridgeActionConfirm, "", false},
		{"purchase reject after verify", BridgeDirectionPurchase, BridgeStatusVerified, BridgeActionReject, "", false},
		{"purchase cannot claim", BridgeDirectionPurchase, BridgeStatusPending, BridgeActionClaim, "", false},
		{"liquidation claim", BridgeDirectionLiquidation, BridgeStatusPending, BridgeActionClaim, BridgeStatusClaimed, true},
		{"liquidation dispatch", BridgeDirectionLiquidation, BridgeStatusClaimed, BridgeActionDispatch, BridgeStatusDispatched, true},
		{"liquidation complete", BridgeDirectionLiquidation, BridgeStatusDispatched, BridgeActionComplete, BridgeStatusCompleted, true},
		{"liquidation skip dispatch", BridgeDirectionLiquidation, BridgeStatusClaimed, BridgeActionComplete, "", false},
		{"liquidation cancel claimed", BridgeDirectionLiquidation, BridgeStatusClaimed, BridgeActionCancel, BridgeStatusCancelled, true},
		{"liquidation cancel completed", BridgeDirectionLiquidation, BridgeStatusCompleted, BridgeActionCancel, "", false},
		{"liquidation cannot confirm", BridgeDirectionLiquidation, BridgeStatusPending, BridgeActionConfirm, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextBridgeStatus(tt.direction, tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBridgeOrder_Transition(t *testing.T) {
	now := time.Now().UTC()
	o := &BridgeOrder{Direction: BridgeDirectionPurchase, Status: BridgeStatusPending}

	require.True(t, o.Transition(BridgeActionSubmitReference, now))
	assert.Equal(t, BridgeStatusAwaitingConfirmation, o.Status)
	require.NotNil(t, o.SubmittedAt)
	assert.False(t, o.IsTerminal())

	require.True(t, o.Transition(BridgeActionConfirm, now))
	assert.Equal(t, BridgeStatusVerified, o.Status)
	require.NotNil(t, o.VerifiedAt)
	assert.True(t, o.IsTerminal())

	assert.False(t, o.Transition(BridgeActionReject, now))
	assert.Equal(t, BridgeStatusVerified, o.Status)
	assert.Nil(t, o.RejectedAt)
}

func TestBridgeOrder_CanReveal(t *testing.T) {
	claimer := "carol"
	o := &BridgeOrder{UserID: "alice", Direction: BridgeDirectionLiquidation}

	assert.True(t, o.CanReveal("alice", false))
	assert.True(t, o.CanReveal("SYSTEM", true))
	assert.False(t, o.CanReveal("carol", false))
	assert.False(t, o.CanReveal("", false))

	o.ClaimerID = &claimer
	assert.True(t, o.CanReveal("carol", false))
	assert.False(t, o.CanReveal("dave", false))
}

func TestBridgeOrder_Escrowed(t *testing.T) {
	entryID := "e1"
	purchase := &BridgeOrder{ID: "o1", Direction: BridgeDirectionPurchase, EntryID: &entryID}
	liquidation := &BridgeOrder{ID: "o2", Direction: BridgeDirectionLiquidation}

	assert.False(t, purchase.Escrowed())
	assert.False(t, liquidation.Escrowed())
	liquidation.EntryID = &entryID
	assert.True(t, liquidation.Escrowed())
	assert.Equal(t, "refund-o2", liquidation.RefundEntryID())
}

func TestSigningSession_IsUnlocked(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	now := time.Now()

	s := NewSigningSession("alice", priv, now, time.Minute)
	assert.True(t, s.IsUnlocked(now))
	assert.False(t, s.IsUnlocked(now.Add(2*time.Minute)))

	var nilSession *SigningSession
	assert.False(t, nilSession.IsUnlocked(now))

	pub := priv.Public().(ed25519.PublicKey)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pub), s.PublicKey())
}

func TestSessionChallengePayload(t *testing.T) {
	assert.Equal(t, "SESSION|alice|1700000000000|abc", SessionChallengePayload("alice", 1700000000000, "abc"))
}

func TestLedgerEvent_Concerns(t *testing.T) {
	e := &LedgerEvent{Type: EventTransferCommitted, AccountIDs: []string{"a", "b"}}
	assert.True(t, e.Concerns("b"))
	assert.False(t, e.Concerns("c"))
	assert.False(t, e.Type.IsSettlement())
	assert.True(t, EventBridgeCompleted.IsSettlement())
}

func TestBuildKeys(t *testing.T) {
	assert.Equal(t, "entry:e-1", BuildEntryCacheKey("e-1"))
	assert.Equal(t, "nonce:alice:n-1", BuildNonceKey("alice", "n-1"))
}

func TestVaultType_IsValid(t *testing.T) {
	assert.True(t, VaultTypeSpecial.IsValid())
	assert.False(t, VaultType("RESERVE").IsValid())
}
