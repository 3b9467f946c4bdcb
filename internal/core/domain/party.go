package domain

import "github.com/shopspring/decimal"

// PartyKind tells which table a ledger participant lives in.
type PartyKind string

const (
	PartyKindAccount PartyKind = "ACCOUNT"
	PartyKindVault   PartyKind = "VAULT"
)

// Party is the resolved view of a sender or receiver id. Entries address
// accounts and vaults through the same id space.
type Party struct {
	Kind      PartyKind
	ID        string
	PublicKey string
	Balance   decimal.Decimal
	Locked    bool
	Authority bool
	// GenesisBalance is the stake or vault seed recorded before any entry.
	GenesisBalance decimal.Decimal
}

// AccountParty wraps an account.
func AccountParty(a *Account) Party {
	return Party{
		Kind:           PartyKindAccount,
		ID:             a.ID,
		PublicKey:      a.PublicKey,
		Balance:        a.Balance,
		Authority:      a.IsAuthority(),
		GenesisBalance: a.GenesisStake,
	}
}

// VaultParty wraps a vault. Every vault is authority controlled.
func VaultParty(v *Vault) Party {
	return Party{
		Kind:           PartyKindVault,
		ID:             v.ID,
		PublicKey:      v.PublicKey,
		Balance:        v.Balance,
		Locked:         v.IsLocked,
		Authority:      true,
		GenesisBalance: v.GenesisBalance,
	}
}

// IsVault returns true when the party is a treasury vault.
func (p Party) IsVault() bool {
	return p.Kind == PartyKindVault
}

// UnlimitedIssuance reports whether the party may send past a zero balance.
// Only authority accounts issue; vaults are bounded by what they hold.
func (p Party) UnlimitedIssuance() bool {
	return p.Kind == PartyKindAccount && p.Authority
}

// IsAuthorityOrigin is the single rule deciding which entries skip signature
// verification: entries sent by an authority account or vault, and entries of
// a kind only the authority produces.
func IsAuthorityOrigin(sender Party, kind EntryKind) bool {
	if sender.Authority {
		return true
	}
	return kind == EntryKindSystemMint || kind == EntryKindBridgeIn || kind == EntryKindBridgeRefund
}
