package ports

import (
	"context"

	"value-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Lookups return (nil, nil) when the row does not exist.
// Methods accepting pgx.Tx run inside a serializable transaction; the
// ForUpdate variants take a row lock for the rest of it.

// AccountRepository defines persistence operations for ledger accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error
	// AddCredibility raises the credibility score by delta and the vouch count by one.
	AddCredibility(ctx context.Context, tx pgx.Tx, id string, delta int) error
	ListIDs(ctx context.Context) ([]string, error)
}

// VaultRepository defines persistence operations for treasury vaults.
type VaultRepository interface {
	Create(ctx context.Context, tx pgx.Tx, vault *domain.Vault) error
	GetByID(ctx context.Context, id string) (*domain.Vault, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Vault, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error
	SetLocked(ctx context.Context, tx pgx.Tx, id string, locked bool) error
	List(ctx context.Context) ([]domain.Vault, error)
}

// LedgerRepository is the append-only entry store.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	Exists(ctx context.Context, tx pgx.Tx, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	// ListByParty returns every entry where partyID is sender or receiver,
	// ordered by logical timestamp then recording time.
	ListByParty(ctx context.Context, partyID string) ([]domain.LedgerEntry, error)
	ListByPartyPage(ctx context.Context, params EntryListParams) ([]domain.LedgerEntry, int64, error)
}

// EntryListParams holds filter + pagination for listing a party's entries.
type EntryListParams struct {
	PartyID  string
	Kind     *domain.EntryKind
	From     *int64 // logical timestamp, ms
	To       *int64 // logical timestamp, ms
	Page     int
	PageSize int
}

// EconomyRepository persists the EconomyState singleton.
type EconomyRepository interface {
	Get(ctx context.Context) (*domain.EconomyState, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error)
	Save(ctx context.Context, tx pgx.Tx, state *domain.EconomyState) error
}

// BridgeOrderRepository defines persistence operations for bridge orders.
type BridgeOrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.BridgeOrder) error
	GetByID(ctx context.Context, id string) (*domain.BridgeOrder, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.BridgeOrder, error)
	Update(ctx context.Context, tx pgx.Tx, order *domain.BridgeOrder) error
	ListByUser(ctx context.Context, userID string) ([]domain.BridgeOrder, error)
}

// VouchRepository defines persistence operations for vouch records.
type VouchRepository interface {
	Create(ctx context.Context, tx pgx.Tx, vouch *domain.VouchRecord) error
	ExistsForPair(ctx context.Context, tx pgx.Tx, fromID, toID string) (bool, error)
	ListForAccount(ctx context.Context, toID string) ([]domain.VouchRecord, error)
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, params AuditListParams) ([]domain.AuditLog, int64, error)
}

// AuditListParams holds filter + pagination for listing audit logs.
type AuditListParams struct {
	Action     *domain.AuditAction
	ResourceID string
	Page       int
	PageSize   int
}

// NotificationRepository records settlement notification deliveries.
type NotificationRepository interface {
	Create(ctx context.Context, delivery *domain.NotificationDelivery) error
	Update(ctx context.Context, delivery *domain.NotificationDelivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.NotificationDelivery, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.NotificationDelivery, error)
}

// DBTransactor provides serializable transaction management.
// Commit surfaces serialization failures as ConcurrentConflict.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
