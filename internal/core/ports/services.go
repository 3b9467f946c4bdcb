package ports

import (
	"context"
	"time"

	"value-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// --- Infrastructure Ports ---

// ReferenceCipher seals bridge payment references at rest. A sealed value
// only opens for the order it was sealed for.
type ReferenceCipher interface {
	Seal(orderID, plaintext string) (string, error)
	Open(orderID, sealed string) (string, error)
}

// NotificationSigner authenticates outbound settlement notifications.
type NotificationSigner interface {
	SignDelivery(secret string, delivery *domain.NotificationDelivery, timestamp int64) string
	VerifyDelivery(secret string, delivery *domain.NotificationDelivery, timestamp int64, signature string) bool
}

// HashService handles credential hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles session JWT operations.
type TokenService interface {
	Generate(accountID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID string
	SessionID string
	Mode      domain.NetworkMode
	ExpiresAt time.Time
}

// SigningService produces and checks detached ed25519 signatures over
// canonical payloads. Keys and signatures are base64.
type SigningService interface {
	Sign(session *domain.SigningSession, payload string) (string, error)
	Verify(payload string, signature string, publicKey string) bool
	// SignEntry fills the sender key, hash and signature of entry.
	SignEntry(session *domain.SigningSession, entry *domain.LedgerEntry) error
	VerifyEntry(entry *domain.LedgerEntry) bool
}

// EntryCache is the Redis-layer duplicate-entry check (fast path).
type EntryCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached entry JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages signing nonce uniqueness for replay protection.
type NonceStore interface {
	// Claim binds nonce to entryID for senderID. Returns true if the nonce
	// is new or already bound to the same entry, false if another entry holds it.
	Claim(ctx context.Context, senderID, nonce, entryID string, ttl time.Duration) (bool, error)
}

// RateLimitStore counts requests in fixed windows.
type RateLimitStore interface {
	// Increment bumps the counter for key and returns the count in the current window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// EventPublisher pushes committed ledger events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.LedgerEvent) error
}

// EventSubscriber streams ledger events until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.LedgerEvent, error)
}

// NotificationSink forwards settlement events to the external notifier.
type NotificationSink interface {
	Notify(ctx context.Context, event *domain.LedgerEvent) error
}

// AuditService records security and administrative actions (fire-and-forget).
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// TransferService is the transfer engine entry point for peer sends.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.LedgerEntry, error)
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, params EntryListParams) ([]domain.LedgerEntry, int64, error)
}

// TransferRequest carries a client-signed entry.
type TransferRequest struct {
	Entry    domain.LedgerEntry
	ActorID  string // authenticated account, must equal the sender
	ClientIP string
}

// VaultService exposes treasury vault custody.
type VaultService interface {
	CreateVault(ctx context.Context, req CreateVaultRequest) (*domain.Vault, error)
	GetVault(ctx context.Context, id string) (*domain.Vault, error)
	ListVaults(ctx context.Context) ([]domain.Vault, error)
	Lock(ctx context.Context, vaultID string, actor Actor) (*domain.Vault, error)
	Unlock(ctx context.Context, vaultID string, actor Actor) (*domain.Vault, error)
	Dispatch(ctx context.Context, req DispatchRequest) (*domain.LedgerEntry, error)
	Rebalance(ctx context.Context, req RebalanceRequest) (*domain.LedgerEntry, error)
}

// Actor identifies who triggered an administrative action.
type Actor struct {
	ID        string
	Authority bool
	ClientIP  string
}

// CreateVaultRequest holds input for a special-purpose vault.
type CreateVaultRequest struct {
	ID        string
	Name      string
	Type      domain.VaultType
	PublicKey string
	Actor     Actor
}

// DispatchRequest moves value from a vault to a target. Entry is optional:
// when nil the authority session builds and signs one.
type DispatchRequest struct {
	VaultID  string
	TargetID string
	Amount   decimal.Decimal
	Entry    *domain.LedgerEntry
	Actor    Actor
}

// RebalanceRequest moves value between two vaults.
type RebalanceRequest struct {
	FromVaultID string
	ToVaultID   string
	Amount      decimal.Decimal
	Actor       Actor
}

// OnboardingService bootstraps the economy and registers accounts.
type OnboardingService interface {
	Genesis(ctx context.Context, req GenesisRequest) (*domain.EconomyState, error)
	OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// GenesisRequest holds the initial supply and backing.
type GenesisRequest struct {
	TotalSupply decimal.Decimal
	USDBacking  decimal.Decimal
	Actor       Actor
}

// OpenAccountRequest registers an ordinary account.
type OpenAccountRequest struct {
	ID           string
	PublicKey    string
	GenesisStake decimal.Decimal
	Actor        Actor
}

// BridgeService manages bridge order settlement.
type BridgeService interface {
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*domain.BridgeOrder, error)
	CreateLiquidation(ctx context.Context, req CreateLiquidationRequest) (*domain.BridgeOrder, error)
	SubmitPaymentReference(ctx context.Context, orderID, userID, reference string) (*domain.BridgeOrder, error)
	Confirm(ctx context.Context, orderID string, actor Actor) (*domain.BridgeOrder, error)
	Reject(ctx context.Context, orderID string, actor Actor) (*domain.BridgeOrder, error)
	Claim(ctx context.Context, orderID, claimerID string) (*domain.BridgeOrder, error)
	MarkDispatched(ctx context.Context, orderID, claimerID, payoutProof string) (*domain.BridgeOrder, error)
	Complete(ctx context.Context, orderID string, actor Actor) (*domain.BridgeOrder, error)
	Cancel(ctx context.Context, orderID string, actor Actor) (*domain.BridgeOrder, error)
	Get(ctx context.Context, orderID string, viewer Actor) (*domain.BridgeOrder, error)
	ListByUser(ctx context.Context, userID string) ([]domain.BridgeOrder, error)
}

// CreatePurchaseRequest opens a purchase order.
type CreatePurchaseRequest struct {
	UserID        string
	USDValue      decimal.Decimal
	AssetAmount   decimal.Decimal
	PaymentMethod domain.PaymentMethod
}

// CreateLiquidationRequest opens a liquidation order with the user's signed
// BRIDGE_OUT entry towards the liquidity vault.
type CreateLiquidationRequest struct {
	UserID        string
	USDValue      decimal.Decimal
	PaymentMethod domain.PaymentMethod
	Entry         domain.LedgerEntry
	ClientIP      string
}

// OracleService maintains the economy state.
type OracleService interface {
	SyncPrice(ctx context.Context) (*domain.EconomyState, error)
	InjectBacking(ctx context.Context, usd decimal.Decimal, actor Actor) (*domain.EconomyState, error)
	OpenRedemptionWindow(ctx context.Context, closesAt *time.Time, actor Actor) (*domain.EconomyState, error)
	CloseRedemptionWindow(ctx context.Context, actor Actor) (*domain.EconomyState, error)
	Get(ctx context.Context) (*domain.EconomyState, error)
}

// ReconcileService replays ledger history against cached balances.
type ReconcileService interface {
	Reconcile(ctx context.Context, partyID string) (*domain.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]domain.ReconcileReport, error)
	// ProjectBalance returns the cached mirror, or the replayed fold when replayed is true.
	ProjectBalance(ctx context.Context, partyID string, replayed bool) (decimal.Decimal, error)
}

// VouchService records trust attestations.
type VouchService interface {
	Vouch(ctx context.Context, req VouchRequest) (*domain.VouchRecord, error)
	ListForAccount(ctx context.Context, accountID string) ([]domain.VouchRecord, error)
}

// VouchRequest carries a client-signed zero-amount VOUCH entry.
type VouchRequest struct {
	Entry    domain.LedgerEntry
	ActorID  string
	ClientIP string
}

// SessionService opens API sessions after a key-possession challenge.
type SessionService interface {
	Open(ctx context.Context, req OpenSessionRequest) (string, time.Time, error)
}

// OpenSessionRequest is a signed SESSION challenge.
type OpenSessionRequest struct {
	AccountID string
	Timestamp int64 // unix ms
	Nonce     string
	Signature string
	ClientIP  string
}
