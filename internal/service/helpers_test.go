package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"testing"
	"time"

	"value-ledger/internal/adapter/storage/memory"
	redisadapter "value-ledger/internal/adapter/storage/redis"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var authorityActor = ports.Actor{ID: "SYSTEM", Authority: true, ClientIP: "127.0.0.1"}

// testKey is an account's signing identity.
type testKey struct {
	id   string
	priv ed25519.PrivateKey
	pub  string
}

func newTestKey(t *testing.T, id string) *testKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &testKey{id: id, priv: priv, pub: base64.StdEncoding.EncodeToString(pub)}
}

func (k *testKey) session() *domain.SigningSession {
	return domain.NewSigningSession(k.id, k.priv, time.Now(), time.Minute)
}

// entry builds and signs a fresh entry from k.
func (k *testKey) entry(t *testing.T, receiverID, amount string, kind domain.EntryKind) domain.LedgerEntry {
	t.Helper()
	e := domain.LedgerEntry{
		ID:         uuid.NewString(),
		SenderID:   k.id,
		ReceiverID: receiverID,
		Amount:     dec(amount),
		Timestamp:  time.Now().UnixMilli(),
		Nonce:      uuid.NewString(),
		Kind:       kind,
	}
	require.NoError(t, NewEd25519SigningService().SignEntry(k.session(), &e))
	return e
}

// ledgerHarness wires every ledger service over the memory store and a
// miniredis instance.
type ledgerHarness struct {
	ctx        context.Context
	store      *memory.Store
	stores     LedgerStores
	accounts   *memory.AccountRepo
	vaultRepo  *memory.VaultRepo
	ledger     *memory.LedgerRepo
	economy    *memory.EconomyRepo
	redis      *miniredis.Miniredis
	client     *goredis.Client
	settings   LedgerSettings
	signer     *Ed25519SigningService
	authority  *AuthoritySigner
	events     *EventEmitter
	oracle     *OracleServiceImpl
	engine     *TransferEngine
	vaults     *VaultServiceImpl
	onboarding *OnboardingServiceImpl
	bridge     *BridgeServiceImpl
	vouches    *VouchServiceImpl
	reconcile  *ReconcileServiceImpl
}

func newLedgerHarness(t *testing.T) *ledgerHarness {
	return newLedgerHarnessWithSink(t, nil)
}

func newLedgerHarnessWithSink(t *testing.T, sink ports.NotificationSink) *ledgerHarness {
	t.Helper()
	h := &ledgerHarness{ctx: context.Background()}

	h.redis = miniredis.RunT(t)
	h.client = goredis.NewClient(&goredis.Options{Addr: h.redis.Addr()})
	t.Cleanup(func() { h.client.Close() })

	h.store = memory.NewStore()
	h.accounts = memory.NewAccountRepo(h.store)
	h.vaultRepo = memory.NewVaultRepo(h.store)
	h.ledger = memory.NewLedgerRepo(h.store)
	h.economy = memory.NewEconomyRepo(h.store)
	h.stores = LedgerStores{
		Accounts:   h.accounts,
		Vaults:     h.vaultRepo,
		Ledger:     h.ledger,
		Economy:    h.economy,
		Orders:     memory.NewBridgeOrderRepo(h.store),
		Vouches:    memory.NewVouchRepo(h.store),
		Transactor: memory.NewTransactor(h.store),
	}

	settings, err := NewLedgerSettings(testLedgerConfig())
	require.NoError(t, err)
	h.settings = settings

	h.signer = NewEd25519SigningService()
	seed, _, err := GenerateKeyPair()
	require.NoError(t, err)
	h.authority, err = NewAuthoritySigner(settings.SystemAccountID, seed, h.signer)
	require.NoError(t, err)

	log := newTestLogger()
	m := metrics.NewCollector("test")
	h.events = NewEventEmitter(redisadapter.NewEventBus(h.client, log), sink, log)
	h.oracle = NewOracleService(h.vaultRepo, h.economy, h.stores.Transactor, h.events, nil, m, settings, log)
	h.engine = NewTransferEngine(h.stores, EngineInfra{
		Signer:    h.signer,
		Authority: h.authority,
		Cache:     redisadapter.NewEntryCache(h.client),
		Nonces:    redisadapter.NewNonceStore(h.client),
		Events:    h.events,
		Metrics:   m,
	}, h.oracle, settings, log)

	refs, err := NewAESReferenceCipher(testAESKey)
	require.NoError(t, err)
	h.vaults = NewVaultService(h.engine)
	h.onboarding = NewOnboardingService(h.engine)
	h.bridge = NewBridgeService(h.engine, refs)
	h.vouches = NewVouchService(h.engine)
	h.reconcile = NewReconcileService(h.accounts, h.vaultRepo, h.ledger, h.signer, nil, m, settings, log)
	return h
}

func (h *ledgerHarness) genesis(t *testing.T, totalSupply, backing string) *domain.EconomyState {
	t.Helper()
	state, err := h.onboarding.Genesis(h.ctx, ports.GenesisRequest{
		TotalSupply: dec(totalSupply),
		USDBacking:  dec(backing),
		Actor:       authorityActor,
	})
	require.NoError(t, err)
	return state
}

// openAccount registers id with a fresh key and a genesis stake.
func (h *ledgerHarness) openAccount(t *testing.T, id, stake string) *testKey {
	t.Helper()
	key := newTestKey(t, id)
	_, err := h.onboarding.OpenAccount(h.ctx, ports.OpenAccountRequest{
		ID:           id,
		PublicKey:    key.pub,
		GenesisStake: dec(stake),
		Actor:        authorityActor,
	})
	require.NoError(t, err)
	return key
}

// fundFloat moves amount from the issuance vault to the liquidity vault.
func (h *ledgerHarness) fundFloat(t *testing.T, amount string) {
	t.Helper()
	_, err := h.vaults.Rebalance(h.ctx, ports.RebalanceRequest{
		FromVaultID: h.settings.IssuanceVaultID,
		ToVaultID:   h.settings.LiquidityVaultID,
		Amount:      dec(amount),
		Actor:       authorityActor,
	})
	require.NoError(t, err)
}

func (h *ledgerHarness) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	balance, err := h.reconcile.ProjectBalance(h.ctx, id, false)
	require.NoError(t, err)
	return balance
}

func (h *ledgerHarness) entryCount(t *testing.T, partyID string) int {
	t.Helper()
	entries, err := h.ledger.ListByParty(h.ctx, partyID)
	require.NoError(t, err)
	return len(entries)
}

// totalHeld sums every cached balance, accounts and vaults alike.
func (h *ledgerHarness) totalHeld(t *testing.T) decimal.Decimal {
	t.Helper()
	total := decimal.Zero
	ids, err := h.accounts.ListIDs(h.ctx)
	require.NoError(t, err)
	for _, id := range ids {
		total = total.Add(h.balance(t, id))
	}
	vaults, err := h.vaultRepo.List(h.ctx)
	require.NoError(t, err)
	for _, v := range vaults {
		total = total.Add(v.Balance)
	}
	return total
}

// requireCode fails unless err is an AppError with code.
func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperror.Is(err, code), "expected %s, got %v", code, err)
}
