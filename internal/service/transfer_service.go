package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/logger"
	"value-ledger/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LedgerStores groups the repositories the ledger services mutate together.
type LedgerStores struct {
	Accounts   ports.AccountRepository
	Vaults     ports.VaultRepository
	Ledger     ports.LedgerRepository
	Economy    ports.EconomyRepository
	Orders     ports.BridgeOrderRepository
	Vouches    ports.VouchRepository
	Transactor ports.DBTransactor
}

// EngineInfra groups the collaborators around the transaction itself.
type EngineInfra struct {
	Signer    ports.SigningService
	Authority *AuthoritySigner
	Cache     ports.EntryCache
	Nonces    ports.NonceStore
	Events    *EventEmitter
	Audit     ports.AuditService
	Metrics   *metrics.Collector
}

// TransferEngine is the single primitive every balance change goes through.
// It implements ports.TransferService for peer sends; vault custody, bridge
// settlement and vouches reuse execute with their own extra work.
type TransferEngine struct {
	stores   LedgerStores
	infra    EngineInfra
	oracle   *OracleServiceImpl
	settings LedgerSettings
	log      zerolog.Logger
	now      func() time.Time
}

// NewTransferEngine creates a new TransferEngine.
func NewTransferEngine(stores LedgerStores, infra EngineInfra, oracle *OracleServiceImpl, settings LedgerSettings, log zerolog.Logger) *TransferEngine {
	return &TransferEngine{
		stores:   stores,
		infra:    infra,
		oracle:   oracle,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// executeOptions tune one execute call.
type executeOptions struct {
	allowZero bool // vouches carry a zero amount
	event     domain.EventType
	orderID   string
	clientIP  string
}

// extraFunc runs inside the transfer's transaction after the balances move.
// Returning an error rolls the whole transfer back. A non-nil state is
// announced after commit in place of the engine's own issuance sync.
type extraFunc func(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error)

// Transfer applies a client-signed peer transfer.
func (e *TransferEngine) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.LedgerEntry, error) {
	entry := req.Entry
	if entry.Kind != domain.EntryKindPeerTransfer {
		return nil, apperror.Validation("transfers accept PEER_TRANSFER entries only")
	}
	if req.ActorID != "" && req.ActorID != entry.SenderID {
		return nil, apperror.ErrForbidden()
	}
	return e.execute(ctx, &entry, executeOptions{
		event:    domain.EventTransferCommitted,
		clientIP: req.ClientIP,
	}, nil)
}

// GetEntry returns a committed entry.
func (e *TransferEngine) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	entry, err := e.stores.Ledger.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get entry", err)
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("ledger entry")
	}
	return entry, nil
}

// ListEntries returns a page of a party's entries in replay order.
func (e *TransferEngine) ListEntries(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	entries, total, err := e.stores.Ledger.ListByPartyPage(ctx, params)
	if err != nil {
		return nil, 0, storageError("list entries", err)
	}
	return entries, total, nil
}

// execute validates entry, guards its nonce, then applies it in a
// serializable transaction retried on conflict. Post-commit work (cache,
// events, metrics, price sync announcement) never fails the call.
func (e *TransferEngine) execute(ctx context.Context, entry *domain.LedgerEntry, opts executeOptions, extra extraFunc) (result *domain.LedgerEntry, err error) {
	start := e.now()
	defer func() {
		e.infra.Metrics.RecordEntry(string(entry.Kind), time.Since(start), err)
	}()

	if err := validateEntry(entry, opts.allowZero); err != nil {
		return nil, err
	}

	cacheKey := domain.BuildEntryCacheKey(entry.ID)
	if e.infra.Cache != nil {
		cached, cerr := e.infra.Cache.Get(ctx, cacheKey)
		if cerr != nil {
			e.log.Warn().Err(cerr).Str("entry_id", entry.ID).Msg("entry cache check failed, falling through to store")
		}
		if cached != nil {
			return nil, apperror.ErrDuplicateEntry()
		}
	}

	if err := e.claimNonce(ctx, entry, opts.clientIP); err != nil {
		return nil, err
	}

	var (
		recorded *domain.LedgerEntry
		economy  *domain.EconomyState
	)
	err = withConflictRetry(ctx, e.settings.MaxConflictRetries, e.infra.Metrics, func() error {
		var rerr error
		recorded, economy, rerr = e.runOnce(ctx, entry, opts, extra)
		if apperror.Is(rerr, apperror.CodeConcurrentConflict) {
			e.log.Debug().Str("entry_id", entry.ID).Msg("serialization conflict, retrying")
		}
		return rerr
	})
	if err != nil {
		return nil, storageError("execute entry", err)
	}

	e.afterCommit(ctx, recorded, economy, opts)
	return recorded, nil
}

func (e *TransferEngine) runOnce(ctx context.Context, entry *domain.LedgerEntry, opts executeOptions, extra extraFunc) (*domain.LedgerEntry, *domain.EconomyState, error) {
	tx, err := e.stores.Transactor.Begin(ctx)
	if err != nil {
		return nil, nil, storageError("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	recorded, err := e.apply(ctx, tx, entry, opts)
	if err != nil {
		return nil, nil, err
	}
	var economy *domain.EconomyState
	if extra != nil {
		if economy, err = extra(ctx, tx); err != nil {
			return nil, nil, err
		}
	}

	if economy == nil && e.oracle != nil && recorded.Involves(e.settings.IssuanceVaultID) {
		if economy, err = e.oracle.syncTx(ctx, tx, nil); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, storageError("commit", err)
	}
	return recorded, economy, nil
}

// apply moves the balances and appends the entry inside tx. Every check
// runs before the first write.
func (e *TransferEngine) apply(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry, opts executeOptions) (*domain.LedgerEntry, error) {
	exists, err := e.stores.Ledger.Exists(ctx, tx, entry.ID)
	if err != nil {
		return nil, storageError("check entry", err)
	}
	if exists {
		return nil, apperror.ErrDuplicateEntry()
	}

	sender, receiver, err := e.lockParties(ctx, tx, entry.SenderID, entry.ReceiverID)
	if err != nil {
		return nil, err
	}

	if !domain.IsAuthorityOrigin(sender, entry.Kind) {
		if entry.SenderPublicKey != sender.PublicKey || !e.infra.Signer.VerifyEntry(entry) {
			e.rejectSignature(ctx, entry, opts.clientIP)
			return nil, apperror.ErrUnauthorized()
		}
	}

	if sender.IsVault() && sender.Locked {
		return nil, apperror.ErrVaultLocked()
	}
	if !sender.UnlimitedIssuance() && sender.Balance.LessThan(entry.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := e.setBalance(ctx, tx, sender, sender.Balance.Sub(entry.Amount)); err != nil {
		return nil, err
	}
	if err := e.setBalance(ctx, tx, receiver, receiver.Balance.Add(entry.Amount)); err != nil {
		return nil, err
	}

	recorded := *entry
	recorded.Hash = entry.CanonicalPayload()
	recorded.Mode = e.settings.Mode
	recorded.RecordedAt = e.now().UTC()
	if err := e.stores.Ledger.Append(ctx, tx, &recorded); err != nil {
		return nil, storageError("append entry", err)
	}
	return &recorded, nil
}

// lockParties resolves both sides under row locks, always in id order so
// two transfers between the same parties cannot deadlock.
func (e *TransferEngine) lockParties(ctx context.Context, tx pgx.Tx, senderID, receiverID string) (domain.Party, domain.Party, error) {
	ids := []string{senderID, receiverID}
	sort.Strings(ids)

	parties := make(map[string]domain.Party, 2)
	for _, id := range ids {
		p, err := e.lockParty(ctx, tx, id)
		if err != nil {
			return domain.Party{}, domain.Party{}, err
		}
		parties[id] = p
	}
	return parties[senderID], parties[receiverID], nil
}

func (e *TransferEngine) lockParty(ctx context.Context, tx pgx.Tx, id string) (domain.Party, error) {
	account, err := e.stores.Accounts.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return domain.Party{}, storageError("lock account", err)
	}
	if account != nil {
		return domain.AccountParty(account), nil
	}
	vault, err := e.stores.Vaults.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return domain.Party{}, storageError("lock vault", err)
	}
	if vault != nil {
		return domain.VaultParty(vault), nil
	}
	return domain.Party{}, apperror.ErrNotFound("party " + id)
}

// idTaken reports whether id already names an account or a vault.
func (e *TransferEngine) idTaken(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	if _, err := e.lockParty(ctx, tx, id); err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *TransferEngine) setBalance(ctx context.Context, tx pgx.Tx, p domain.Party, balance decimal.Decimal) error {
	if p.IsVault() {
		if err := e.stores.Vaults.UpdateBalance(ctx, tx, p.ID, balance); err != nil {
			return storageError("update vault balance", err)
		}
		return nil
	}
	if err := e.stores.Accounts.UpdateBalance(ctx, tx, p.ID, balance); err != nil {
		return storageError("update account balance", err)
	}
	return nil
}

// claimNonce binds the entry's nonce to its id. A retry of the same entry
// passes; another entry reusing the nonce is a replay.
func (e *TransferEngine) claimNonce(ctx context.Context, entry *domain.LedgerEntry, clientIP string) error {
	if e.infra.Nonces == nil {
		return nil
	}
	ok, err := e.infra.Nonces.Claim(ctx, entry.SenderID, entry.Nonce, entry.ID, e.settings.NonceTTL)
	if err != nil {
		return apperror.InternalError(err)
	}
	if ok {
		return nil
	}

	e.infra.Metrics.RecordNonceReplay()
	logger.Security(&e.log).
		Str("entry_id", entry.ID).
		Str("sender_id", entry.SenderID).
		Str("nonce", entry.Nonce).
		Msg("nonce replay rejected")
	record(ctx, e.infra.Audit, newAuditLog(domain.AuditActionNonceReplay, entry.SenderID, "ledger_entry", entry.ID, clientIP,
		map[string]any{"nonce": entry.Nonce}))
	return apperror.ErrNonceUsed()
}

func (e *TransferEngine) rejectSignature(ctx context.Context, entry *domain.LedgerEntry, clientIP string) {
	e.infra.Metrics.RecordSignatureRejected()
	logger.Security(&e.log).
		Str("entry_id", entry.ID).
		Str("sender_id", entry.SenderID).
		Str("kind", string(entry.Kind)).
		Msg("entry signature rejected")
	record(ctx, e.infra.Audit, newAuditLog(domain.AuditActionSignatureRejected, entry.SenderID, "ledger_entry", entry.ID, clientIP, nil))
}

func (e *TransferEngine) afterCommit(ctx context.Context, entry *domain.LedgerEntry, economy *domain.EconomyState, opts executeOptions) {
	if e.infra.Cache != nil {
		if raw, err := json.Marshal(entry); err == nil {
			if err := e.infra.Cache.Set(ctx, domain.BuildEntryCacheKey(entry.ID), raw, entryCacheTTL); err != nil {
				e.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("failed to cache committed entry")
			}
		}
	}

	e.log.Info().
		Str("entry_id", entry.ID).
		Str("sender_id", entry.SenderID).
		Str("receiver_id", entry.ReceiverID).
		Str("amount", entry.Amount.String()).
		Str("kind", string(entry.Kind)).
		Msg("entry committed")

	if opts.event != "" {
		amount := entry.Amount
		e.infra.Events.Emit(ctx, &domain.LedgerEvent{
			Type:       opts.event,
			EntryID:    entry.ID,
			OrderID:    opts.orderID,
			AccountIDs: []string{entry.SenderID, entry.ReceiverID},
			Amount:     &amount,
		})
	}
	if economy != nil {
		e.oracle.announce(ctx, economy)
	}
}

// validateEntry checks the fields that need no storage.
func validateEntry(entry *domain.LedgerEntry, allowZero bool) error {
	switch {
	case entry.ID == "":
		return apperror.Validation("entry id is required")
	case entry.Nonce == "":
		return apperror.Validation("entry nonce is required")
	case entry.SenderID == "" || entry.ReceiverID == "":
		return apperror.Validation("sender and receiver are required")
	case !entry.Kind.IsValid():
		return apperror.Validation("unknown entry kind")
	}
	if entry.Amount.IsNegative() {
		return apperror.ErrInvalidAmount()
	}
	if allowZero {
		if !entry.Amount.IsZero() {
			return apperror.ErrInvalidAmount()
		}
	} else if !entry.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if entry.SenderID == entry.ReceiverID {
		return apperror.ErrSelfTransfer()
	}
	return nil
}
