package service

import (
	"context"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/logger"
	"value-ledger/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReconcileServiceImpl implements ports.ReconcileService. It only reads:
// no locks are taken and entries committed mid-replay are picked up by the
// next run.
type ReconcileServiceImpl struct {
	accounts ports.AccountRepository
	vaults   ports.VaultRepository
	ledger   ports.LedgerRepository
	signer   ports.SigningService
	audit    ports.AuditService
	metrics  *metrics.Collector
	settings LedgerSettings
	log      zerolog.Logger
	now      func() time.Time
}

// NewReconcileService creates a new ReconcileServiceImpl.
func NewReconcileService(
	accounts ports.AccountRepository,
	vaults ports.VaultRepository,
	ledger ports.LedgerRepository,
	signer ports.SigningService,
	audit ports.AuditService,
	m *metrics.Collector,
	settings LedgerSettings,
	log zerolog.Logger,
) *ReconcileServiceImpl {
	return &ReconcileServiceImpl{
		accounts: accounts,
		vaults:   vaults,
		ledger:   ledger,
		signer:   signer,
		audit:    audit,
		metrics:  m,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// Reconcile replays every entry touching partyID from its genesis seed and
// compares the fold with the cached balance. Entries whose signature fails
// are left out of the fold and listed as anomalies.
func (s *ReconcileServiceImpl) Reconcile(ctx context.Context, partyID string) (*domain.ReconcileReport, error) {
	lookup := newPartyLookup(s.accounts, s.vaults)
	party, err := lookup.get(ctx, partyID)
	if err != nil {
		return nil, err
	}

	seed := party.GenesisBalance
	if party.ID == s.settings.IssuanceVaultID {
		allocated, err := s.allocatedStakes(ctx)
		if err != nil {
			return nil, err
		}
		seed = seed.Sub(allocated)
	}

	entries, err := s.ledger.ListByParty(ctx, partyID)
	if err != nil {
		return nil, storageError("list entries", err)
	}

	report := &domain.ReconcileReport{
		AccountID:         partyID,
		EntryCount:        len(entries),
		CachedBalance:     party.Balance,
		AnomalousEntryIDs: []string{},
	}
	running := seed
	for i := range entries {
		entry := &entries[i]
		sender, err := lookup.get(ctx, entry.SenderID)
		if err != nil && !apperror.Is(err, apperror.CodeNotFound) {
			return nil, err
		}

		switch {
		case err == nil && domain.IsAuthorityOrigin(sender, entry.Kind):
			report.AuthorityCount++
		case err == nil && entry.SenderPublicKey == sender.PublicKey && s.signer.VerifyEntry(entry):
			report.VerifiedCount++
		default:
			report.AnomalousEntryIDs = append(report.AnomalousEntryIDs, entry.ID)
			continue
		}
		running = running.Add(entry.DeltaFor(partyID))
	}

	report.ComputedBalance = running
	drift := running.Sub(party.Balance).Abs()
	report.IsConsistent = drift.LessThanOrEqual(s.settings.ReconcileEpsilon) && len(report.AnomalousEntryIDs) == 0
	report.ReplayedAt = s.now().UTC()

	s.metrics.RecordReconcile(report.IsConsistent, len(report.AnomalousEntryIDs))
	if len(report.AnomalousEntryIDs) > 0 {
		logger.Security(&s.log).
			Str("party_id", partyID).
			Strs("anomalous_entry_ids", report.AnomalousEntryIDs).
			Msg("reconcile found unverifiable entries")
		record(ctx, s.audit, newAuditLog(domain.AuditActionReconcileAnomalies, "", "party", partyID, "",
			map[string]any{"anomalous_entry_ids": report.AnomalousEntryIDs}))
	}
	if !report.IsConsistent {
		s.log.Warn().
			Str("party_id", partyID).
			Str("computed", report.ComputedBalance.String()).
			Str("cached", report.CachedBalance.String()).
			Msg("balance drift detected")
	}
	return report, nil
}

// ReconcileAll replays every account and vault and returns the reports
// that are not consistent.
func (s *ReconcileServiceImpl) ReconcileAll(ctx context.Context) ([]domain.ReconcileReport, error) {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return nil, storageError("list accounts", err)
	}
	vaults, err := s.vaults.List(ctx)
	if err != nil {
		return nil, storageError("list vaults", err)
	}
	for _, v := range vaults {
		ids = append(ids, v.ID)
	}

	inconsistent := []domain.ReconcileReport{}
	for _, id := range ids {
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			return nil, err
		}
		if !report.IsConsistent {
			inconsistent = append(inconsistent, *report)
		}
	}
	s.log.Info().Int("parties", len(ids)).Int("inconsistent", len(inconsistent)).Msg("full reconcile finished")
	return inconsistent, nil
}

// ProjectBalance returns the cached balance, or the replayed one.
func (s *ReconcileServiceImpl) ProjectBalance(ctx context.Context, partyID string, replayed bool) (decimal.Decimal, error) {
	if replayed {
		report, err := s.Reconcile(ctx, partyID)
		if err != nil {
			return decimal.Zero, err
		}
		return report.ComputedBalance, nil
	}
	party, err := newPartyLookup(s.accounts, s.vaults).get(ctx, partyID)
	if err != nil {
		return decimal.Zero, err
	}
	return party.Balance, nil
}

// allocatedStakes sums the genesis stakes moved out of the issuance vault
// without ledger entries.
func (s *ReconcileServiceImpl) allocatedStakes(ctx context.Context) (decimal.Decimal, error) {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return decimal.Zero, storageError("list accounts", err)
	}
	total := decimal.Zero
	for _, id := range ids {
		a, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return decimal.Zero, storageError("get account", err)
		}
		if a != nil {
			total = total.Add(a.GenesisStake)
		}
	}
	return total, nil
}

// partyLookup resolves ids to parties without locking, memoizing senders
// seen during one replay.
type partyLookup struct {
	accounts ports.AccountRepository
	vaults   ports.VaultRepository
	seen     map[string]domain.Party
}

func newPartyLookup(accounts ports.AccountRepository, vaults ports.VaultRepository) *partyLookup {
	return &partyLookup{accounts: accounts, vaults: vaults, seen: make(map[string]domain.Party)}
}

func (l *partyLookup) get(ctx context.Context, id string) (domain.Party, error) {
	if p, ok := l.seen[id]; ok {
		return p, nil
	}
	account, err := l.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.Party{}, storageError("get account", err)
	}
	if account != nil {
		p := domain.AccountParty(account)
		l.seen[id] = p
		return p, nil
	}
	vault, err := l.vaults.GetByID(ctx, id)
	if err != nil {
		return domain.Party{}, storageError("get vault", err)
	}
	if vault == nil {
		return domain.Party{}, apperror.ErrNotFound("party " + id)
	}
	p := domain.VaultParty(vault)
	l.seen[id] = p
	return p, nil
}
