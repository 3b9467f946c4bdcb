package service

import (
	"context"
	"fmt"
	"strings"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BridgeServiceImpl implements ports.BridgeService. A liquidation escrows
// the user's signed entry into the liquidity vault when the order opens;
// confirmation, completion and refunds adjust backing in the same
// transaction as the order write.
type BridgeServiceImpl struct {
	engine *TransferEngine
	refs   ports.ReferenceCipher
}

// NewBridgeService creates a new BridgeServiceImpl.
func NewBridgeService(engine *TransferEngine, refs ports.ReferenceCipher) *BridgeServiceImpl {
	return &BridgeServiceImpl{engine: engine, refs: refs}
}

// CreatePurchase opens a purchase order awaiting off-ledger payment.
func (s *BridgeServiceImpl) CreatePurchase(ctx context.Context, req ports.CreatePurchaseRequest) (*domain.BridgeOrder, error) {
	if !req.USDValue.IsPositive() || !req.AssetAmount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}
	if _, err := s.account(ctx, req.UserID); err != nil {
		return nil, err
	}

	order := s.newOrder(req.UserID, domain.BridgeDirectionPurchase, req.USDValue, req.AssetAmount, req.PaymentMethod)
	if err := s.inTx(ctx, "create order", func(tx pgx.Tx) error {
		if err := s.engine.stores.Orders.Create(ctx, tx, order); err != nil {
			return storageError("create order", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	s.announce(ctx, order, domain.EventBridgeCreated, "")
	return order, nil
}

// CreateLiquidation opens a liquidation order and applies the user's signed
// BRIDGE_OUT entry in the same transaction, moving the amount into the
// liquidity vault until the order completes or is cancelled.
func (s *BridgeServiceImpl) CreateLiquidation(ctx context.Context, req ports.CreateLiquidationRequest) (*domain.BridgeOrder, error) {
	e := s.engine
	if !req.USDValue.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}

	entry := req.Entry
	if entry.Kind != domain.EntryKindBridgeOut || entry.SenderID != req.UserID || entry.ReceiverID != e.settings.LiquidityVaultID {
		return nil, apperror.Validation(fmt.Sprintf("liquidation entry must be a BRIDGE_OUT from the user to %s", e.settings.LiquidityVaultID))
	}
	if err := validateEntry(&entry, false); err != nil {
		return nil, err
	}

	state, err := e.stores.Economy.Get(ctx)
	if err != nil {
		return nil, storageError("get economy", err)
	}
	if state == nil || !state.RedemptionOpen(e.now()) {
		return nil, apperror.ErrRedemptionClosed()
	}
	if _, err := s.account(ctx, req.UserID); err != nil {
		return nil, err
	}

	order := s.newOrder(req.UserID, domain.BridgeDirectionLiquidation, req.USDValue, entry.Amount, req.PaymentMethod)
	if _, err := e.execute(ctx, &entry, executeOptions{
		event:    domain.EventBridgeCreated,
		orderID:  order.ID,
		clientIP: req.ClientIP,
	}, func(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error) {
		escrow := entry
		escrow.Hash = escrow.CanonicalPayload()
		order.SettlementEntry = &escrow
		order.EntryID = &escrow.ID
		if err := e.stores.Orders.Create(ctx, tx, order); err != nil {
			return nil, storageError("create order", err)
		}
		return nil, nil
	}); err != nil {
		return nil, err
	}

	s.transitioned(order)
	return order, nil
}

// SubmitPaymentReference records the owner's payment proof, encrypted.
func (s *BridgeServiceImpl) SubmitPaymentReference(ctx context.Context, orderID, userID, reference string) (*domain.BridgeOrder, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.Validation("payment reference is required")
	}
	encrypted, err := s.refs.Seal(orderID, reference)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}

	order, err := s.transition(ctx, orderID, domain.BridgeActionSubmitReference, func(o *domain.BridgeOrder) error {
		if o.UserID != userID {
			return apperror.ErrForbidden()
		}
		o.EncryptedReference = encrypted
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.ExternalReference = reference
	return order, nil
}

// Confirm verifies a purchase: the liquidity vault credits the user and
// backing grows by the order's USD value, atomically.
func (s *BridgeServiceImpl) Confirm(ctx context.Context, orderID string, actor ports.Actor) (*domain.BridgeOrder, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	e := s.engine

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, ok := domain.NextBridgeStatus(order.Direction, order.Status, domain.BridgeActionConfirm); !ok {
		return nil, apperror.ErrInvalidState(string(order.Status), string(domain.BridgeActionConfirm))
	}

	entry, err := e.infra.Authority.BuildEntry(e.settings.LiquidityVaultID, order.UserID, order.AssetAmount, domain.EntryKindBridgeIn, "bridge:"+order.ID)
	if err != nil {
		return nil, err
	}

	var settled *domain.BridgeOrder
	_, err = e.execute(ctx, entry, executeOptions{
		event:    domain.EventBridgeVerified,
		orderID:  order.ID,
		clientIP: actor.ClientIP,
	}, func(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error) {
		o, err := s.lockAndTransition(ctx, tx, orderID, domain.BridgeActionConfirm, func(o *domain.BridgeOrder) error {
			o.EntryID = &entry.ID
			return nil
		})
		if err != nil {
			return nil, err
		}
		economy, err := e.oracle.syncTx(ctx, tx, func(st *domain.EconomyState) error {
			st.USDBacking = st.USDBacking.Add(o.USDValue)
			return nil
		})
		if err != nil {
			return nil, err
		}
		settled = o
		return economy, nil
	})
	if err != nil {
		return nil, err
	}

	s.settled(ctx, settled, actor, domain.AuditActionBridgeConfirmed)
	return settled, nil
}

// Reject closes a purchase without any ledger effect.
func (s *BridgeServiceImpl) Reject(ctx context.Context, orderID string, actor ports.Actor) (*domain.BridgeOrder, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	order, err := s.transition(ctx, orderID, domain.BridgeActionReject, nil)
	if err != nil {
		return nil, err
	}
	record(ctx, s.engine.infra.Audit, newAuditLog(domain.AuditActionBridgeRejected, actor.ID, "bridge_order", order.ID, actor.ClientIP, nil))
	s.announce(ctx, order, domain.EventBridgeRejected, "")
	return order, nil
}

// Claim reserves a pending liquidation for a facilitator other than the owner.
func (s *BridgeServiceImpl) Claim(ctx context.Context, orderID, claimerID string) (*domain.BridgeOrder, error) {
	if _, err := s.account(ctx, claimerID); err != nil {
		return nil, err
	}
	order, err := s.transition(ctx, orderID, domain.BridgeActionClaim, func(o *domain.BridgeOrder) error {
		if o.UserID == claimerID {
			return apperror.ErrForbidden()
		}
		o.ClaimerID = &claimerID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, order, domain.EventBridgeClaimed, claimerID)
	return order, nil
}

// MarkDispatched records the facilitator's off-ledger payout proof.
func (s *BridgeServiceImpl) MarkDispatched(ctx context.Context, orderID, claimerID, payoutProof string) (*domain.BridgeOrder, error) {
	payoutProof = strings.TrimSpace(payoutProof)
	if payoutProof == "" {
		return nil, apperror.Validation("payout proof is required")
	}
	encrypted, err := s.refs.Seal(orderID, payoutProof)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}

	order, err := s.transition(ctx, orderID, domain.BridgeActionDispatch, func(o *domain.BridgeOrder) error {
		if o.ClaimerID == nil || *o.ClaimerID != claimerID {
			return apperror.ErrForbidden()
		}
		o.EncryptedReference = encrypted
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.ExternalReference = payoutProof
	s.announce(ctx, order, domain.EventBridgeDispatched, claimerID)
	return order, nil
}

// Complete closes a dispatched liquidation. The value already sits in the
// liquidity vault, so only backing and status change.
func (s *BridgeServiceImpl) Complete(ctx context.Context, orderID string, actor ports.Actor) (*domain.BridgeOrder, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	e := s.engine

	var (
		settled *domain.BridgeOrder
		economy *domain.EconomyState
	)
	err := s.inTx(ctx, string(domain.BridgeActionComplete), func(tx pgx.Tx) error {
		o, err := s.lockAndTransition(ctx, tx, orderID, domain.BridgeActionComplete, func(o *domain.BridgeOrder) error {
			if !o.Escrowed() {
				return apperror.InternalError(fmt.Errorf("liquidation order %s has no escrow entry", o.ID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		st, err := e.oracle.syncTx(ctx, tx, func(st *domain.EconomyState) error {
			st.USDBacking = decimal.Max(decimal.Zero, st.USDBacking.Sub(o.USDValue))
			return nil
		})
		if err != nil {
			return err
		}
		settled, economy = o, st
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.oracle.announce(ctx, economy)
	s.emit(ctx, settled, domain.EventBridgeCompleted, claimerOf(settled))
	s.settled(ctx, settled, actor, domain.AuditActionBridgeCompleted)
	return settled, nil
}

// Cancel closes a liquidation. The owner may cancel while Pending; the
// authority at any non-terminal state. An escrowed amount goes back to the
// owner through an authority-signed BRIDGE_REFUND in the same transaction.
func (s *BridgeServiceImpl) Cancel(ctx context.Context, orderID string, actor ports.Actor) (*domain.BridgeOrder, error) {
	e := s.engine
	allowed := func(o *domain.BridgeOrder) error {
		if actor.Authority {
			return nil
		}
		if o.UserID != actor.ID || o.Status != domain.BridgeStatusPending {
			return apperror.ErrForbidden()
		}
		return nil
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := allowed(order); err != nil {
		return nil, err
	}
	if _, ok := domain.NextBridgeStatus(order.Direction, order.Status, domain.BridgeActionCancel); !ok {
		return nil, apperror.ErrInvalidState(string(order.Status), string(domain.BridgeActionCancel))
	}

	var cancelled *domain.BridgeOrder
	if !order.Escrowed() {
		cancelled, err = s.transition(ctx, orderID, domain.BridgeActionCancel, allowed)
		if err != nil {
			return nil, err
		}
		s.announce(ctx, cancelled, domain.EventBridgeCancelled, "")
	} else {
		refund, err := e.infra.Authority.BuildEntry(e.settings.LiquidityVaultID, order.UserID, order.AssetAmount, domain.EntryKindBridgeRefund, "bridge:"+order.ID)
		if err != nil {
			return nil, err
		}
		refund.ID = order.RefundEntryID()

		if _, err := e.execute(ctx, refund, executeOptions{
			event:    domain.EventBridgeCancelled,
			orderID:  order.ID,
			clientIP: actor.ClientIP,
		}, func(ctx context.Context, tx pgx.Tx) (*domain.EconomyState, error) {
			o, err := s.lockAndTransition(ctx, tx, orderID, domain.BridgeActionCancel, allowed)
			if err != nil {
				return nil, err
			}
			cancelled = o
			return nil, nil
		}); err != nil {
			return nil, err
		}
		s.transitioned(cancelled)
	}

	record(ctx, e.infra.Audit, newAuditLog(domain.AuditActionBridgeCancelled, actor.ID, "bridge_order", cancelled.ID, actor.ClientIP, nil))
	return cancelled, nil
}

// Get returns an order. The reference is decrypted for the owner, the
// claiming facilitator and the authority; everyone else sees it blank.
func (s *BridgeServiceImpl) Get(ctx context.Context, orderID string, viewer ports.Actor) (*domain.BridgeOrder, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanReveal(viewer.ID, viewer.Authority) {
		return order, nil
	}
	if err := s.reveal(order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns a user's orders with references decrypted.
func (s *BridgeServiceImpl) ListByUser(ctx context.Context, userID string) ([]domain.BridgeOrder, error) {
	orders, err := s.engine.stores.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError("list orders", err)
	}
	for i := range orders {
		if err := s.reveal(&orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *BridgeServiceImpl) load(ctx context.Context, orderID string) (*domain.BridgeOrder, error) {
	order, err := s.engine.stores.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storageError("get order", err)
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	return order, nil
}

// inTx runs fn in its own transaction with conflict retry.
func (s *BridgeServiceImpl) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	e := s.engine
	err := withConflictRetry(ctx, e.settings.MaxConflictRetries, e.infra.Metrics, func() error {
		tx, err := e.stores.Transactor.Begin(ctx)
		if err != nil {
			return storageError("begin tx", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return storageError("commit", err)
		}
		return nil
	})
	if err != nil {
		return storageError(op, err)
	}
	return nil
}

// transition applies a ledger-neutral action in its own transaction.
func (s *BridgeServiceImpl) transition(ctx context.Context, orderID string, action domain.BridgeAction, check func(*domain.BridgeOrder) error) (*domain.BridgeOrder, error) {
	var order *domain.BridgeOrder
	err := s.inTx(ctx, string(action), func(tx pgx.Tx) error {
		o, err := s.lockAndTransition(ctx, tx, orderID, action, check)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// lockAndTransition re-reads the order under its row lock, runs check and
// writes the next status, so a concurrent transition cannot apply twice.
// check may reject the caller or stamp extra fields before the write.
func (s *BridgeServiceImpl) lockAndTransition(ctx context.Context, tx pgx.Tx, orderID string, action domain.BridgeAction, check func(*domain.BridgeOrder) error) (*domain.BridgeOrder, error) {
	e := s.engine
	o, err := e.stores.Orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, storageError("lock order", err)
	}
	if o == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	if check != nil {
		if err := check(o); err != nil {
			return nil, err
		}
	}
	if !o.Transition(action, e.now().UTC()) {
		return nil, apperror.ErrInvalidState(string(o.Status), string(action))
	}
	if err := e.stores.Orders.Update(ctx, tx, o); err != nil {
		return nil, storageError("update order", err)
	}
	return o, nil
}

func (s *BridgeServiceImpl) settled(ctx context.Context, order *domain.BridgeOrder, actor ports.Actor, action domain.AuditAction) {
	e := s.engine
	e.infra.Metrics.RecordBridgeTransition(string(order.Direction), string(order.Status))
	record(ctx, e.infra.Audit, newAuditLog(action, actor.ID, "bridge_order", order.ID, actor.ClientIP,
		map[string]any{"usd_value": order.USDValue.String(), "asset_amount": order.AssetAmount.String()}))
	e.log.Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Str("status", string(order.Status)).
		Msg("bridge order settled")
}

// announce publishes a transition that moved no value on its own.
func (s *BridgeServiceImpl) announce(ctx context.Context, order *domain.BridgeOrder, event domain.EventType, extraAccount string) {
	s.emit(ctx, order, event, extraAccount)
	s.transitioned(order)
}

func (s *BridgeServiceImpl) emit(ctx context.Context, order *domain.BridgeOrder, event domain.EventType, extraAccount string) {
	accounts := []string{order.UserID}
	if extraAccount != "" {
		accounts = append(accounts, extraAccount)
	}
	amount := order.AssetAmount
	s.engine.infra.Events.Emit(ctx, &domain.LedgerEvent{
		Type:       event,
		OrderID:    order.ID,
		AccountIDs: accounts,
		Amount:     &amount,
	})
}

// transitioned records metrics and logs; the engine already emitted the
// event when the transition carried an entry.
func (s *BridgeServiceImpl) transitioned(order *domain.BridgeOrder) {
	e := s.engine
	e.infra.Metrics.RecordBridgeTransition(string(order.Direction), string(order.Status))
	e.log.Info().
		Str("order_id", order.ID).
		Str("direction", string(order.Direction)).
		Str("status", string(order.Status)).
		Msg("bridge order transitioned")
}

func claimerOf(order *domain.BridgeOrder) string {
	if order.ClaimerID == nil {
		return ""
	}
	return *order.ClaimerID
}

func (s *BridgeServiceImpl) newOrder(userID string, direction domain.BridgeDirection, usd, asset decimal.Decimal, method domain.PaymentMethod) *domain.BridgeOrder {
	now := s.engine.now().UTC()
	return &domain.BridgeOrder{
		ID:            uuid.NewString(),
		UserID:        userID,
		Direction:     direction,
		USDValue:      usd,
		AssetAmount:   asset,
		PaymentMethod: method,
		Status:        domain.BridgeStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *BridgeServiceImpl) account(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.engine.stores.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

func (s *BridgeServiceImpl) reveal(order *domain.BridgeOrder) error {
	if order.EncryptedReference == "" {
		return nil
	}
	plain, err := s.refs.Open(order.ID, order.EncryptedReference)
	if err != nil {
		e := s.engine
		logger.Security(&e.log).Err(err).Str("order_id", order.ID).Msg("bridge reference failed to decrypt")
		return apperror.ErrEncryptionFailure(err)
	}
	order.ExternalReference = plain
	return nil
}

func validatePaymentMethod(method domain.PaymentMethod) error {
	if method != domain.PaymentMethodFiat && method != domain.PaymentMethodCrypto {
		return apperror.Validation("payment_method must be FIAT or CRYPTO")
	}
	return nil
}
