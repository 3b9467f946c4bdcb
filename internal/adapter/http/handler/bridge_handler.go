package handler

import (
	"context"

	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// BridgeHandler handles bridge order endpoints for users, facilitators and
// the authority.
type BridgeHandler struct {
	bridgeSvc ports.BridgeService
}

// NewBridgeHandler creates a new BridgeHandler.
func NewBridgeHandler(bridgeSvc ports.BridgeService) *BridgeHandler {
	return &BridgeHandler{bridgeSvc: bridgeSvc}
}

// CreatePurchase handles POST /api/v1/bridge/purchases.
func (h *BridgeHandler) CreatePurchase(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.CreatePurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.bridgeSvc.CreatePurchase(c.Request.Context(), ports.CreatePurchaseRequest{
		UserID:        actor.ID,
		USDValue:      dto.MustAmount(req.USDValue),
		AssetAmount:   dto.MustAmount(req.AssetAmount),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(order, actor))
}

// CreateLiquidation handles POST /api/v1/bridge/liquidations.
func (h *BridgeHandler) CreateLiquidation(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.CreateLiquidationRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.bridgeSvc.CreateLiquidation(c.Request.Context(), ports.CreateLiquidationRequest{
		UserID:        actor.ID,
		USDValue:      dto.MustAmount(req.USDValue),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Entry:         req.Entry.ToDomain(),
		ClientIP:      actor.ClientIP,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(order, actor))
}

// ListMine handles GET /api/v1/bridge/orders.
func (h *BridgeHandler) ListMine(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	orders, err := h.bridgeSvc.ListByUser(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.BridgeOrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i], actor))
	}
	response.OK(c, items)
}

// Get handles GET /api/v1/bridge/orders/:id.
func (h *BridgeHandler) Get(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.Get(ctx, c.Param("id"), actor)
	})
}

// SubmitReference handles POST /api/v1/bridge/orders/:id/reference.
func (h *BridgeHandler) SubmitReference(c *gin.Context) {
	var req dto.PaymentReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.Normalize(&req)

	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.SubmitPaymentReference(ctx, c.Param("id"), actor.ID, req.Reference)
	})
}

// Claim handles POST /api/v1/bridge/orders/:id/claim.
func (h *BridgeHandler) Claim(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.Claim(ctx, c.Param("id"), actor.ID)
	})
}

// MarkDispatched handles POST /api/v1/bridge/orders/:id/dispatched.
func (h *BridgeHandler) MarkDispatched(c *gin.Context) {
	var req dto.DispatchedRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.Normalize(&req)

	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.MarkDispatched(ctx, c.Param("id"), actor.ID, req.PayoutProof)
	})
}

// Cancel handles POST /api/v1/bridge/orders/:id/cancel and its authority twin.
func (h *BridgeHandler) Cancel(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.Cancel(ctx, c.Param("id"), actor)
	})
}

// Confirm handles POST /api/v1/admin/bridge/orders/:id/confirm.
func (h *BridgeHandler) Confirm(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.Confirm(ctx, c.Param("id"), actor)
	})
}

// Reject handles POST /api/v1/admin/bridge/orders/:id/reject.
func (h *BridgeHandler) Reject(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.Reject(ctx, c.Param("id"), actor)
	})
}

// Complete handles POST /api/v1/admin/bridge/orders/:id/complete.
func (h *BridgeHandler) Complete(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error) {
		return h.bridgeSvc.Complete(ctx, c.Param("id"), actor)
	})
}

func (h *BridgeHandler) respond(c *gin.Context, op func(ctx context.Context, actor ports.Actor) (*domain.BridgeOrder, error)) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	order, err := op(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order, actor))
}
