package handler

import (
	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// EconomyHandler exposes the economic oracle.
type EconomyHandler struct {
	oracleSvc ports.OracleService
}

// NewEconomyHandler creates a new EconomyHandler.
func NewEconomyHandler(oracleSvc ports.OracleService) *EconomyHandler {
	return &EconomyHandler{oracleSvc: oracleSvc}
}

// Get handles GET /api/v1/economy.
func (h *EconomyHandler) Get(c *gin.Context) {
	state, err := h.oracleSvc.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEconomyResponse(state))
}

// Sync handles POST /api/v1/admin/economy/sync.
func (h *EconomyHandler) Sync(c *gin.Context) {
	state, err := h.oracleSvc.SyncPrice(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEconomyResponse(state))
}

// InjectBacking handles POST /api/v1/admin/economy/backing.
func (h *EconomyHandler) InjectBacking(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.InjectBackingRequest
	if !bindJSON(c, &req) {
		return
	}

	state, err := h.oracleSvc.InjectBacking(c.Request.Context(), dto.MustAmount(req.USD), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEconomyResponse(state))
}

// OpenRedemptionWindow handles POST /api/v1/admin/economy/redemption-window.
func (h *EconomyHandler) OpenRedemptionWindow(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.RedemptionWindowRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	state, err := h.oracleSvc.OpenRedemptionWindow(c.Request.Context(), req.ClosesAt, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEconomyResponse(state))
}

// CloseRedemptionWindow handles DELETE /api/v1/admin/economy/redemption-window.
func (h *EconomyHandler) CloseRedemptionWindow(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	state, err := h.oracleSvc.CloseRedemptionWindow(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEconomyResponse(state))
}
