package handler

import (
	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransferHandler accepts client-signed entries.
type TransferHandler struct {
	transferSvc ports.TransferService
	vouchSvc    ports.VouchService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService, vouchSvc ports.VouchService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc, vouchSvc: vouchSvc}
}

// Transfer handles POST /api/v1/transfers.
func (h *TransferHandler) Transfer(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.SignedEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.transferSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		Entry:    req.ToDomain(),
		ActorID:  actor.ID,
		ClientIP: actor.ClientIP,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

// Vouch handles POST /api/v1/vouches.
func (h *TransferHandler) Vouch(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.SignedEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	vouch, err := h.vouchSvc.Vouch(c.Request.Context(), ports.VouchRequest{
		Entry:    req.ToDomain(),
		ActorID:  actor.ID,
		ClientIP: actor.ClientIP,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toVouchResponse(vouch))
}

// GetEntry handles GET /api/v1/entries/:id. Only the parties and the
// authority can read an entry.
func (h *TransferHandler) GetEntry(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	entry, err := h.transferSvc.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !actor.Authority && !entry.Involves(actor.ID) {
		response.Error(c, apperror.ErrNotFound("entry"))
		return
	}

	response.OK(c, toEntryResponse(entry))
}
