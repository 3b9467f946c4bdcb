package handler

import (
	"strconv"

	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	balanceModeCached   = "cached"
	balanceModeReplayed = "replayed"
)

// AccountHandler serves account profiles and their ledger history.
type AccountHandler struct {
	onboardingSvc ports.OnboardingService
	transferSvc   ports.TransferService
	reconcileSvc  ports.ReconcileService
	vouchSvc      ports.VouchService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	onboardingSvc ports.OnboardingService,
	transferSvc ports.TransferService,
	reconcileSvc ports.ReconcileService,
	vouchSvc ports.VouchService,
) *AccountHandler {
	return &AccountHandler{
		onboardingSvc: onboardingSvc,
		transferSvc:   transferSvc,
		reconcileSvc:  reconcileSvc,
		vouchSvc:      vouchSvc,
	}
}

// viewable resolves :id and checks the caller may read it.
func viewable(c *gin.Context) (string, bool) {
	actor, ok := actorFor(c)
	if !ok {
		return "", false
	}
	id := c.Param("id")
	if !canView(actor, id) {
		response.Error(c, apperror.ErrForbidden())
		return "", false
	}
	return id, true
}

// GetAccount handles GET /api/v1/accounts/:id.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := viewable(c)
	if !ok {
		return
	}

	account, err := h.onboardingSvc.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(account))
}

// GetBalance handles GET /api/v1/accounts/:id/balance?mode=cached|replayed.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	id, ok := viewable(c)
	if !ok {
		return
	}

	mode := c.DefaultQuery("mode", balanceModeCached)
	if mode != balanceModeCached && mode != balanceModeReplayed {
		response.Error(c, apperror.Validation("mode must be cached or replayed"))
		return
	}

	balance, err := h.reconcileSvc.ProjectBalance(c.Request.Context(), id, mode == balanceModeReplayed)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		PartyID: id,
		Balance: balance.String(),
		Mode:    mode,
	})
}

// ListEntries handles GET /api/v1/accounts/:id/entries, ascending by
// logical timestamp.
func (h *AccountHandler) ListEntries(c *gin.Context) {
	id, ok := viewable(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.EntryListParams{
		PartyID:  id,
		Page:     page,
		PageSize: pageSize,
	}
	if k := c.Query("kind"); k != "" {
		kind := domain.EntryKind(k)
		if !kind.IsValid() {
			response.Error(c, apperror.Validation("unknown entry kind"))
			return
		}
		params.Kind = &kind
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			params.From = &v
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			params.To = &v
		}
	}

	entries, total, err := h.transferSvc.ListEntries(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResponse(&entries[i]))
	}

	response.Paginated(c, items, total, page, pageSize)
}

// ListVouches handles GET /api/v1/accounts/:id/vouches.
func (h *AccountHandler) ListVouches(c *gin.Context) {
	id, ok := viewable(c)
	if !ok {
		return
	}

	vouches, err := h.vouchSvc.ListForAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.VouchResponse, 0, len(vouches))
	for i := range vouches {
		items = append(items, toVouchResponse(&vouches[i]))
	}
	response.OK(c, items)
}
