package handler

import (
	"context"

	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves authority operations: genesis, onboarding, vault
// custody and reconciliation.
type AdminHandler struct {
	onboardingSvc ports.OnboardingService
	vaultSvc      ports.VaultService
	reconcileSvc  ports.ReconcileService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(onboardingSvc ports.OnboardingService, vaultSvc ports.VaultService, reconcileSvc ports.ReconcileService) *AdminHandler {
	return &AdminHandler{
		onboardingSvc: onboardingSvc,
		vaultSvc:      vaultSvc,
		reconcileSvc:  reconcileSvc,
	}
}

// Genesis handles POST /api/v1/admin/genesis.
func (h *AdminHandler) Genesis(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.GenesisRequest
	if !bindJSON(c, &req) {
		return
	}

	state, err := h.onboardingSvc.Genesis(c.Request.Context(), ports.GenesisRequest{
		TotalSupply: dto.MustAmount(req.TotalSupply),
		USDBacking:  dto.MustAmount(req.USDBacking),
		Actor:       actor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEconomyResponse(state))
}

// OpenAccount handles POST /api/v1/admin/accounts.
func (h *AdminHandler) OpenAccount(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.OpenAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	stake := req.GenesisStake
	if stake == "" {
		stake = "0"
	}

	account, err := h.onboardingSvc.OpenAccount(c.Request.Context(), ports.OpenAccountRequest{
		ID:           req.ID,
		PublicKey:    req.PublicKey,
		GenesisStake: dto.MustAmount(stake),
		Actor:        actor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toAccountResponse(account))
}

// CreateVault handles POST /api/v1/admin/vaults.
func (h *AdminHandler) CreateVault(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.CreateVaultRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.Normalize(&req)

	vaultType := domain.VaultType(req.Type)
	if vaultType == "" {
		vaultType = domain.VaultTypeSpecial
	}

	vault, err := h.vaultSvc.CreateVault(c.Request.Context(), ports.CreateVaultRequest{
		ID:        req.ID,
		Name:      req.Name,
		Type:      vaultType,
		PublicKey: req.PublicKey,
		Actor:     actor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toVaultResponse(vault))
}

// ListVaults handles GET /api/v1/admin/vaults.
func (h *AdminHandler) ListVaults(c *gin.Context) {
	vaults, err := h.vaultSvc.ListVaults(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.VaultResponse, 0, len(vaults))
	for i := range vaults {
		items = append(items, toVaultResponse(&vaults[i]))
	}
	response.OK(c, items)
}

// GetVault handles GET /api/v1/admin/vaults/:id.
func (h *AdminHandler) GetVault(c *gin.Context) {
	vault, err := h.vaultSvc.GetVault(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toVaultResponse(vault))
}

// LockVault handles POST /api/v1/admin/vaults/:id/lock.
func (h *AdminHandler) LockVault(c *gin.Context) {
	h.setLock(c, h.vaultSvc.Lock)
}

// UnlockVault handles POST /api/v1/admin/vaults/:id/unlock.
func (h *AdminHandler) UnlockVault(c *gin.Context) {
	h.setLock(c, h.vaultSvc.Unlock)
}

func (h *AdminHandler) setLock(c *gin.Context, op func(ctx context.Context, vaultID string, actor ports.Actor) (*domain.Vault, error)) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	vault, err := op(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toVaultResponse(vault))
}

// Dispatch handles POST /api/v1/admin/vaults/:id/dispatch.
func (h *AdminHandler) Dispatch(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.DispatchRequest
	if !bindJSON(c, &req) {
		return
	}

	dispatch := ports.DispatchRequest{
		VaultID:  c.Param("id"),
		TargetID: req.TargetID,
		Amount:   dto.MustAmount(req.Amount),
		Actor:    actor,
	}
	if req.Entry != nil {
		entry := req.Entry.ToDomain()
		dispatch.Entry = &entry
	}

	entry, err := h.vaultSvc.Dispatch(c.Request.Context(), dispatch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toEntryResponse(entry))
}

// Rebalance handles POST /api/v1/admin/vaults/rebalance.
func (h *AdminHandler) Rebalance(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	var req dto.RebalanceRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.vaultSvc.Rebalance(c.Request.Context(), ports.RebalanceRequest{
		FromVaultID: req.FromVaultID,
		ToVaultID:   req.ToVaultID,
		Amount:      dto.MustAmount(req.Amount),
		Actor:       actor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toEntryResponse(entry))
}

// Reconcile handles GET /api/v1/admin/reconcile/:id.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.reconcileSvc.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toReconcileResponse(report))
}

// ReconcileAll handles POST /api/v1/admin/reconcile and returns only the
// inconsistent accounts.
func (h *AdminHandler) ReconcileAll(c *gin.Context) {
	reports, err := h.reconcileSvc.ReconcileAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ReconcileResponse, 0, len(reports))
	for i := range reports {
		items = append(items, toReconcileResponse(&reports[i]))
	}
	response.OK(c, items)
}
