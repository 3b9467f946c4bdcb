package handler

import (
	"time"

	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/adapter/http/middleware"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// bindJSON binds and validates the request body, writing the error response on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

// actorFor returns the request actor, writing 401 when no identity is bound.
func actorFor(c *gin.Context) (ports.Actor, bool) {
	actor := middleware.Actor(c)
	if actor.ID == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return actor, false
	}
	return actor, true
}

// canView reports whether actor may read data belonging to partyID.
func canView(actor ports.Actor, partyID string) bool {
	return actor.Authority || actor.ID == partyID
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toEntryResponse(e *domain.LedgerEntry) dto.EntryResponse {
	return dto.EntryResponse{
		ID:              e.ID,
		SenderID:        e.SenderID,
		ReceiverID:      e.ReceiverID,
		Amount:          e.Amount.String(),
		Timestamp:       e.Timestamp,
		Nonce:           e.Nonce,
		Signature:       e.Signature,
		Hash:            e.Hash,
		SenderPublicKey: e.SenderPublicKey,
		ParentHash:      e.ParentHash,
		Kind:            string(e.Kind),
		Mode:            string(e.Mode),
		RecordedAt:      formatTime(e.RecordedAt),
	}
}

func toAccountResponse(a *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:               a.ID,
		PublicKey:        a.PublicKey,
		Balance:          a.Balance.String(),
		Role:             string(a.Role),
		GenesisStake:     a.GenesisStake.String(),
		CredibilityScore: a.CredibilityScore,
		VouchCount:       a.VouchCount,
		CreatedAt:        formatTime(a.CreatedAt),
	}
}

func toVaultResponse(v *domain.Vault) dto.VaultResponse {
	return dto.VaultResponse{
		ID:             v.ID,
		Name:           v.Name,
		Type:           string(v.Type),
		Balance:        v.Balance.String(),
		GenesisBalance: v.GenesisBalance.String(),
		PublicKey:      v.PublicKey,
		IsLocked:       v.IsLocked,
		UpdatedAt:      formatTime(v.UpdatedAt),
	}
}

// toOrderResponse hides the payment reference from everyone but the owner,
// the claiming facilitator and the authority.
func toOrderResponse(o *domain.BridgeOrder, viewer ports.Actor) dto.BridgeOrderResponse {
	resp := dto.BridgeOrderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Direction:     string(o.Direction),
		USDValue:      o.USDValue.String(),
		AssetAmount:   o.AssetAmount.String(),
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		ClaimerID:     o.ClaimerID,
		EntryID:       o.EntryID,
		CreatedAt:     formatTime(o.CreatedAt),
		UpdatedAt:     formatTime(o.UpdatedAt),
	}
	if o.CanReveal(viewer.ID, viewer.Authority) {
		resp.ExternalReference = o.ExternalReference
	}
	return resp
}

func toEconomyResponse(s *domain.EconomyState) dto.EconomyResponse {
	resp := dto.EconomyResponse{
		TotalSupply:          s.TotalSupply.String(),
		CirculatingSupply:    s.CirculatingSupply.String(),
		USDBacking:           s.USDBacking.String(),
		UnitPrice:            s.UnitPrice.String(),
		LastSyncedAt:         formatTime(s.LastSyncedAt),
		RedemptionWindowOpen: s.RedemptionOpen(time.Now()),
	}
	if s.RedemptionWindowClosesAt != nil {
		closes := formatTime(*s.RedemptionWindowClosesAt)
		resp.RedemptionClosesAt = &closes
	}
	return resp
}

func toVouchResponse(v *domain.VouchRecord) dto.VouchResponse {
	return dto.VouchResponse{
		ID:        v.ID,
		FromID:    v.FromID,
		ToID:      v.ToID,
		EntryID:   v.EntryID,
		Timestamp: v.Timestamp,
		CreatedAt: formatTime(v.CreatedAt),
	}
}

func toReconcileResponse(r *domain.ReconcileReport) dto.ReconcileResponse {
	anomalies := r.AnomalousEntryIDs
	if anomalies == nil {
		anomalies = []string{}
	}
	return dto.ReconcileResponse{
		AccountID:         r.AccountID,
		EntryCount:        r.EntryCount,
		VerifiedCount:     r.VerifiedCount,
		AuthorityCount:    r.AuthorityCount,
		ComputedBalance:   r.ComputedBalance.String(),
		CachedBalance:     r.CachedBalance.String(),
		IsConsistent:      r.IsConsistent,
		AnomalousEntryIDs: anomalies,
		ReplayedAt:        formatTime(r.ReplayedAt),
	}
}
