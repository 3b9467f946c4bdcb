package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations that the services do not
// already audit themselves. Actions are keyed by route template.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route, ok := auditedRoutes[routeKey{c.Request.Method, c.FullPath()}]
		if !ok {
			return
		}

		var actorID *string
		if id, ok := AccountID(c); ok {
			actorID = &id
		}

		fields := map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		}
		if sid := c.GetString(CtxSessionID); sid != "" {
			fields["session_id"] = sid
		}
		details, _ := json.Marshal(fields)

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   c.Param(route.idParam),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

type routeKey struct {
	method string
	path   string
}

type auditedRoute struct {
	action       domain.AuditAction
	resourceType string
	idParam      string
}

var auditedRoutes = map[routeKey]auditedRoute{
	{http.MethodPost, "/api/v1/bridge/purchases"}:             {domain.AuditActionBridgeCreated, "bridge_order", ""},
	{http.MethodPost, "/api/v1/bridge/liquidations"}:          {domain.AuditActionBridgeCreated, "bridge_order", ""},
	{http.MethodPost, "/api/v1/bridge/orders/:id/reference"}:  {domain.AuditActionBridgeReference, "bridge_order", "id"},
	{http.MethodPost, "/api/v1/bridge/orders/:id/claim"}:      {domain.AuditActionBridgeClaimed, "bridge_order", "id"},
	{http.MethodPost, "/api/v1/bridge/orders/:id/dispatched"}: {domain.AuditActionBridgeDispatched, "bridge_order", "id"},
	{http.MethodPost, "/api/v1/admin/economy/sync"}:           {domain.AuditActionPriceSynced, "economy", ""},
}
