package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_BridgeClaim(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)

	var captured *domain.AuditLog
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entry *domain.AuditLog) {
			captured = entry
		},
	)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/bridge/orders/:id/claim", func(c *gin.Context) {
		c.Set(CtxAccountID, "carol")
		c.Set(CtxSessionID, "sess-9")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/bridge/orders/order-7/claim", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, domain.AuditActionBridgeClaimed, captured.Action)
	assert.Equal(t, "bridge_order", captured.ResourceType)
	assert.Equal(t, "order-7", captured.ResourceID)
	require.NotNil(t, captured.ActorID)
	assert.Equal(t, "carol", *captured.ActorID)
	assert.Contains(t, captured.Details, `"status":200`)
	assert.Contains(t, captured.Details, `"session_id":"sess-9"`)
}

func TestAuditLog_Skipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no expectations: Log must not be called
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/bridge/orders/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	r.POST("/api/v1/bridge/purchases", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad"})
	})
	r.POST("/api/v1/transfers", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{})
	})

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"read", http.MethodGet, "/api/v1/bridge/orders/o-1"},
		{"failed write", http.MethodPost, "/api/v1/bridge/purchases"},
		{"route audited by the service", http.MethodPost, "/api/v1/transfers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))
		})
	}
}

func TestAuditedRoutes(t *testing.T) {
	tests := []struct {
		path   string
		action domain.AuditAction
	}{
		{"/api/v1/bridge/purchases", domain.AuditActionBridgeCreated},
		{"/api/v1/bridge/liquidations", domain.AuditActionBridgeCreated},
		{"/api/v1/bridge/orders/:id/reference", domain.AuditActionBridgeReference},
		{"/api/v1/bridge/orders/:id/dispatched", domain.AuditActionBridgeDispatched},
		{"/api/v1/admin/economy/sync", domain.AuditActionPriceSynced},
	}

	for _, tc := range tests {
		route, ok := auditedRoutes[routeKey{http.MethodPost, tc.path}]
		require.True(t, ok, tc.path)
		assert.Equal(t, tc.action, route.action, tc.path)
	}

	_, ok := auditedRoutes[routeKey{http.MethodGet, "/api/v1/bridge/purchases"}]
	assert.False(t, ok)
}
