package handler

import (
	"value-ledger/internal/adapter/http/middleware"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SessionSvc    ports.SessionService
	TransferSvc   ports.TransferService
	VaultSvc      ports.VaultService
	OnboardingSvc ports.OnboardingService
	BridgeSvc     ports.BridgeService
	OracleSvc     ports.OracleService
	ReconcileSvc  ports.ReconcileService
	VouchSvc      ports.VouchService
	TokenSvc      ports.TokenService
	HashSvc       ports.HashService
	Events        ports.EventSubscriber // nil = event stream disabled

	AuthorityKeyHash string
	AuthorityID      string

	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *metrics.Collector // nil = /metrics disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	sessionHandler := NewSessionHandler(deps.SessionSvc)
	transferHandler := NewTransferHandler(deps.TransferSvc, deps.VouchSvc)
	accountHandler := NewAccountHandler(deps.OnboardingSvc, deps.TransferSvc, deps.ReconcileSvc, deps.VouchSvc)
	bridgeHandler := NewBridgeHandler(deps.BridgeSvc)
	economyHandler := NewEconomyHandler(deps.OracleSvc)
	adminHandler := NewAdminHandler(deps.OnboardingSvc, deps.VaultSvc, deps.ReconcileSvc)

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	v1.POST("/sessions", rl("sessions"), sessionHandler.Open)
	v1.GET("/economy", rl("queries"), economyHandler.Get)

	// --- Session routes ---
	session := v1.Group("", middleware.SessionAuth(deps.TokenSvc, deps.Logger))
	{
		session.POST("/transfers", rl("transfers"), transferHandler.Transfer)
		session.POST("/vouches", rl("vouches"), transferHandler.Vouch)
		session.GET("/entries/:id", rl("queries"), transferHandler.GetEntry)

		session.GET("/accounts/:id", rl("queries"), accountHandler.GetAccount)
		session.GET("/accounts/:id/balance", rl("queries"), accountHandler.GetBalance)
		session.GET("/accounts/:id/entries", rl("queries"), accountHandler.ListEntries)
		session.GET("/accounts/:id/vouches", rl("queries"), accountHandler.ListVouches)

		bridge := session.Group("/bridge", rl("bridge"))
		bridge.POST("/purchases", bridgeHandler.CreatePurchase)
		bridge.POST("/liquidations", bridgeHandler.CreateLiquidation)
		bridge.GET("/orders", bridgeHandler.ListMine)
		bridge.GET("/orders/:id", bridgeHandler.Get)
		bridge.POST("/orders/:id/reference", bridgeHandler.SubmitReference)
		bridge.POST("/orders/:id/claim", bridgeHandler.Claim)
		bridge.POST("/orders/:id/dispatched", bridgeHandler.MarkDispatched)
		bridge.POST("/orders/:id/cancel", bridgeHandler.Cancel)

		if deps.Events != nil {
			eventHandler := NewEventHandler(deps.Events, deps.Logger)
			session.GET("/events", rl("events"), eventHandler.Stream)
		}
	}

	// --- Authority routes ---
	authority := middleware.AuthorityAuth(deps.HashSvc, deps.AuthorityKeyHash, deps.AuthorityID, deps.AuditSvc, deps.Logger)
	admin := v1.Group("/admin", authority, rl("authority"))
	{
		admin.POST("/genesis", adminHandler.Genesis)
		admin.POST("/accounts", adminHandler.OpenAccount)
		admin.GET("/accounts/:id", accountHandler.GetAccount)
		admin.GET("/accounts/:id/balance", accountHandler.GetBalance)
		admin.GET("/accounts/:id/entries", accountHandler.ListEntries)
		admin.GET("/entries/:id", transferHandler.GetEntry)

		admin.GET("/vaults", adminHandler.ListVaults)
		admin.POST("/vaults", adminHandler.CreateVault)
		admin.POST("/vaults/rebalance", adminHandler.Rebalance)
		admin.GET("/vaults/:id", adminHandler.GetVault)
		admin.POST("/vaults/:id/lock", adminHandler.LockVault)
		admin.POST("/vaults/:id/unlock", adminHandler.UnlockVault)
		admin.POST("/vaults/:id/dispatch", adminHandler.Dispatch)

		admin.GET("/bridge/orders/:id", bridgeHandler.Get)
		admin.POST("/bridge/orders/:id/confirm", bridgeHandler.Confirm)
		admin.POST("/bridge/orders/:id/reject", bridgeHandler.Reject)
		admin.POST("/bridge/orders/:id/complete", bridgeHandler.Complete)
		admin.POST("/bridge/orders/:id/cancel", bridgeHandler.Cancel)

		admin.POST("/economy/sync", economyHandler.Sync)
		admin.POST("/economy/backing", economyHandler.InjectBacking)
		admin.POST("/economy/redemption-window", economyHandler.OpenRedemptionWindow)
		admin.DELETE("/economy/redemption-window", economyHandler.CloseRedemptionWindow)

		admin.GET("/reconcile/:id", adminHandler.Reconcile)
		admin.POST("/reconcile", adminHandler.ReconcileAll)

		if deps.Events != nil {
			admin.GET("/events", NewEventHandler(deps.Events, deps.Logger).Stream)
		}
	}

	return r
}
