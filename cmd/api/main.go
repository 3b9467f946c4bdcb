package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"value-ledger/config"
	apidocs "value-ledger/docs/api"
	httpHandler "value-ledger/internal/adapter/http/handler"
	"value-ledger/internal/adapter/storage/memory"
	pgStorage "value-ledger/internal/adapter/storage/postgres"
	redisStorage "value-ledger/internal/adapter/storage/redis"
	"value-ledger/internal/core/ports"
	"value-ledger/internal/service"
	"value-ledger/pkg/logger"
	"value-ledger/pkg/metrics"

	"github.com/rs/zerolog"
	migrate "github.com/rubenv/sql-migrate"
)

// storage bundles the repositories of the selected backend.
type storage struct {
	stores        service.LedgerStores
	audit         ports.AuditRepository
	notifications ports.NotificationRepository
	health        ports.HealthChecker
	close         func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		store := memory.NewStore()
		return &storage{
			stores: service.LedgerStores{
				Accounts:   memory.NewAccountRepo(store),
				Vaults:     memory.NewVaultRepo(store),
				Ledger:     memory.NewLedgerRepo(store),
				Economy:    memory.NewEconomyRepo(store),
				Orders:     memory.NewBridgeOrderRepo(store),
				Vouches:    memory.NewVouchRepo(store),
				Transactor: memory.NewTransactor(store),
			},
			audit:         memory.NewAuditRepository(store),
			notifications: memory.NewNotificationRepository(store),
			health:        memory.NewHealthCheck(),
			close:         func() {},
		}, nil
	case "postgres", "":
		if cfg.Database.AutoMigrate {
			n, err := pgStorage.Migrate(cfg.Database.DSN(), migrate.Up, 0)
			if err != nil {
				return nil, err
			}
			log.Info().Int("applied", n).Msg("Database migrations applied")
		}
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return &storage{
			stores: service.LedgerStores{
				Accounts:   pgStorage.NewAccountRepo(pool),
				Vaults:     pgStorage.NewVaultRepo(pool),
				Ledger:     pgStorage.NewLedgerRepo(pool),
				Economy:    pgStorage.NewEconomyRepo(pool),
				Orders:     pgStorage.NewBridgeOrderRepo(pool),
				Vouches:    pgStorage.NewVouchRepo(pool),
				Transactor: pgStorage.NewTransactor(pool),
			},
			audit:         pgStorage.NewAuditRepository(pool),
			notifications: pgStorage.NewNotificationRepository(pool),
			health:        pgStorage.NewHealthCheck(pool),
			close:         pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("VLG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Network(logger.New(cfg.Log.Level, cfg.Log.Pretty), cfg.Ledger.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("ledger_mode", cfg.Ledger.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Value Ledger")

	ctx := context.Background()

	settings, err := service.NewLedgerSettings(cfg.Ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger configuration")
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize Redis stores
	entryCache := redisStorage.NewEntryCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	eventBus := redisStorage.NewEventBus(rdb, log)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	refs, err := service.NewAESReferenceCipher(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize reference cipher")
	}
	notifySigner := service.NewHMACNotificationSigner()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer, settings.Mode)
	signer := service.NewEd25519SigningService()
	collector := metrics.NewCollector("value_ledger")

	seed := cfg.Authority.SigningSeed
	if seed == "" {
		seed, _, err = service.GenerateKeyPair()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate authority key")
		}
		log.Warn().Msg("No authority signing seed configured, using an ephemeral key; authority entries will not verify after restart")
	}
	authority, err := service.NewAuthoritySigner(settings.SystemAccountID, seed, signer)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid authority signing seed")
	}
	if cfg.Authority.KeyHash == "" {
		log.Warn().Msg("No authority key hash configured, admin routes are disabled")
	}

	auditSvc := service.NewAuditService(store.audit, log)
	sink := service.NewNotificationSink(
		store.notifications,
		notifySigner,
		&http.Client{Timeout: cfg.Notification.Timeout},
		cfg.Notification.URL,
		cfg.Notification.Secret,
		collector,
		logger.Component(log, "notification"),
	)
	events := service.NewEventEmitter(eventBus, sink, log)

	// Initialize business services
	oracleSvc := service.NewOracleService(
		store.stores.Vaults,
		store.stores.Economy,
		store.stores.Transactor,
		events,
		auditSvc,
		collector,
		settings,
		logger.Component(log, "oracle"),
	)
	engine := service.NewTransferEngine(store.stores, service.EngineInfra{
		Signer:    signer,
		Authority: authority,
		Cache:     entryCache,
		Nonces:    nonceStore,
		Events:    events,
		Audit:     auditSvc,
		Metrics:   collector,
	}, oracleSvc, settings, logger.Component(log, "engine"))
	reconcileSvc := service.NewReconcileService(
		store.stores.Accounts,
		store.stores.Vaults,
		store.stores.Ledger,
		signer,
		auditSvc,
		collector,
		settings,
		logger.Component(log, "reconcile"),
	)
	sessionSvc := service.NewSessionService(store.stores.Accounts, signer, nonceStore, tokenSvc, auditSvc, settings, log)

	httpHandler.SetSwaggerSpec(apidocs.OpenAPI)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:       sessionSvc,
		TransferSvc:      engine,
		VaultSvc:         service.NewVaultService(engine),
		OnboardingSvc:    service.NewOnboardingService(engine),
		BridgeSvc:        service.NewBridgeService(engine, refs),
		OracleSvc:        oracleSvc,
		ReconcileSvc:     reconcileSvc,
		VouchSvc:         service.NewVouchService(engine),
		TokenSvc:         tokenSvc,
		HashSvc:          hashSvc,
		Events:           eventBus,
		AuthorityKeyHash: cfg.Authority.KeyHash,
		AuthorityID:      settings.SystemAccountID,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{store.health, redisStorage.NewHealthCheck(rdb)},
		AuditSvc:         auditSvc,
		Metrics:          collector,
		Logger:           log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
