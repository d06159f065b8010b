package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lattice-crm/lattice-crm/internal/app"
	"github.com/lattice-crm/lattice-crm/internal/auth"
	"github.com/lattice-crm/lattice-crm/internal/deals"
	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/observability"
	"github.com/lattice-crm/lattice-crm/internal/permissions"
	"github.com/lattice-crm/lattice-crm/internal/platform/cache"
	"github.com/lattice-crm/lattice-crm/internal/platform/db"
	"github.com/lattice-crm/lattice-crm/internal/shared"
	"github.com/lattice-crm/lattice-crm/internal/tenants"
	"github.com/lattice-crm/lattice-crm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "lattice_session", cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo, logger)
	bindingResolver := identity.NewCoalescingResolver(identityService)

	hierarchyRepo := hierarchy.NewRepository(pool)
	hierarchyService := hierarchy.NewService(hierarchyRepo)

	permissionsRepo := permissions.NewRepository(pool)
	permissionsService := permissions.NewService(permissionsRepo, logger)
	if err := permissionsService.SeedCatalog(ctx); err != nil {
		logger.Error("seed permission catalog", slog.Any("error", err))
		os.Exit(1)
	}

	tenantsRepo := tenants.NewRepository(pool)
	tenantsService := tenants.NewService(tenantsRepo, logger)

	dealsRepo := deals.NewRepository(pool)
	dealsService := deals.NewService(dealsRepo, bindingResolver, metrics, logger)

	authService := auth.NewService(identityRepo)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), jobsClient, logger)

	hierResolver, permResolver, roleDir := app.NewResolverAdapters(bindingResolver, hierarchyService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        auth.NewHandler(logger, authService),
		RolesHandler:       hierarchy.NewHandler(logger, hierarchyService, hierResolver),
		PermissionsHandler: permissions.NewHandler(logger, permissionsService, permResolver, roleDir),
		PrincipalsHandler:  identity.NewHandler(logger, identityService, roleDir),
		DealsHandler:       deals.NewHandler(logger, dealsService),
		TenantsHandler:     tenants.NewHandler(logger, tenantsService),
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
