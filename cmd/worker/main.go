package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lattice-crm/lattice-crm/internal/app"
	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/platform/db"
	"github.com/lattice-crm/lattice-crm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:  asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:     logger,
		Maintainer: identityService,
		Cron: []jobs.CronRegistration{
			{Spec: "45 2 * * *", Task: jobs.NewPermCacheReconcileTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
