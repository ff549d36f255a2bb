package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/hostelcore/hostelcore/internal/app"
	"github.com/hostelcore/hostelcore/internal/authz"
	jobmetrics "github.com/hostelcore/hostelcore/internal/jobs"
	"github.com/hostelcore/hostelcore/internal/overrides"
	"github.com/hostelcore/hostelcore/internal/platform/db"
	"github.com/hostelcore/hostelcore/internal/shared"
	"github.com/hostelcore/hostelcore/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	sessionManager := shared.NewSessionManager(redisClient, "hostelcore_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	catalog := authz.DefaultCatalog()
	metrics := jobmetrics.NewMetrics(nil)

	// The worker never mutates overrides, so it carries no locker or
	// enqueuer.
	overridesRepo := overrides.NewRepository(pool)
	overridesService := overrides.NewService(overridesRepo, catalog, nil, nil, logger)

	resyncJob := jobs.NewSessionResyncJob(sessionManager, catalog, overridesService, logger, metrics)
	reportJob := jobs.NewAuditReportJob(pool, logger, metrics)

	reportTask, err := jobs.NewAuditReportTask(cfg.AuditReportWindowHours)
	if err != nil {
		logger.Error("build audit report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionResync, Handler: resyncJob.Handle},
			{Type: jobs.TaskAuditReport, Handler: reportJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: reportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
