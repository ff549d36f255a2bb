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

	"github.com/hostelcore/hostelcore/internal/app"
	"github.com/hostelcore/hostelcore/internal/audit"
	audithttp "github.com/hostelcore/hostelcore/internal/audit/http"
	"github.com/hostelcore/hostelcore/internal/auth"
	"github.com/hostelcore/hostelcore/internal/authz"
	"github.com/hostelcore/hostelcore/internal/hostels"
	"github.com/hostelcore/hostelcore/internal/observability"
	"github.com/hostelcore/hostelcore/internal/overrides"
	"github.com/hostelcore/hostelcore/internal/platform/cache"
	"github.com/hostelcore/hostelcore/internal/platform/db"
	"github.com/hostelcore/hostelcore/internal/shared"
	"github.com/hostelcore/hostelcore/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "hostelcore_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	locker := shared.NewLocker(redisClient, cfg.OverrideLockTTL)

	metrics := observability.NewMetrics()
	authzMetrics := authz.NewMetrics(metrics.Registerer())
	catalog := authz.DefaultCatalog()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	overridesRepo := overrides.NewRepository(dbpool)
	overridesService := overrides.NewService(overridesRepo, catalog, locker, jobClient, logger)
	overridesHandler := overrides.NewHandler(logger, overridesService)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, catalog, overridesService, sessionManager, authzMetrics)

	hostelsRepo := hostels.NewRepository(dbpool)
	hostelsService := hostels.NewService(hostelsRepo)
	hostelsHandler := hostels.NewHandler(logger, hostelsService, catalog, overridesService, authzMetrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		OverridesHandler: overridesHandler,
		AuditHandler:     auditHandler,
		HostelsHandler:   hostelsHandler,
		JobHandler:       jobHandler,
		Guards:           authz.Middleware{Logger: logger, Metrics: authzMetrics},
		Metrics:          metrics,
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
