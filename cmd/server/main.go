package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osse101/FieldSync_Go/internal/auth"
	"github.com/osse101/FieldSync_Go/internal/bootstrap"
	"github.com/osse101/FieldSync_Go/internal/config"
	"github.com/osse101/FieldSync_Go/internal/database"
	"github.com/osse101/FieldSync_Go/internal/eventlog"
	"github.com/osse101/FieldSync_Go/internal/reconciler"
	"github.com/osse101/FieldSync_Go/internal/scheduler"
	"github.com/osse101/FieldSync_Go/internal/server"
	"github.com/osse101/FieldSync_Go/internal/validation"
	"github.com/osse101/FieldSync_Go/internal/worker"
)

const (
	maintenanceWorkers   = 2
	maintenanceQueueSize = 16
	maintenanceTimeout   = 5 * time.Minute
	syncLogCleanupEvery  = 24 * time.Hour
	shutdownTimeout      = 30 * time.Second
)

// @title FieldSync API
// @version 1.0
// @description Sync server for offline field-sales capture.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	warnings, err := config.ValidateEnvWithWarnings()
	if err != nil {
		slog.Error("Invalid environment", "error", err)
		os.Exit(1)
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	for _, w := range warnings {
		slog.Warn(w)
	}
	slog.Info(bootstrap.LogMsgStartingFieldSync, "version", cfg.Version, "environment", cfg.Environment, "port", cfg.Port)

	if err := run(cfg); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, cfg.GetDBConnString()); err != nil {
			return err
		}
	}

	dbPool, err := database.NewPool(ctx, cfg.GetDBConnString(), cfg.DBMaxConns, cfg.DBMaxConnIdleTime, cfg.DBMaxConnLifetime)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	bus, publisher, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		return err
	}

	repos := bootstrap.InitializeRepositories(dbPool)
	syncLog := eventlog.NewService(repos.SyncLog)
	if err := bootstrap.RegisterEventHandlers(bootstrap.EventHandlerDependencies{
		EventBus:       bus,
		SyncLogService: syncLog,
	}); err != nil {
		return err
	}

	recon, err := reconciler.NewService(repos.Sync, validation.NewSchemaValidator(), publisher, reconciler.Config{
		Timeout:         cfg.SyncTimeout,
		MaxBatch:        cfg.BulkMaxRecords,
		ReplayCacheSize: cfg.ReplayCacheSize,
		ReplayCacheTTL:  cfg.ReplayCacheTTL,
	})
	if err != nil {
		return err
	}
	if err := recon.Verify(ctx); err != nil {
		return err
	}

	tokens, err := auth.NewJWTAuth(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	authService := auth.NewService(repos.User, tokens, publisher)

	pool := worker.NewPool(maintenanceWorkers, maintenanceQueueSize).WithJobTimeout(maintenanceTimeout)
	pool.Start()
	sched := scheduler.New(pool)
	sched.ScheduleNow("synclog-cleanup", syncLogCleanupEvery, eventlog.NewCleanupJob(syncLog, cfg.SyncLogRetentionDays))

	srv := server.NewServer(server.Config{
		Port:           cfg.Port,
		TrustedProxies: cfg.TrustedProxies,
	}, server.Dependencies{
		DB:         dbPool,
		Tokens:     tokens,
		Auth:       authService,
		Reconciler: recon,
		SyncLog:    syncLog,
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	bootstrap.GracefulShutdown(shutdownCtx, bootstrap.ShutdownComponents{
		Server:             srv,
		Scheduler:          sched,
		WorkerPool:         pool,
		ResilientPublisher: publisher,
	})
	return err
}
