package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/destelloperu/destello-backend/internal/cron"
	"github.com/destelloperu/destello-backend/internal/inventory"
	"github.com/destelloperu/destello-backend/internal/products"
	"github.com/destelloperu/destello-backend/pkg/config"
	"github.com/destelloperu/destello-backend/pkg/db"
	"github.com/destelloperu/destello-backend/pkg/logger"
	"github.com/destelloperu/destello-backend/pkg/metrics"
	"github.com/destelloperu/destello-backend/pkg/migrate"
	"github.com/destelloperu/destello-backend/pkg/outbox"
	"github.com/destelloperu/destello-backend/pkg/redis"
)

const serviceName = "cron-worker"

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(logg, "failed to load config", err)
	}

	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, outboxSvc, products.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create inventory service", err)
	}

	reconcileJob, err := cron.NewInventoryReconcileJob(cron.InventoryReconcileJobParams{
		Logger:    logg,
		Inventory: inventoryService,
		Repair:    cfg.FeatureFlags.RepairStockOnDrift,
	})
	if err != nil {
		fatal(logg, "failed to create reconcile job", err)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(gormDB),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		fatal(logg, "failed to create retention job", err)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		fatal(logg, "failed to create cron lock", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconcileJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		fatal(logg, "failed to create cron service", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", serviceName, env)
}
