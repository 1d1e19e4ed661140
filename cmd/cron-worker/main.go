package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tokenomics/internal/app"
	"github.com/angelmondragon/tokenomics/internal/cron"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/angelmondragon/tokenomics/pkg/pubsub"
	"github.com/angelmondragon/tokenomics/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	deps := app.Deps{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Registerer: prometheus.DefaultRegisterer,
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		deps.Redis = redisClient

		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", lockEnv(cfg.App.Env)), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	}

	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		deps.PubSub = psClient
	}

	svcs, err := app.Build(deps)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	if err := app.Bootstrap(context.Background(), deps, svcs); err != nil {
		logg.Error(context.Background(), "failed to bootstrap supply", err)
		os.Exit(1)
	}

	settlementJob, err := cron.NewStakeSettlementJob(cron.StakeSettlementJobParams{
		Logger:  logg,
		Sweeper: svcs.Sweeper,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stake settlement job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: svcs.NotificationsRepo,
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(settlementJob, cleanupJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.SweepInterval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
