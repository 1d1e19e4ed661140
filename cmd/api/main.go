package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tokenomics/api/controllers"
	"github.com/angelmondragon/tokenomics/api/routes"
	"github.com/angelmondragon/tokenomics/internal/app"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/pubsub"
	"github.com/angelmondragon/tokenomics/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	var redisPinger controllers.Pinger
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
		redisPinger = redisClient
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisPinger,
			Gatherer:      prometheus.DefaultGatherer,
			Admins:        svcs.Accounts,
			Supply:        svcs.Supply,
			Fees:          svcs.Fees,
			Staking:       svcs.Staking,
			Sweeper:       svcs.Sweeper,
			Trading:       svcs.Trading,
			Wallets:       svcs.Wallets,
			Ledger:        svcs.Ledger,
			Notifications: svcs.Notifications,
		}),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}
