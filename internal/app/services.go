package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/fees"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/notifications"
	"github.com/angelmondragon/tokenomics/internal/pricing"
	"github.com/angelmondragon/tokenomics/internal/staking"
	"github.com/angelmondragon/tokenomics/internal/supply"
	"github.com/angelmondragon/tokenomics/internal/trading"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/angelmondragon/tokenomics/pkg/pubsub"
	"github.com/angelmondragon/tokenomics/pkg/redis"
)

// Deps are the already-connected infrastructure clients. Redis and PubSub are optional.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	PubSub     *pubsub.Client
	Registerer prometheus.Registerer
}

// Services is the wired domain graph shared by the api and cron-worker processes.
type Services struct {
	Accounts          accounts.Provider
	Wallets           wallets.Service
	Ledger            ledger.Service
	Supply            supply.Service
	Oracle            pricing.Oracle
	Fees              fees.Service
	Staking           staking.Service
	Sweeper           *staking.Sweeper
	Trading           trading.Service
	Notifications     notifications.Service
	NotificationsRepo notifications.Repository
	SettlementMetrics *metrics.SettlementMetrics
}

func Build(deps Deps) (*Services, error) {
	if deps.Config == nil || deps.Logger == nil || deps.DB == nil {
		return nil, fmt.Errorf("config, logger and db are required")
	}
	cfg := deps.Config
	logg := deps.Logger
	conn := deps.DB.DB()

	accountsProvider, err := accounts.NewProvider(accounts.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	walletsSvc, err := wallets.NewService(wallets.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, err
	}

	supplyRepo := supply.NewRepository(conn)
	oracle, err := pricing.NewOracle(pricing.OracleParams{
		Supply:     supplyRepo,
		Tokenomics: cfg.Tokenomics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	settlementMetrics := metrics.NewSettlementMetrics(deps.Registerer)

	supplySvc, err := supply.NewService(supply.ServiceParams{
		Repository: supplyRepo,
		DB:         deps.DB,
		Accounts:   accountsProvider,
		Ledger:     ledgerSvc,
		Oracle:     oracle,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	var feeCache fees.SettingsCache
	if deps.Redis != nil {
		redisCache, err := fees.NewRedisCache(deps.Redis, cfg.Tokenomics.FeeCacheTTL)
		if err != nil {
			return nil, err
		}
		feeCache = redisCache
	}
	feesRepo := fees.NewRepository(conn)
	calculator, err := fees.NewCalculator(fees.CalculatorParams{
		Repository: feesRepo,
		Cache:      feeCache,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	feesSvc, err := fees.NewService(fees.ServiceParams{
		Repository: feesRepo,
		Calculator: calculator,
		Cache:      feeCache,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	crediter, err := fees.NewCrediter(accountsProvider, walletsSvc, ledgerSvc)
	if err != nil {
		return nil, err
	}

	notificationsRepo := notifications.NewRepository(conn)
	notifier, err := buildNotifier(notificationsRepo, deps.PubSub)
	if err != nil {
		return nil, err
	}
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, err
	}

	stakesRepo := staking.NewRepository(conn)
	stakingSvc, err := staking.NewService(staking.ServiceParams{
		Repository:        stakesRepo,
		DB:                deps.DB,
		Accounts:          accountsProvider,
		Wallets:           walletsSvc,
		Supply:            supplySvc,
		Ledger:            ledgerSvc,
		Notifier:          notifier,
		Metrics:           settlementMetrics,
		Logger:            logg,
		ReferralBonusRate: cfg.Tokenomics.ReferralBonusRate,
	})
	if err != nil {
		return nil, err
	}
	sweeper, err := staking.NewSweeper(staking.SweeperParams{
		Repository: stakesRepo,
		Service:    stakingSvc,
		Logger:     logg,
		BatchSize:  cfg.Cron.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}

	tradingSvc, err := trading.NewService(trading.ServiceParams{
		Repository: trading.NewRepository(conn),
		DB:         deps.DB,
		Accounts:   accountsProvider,
		Wallets:    walletsSvc,
		Fees:       calculator,
		Crediter:   crediter,
		Oracle:     oracle,
		Ledger:     ledgerSvc,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Accounts:          accountsProvider,
		Wallets:           walletsSvc,
		Ledger:            ledgerSvc,
		Supply:            supplySvc,
		Oracle:            oracle,
		Fees:              feesSvc,
		Staking:           stakingSvc,
		Sweeper:           sweeper,
		Trading:           tradingSvc,
		Notifications:     notificationsSvc,
		NotificationsRepo: notificationsRepo,
		SettlementMetrics: settlementMetrics,
	}, nil
}

func buildNotifier(repo notifications.Repository, publisher *pubsub.Client) (notifications.Notifier, error) {
	store, err := notifications.NewStoreNotifier(repo)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		return store, nil
	}
	published, err := notifications.NewPubSubNotifier(publisher)
	if err != nil {
		return nil, err
	}
	return notifications.Multi{store, published}, nil
}

// Bootstrap migrates the schema when enabled and seeds the supply singleton.
func Bootstrap(ctx context.Context, deps Deps, svcs *Services) error {
	if deps.Config.FeatureFlags.AutoMigrate {
		if err := deps.DB.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}
	ledgerRow, err := svcs.Supply.Define(ctx, deps.Config.Tokenomics.TotalSupply, deps.Config.Tokenomics.TotalUserAllocation)
	if err != nil {
		return fmt.Errorf("define supply: %w", err)
	}
	deps.Logger.Info(deps.Logger.WithFields(ctx, map[string]any{
		"total_supply":          ledgerRow.TotalSupply.String(),
		"circulating_remaining": ledgerRow.UserCirculatingRemaining.String(),
	}), "supply ledger ready")
	return nil
}
