package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tokenomics/api/controllers"
	"github.com/angelmondragon/tokenomics/api/middleware"
	"github.com/angelmondragon/tokenomics/internal/fees"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/notifications"
	"github.com/angelmondragon/tokenomics/internal/staking"
	"github.com/angelmondragon/tokenomics/internal/supply"
	"github.com/angelmondragon/tokenomics/internal/trading"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

// RouterParams collects the services exposed over HTTP.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Gatherer prometheus.Gatherer

	Admins        middleware.AdminChecker
	Supply        supply.Service
	Fees          fees.Service
	Staking       staking.Service
	Sweeper       controllers.StakeSweeper
	Trading       trading.Service
	Wallets       wallets.Service
	Ledger        ledger.Service
	Notifications notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	deps := map[string]controllers.Pinger{"db": p.DB}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps, logg))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/supply", controllers.SupplyStatus(p.Supply, logg))
		r.Get("/wallet", controllers.GetWallet(p.Wallets, logg))
		r.Get("/ledger", controllers.ListLedgerEvents(p.Ledger, logg))

		r.Route("/stakes", func(r chi.Router) {
			r.Get("/", controllers.ListStakes(p.Staking, logg))
			r.Post("/", controllers.OpenStake(p.Staking, logg))
		})

		r.Route("/trading", func(r chi.Router) {
			r.Post("/buy", controllers.BuyTokens(p.Trading, logg))
			r.Post("/sell", controllers.SellTokens(p.Trading, logg))
			r.Post("/transfer", controllers.TransferBalance(p.Trading, logg))
			r.Post("/withdraw", controllers.WithdrawBalance(p.Trading, logg))
			r.Get("/history", controllers.TransferHistory(p.Trading, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(p.Admins, logg))

		r.Route("/supply", func(r chi.Router) {
			r.Get("/", controllers.SupplyStatus(p.Supply, logg))
			r.Get("/transfers", controllers.AdminReserveTransferHistory(p.Supply, logg))
			r.Post("/transfers", controllers.AdminReserveTransfer(p.Supply, logg))
		})

		r.Route("/fees", func(r chi.Router) {
			r.Get("/", controllers.AdminListFees(p.Fees, logg))
			r.Put("/{kind}", controllers.AdminUpdateFee(p.Fees, logg))
		})

		r.Route("/stakes", func(r chi.Router) {
			r.Post("/sweep", controllers.AdminSweepStakes(p.Sweeper, logg))
			r.Post("/{stakeId}/settle", controllers.AdminSettleStake(p.Staking, logg))
		})

		r.Post("/withdrawals/{transferId}/resolve", controllers.AdminResolveWithdrawal(p.Trading, logg))
	})

	return r
}
