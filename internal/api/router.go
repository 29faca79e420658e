package api

import (
	"time"

	"github.com/ayo6706/wallet-ledger/internal/api/handler"
	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/api/spec"
	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/config"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	DB          handler.Pinger
	Redis       redis.Cmdable
	Idempotency *idempotency.Store
	Rates       handler.RateSource
	RateTimeout time.Duration

	Accounts       *service.AccountService
	Ledger         *service.LedgerService
	Orders         *service.OrderService
	Deposits       *service.DepositService
	Withdrawals    *service.WithdrawalService
	Reconciliation *service.ReconciliationService
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, deps: deps}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.deps.DB, api.deps.Redis)
	ratesHandler := handler.NewRatesHandler(api.deps.Rates, api.deps.RateTimeout)
	accountHandler := handler.NewAccountHandler(api.deps.Accounts, api.deps.Ledger, api.deps.Orders)
	orderHandler := handler.NewOrderHandler(api.deps.Orders)
	depositHandler := handler.NewDepositHandler(api.deps.Deposits)
	withdrawalHandler := handler.NewWithdrawalHandler(api.deps.Withdrawals)
	adminHandler := handler.NewAdminHandler(api.deps.Ledger, api.deps.Reconciliation)

	idempotent := middleware.IdempotencyMiddleware(api.deps.Idempotency, api.logger)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Get("/health/live", healthHandler.Live)
		r.Get("/health/ready", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

		if api.deps.Rates != nil {
			r.Get("/v1/rates", ratesHandler.List)
			r.Get("/v1/rates/quote", ratesHandler.Quote)
		}
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Route("/v1/accounts", func(r chi.Router) {
			r.With(middleware.RequireCapability(authz.ManageAccounts)).Post("/", accountHandler.Provision)
			r.With(middleware.RequireCapability(authz.ManageAccounts)).Post("/{id}/deactivate", accountHandler.Deactivate)
			r.With(middleware.RequireCapability(authz.ManageAccounts)).Post("/{id}/activate", accountHandler.Activate)
			r.Get("/{id}/balance", accountHandler.GetBalance)
			r.Get("/{id}/entries", accountHandler.ListEntries)
			r.Get("/{id}/orders", accountHandler.ListOrders)
		})

		r.With(idempotent).Post("/v1/orders", orderHandler.PlaceOrder)
		r.Get("/v1/orders/{id}", orderHandler.GetOrder)

		r.Route("/v1/payment-reports", func(r chi.Router) {
			r.With(idempotent).Post("/", depositHandler.Submit)
			r.Get("/", depositHandler.List)
			r.Get("/{id}", depositHandler.Get)
			r.With(middleware.RequireCapability(authz.ReviewDeposits)).Post("/{id}/approve", depositHandler.Approve)
			r.With(middleware.RequireCapability(authz.ReviewDeposits)).Post("/{id}/reject", depositHandler.Reject)
		})

		r.Route("/v1/withdrawals", func(r chi.Router) {
			r.With(idempotent).Post("/", withdrawalHandler.Request)
			r.Get("/", withdrawalHandler.List)
			r.With(middleware.RequireCapability(authz.ReviewWithdrawals)).Get("/pending", withdrawalHandler.ListPending)
			r.Get("/{id}", withdrawalHandler.Get)
			r.With(middleware.RequireCapability(authz.ReviewWithdrawals)).Post("/{id}/confirm", withdrawalHandler.Confirm)
			r.With(middleware.RequireCapability(authz.ReviewWithdrawals)).Post("/{id}/reject", withdrawalHandler.Reject)
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireCapability(authz.ViewLedgerReports))
			r.Get("/ledger/totals", adminHandler.Totals)
			r.Get("/ledger/entries", adminHandler.ListEntries)
			r.Post("/reconciliation", adminHandler.Reconcile)
			r.With(middleware.RequireCapability(authz.ManageAccounts), idempotent).Post("/accounts/{id}/credits", adminHandler.Credit)
		})
	})

	return r
}
