package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/handova/handova-backend/api/controllers"
	"github.com/handova/handova-backend/api/middleware"
	"github.com/handova/handova-backend/internal/bankaccounts"
	"github.com/handova/handova-backend/internal/orders"
	"github.com/handova/handova-backend/internal/payments"
	"github.com/handova/handova-backend/internal/payouts"
	"github.com/handova/handova-backend/pkg/config"
	"github.com/handova/handova-backend/pkg/db"
	"github.com/handova/handova-backend/pkg/enums"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/redis"
)

// RouterParams carry everything the HTTP surface depends on.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *db.Client
	Redis *redis.Client

	Orders       orders.Service
	Payments     payments.Service
	Payouts      payouts.Service
	Settlement   controllers.Settler
	BankAccounts bankaccounts.Service

	// Gatherer backs the /metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", controllers.PaystackWebhook(params.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(params.Orders, logg))
			r.Get("/buying", controllers.ListBuying(params.Orders, logg))
			r.Get("/selling", controllers.ListSelling(params.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(params.Orders, logg))
			r.Get("/{orderId}/status", controllers.OrderStatus(params.Orders, logg))
			r.Post("/{orderId}/pay", controllers.InitializePayment(params.Payments, logg))
			r.Post("/{orderId}/verify-release", controllers.VerifyRelease(params.Orders, logg))
			r.Post("/{orderId}/queue-payout", controllers.QueuePayout(params.Orders, logg))
		})

		r.Post("/payments/confirm", controllers.ConfirmPayment(params.Payments, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListPayouts(params.Payouts, logg))
		})

		r.Route("/bank-accounts", func(r chi.Router) {
			r.Post("/", controllers.AddBankAccount(params.BankAccounts, logg))
			r.Get("/", controllers.ListBankAccounts(params.BankAccounts, logg))
			r.Post("/{accountId}/primary", controllers.SetPrimaryBankAccount(params.BankAccounts, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Post("/process", controllers.AdminProcessPayouts(params.Settlement, logg))
			r.Get("/stats", controllers.AdminPayoutStats(params.Payouts, logg))
			r.Get("/pending/{date}", controllers.AdminPendingPayouts(params.Payouts, logg))
			r.Get("/{payoutId}", controllers.AdminPayoutDetail(params.Payouts, logg))
			r.Post("/{payoutId}/retry", controllers.AdminRetryPayout(params.Payouts, logg))
		})
	})

	return r
}
