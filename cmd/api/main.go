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
	"go.uber.org/multierr"

	"github.com/handova/handova-backend/api/routes"
	"github.com/handova/handova-backend/internal/bankaccounts"
	"github.com/handova/handova-backend/internal/mailer"
	"github.com/handova/handova-backend/internal/orders"
	"github.com/handova/handova-backend/internal/payments"
	"github.com/handova/handova-backend/internal/payouts"
	"github.com/handova/handova-backend/pkg/config"
	"github.com/handova/handova-backend/pkg/db"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/metrics"
	"github.com/handova/handova-backend/pkg/migrate"
	"github.com/handova/handova-backend/pkg/paystack"
	"github.com/handova/handova-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	closeResources := func() {
		err := multierr.Combine(dbClient.Close(), redisClient.Close())
		if err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}
	defer closeResources()

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap paystack client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	notifier, err := mailer.New(&mailer.LogSender{Logger: logg}, ordersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:               ordersRepo,
		Tx:                 dbClient,
		Notifier:           notifier,
		Logger:             logg,
		NextPayoutDate:     payouts.NextPayoutDate,
		ReleaseWindow:      cfg.Escrow.ReleaseWindow(),
		MaxReleaseAttempts: cfg.Escrow.MaxReleaseAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:        ordersService,
		Users:         ordersRepo,
		Gateway:       paystackClient,
		Idempotency:   redisClient,
		Logger:        logg,
		WebhookSecret: cfg.Paystack.SecretKey,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	payoutsRepo := payouts.NewRepository(dbClient.DB())
	payoutsService, err := payouts.NewService(payoutsRepo, nil, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	settlementEngine, err := payouts.NewEngine(payouts.EngineParams{
		Repo:    payoutsRepo,
		Tx:      dbClient,
		Gateway: paystackClient,
		Logger:  logg,
		Metrics: metrics.NewPayoutMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement engine", err)
		os.Exit(1)
	}

	bankAccountsService, err := bankaccounts.NewService(bankaccounts.ServiceParams{
		Repo:    bankaccounts.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Gateway: paystackClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bank accounts service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Orders:       ordersService,
			Payments:     paymentsService,
			Payouts:      payoutsService,
			Settlement:   settlementEngine,
			BankAccounts: bankAccountsService,
			Gatherer:     prometheus.DefaultGatherer,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		closeResources()
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
