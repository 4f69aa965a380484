package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/serviq/booking-engine/internal/api"
	"github.com/serviq/booking-engine/internal/availability"
	"github.com/serviq/booking-engine/internal/booking"
	"github.com/serviq/booking-engine/internal/config"
	"github.com/serviq/booking-engine/internal/db"
	"github.com/serviq/booking-engine/internal/invoice"
	"github.com/serviq/booking-engine/internal/logging"
	"github.com/serviq/booking-engine/internal/notify"
	"github.com/serviq/booking-engine/internal/observability/metrics"
	"github.com/serviq/booking-engine/internal/payment"
	redisclient "github.com/serviq/booking-engine/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New("api-server", cfg.LogLevel)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort)

	if cfg.StripeSecretKey == "" {
		logger.Error("STRIPE_SECRET_KEY is required")
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PGMaxConns)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		logger.Error("redis connection error", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "err", err)
		}
	}()
	logger.Info("connected to Redis")

	m := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	repo := booking.NewPgRepository(pgPool)
	availStore := availability.NewPgStore(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.GatewayTimeout)
	coordinator := payment.NewCoordinator(gateway, logger, m)

	svc := booking.NewService(booking.ServiceConfig{
		Repo:     repo,
		Locker:   locker,
		Payments: coordinator,
		Notifier: notify.NewLogNotifier(logger),
		Invoices: invoice.NewPgGenerator(pgPool),
		Pricing: booking.Pricing{
			Tariff30Cents:   cfg.Tariff30Cents,
			Tariff60Cents:   cfg.Tariff60Cents,
			TaxRateBasisPts: cfg.TaxRateBasisPts,
			Currency:        cfg.Currency,
		},
		PendingTTL: cfg.PendingTTL,
		Location:   cfg.TimeLocation,
		Logger:     logger,
		Metrics:    m,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:           svc,
		AvailabilityStore: availStore,
		PgPool:            pgPool,
		Redis:             rdb,
		Logger:            logger,
		Metrics:           m,
		Location:          cfg.TimeLocation,
		WebhookSecret:     cfg.StripeWebhookSecret,
		WebhookTolerance:  cfg.StripeWebhookTolerance,
		Env:               cfg.Env,
		Version:           version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
