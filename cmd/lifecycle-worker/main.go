package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/serviq/booking-engine/internal/booking"
	"github.com/serviq/booking-engine/internal/config"
	"github.com/serviq/booking-engine/internal/db"
	"github.com/serviq/booking-engine/internal/invoice"
	"github.com/serviq/booking-engine/internal/logging"
	"github.com/serviq/booking-engine/internal/notify"
	"github.com/serviq/booking-engine/internal/payment"
	redisclient "github.com/serviq/booking-engine/internal/redis"
)

// The worker drives the time-based half of the lifecycle: bookings whose
// payment hold never resolved are expired back into inventory, confirmed
// appointments whose end time has passed become completed, and completed
// appointments are paid out to the professional.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New("lifecycle-worker", cfg.LogLevel)
	logger.Info("lifecycle-worker starting up", "interval", cfg.WorkerInterval.String())

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		logger.Error("redis connection error", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.GatewayTimeout)

	svc := booking.NewService(booking.ServiceConfig{
		Repo:     booking.NewPgRepository(pgPool),
		Locker:   redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL),
		Payments: payment.NewCoordinator(gateway, logger, nil),
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
	})

	// Run once immediately so a restart does not wait a full interval.
	runOnce(rootCtx, svc, cfg.WorkerInterval, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutting down lifecycle-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.WorkerInterval, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, interval time.Duration, logger *slog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	expired, err := svc.ExpireStaleHolds(runCtx)
	if err != nil {
		logger.Error("expire stale holds", "err", err)
	}

	completed, err := svc.CompleteElapsed(runCtx)
	if err != nil {
		logger.Error("complete elapsed appointments", "err", err)
	}

	paidOut, err := svc.RunPayoutBatch(runCtx)
	if err != nil {
		logger.Error("payout batch", "err", err)
	}

	if expired > 0 || completed > 0 || paidOut > 0 {
		logger.Info("lifecycle run finished", "expired", expired, "completed", completed, "paid_out", paidOut)
	}
}
