package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/serviq/booking-engine/internal/availability"
	"github.com/serviq/booking-engine/internal/booking"
	"github.com/serviq/booking-engine/internal/observability/metrics"
)

type RouterConfig struct {
	Service           *booking.Service
	AvailabilityStore availability.Store
	PgPool            *pgxpool.Pool
	Redis             *redis.Client
	Logger            *slog.Logger
	Metrics           *metrics.BookingMetrics
	Location          *time.Location
	WebhookSecret     string
	WebhookTolerance  time.Duration
	Env               string
	Version           string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Availability and slots
	r.Get("/professionals/{id}/availability", getAvailabilityHandler(cfg.AvailabilityStore))
	r.Put("/professionals/{id}/availability", replaceAvailabilityHandler(cfg.AvailabilityStore))
	r.Get("/professionals/{id}/slots", listSlotsHandler(cfg.Service, cfg.AvailabilityStore, cfg.Location))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service, cfg.Location))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Get("/clients/{id}/appointments", listClientAppointmentsHandler(cfg.Service))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/ratify-cancellation", ratifyCancellationHandler(cfg.Service))

	// Gateway callbacks
	wh := NewStripeWebhookHandler(cfg.Service, cfg.WebhookSecret, cfg.WebhookTolerance, cfg.Logger)
	r.Post("/webhooks/stripe", wh.Handle)

	return r
}
