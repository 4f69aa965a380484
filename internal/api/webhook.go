package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/serviq/booking-engine/internal/booking"
)

// StripeWebhookHandler receives the gateway's asynchronous events. Signature
// verification is the auth; there is no JWT on this route.
type StripeWebhookHandler struct {
	svc       *booking.Service
	secret    string
	tolerance time.Duration
	logger    *slog.Logger
}

func NewStripeWebhookHandler(svc *booking.Service, secret string, tolerance time.Duration, logger *slog.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		svc:       svc,
		secret:    secret,
		tolerance: tolerance,
		logger:    logger,
	}
}

func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeError(w, http.StatusServiceUnavailable, "webhook_not_configured", "stripe webhook secret is not set")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		writeError(w, http.StatusBadRequest, "missing_signature", "Stripe-Signature header required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.secret, h.tolerance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}

	h.logger.Info("gateway event received", "event_id", evt.ID, "event_type", string(evt.Type))

	switch evt.Type {
	case "payment_intent.amount_capturable_updated":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("invalid payment intent payload", "event_id", evt.ID, "err", err)
			writeError(w, http.StatusBadRequest, "invalid_payload", "could not decode payment intent")
			return
		}

		_, err := h.svc.ConfirmHold(r.Context(), pi.ID)
		switch {
		case err == nil:
		case errors.Is(err, booking.ErrIllegalTransition):
			// Replayed event; the hold was already confirmed. Acknowledge so
			// the gateway stops retrying.
			h.logger.Info("hold authorization replay ignored", "hold_ref", pi.ID)
		case errors.Is(err, booking.ErrConcurrentModification):
			// Let the gateway redeliver; the next attempt sees fresh state.
			writeError(w, http.StatusConflict, "concurrent_modification", err.Error())
			return
		case errors.Is(err, booking.ErrAppointmentNotFound):
			// The event can outrun the transaction that records the hold ref.
			// Answer non-2xx so the gateway redelivers once the row exists.
			h.logger.Warn("hold authorization for unknown appointment", "hold_ref", pi.ID)
			writeError(w, http.StatusNotFound, "appointment_not_found", "no appointment for this hold reference")
			return
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

	case "payment_intent.payment_failed", "payment_intent.canceled":
		// The appointment stays in its last committed status; a failed hold
		// is retried by the client or expired by cleanup.
		h.logger.Info("hold did not authorize", "event_type", string(evt.Type))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
