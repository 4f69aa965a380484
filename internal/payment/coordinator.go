package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/serviq/booking-engine/internal/booking"
	"github.com/serviq/booking-engine/internal/observability/metrics"
)

// Coordinator bridges the appointment state machine to the gateway. Its one
// hard invariant: never issue a capture for a hold that was already captured
// or released. The guard is the appointment's current state-machine status,
// checked before any gateway call.
type Coordinator struct {
	gateway Gateway
	logger  *slog.Logger
	metrics *metrics.BookingMetrics
}

func NewCoordinator(gateway Gateway, logger *slog.Logger, m *metrics.BookingMetrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{gateway: gateway, logger: logger, metrics: m}
}

func (c *Coordinator) RequestHold(ctx context.Context, appt *booking.Appointment) (string, string, error) {
	hold, err := c.gateway.CreateHold(ctx, appt.AmountInclTax, appt.Currency, appt.ID.String())
	if err != nil {
		c.metrics.ObserveGateway("create_hold", "error")
		return "", "", err
	}

	c.metrics.ObserveGateway("create_hold", "ok")
	c.logger.Info("payment hold requested", "appointment_id", appt.ID, "hold_ref", hold.Ref)
	return hold.Ref, hold.ClientSecret, nil
}

func (c *Coordinator) Capture(ctx context.Context, appt *booking.Appointment) error {
	switch appt.Status {
	case booking.StatusConfirmed:
		// Capture already applied; a second gateway call must not go out.
		c.logger.Info("capture skipped, hold already captured", "appointment_id", appt.ID)
		return nil
	case booking.StatusPaymentAuthorized:
		// fall through to the gateway
	default:
		return fmt.Errorf("%w: status %s", ErrHoldNotCapturable, appt.Status)
	}

	if err := c.gateway.Capture(ctx, appt.HoldRef); err != nil {
		c.metrics.ObserveGateway("capture", "error")
		return err
	}

	c.metrics.ObserveGateway("capture", "ok")
	c.logger.Info("payment hold captured", "appointment_id", appt.ID, "hold_ref", appt.HoldRef)
	return nil
}

func (c *Coordinator) Release(ctx context.Context, appt *booking.Appointment) error {
	switch appt.Status {
	case booking.StatusPaymentInitiated, booking.StatusPaymentAuthorized:
		// pre-capture, releasable
	default:
		return fmt.Errorf("%w: status %s", ErrHoldNotReleasable, appt.Status)
	}

	if err := c.gateway.Release(ctx, appt.HoldRef); err != nil {
		c.metrics.ObserveGateway("release", "error")
		return err
	}

	c.metrics.ObserveGateway("release", "ok")
	c.logger.Info("payment hold released", "appointment_id", appt.ID, "hold_ref", appt.HoldRef)
	return nil
}

func (c *Coordinator) Refund(ctx context.Context, appt *booking.Appointment) error {
	switch appt.Status {
	case booking.StatusConfirmed, booking.StatusCancelledByProPending:
		// captured, refundable
	default:
		return fmt.Errorf("%w: status %s", ErrNotRefundable, appt.Status)
	}

	if err := c.gateway.Refund(ctx, appt.HoldRef); err != nil {
		c.metrics.ObserveGateway("refund", "error")
		return err
	}

	c.metrics.ObserveGateway("refund", "ok")
	c.logger.Info("payment refunded", "appointment_id", appt.ID, "hold_ref", appt.HoldRef)
	return nil
}

func (c *Coordinator) Payout(ctx context.Context, appt *booking.Appointment, payoutAccount string) (string, error) {
	if appt.Status != booking.StatusPendingPayout {
		return "", fmt.Errorf("%w: status %s", ErrNotPayable, appt.Status)
	}

	transferRef, err := c.gateway.Payout(ctx, appt.AmountExclTax, appt.Currency, payoutAccount, "payout:"+appt.ID.String())
	if err != nil {
		c.metrics.ObserveGateway("payout", "error")
		return "", err
	}

	c.metrics.ObserveGateway("payout", "ok")
	c.logger.Info("payout sent", "appointment_id", appt.ID, "transfer_ref", transferRef)
	return transferRef, nil
}
