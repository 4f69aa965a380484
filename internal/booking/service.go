package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/serviq/booking-engine/internal/observability/metrics"
	redisclient "github.com/serviq/booking-engine/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventHoldRequested        = "PAYMENT_HOLD_REQUESTED"
	EventHoldAuthorized       = "PAYMENT_HOLD_AUTHORIZED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventPayoutSent           = "PAYOUT_SENT"
)

var (
	// ErrSlotNoLongerAvailable means the booking race was lost: the caller
	// should refresh the slot list, not retry blindly.
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")

	// ErrSlotBeingBooked means another booking for the same professional-day
	// holds the lock right now.
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")

	ErrTooLateToCancel = errors.New("appointment start time has passed, cancellation refused")
)

type NotificationKind string

const (
	NotifyConfirmed         NotificationKind = "appointment_confirmed"
	NotifyCancelledByClient NotificationKind = "appointment_cancelled_by_client"
	NotifyCancelledByPro    NotificationKind = "appointment_cancelled_by_pro"
	NotifyCompleted         NotificationKind = "appointment_completed"
)

// Notifier is a fire-and-forget sink; delivery failures never affect a
// transition's outcome.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, kind NotificationKind, appt *Appointment)
}

// InvoiceGenerator freezes billing documents from the amounts already stored
// on the appointment. It must not recompute pricing.
type InvoiceGenerator interface {
	Generate(ctx context.Context, appt *Appointment) error
}

// PaymentCoordinator bridges the state machine to the external gateway.
type PaymentCoordinator interface {
	RequestHold(ctx context.Context, appt *Appointment) (holdRef, clientSecret string, err error)
	Capture(ctx context.Context, appt *Appointment) error
	Release(ctx context.Context, appt *Appointment) error
	Refund(ctx context.Context, appt *Appointment) error
	Payout(ctx context.Context, appt *Appointment, payoutAccount string) (transferRef string, err error)
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	payments PaymentCoordinator
	notifier Notifier
	invoices InvoiceGenerator
	pricing    Pricing
	pendingTTL time.Duration
	clock      Clock
	loc        *time.Location
	logger     *slog.Logger
	metrics    *metrics.BookingMetrics
}

type ServiceConfig struct {
	Repo     Repository
	Locker   redisclient.Locker
	Payments PaymentCoordinator
	Notifier Notifier
	Invoices InvoiceGenerator
	Pricing Pricing

	// PendingTTL is how long an unresolved hold keeps its slot before the
	// worker expires it.
	PendingTTL time.Duration

	Clock    Clock
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.BookingMetrics
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}
	return &Service{
		repo:       cfg.Repo,
		locker:     cfg.Locker,
		payments:   cfg.Payments,
		notifier:   cfg.Notifier,
		invoices:   cfg.Invoices,
		pricing:    cfg.Pricing,
		pendingTTL: cfg.PendingTTL,
		clock:      cfg.Clock,
		loc:        cfg.Location,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// DayBounds returns the [start, end) window of the calendar day containing t,
// in the marketplace's operating locale.
func (s *Service) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// AppointmentsForDay returns every appointment of the professional on the
// calendar day containing t, regardless of status. Slot generation filters by
// blocking status itself.
func (s *Service) AppointmentsForDay(ctx context.Context, professionalID uuid.UUID, t time.Time) ([]Appointment, error) {
	dayStart, dayEnd := s.DayBounds(t)
	appts, err := s.repo.FindByProfessionalAndDate(ctx, professionalID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load day appointments: %w", err)
	}
	return appts, nil
}

// Book reserves a window for a client and requests the payment hold.
//
// The re-validation against the latest committed appointments happens inside
// the per professional-day lock, immediately before the insert: the slot list
// the client saw may be stale. A failed hold request leaves the appointment
// in pending so it can be retried or expired, never partially advanced.
func (s *Service) Book(ctx context.Context, professionalID, clientID uuid.UUID, start time.Time, durationMinutes int) (*Appointment, string, error) {
	if !ValidDuration(durationMinutes) {
		return nil, "", fmt.Errorf("%w: got %d", ErrInvalidDuration, durationMinutes)
	}

	if _, err := s.repo.GetProfessionalByID(ctx, professionalID); err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("load professional: %w", err)
	}
	if _, err := s.repo.GetClientByID(ctx, clientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("load client: %w", err)
	}

	exclTax, inclTax, err := s.pricing.Quote(durationMinutes)
	if err != nil {
		return nil, "", err
	}

	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	dayStart, dayEnd := s.DayBounds(start)
	dayKey := dayStart.Format("2006-01-02")

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, professionalID, dayKey, func(lockCtx context.Context) error {
		existing, err := s.repo.FindByProfessionalAndDate(lockCtx, professionalID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("re-fetch day appointments: %w", err)
		}
		if WindowBooked(existing, start, end) {
			return ErrSlotNoLongerAvailable
		}

		appt := &Appointment{
			ProfessionalID:  professionalID,
			ClientID:        clientID,
			StartTime:       start,
			DurationMinutes: durationMinutes,
			Status:          StatusPending,
			AmountExclTax:   exclTax,
			AmountInclTax:   inclTax,
			Currency:        s.pricing.Currency,
		}

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotNoLongerAvailable
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		s.logEvent(lockCtx, created.ID, EventAppointmentBooked, map[string]any{
			"professional_id":  professionalID.String(),
			"client_id":        clientID.String(),
			"start_time":       start,
			"duration_minutes": durationMinutes,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("contended")
			return nil, "", ErrSlotBeingBooked
		}
		if errors.Is(err, ErrSlotNoLongerAvailable) {
			s.metrics.ObserveBooking("slot_taken")
		}
		return nil, "", err
	}

	// The pending row already blocks the slot, so the (slow) gateway call
	// runs outside the lock.
	holdRef, clientSecret, err := s.payments.RequestHold(ctx, created)
	if err != nil {
		s.metrics.ObserveBooking("gateway_error")
		return created, "", fmt.Errorf("request payment hold: %w", err)
	}

	updated, err := s.transition(ctx, created, StatusPaymentInitiated, ActorSystem, StatusChange{HoldRef: &holdRef})
	if err != nil {
		return created, "", err
	}

	s.logEvent(ctx, updated.ID, EventHoldRequested, map[string]any{"hold_ref": holdRef})
	s.metrics.ObserveBooking("ok")
	s.logger.Info("appointment booked",
		"appointment_id", updated.ID,
		"professional_id", professionalID,
		"start_time", start,
		"duration_minutes", durationMinutes,
	)

	return updated, clientSecret, nil
}

// ConfirmHold is driven by the gateway's asynchronous authorization event,
// keyed by hold reference.
func (s *Service) ConfirmHold(ctx context.Context, holdRef string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByHoldRef(ctx, holdRef)
	if err != nil {
		return nil, fmt.Errorf("load appointment by hold ref: %w", err)
	}

	updated, err := s.transition(ctx, appt, StatusPaymentAuthorized, ActorGateway, StatusChange{})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventHoldAuthorized, map[string]any{"hold_ref": holdRef})
	return updated, nil
}

// Confirm is the professional accepting the appointment. The hold is captured
// first; the status advances only after the gateway reported success.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := Authorize(appt.Status, StatusConfirmed, ActorProfessional); err != nil {
		return nil, err
	}

	if err := s.payments.Capture(ctx, appt); err != nil {
		return nil, fmt.Errorf("capture payment hold: %w", err)
	}

	now := s.clock.Now()
	updated, err := s.transition(ctx, appt, StatusConfirmed, ActorProfessional, StatusChange{ConfirmedAt: &now})
	if err != nil {
		return nil, err
	}

	s.issueInvoices(ctx, updated)
	s.notify(ctx, updated.ClientID, NotifyConfirmed, updated)
	s.notify(ctx, updated.ProfessionalID, NotifyConfirmed, updated)
	s.logEvent(ctx, updated.ID, EventAppointmentConfirmed, map[string]any{})

	return updated, nil
}

// CancelByClient cancels before the appointment starts. An authorized hold is
// released; a captured (confirmed) payment is refunded.
func (s *Service) CancelByClient(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := Authorize(appt.Status, StatusCancelledByClient, ActorClient); err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(appt.StartTime) {
		return nil, ErrTooLateToCancel
	}

	switch appt.Status {
	case StatusPaymentAuthorized:
		if err := s.payments.Release(ctx, appt); err != nil {
			return nil, fmt.Errorf("release payment hold: %w", err)
		}
	case StatusConfirmed:
		if err := s.payments.Refund(ctx, appt); err != nil {
			return nil, fmt.Errorf("refund captured payment: %w", err)
		}
	}

	now := s.clock.Now()
	updated, err := s.transition(ctx, appt, StatusCancelledByClient, ActorClient, StatusChange{CancelledAt: &now})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated.ProfessionalID, NotifyCancelledByClient, updated)
	s.notify(ctx, updated.ClientID, NotifyCancelledByClient, updated)
	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{"actor": string(ActorClient)})

	return updated, nil
}

// CancelByProfessional parks a confirmed appointment pending admin
// ratification. No money moves until the cancellation is ratified.
func (s *Service) CancelByProfessional(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	updated, err := s.transition(ctx, appt, StatusCancelledByProPending, ActorProfessional, StatusChange{})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"actor":   string(ActorProfessional),
		"pending": true,
	})

	return updated, nil
}

// RatifyProfessionalCancellation finalizes a professional cancellation: the
// captured payment is refunded and the slot is released back into inventory.
func (s *Service) RatifyProfessionalCancellation(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := Authorize(appt.Status, StatusCancelledByPro, ActorAdmin); err != nil {
		return nil, err
	}

	if err := s.payments.Refund(ctx, appt); err != nil {
		return nil, fmt.Errorf("refund captured payment: %w", err)
	}

	now := s.clock.Now()
	updated, err := s.transition(ctx, appt, StatusCancelledByPro, ActorAdmin, StatusChange{CancelledAt: &now})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated.ClientID, NotifyCancelledByPro, updated)
	s.notify(ctx, updated.ProfessionalID, NotifyCancelledByPro, updated)
	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"actor":    string(ActorAdmin),
		"ratified": true,
	})

	return updated, nil
}

// CompleteElapsed moves confirmed appointments whose end time has passed to
// completed. Intended to be called periodically by the lifecycle worker.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindConfirmedEndedBefore(ctx, s.clock.Now(), 100)
	if err != nil {
		return 0, fmt.Errorf("find elapsed confirmed appointments: %w", err)
	}

	completed := 0
	for i := range candidates {
		appt := &candidates[i]
		now := s.clock.Now()

		updated, err := s.transition(ctx, appt, StatusCompleted, ActorSystem, StatusChange{CompletedAt: &now})
		if err != nil {
			if errors.Is(err, ErrConcurrentModification) {
				continue // someone else moved it, fine
			}
			s.logger.Error("complete appointment failed", "appointment_id", appt.ID, "err", err)
			continue
		}

		s.issueInvoices(ctx, updated)
		s.notify(ctx, updated.ClientID, NotifyCompleted, updated)
		s.notify(ctx, updated.ProfessionalID, NotifyCompleted, updated)
		s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})
		completed++
	}

	return completed, nil
}

// ExpireStaleHolds releases bookings whose payment hold never resolved. A
// pending or payment_initiated row older than the TTL is moved to
// cancelled_by_client by the system, freeing its slot; for payment_initiated
// the unresolved hold is cancelled at the gateway first. A gateway failure
// leaves the row untouched so the next run retries it.
func (s *Service) ExpireStaleHolds(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.pendingTTL)
	candidates, err := s.repo.FindStalePending(ctx, cutoff, 100)
	if err != nil {
		return 0, fmt.Errorf("find stale pending appointments: %w", err)
	}

	expired := 0
	for i := range candidates {
		appt := &candidates[i]

		if appt.Status == StatusPaymentInitiated {
			if err := s.payments.Release(ctx, appt); err != nil {
				s.logger.Error("release stale hold failed", "appointment_id", appt.ID, "err", err)
				continue
			}
		}

		now := s.clock.Now()
		updated, err := s.transition(ctx, appt, StatusCancelledByClient, ActorSystem, StatusChange{CancelledAt: &now})
		if err != nil {
			if errors.Is(err, ErrConcurrentModification) {
				continue // the hold resolved after all
			}
			s.logger.Error("expire stale booking failed", "appointment_id", appt.ID, "err", err)
			continue
		}

		s.logEvent(ctx, updated.ID, EventAppointmentExpired, map[string]any{"reason": "hold_unresolved"})
		s.logger.Info("stale booking expired", "appointment_id", updated.ID, "previous_status", string(appt.Status))
		expired++
	}

	return expired, nil
}

// RunPayoutBatch pays professionals for completed appointments. Appointments
// stuck in pending_payout from a previous failed run are retried first; the
// gateway-side idempotency key is the appointment ID, so a retried transfer
// is safe.
func (s *Service) RunPayoutBatch(ctx context.Context) (int, error) {
	pending, err := s.repo.FindByStatus(ctx, StatusPendingPayout, 100)
	if err != nil {
		return 0, fmt.Errorf("find pending payouts: %w", err)
	}

	fresh, err := s.repo.FindByStatus(ctx, StatusCompleted, 100)
	if err != nil {
		return 0, fmt.Errorf("find completed appointments: %w", err)
	}

	paid := 0
	for i := range fresh {
		appt := &fresh[i]
		updated, err := s.transition(ctx, appt, StatusPendingPayout, ActorSystem, StatusChange{})
		if err != nil {
			if errors.Is(err, ErrConcurrentModification) {
				continue
			}
			s.logger.Error("mark pending payout failed", "appointment_id", appt.ID, "err", err)
			continue
		}
		pending = append(pending, *updated)
	}

	for i := range pending {
		appt := &pending[i]

		pro, err := s.repo.GetProfessionalByID(ctx, appt.ProfessionalID)
		if err != nil {
			s.logger.Error("load professional for payout failed", "appointment_id", appt.ID, "err", err)
			continue
		}

		transferRef, err := s.payments.Payout(ctx, appt, pro.PayoutAccount)
		if err != nil {
			// Stays pending_payout; the next batch retries.
			s.logger.Error("payout failed", "appointment_id", appt.ID, "err", err)
			continue
		}

		if _, err := s.transition(ctx, appt, StatusPaidOut, ActorSystem, StatusChange{}); err != nil {
			s.logger.Error("mark paid out failed", "appointment_id", appt.ID, "err", err)
			continue
		}

		s.logEvent(ctx, appt.ID, EventPayoutSent, map[string]any{"transfer_ref": transferRef})
		paid++
	}

	return paid, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListAppointmentsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appts, err := s.repo.ListByClient(ctx, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by client: %w", err)
	}
	return appts, nil
}

// transition authorizes against the table and commits via compare-and-swap.
func (s *Service) transition(ctx context.Context, appt *Appointment, to Status, actor Actor, change StatusChange) (*Appointment, error) {
	if err := Authorize(appt.Status, to, actor); err != nil {
		return nil, err
	}

	updated, err := s.repo.CompareAndSwapStatus(ctx, appt.ID, appt.Status, to, change)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(to))
	return updated, nil
}

func (s *Service) notify(ctx context.Context, recipientID uuid.UUID, kind NotificationKind, appt *Appointment) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, recipientID, kind, appt)
}

func (s *Service) issueInvoices(ctx context.Context, appt *Appointment) {
	if s.invoices == nil {
		return
	}
	if err := s.invoices.Generate(ctx, appt); err != nil {
		s.logger.Error("invoice generation failed", "appointment_id", appt.ID, "err", err)
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal event payload failed", "event_type", eventType, "err", err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error("insert event log failed", "event_type", eventType, "appointment_id", appointmentID, "err", err)
	}
}
