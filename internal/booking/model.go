package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending               Status = "pending"
	StatusPaymentInitiated      Status = "payment_initiated"
	StatusPaymentAuthorized     Status = "payment_authorized"
	StatusConfirmed             Status = "confirmed"
	StatusCompleted             Status = "completed"
	StatusCancelledByClient     Status = "cancelled_by_client"
	StatusCancelledByPro        Status = "cancelled_by_pro"
	StatusCancelledByProPending Status = "cancelled_by_pro_pending"
	StatusPendingPayout         Status = "pending_payout"
	StatusPaidOut               Status = "paid_out"
)

// Durations a slot or appointment may have, in minutes.
const (
	DurationShort = 30
	DurationLong  = 60

	// SlotStep is the walk step used when deriving slots from a range.
	SlotStep = 30 * time.Minute
)

func ValidDuration(minutes int) bool {
	return minutes == DurationShort || minutes == DurationLong
}

type Professional struct {
	ID            uuid.UUID
	Name          string
	Email         *string
	PayoutAccount string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID              uuid.UUID
	ProfessionalID  uuid.UUID
	ClientID        uuid.UUID
	StartTime       time.Time
	DurationMinutes int
	Status          Status

	// Frozen at booking time; invoice generation must never recompute them.
	AmountExclTax int64 // cents
	AmountInclTax int64 // cents
	Currency      string

	HoldRef string // payment hold reference, empty until a hold is requested

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// blockingStatuses occupy a time window for conflict checking. Even an
// unconfirmed payment hold reserves the slot: releasing it back into
// inventory before the hold resolves would let two clients pay for the same
// time. Only fully cancelled appointments never block.
var blockingStatuses = map[Status]bool{
	StatusPending:               true,
	StatusPaymentInitiated:      true,
	StatusPaymentAuthorized:     true,
	StatusConfirmed:             true,
	StatusCompleted:             true,
	StatusPendingPayout:         true,
	StatusPaidOut:               true,
	StatusCancelledByProPending: true,
}

func Blocks(s Status) bool {
	return blockingStatuses[s]
}

// WindowBooked reports whether the candidate [start,end) window intersects
// any blocking appointment. Open-interval overlap: aStart < bEnd && bStart < aEnd.
func WindowBooked(existing []Appointment, start, end time.Time) bool {
	for i := range existing {
		a := &existing[i]
		if !Blocks(a.Status) {
			continue
		}
		if start.Before(a.EndTime()) && a.StartTime.Before(end) {
			return true
		}
	}
	return false
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Clock is injected so "is this appointment in the past" stays testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock implementation used outside tests.
var SystemClock Clock = systemClock{}
