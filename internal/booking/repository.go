package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")

	// ErrSlotTaken is raised by the store when an insert collides with a
	// blocking appointment at the database level.
	ErrSlotTaken = errors.New("slot already occupied by a blocking appointment")

	// ErrConcurrentModification is a compare-and-swap mismatch: the stored
	// status no longer matches the expected prior status. The caller retries
	// with fresh state, never overwrites.
	ErrConcurrentModification = errors.New("appointment was modified concurrently")
)

// StatusChange carries the extra fields written atomically with a status CAS.
// Nil fields are left untouched.
type StatusChange struct {
	HoldRef     *string
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentByHoldRef(ctx context.Context, holdRef string) (*Appointment, error)

	// FindByProfessionalAndDate returns every appointment of the professional
	// whose start lies in [dayStart, dayEnd), regardless of status.
	FindByProfessionalAndDate(ctx context.Context, professionalID uuid.UUID, dayStart, dayEnd time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	// CompareAndSwapStatus commits the transition only if the stored status
	// still equals from. A mismatch on an existing row fails with
	// ErrConcurrentModification.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to Status, change StatusChange) (*Appointment, error)

	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Lifecycle worker queries.
	FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Appointment, error)
	FindByStatus(ctx context.Context, status Status, limit int) ([]Appointment, error)

	// FindStalePending returns pending and payment_initiated appointments
	// created before cutoff, i.e. holds that never resolved.
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
