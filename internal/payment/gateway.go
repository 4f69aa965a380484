package payment

import (
	"context"
	"errors"
)

var (
	// ErrGateway wraps every failure talking to the external gateway. The
	// appointment always remains in its last committed status when this is
	// returned; retries are safe.
	ErrGateway = errors.New("payment gateway request failed")

	ErrHoldNotCapturable = errors.New("hold cannot be captured in the appointment's current status")
	ErrHoldNotReleasable = errors.New("hold cannot be released in the appointment's current status")
	ErrNotRefundable     = errors.New("payment cannot be refunded in the appointment's current status")
	ErrNotPayable        = errors.New("appointment is not awaiting payout")
)

// Hold is the client-facing handle of a payment authorization: Ref identifies
// the hold on the gateway side, ClientSecret lets the client-side SDK confirm
// it.
type Hold struct {
	Ref          string
	ClientSecret string
}

// Gateway is the card-handling collaborator. Idempotency of repeated calls is
// the gateway's concern; not issuing duplicate calls is the coordinator's.
type Gateway interface {
	// CreateHold authorizes funds without transferring them.
	CreateHold(ctx context.Context, amountCents int64, currency, appointmentID string) (Hold, error)

	// Capture converts a hold into an actual charge.
	Capture(ctx context.Context, holdRef string) error

	// Release cancels a hold that was never captured.
	Release(ctx context.Context, holdRef string) error

	// Refund returns a captured charge.
	Refund(ctx context.Context, holdRef string) error

	// Payout transfers a professional's earnings to their account.
	Payout(ctx context.Context, amountCents int64, currency, destination, idempotencyKey string) (transferRef string, err error)
}
