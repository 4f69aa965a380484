package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/transfer"
)

// StripeGateway implements Gateway on manual-capture PaymentIntents: the
// intent is created with capture_method=manual (the hold), captured on
// professional confirmation and cancelled on any pre-capture cancellation.
type StripeGateway struct{}

// NewStripeGateway configures the global stripe client. stripe-go does not
// take a context per call; the HTTP client timeout is the bound on every
// gateway request.
func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	stripe.Key = secretKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	}))
	return &StripeGateway{}
}

func (g *StripeGateway) CreateHold(ctx context.Context, amountCents int64, currency, appointmentID string) (Hold, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.AddMetadata("appointment_id", appointmentID)
	// Stripe-level idempotency: a retried hold request for the same
	// appointment reuses the same intent.
	params.IdempotencyKey = stripe.String("hold:" + appointmentID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return Hold{}, fmt.Errorf("%w: create payment intent: %v", ErrGateway, err)
	}

	return Hold{Ref: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) Capture(ctx context.Context, holdRef string) error {
	if _, err := paymentintent.Capture(holdRef, &stripe.PaymentIntentCaptureParams{}); err != nil {
		return fmt.Errorf("%w: capture %s: %v", ErrGateway, holdRef, err)
	}
	return nil
}

func (g *StripeGateway) Release(ctx context.Context, holdRef string) error {
	if _, err := paymentintent.Cancel(holdRef, &stripe.PaymentIntentCancelParams{}); err != nil {
		return fmt.Errorf("%w: cancel %s: %v", ErrGateway, holdRef, err)
	}
	return nil
}

func (g *StripeGateway) Refund(ctx context.Context, holdRef string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(holdRef),
	}
	params.IdempotencyKey = stripe.String("refund:" + holdRef)

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("%w: refund %s: %v", ErrGateway, holdRef, err)
	}
	return nil
}

func (g *StripeGateway) Payout(ctx context.Context, amountCents int64, currency, destination, idempotencyKey string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destination),
	}
	params.IdempotencyKey = stripe.String(idempotencyKey)

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: transfer to %s: %v", ErrGateway, destination, err)
	}
	return tr.ID, nil
}
