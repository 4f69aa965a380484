// Package invoice freezes billing documents for billable appointments. It
// copies the tax-exclusive/inclusive amounts straight off the appointment
// record; pricing is never recomputed here, so an invoice is deterministic
// from the appointment row alone.
package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serviq/booking-engine/internal/booking"
)

const (
	KindClient       = "client"
	KindProfessional = "professional"
)

type PgGenerator struct {
	pool *pgxpool.Pool
}

func NewPgGenerator(pool *pgxpool.Pool) *PgGenerator {
	return &PgGenerator{pool: pool}
}

// Generate writes the client copy and the professional copy for an
// appointment. Issuing is idempotent: re-running on an already invoiced
// appointment (e.g. at completion after confirmation) is a no-op per copy.
func (g *PgGenerator) Generate(ctx context.Context, appt *booking.Appointment) error {
	copies := []struct {
		kind        string
		recipientID uuid.UUID
	}{
		{KindClient, appt.ClientID},
		{KindProfessional, appt.ProfessionalID},
	}

	for _, c := range copies {
		_, err := g.pool.Exec(ctx, `
			INSERT INTO invoices
				(id, appointment_id, recipient_id, kind, amount_excl_tax, amount_incl_tax, currency, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (appointment_id, kind) DO NOTHING
		`, uuid.New(), appt.ID, c.recipientID, c.kind, appt.AmountExclTax, appt.AmountInclTax, appt.Currency)
		if err != nil {
			return fmt.Errorf("insert %s invoice: %w", c.kind, err)
		}
	}

	return nil
}
