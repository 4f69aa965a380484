package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration = errors.New("duration must be 30 or 60 minutes")
)

// Pricing computes the frozen price breakdown stored on every appointment.
// Flat per-duration tariff, fixed tax rate; all amounts in integer cents.
type Pricing struct {
	Tariff30Cents   int64
	Tariff60Cents   int64
	TaxRateBasisPts int64
	Currency        string
}

// Quote returns the tax-exclusive and tax-inclusive amounts for a duration.
func (p Pricing) Quote(durationMinutes int) (exclTax, inclTax int64, err error) {
	switch durationMinutes {
	case DurationShort:
		exclTax = p.Tariff30Cents
	case DurationLong:
		exclTax = p.Tariff60Cents
	default:
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidDuration, durationMinutes)
	}

	inclTax = exclTax * (10000 + p.TaxRateBasisPts) / 10000
	return exclTax, inclTax, nil
}
