package booking

import (
	"errors"
	"testing"
)

func TestPricingQuote(t *testing.T) {
	p := Pricing{
		Tariff30Cents:   3500,
		Tariff60Cents:   6000,
		TaxRateBasisPts: 2000, // 20%
		Currency:        "eur",
	}

	excl, incl, err := p.Quote(30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if excl != 3500 || incl != 4200 {
		t.Fatalf("30min quote = %d/%d, want 3500/4200", excl, incl)
	}

	excl, incl, err = p.Quote(60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if excl != 6000 || incl != 7200 {
		t.Fatalf("60min quote = %d/%d, want 6000/7200", excl, incl)
	}

	if _, _, err := p.Quote(45); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("45min should be rejected, got %v", err)
	}
	if _, _, err := p.Quote(0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("0min should be rejected, got %v", err)
	}
}

func TestPricingQuoteRoundsDown(t *testing.T) {
	// 3333 * 1.20 = 3999.6; integer cents truncate toward zero.
	p := Pricing{Tariff30Cents: 3333, TaxRateBasisPts: 2000}
	_, incl, err := p.Quote(30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if incl != 3999 {
		t.Fatalf("incl = %d, want 3999", incl)
	}
}
