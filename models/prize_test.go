package models

import "testing"

func TestPrizeRetryEligible(t *testing.T) {
	cases := []struct {
		name       string
		status     PrizeStatus
		retryCount int
		want       bool
	}{
		{"failed with no retries yet", PrizeFailed, 0, true},
		{"failed one retry below the bound", PrizeFailed, MaxPrizeRetries - 1, true},
		{"failed at the retry bound", PrizeFailed, MaxPrizeRetries, false},
		{"failed beyond the retry bound", PrizeFailed, MaxPrizeRetries + 1, false},
		{"not failed is never retry-eligible", PrizeCalculated, 0, false},
		{"distributed is never retry-eligible", PrizeDistributed, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := Prize{Status: c.status, RetryCount: c.retryCount}
			if got := p.RetryEligible(); got != c.want {
				t.Errorf("RetryEligible() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestIsValidPrizeStatusTransition(t *testing.T) {
	cases := []struct {
		from, to PrizeStatus
		want     bool
	}{
		{PrizePending, PrizeCalculated, true},
		{PrizePending, PrizeCancelled, true},
		{PrizePending, PrizeDistributed, false},
		{PrizeCalculated, PrizeProcessing, true},
		{PrizeProcessing, PrizeDistributed, true},
		{PrizeProcessing, PrizeFailed, true},
		{PrizeFailed, PrizeCalculated, true},
		{PrizeFailed, PrizeDistributed, false},
		{PrizeDistributed, PrizeCancelled, false},
		{PrizeCancelled, PrizeCalculated, false},
	}
	for _, c := range cases {
		if got := IsValidPrizeStatusTransition(c.from, c.to); got != c.want {
			t.Errorf("IsValidPrizeStatusTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestPrizeApplyTax(t *testing.T) {
	p := Prize{Amount: 1000, TaxRate: 25}
	p.ApplyTax()
	if p.TaxWithheld != 250 {
		t.Errorf("TaxWithheld = %v, want 250", p.TaxWithheld)
	}
	if p.NetAmount != 750 {
		t.Errorf("NetAmount = %v, want 750", p.NetAmount)
	}
}

func TestPrizeApplyTaxZeroRate(t *testing.T) {
	p := Prize{Amount: 500, TaxRate: 0}
	p.ApplyTax()
	if p.TaxWithheld != 0 || p.NetAmount != 500 {
		t.Errorf("expected no withholding at a zero tax rate, got withheld=%v net=%v", p.TaxWithheld, p.NetAmount)
	}
}
