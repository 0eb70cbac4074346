package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateProvider supplies the process-wide CDF-per-USD exchange rate. The rate
// is owned by an external configuration service: it is read on demand, cached
// until the next explicit refresh, and may change between reads within one
// workflow. Implementations must return a strictly positive rate or an error.
type RateProvider interface {
	// Rate returns the currently cached exchange rate
	Rate(ctx context.Context) (decimal.Decimal, error)
	// Refresh re-reads the rate from the configuration source and returns it
	Refresh(ctx context.Context) (decimal.Decimal, error)
}

// FixedRateProvider returns a constant rate. Used in tests and as a fallback.
type FixedRateProvider struct {
	rate decimal.Decimal
}

// NewFixedRateProvider creates a provider pinned to the given rate
func NewFixedRateProvider(rate decimal.Decimal) *FixedRateProvider {
	return &FixedRateProvider{rate: rate}
}

// Rate returns the pinned rate
func (p *FixedRateProvider) Rate(ctx context.Context) (decimal.Decimal, error) {
	if p.rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidRate
	}
	return p.rate, nil
}

// Refresh returns the pinned rate unchanged
func (p *FixedRateProvider) Refresh(ctx context.Context) (decimal.Decimal, error) {
	return p.Rate(ctx)
}
