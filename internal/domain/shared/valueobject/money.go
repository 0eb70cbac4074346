package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents one of the two currencies tracked in parallel.
// Amounts in CDF and USD are independent running sums and are never merged
// without an explicit conversion step.
type Currency string

const (
	CDF Currency = "CDF" // Congolese Franc (integral amounts only)
	USD Currency = "USD" // US Dollar (at most 2 decimal digits)
)

// IsValid checks if the currency is one of the supported codes
func (c Currency) IsValid() bool {
	return c == CDF || c == USD
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// ErrInvalidRate is returned when a conversion is attempted with a
// non-positive exchange rate.
var ErrInvalidRate = errors.New("exchange rate must be positive")

// Tolerance returns the allowed overage absorbing rounding noise when
// comparing amounts in the given currency: 0.01 for USD, 0 for CDF.
func Tolerance(c Currency) decimal.Decimal {
	if c == USD {
		return decimal.New(1, -2)
	}
	return decimal.Zero
}

// Money is a value object representing a monetary amount tagged with a
// currency. It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("unsupported currency: %q", currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromFloat creates Money from a float64 value
func NewMoneyFromFloat(amount float64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyCDF creates Money in CDF
func NewMoneyCDF(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: CDF}
}

// NewMoneyUSD creates Money in USD
func NewMoneyUSD(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: USD}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts.
// Mixed-currency addition is a programming error and fails fast.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference.
// Mixed-currency subtraction is a programming error and fails fast.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Convert converts the amount to the target currency using the given
// CDF-per-USD rate: cdf = usd * rate, usd = cdf / rate.
// Returns ErrInvalidRate if the rate is not strictly positive.
func (m Money) Convert(target Currency, rate decimal.Decimal) (Money, error) {
	if !target.IsValid() {
		return Money{}, fmt.Errorf("unsupported currency: %q", target)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return Money{}, ErrInvalidRate
	}
	if m.currency == target {
		return m, nil
	}
	if target == CDF {
		return Money{amount: m.amount.Mul(rate), currency: CDF}, nil
	}
	return Money{amount: m.amount.Div(rate), currency: USD}, nil
}

// ClampNonNegative returns max(amount, 0) in the same currency
func (m Money) ClampNonNegative() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

// RoundForCurrency applies the display/storage rounding rule:
// CDF amounts are floored to an integer, USD amounts are rounded
// half-up to 2 decimals.
func (m Money) RoundForCurrency() Money {
	if m.currency == CDF {
		return Money{amount: m.amount.Floor(), currency: CDF}
	}
	return Money{amount: m.amount.Round(2), currency: USD}
}

// WithinTolerance reports whether both amounts are equal within the
// currency tolerance. Used to decide "fully paid" without floating-point
// false negatives.
func (m Money) WithinTolerance(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	diff := m.amount.Sub(other.amount).Abs()
	return diff.LessThanOrEqual(Tolerance(m.currency)), nil
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.GreaterThan(other.amount), nil
}

// String returns a string representation of the Money
func (m Money) String() string {
	if m.currency == CDF {
		return fmt.Sprintf("%s %s", m.amount.StringFixed(0), m.currency)
	}
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// Float64 returns the amount as a float64 (may lose precision)
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if !v.Currency.IsValid() {
		return fmt.Errorf("unsupported currency: %q", v.Currency)
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}
