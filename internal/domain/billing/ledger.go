package billing

import (
	"strings"
	"unicode"

	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Totals is a pair of independent per-currency running sums. CDF and USD
// amounts are never converted into one another while summing.
type Totals struct {
	Cdf decimal.Decimal `json:"cdf"`
	Usd decimal.Decimal `json:"usd"`
}

// ZeroTotals returns a zero-valued pair
func ZeroTotals() Totals {
	return Totals{Cdf: decimal.Zero, Usd: decimal.Zero}
}

// Get returns the amount for the given currency
func (t Totals) Get(c valueobject.Currency) decimal.Decimal {
	if c == valueobject.USD {
		return t.Usd
	}
	return t.Cdf
}

// CdfMoney returns the CDF side as Money
func (t Totals) CdfMoney() valueobject.Money {
	return valueobject.NewMoneyCDF(t.Cdf)
}

// UsdMoney returns the USD side as Money
func (t Totals) UsdMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(t.Usd)
}

// IsSettled reports whether both sides are zero or below
func (t Totals) IsSettled() bool {
	return !t.Cdf.IsPositive() && !t.Usd.IsPositive()
}

// BasketTotals sums the line-item subtotals per currency. Stored subtotals
// take precedence over recomputation (LineItem.Subtotals). The result is
// invariant under reordering of items.
func BasketTotals(items []LineItem) Totals {
	total := ZeroTotals()
	for _, item := range items {
		sub := item.Subtotals()
		total.Cdf = total.Cdf.Add(sub.Cdf)
		total.Usd = total.Usd.Add(sub.Usd)
	}
	return total
}

// AmountDue subtracts the per-currency reduction from the basket total,
// clamping each side to zero independently. A reduction exceeding the basket
// total is not rejected; the due amount simply bottoms out at zero.
func AmountDue(basket Totals, reductionCdf, reductionUsd decimal.Decimal) Totals {
	return Totals{
		Cdf: basket.CdfMoney().MustSubtract(valueobject.NewMoneyCDF(reductionCdf)).ClampNonNegative().Amount(),
		Usd: basket.UsdMoney().MustSubtract(valueobject.NewMoneyUSD(reductionUsd)).ClampNonNegative().Amount(),
	}
}

// AmountPaidToDate resolves the authoritative amount paid for an invoice:
// explicit amount-paid fields win; otherwise active payments are summed per
// currency, each in its own recorded currency; with neither present the
// invoice is treated as settled in full, so the amount due is returned.
func AmountPaidToDate(inv *Invoice, payments []Payment) Totals {
	if inv.HasExplicitPaidAmounts() {
		paid := ZeroTotals()
		if inv.AmountPaidCdf != nil {
			paid.Cdf = *inv.AmountPaidCdf
		}
		if inv.AmountPaidUsd != nil {
			paid.Usd = *inv.AmountPaidUsd
		}
		return paid
	}

	if len(payments) > 0 {
		paid := ZeroTotals()
		for _, p := range payments {
			if p.Currency == valueobject.USD {
				paid.Usd = paid.Usd.Add(p.Amount)
			} else {
				paid.Cdf = paid.Cdf.Add(p.Amount)
			}
		}
		return paid
	}

	return AmountDue(BasketTotals(inv.Items), inv.ReductionCdf, inv.ReductionUsd)
}

// Remaining derives the outstanding balance per currency: clamped to zero,
// CDF floored to an integer, USD rounded to 2 decimals. Pure and idempotent.
func Remaining(due, paid Totals) Totals {
	return Totals{
		Cdf: due.CdfMoney().MustSubtract(paid.CdfMoney()).ClampNonNegative().RoundForCurrency().Amount(),
		Usd: due.UsdMoney().MustSubtract(paid.UsdMoney()).ClampNonNegative().RoundForCurrency().Amount(),
	}
}

// InvoiceRemaining is a convenience over BasketTotals, AmountDue,
// AmountPaidToDate and Remaining for a full invoice snapshot.
func InvoiceRemaining(inv *Invoice, payments []Payment) Totals {
	due := AmountDue(BasketTotals(inv.Items), inv.ReductionCdf, inv.ReductionUsd)
	paid := AmountPaidToDate(inv, payments)
	return Remaining(due, paid)
}

// ValidatePayment is the submit-time hard validation of a payment amount
// against the remaining balance of its currency. On success it returns the
// amount to record, clamped down to the remaining balance when the overage
// is within tolerance; amounts beyond tolerance are rejected with
// ErrExceedsRemaining.
func ValidatePayment(amount decimal.Decimal, currency valueobject.Currency, remaining Totals) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNonPositiveAmount
	}

	rem := remaining.Get(currency)
	if rem.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNothingDue
	}

	over := amount.Sub(rem)
	if over.GreaterThan(valueobject.Tolerance(currency)) {
		return decimal.Zero, ErrExceedsRemaining
	}
	if over.IsPositive() {
		// Within tolerance: absorb the rounding noise instead of rejecting.
		return rem, nil
	}
	return amount, nil
}

// SanitizeAmountInput is the live-input counterpart of ValidatePayment: it
// parses user-entered text and silently clamps the value into the payable
// range instead of rejecting it. CDF input accepts digits only and is floored
// to an integer; USD input keeps at most 2 decimal places.
func SanitizeAmountInput(raw string, currency valueobject.Currency, remaining Totals) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if currency == valueobject.CDF {
		var b strings.Builder
		for _, r := range cleaned {
			if unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		cleaned = b.String()
	}
	if cleaned == "" {
		return decimal.Zero, nil
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT_INPUT", "Amount is not a valid number")
	}

	if currency == valueobject.CDF {
		value = value.Floor()
	} else {
		value = value.Truncate(2)
	}

	if value.IsNegative() {
		return decimal.Zero, nil
	}
	if rem := remaining.Get(currency); value.GreaterThan(rem) {
		value = rem
	}
	return value, nil
}
