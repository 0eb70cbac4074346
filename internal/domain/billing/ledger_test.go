package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustItem(t *testing.T, name string, cdf, usd string, qty int64) LineItem {
	t.Helper()
	item, err := NewLineItem(uuid.New(), name, d(cdf), d(usd), qty)
	require.NoError(t, err)
	return item
}

// testInvoice builds an invoice with basket {CDF: 50000, USD: 18}
func testInvoice(t *testing.T) *Invoice {
	t.Helper()
	items := []LineItem{
		mustItem(t, "Poulet braisé", "25000", "9", 1),
		mustItem(t, "Jus de gingembre", "12500", "4.50", 2),
	}
	inv, err := NewInvoice("FAC-2026-0001", "Table 4", items)
	require.NoError(t, err)
	return inv
}

func mustPayment(t *testing.T, invoiceID uuid.UUID, amount string, currency valueobject.Currency) Payment {
	t.Helper()
	p, err := NewPayment(invoiceID, d(amount), currency, d("2800"), "")
	require.NoError(t, err)
	return *p
}

func TestBasketTotals(t *testing.T) {
	inv := testInvoice(t)
	totals := BasketTotals(inv.Items)
	assert.True(t, totals.Cdf.Equal(d("50000")), "got %s", totals.Cdf)
	assert.True(t, totals.Usd.Equal(d("18")), "got %s", totals.Usd)
}

func TestBasketTotals_InvariantUnderReordering(t *testing.T) {
	items := []LineItem{
		mustItem(t, "A", "1000", "1.25", 3),
		mustItem(t, "B", "2500", "0.75", 1),
		mustItem(t, "C", "700", "2", 5),
	}
	forward := BasketTotals(items)
	reversed := BasketTotals([]LineItem{items[2], items[0], items[1]})
	assert.True(t, forward.Cdf.Equal(reversed.Cdf))
	assert.True(t, forward.Usd.Equal(reversed.Usd))
}

func TestBasketTotals_StoredSubtotalPrecedence(t *testing.T) {
	item := mustItem(t, "A", "1000", "1", 3)
	storedCdf := d("2750") // deliberately inconsistent with 1000*3
	item.SubtotalCdf = &storedCdf

	totals := BasketTotals([]LineItem{item})
	assert.True(t, totals.Cdf.Equal(d("2750")))
	assert.True(t, totals.Usd.Equal(d("3")), "USD side still recomputed")
}

func TestAmountDue_ClampsIndependently(t *testing.T) {
	basket := Totals{Cdf: d("50000"), Usd: d("18")}

	due := AmountDue(basket, d("5000"), d("0"))
	assert.True(t, due.Cdf.Equal(d("45000")))
	assert.True(t, due.Usd.Equal(d("18")))

	// Reduction beyond the basket total is not rejected, due clamps to zero.
	due = AmountDue(basket, d("60000"), d("20"))
	assert.True(t, due.Cdf.IsZero())
	assert.True(t, due.Usd.IsZero())
}

func TestAmountPaidToDate_ExplicitFieldsWin(t *testing.T) {
	inv := testInvoice(t)
	inv.RecordPaidAmounts(d("30000"), d("10"))

	payments := []Payment{mustPayment(t, inv.ID, "5000", valueobject.CDF)}
	paid := AmountPaidToDate(inv, payments)
	assert.True(t, paid.Cdf.Equal(d("30000")))
	assert.True(t, paid.Usd.Equal(d("10")))
}

func TestAmountPaidToDate_SumsPaymentsPerCurrency(t *testing.T) {
	inv := testInvoice(t)
	payments := []Payment{
		mustPayment(t, inv.ID, "20000", valueobject.CDF),
		mustPayment(t, inv.ID, "5000", valueobject.CDF),
		mustPayment(t, inv.ID, "7.50", valueobject.USD),
	}
	paid := AmountPaidToDate(inv, payments)
	assert.True(t, paid.Cdf.Equal(d("25000")))
	assert.True(t, paid.Usd.Equal(d("7.5")))
}

// Scenario A: no explicit paid fields, no payments: paid falls back to the
// amount due, so nothing remains.
func TestScenarioA_FallbackToAmountDue(t *testing.T) {
	inv := testInvoice(t)

	paid := AmountPaidToDate(inv, nil)
	due := AmountDue(BasketTotals(inv.Items), inv.ReductionCdf, inv.ReductionUsd)
	assert.True(t, paid.Cdf.Equal(due.Cdf))
	assert.True(t, paid.Usd.Equal(due.Usd))

	remaining := Remaining(due, paid)
	assert.True(t, remaining.Cdf.IsZero())
	assert.True(t, remaining.Usd.IsZero())
}

// Scenario B: reduction {5000 CDF}, one payment of 20000 CDF.
func TestScenarioB_PartialPayment(t *testing.T) {
	inv := testInvoice(t)
	require.NoError(t, inv.SetReduction(d("5000"), d("0")))

	payments := []Payment{mustPayment(t, inv.ID, "20000", valueobject.CDF)}

	due := AmountDue(BasketTotals(inv.Items), inv.ReductionCdf, inv.ReductionUsd)
	assert.True(t, due.Cdf.Equal(d("45000")))
	assert.True(t, due.Usd.Equal(d("18")))

	paid := AmountPaidToDate(inv, payments)
	assert.True(t, paid.Cdf.Equal(d("20000")))
	assert.True(t, paid.Usd.IsZero())

	remaining := Remaining(due, paid)
	assert.True(t, remaining.Cdf.Equal(d("25000")))
	assert.True(t, remaining.Usd.Equal(d("18")))
}

func TestRemaining_NeverNegative(t *testing.T) {
	due := Totals{Cdf: d("1000"), Usd: d("10")}
	paid := Totals{Cdf: d("1500"), Usd: d("10.004")}

	remaining := Remaining(due, paid)
	assert.False(t, remaining.Cdf.IsNegative())
	assert.False(t, remaining.Usd.IsNegative())
	assert.True(t, remaining.Cdf.IsZero())
	assert.True(t, remaining.Usd.IsZero())
}

func TestRemaining_Rounding(t *testing.T) {
	due := Totals{Cdf: d("1000.9"), Usd: d("10.999")}
	paid := ZeroTotals()

	remaining := Remaining(due, paid)
	assert.True(t, remaining.Cdf.Equal(d("1000")), "CDF floored, got %s", remaining.Cdf)
	assert.True(t, remaining.Usd.Equal(d("11")), "USD rounded to 2dp, got %s", remaining.Usd)
}

func TestRemaining_Idempotent(t *testing.T) {
	due := Totals{Cdf: d("45000"), Usd: d("18")}
	paid := Totals{Cdf: d("20000"), Usd: d("0")}

	first := Remaining(due, paid)
	second := Remaining(due, paid)
	assert.True(t, first.Cdf.Equal(second.Cdf))
	assert.True(t, first.Usd.Equal(second.Usd))
}

// Scenario C: 10.004 USD against 10.00 remaining succeeds clamped; 10.02 fails.
func TestValidatePayment_ToleranceClamp(t *testing.T) {
	remaining := Totals{Cdf: d("0"), Usd: d("10.00")}

	amount, err := ValidatePayment(d("10.004"), valueobject.USD, remaining)
	require.NoError(t, err)
	assert.True(t, amount.Equal(d("10.00")))

	_, err = ValidatePayment(d("10.02"), valueobject.USD, remaining)
	assert.ErrorIs(t, err, ErrExceedsRemaining)
}

func TestValidatePayment_Errors(t *testing.T) {
	remaining := Totals{Cdf: d("5000"), Usd: d("0")}

	_, err := ValidatePayment(d("0"), valueobject.CDF, remaining)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = ValidatePayment(d("-10"), valueobject.CDF, remaining)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = ValidatePayment(d("1"), valueobject.USD, remaining)
	assert.ErrorIs(t, err, ErrNothingDue)

	// CDF tolerance is zero: even 1 franc over is rejected.
	_, err = ValidatePayment(d("5001"), valueobject.CDF, remaining)
	assert.ErrorIs(t, err, ErrExceedsRemaining)

	amount, err := ValidatePayment(d("5000"), valueobject.CDF, remaining)
	require.NoError(t, err)
	assert.True(t, amount.Equal(d("5000")))
}

// Scenario D: deleting a 5000 CDF payment restores 5000 CDF of remaining.
func TestScenarioD_PaymentRemovalRestoresRemaining(t *testing.T) {
	inv := testInvoice(t)
	payments := []Payment{
		mustPayment(t, inv.ID, "45000", valueobject.CDF),
		mustPayment(t, inv.ID, "5000", valueobject.CDF),
		mustPayment(t, inv.ID, "18", valueobject.USD),
	}

	remaining := InvoiceRemaining(inv, payments)
	assert.True(t, remaining.Cdf.IsZero())
	assert.True(t, remaining.Usd.IsZero())

	// Remove the 5000 CDF payment.
	after := InvoiceRemaining(inv, []Payment{payments[0], payments[2]})
	assert.True(t, after.Cdf.Equal(d("5000")), "got %s", after.Cdf)
	assert.True(t, after.Usd.IsZero())
}

func TestSanitizeAmountInput(t *testing.T) {
	remaining := Totals{Cdf: d("25000"), Usd: d("18")}

	tests := []struct {
		name     string
		raw      string
		currency valueobject.Currency
		want     string
	}{
		{"cdf digits only", "12 500F", valueobject.CDF, "12500"},
		{"cdf floored", "300.9", valueobject.CDF, "3009"}, // dot stripped, digits kept
		{"cdf clamped to remaining", "99999", valueobject.CDF, "25000"},
		{"usd two decimals kept", "10.25", valueobject.USD, "10.25"},
		{"usd extra decimals truncated", "10.259", valueobject.USD, "10.25"},
		{"usd clamped to remaining", "20", valueobject.USD, "18"},
		{"empty input is zero", "", valueobject.CDF, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeAmountInput(tt.raw, tt.currency, remaining)
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}

	_, err := SanitizeAmountInput("abc", valueobject.USD, remaining)
	assert.Error(t, err)

	got, err := SanitizeAmountInput("-4", valueobject.USD, remaining)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestTotals_Get(t *testing.T) {
	totals := Totals{Cdf: d("100"), Usd: d("2.50")}
	assert.True(t, totals.Get(valueobject.CDF).Equal(d("100")))
	assert.True(t, totals.Get(valueobject.USD).Equal(d("2.50")))
}
