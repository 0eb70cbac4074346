package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Statement is the computed settlement view of one invoice: the inputs a
// report renderer needs, with all arithmetic already done. Grand totals in a
// single currency are produced through an explicit conversion of the other
// side at the supplied rate, never by silently merging the two sums.
type Statement struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	Status      InvoiceStatus   `json:"status"`
	Items       []LineItem      `json:"items"`
	Basket      Totals          `json:"basket"`
	Reduction   Totals          `json:"reduction"`
	Due         Totals          `json:"due"`
	Paid        Totals          `json:"paid"`
	Remaining   Totals          `json:"remaining"`
	Rate        decimal.Decimal `json:"rate"`
	GrandCdf    decimal.Decimal `json:"grand_cdf"`
	GrandUsd    decimal.Decimal `json:"grand_usd"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// BuildStatement derives the full settlement view from an invoice snapshot,
// its payments and the current exchange rate.
func BuildStatement(inv *Invoice, payments []Payment, rate decimal.Decimal) (Statement, error) {
	if rate.LessThanOrEqual(decimal.Zero) {
		return Statement{}, ErrInvalidRate
	}

	basket := BasketTotals(inv.Items)
	due := AmountDue(basket, inv.ReductionCdf, inv.ReductionUsd)
	paid := AmountPaidToDate(inv, payments)
	remaining := Remaining(due, paid)

	usdAsCdf, err := due.UsdMoney().Convert(valueobject.CDF, rate)
	if err != nil {
		return Statement{}, err
	}
	cdfAsUsd, err := due.CdfMoney().Convert(valueobject.USD, rate)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		InvoiceID:   inv.ID,
		Number:      inv.Number,
		Status:      inv.Status.Normalize(),
		Items:       append([]LineItem{}, inv.Items...),
		Basket:      basket,
		Reduction:   Totals{Cdf: inv.ReductionCdf, Usd: inv.ReductionUsd},
		Due:         due,
		Paid:        paid,
		Remaining:   remaining,
		Rate:        rate,
		GrandCdf:    due.CdfMoney().MustAdd(usdAsCdf).RoundForCurrency().Amount(),
		GrandUsd:    due.UsdMoney().MustAdd(cdfAsUsd).RoundForCurrency().Amount(),
		GeneratedAt: time.Now(),
	}, nil
}

// StatementRenderer turns a computed statement into a display artifact.
// Rendering is pure presentation and stays outside the settlement core.
type StatementRenderer interface {
	Render(ctx context.Context, st Statement) ([]byte, error)
}
