package billing

import (
	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Payment is an immutable record of money received against one invoice.
// Payments are created and deleted, never edited. The amount is recorded in
// its own currency together with the exchange rate in force at payment time.
type Payment struct {
	shared.BaseEntity
	InvoiceID    uuid.UUID            `json:"invoice_id"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     valueobject.Currency `json:"currency"`
	RateSnapshot decimal.Decimal      `json:"rate_snapshot"`
	Observation  string               `json:"observation"`
}

// NewPayment creates a payment record for an invoice
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, rateSnapshot decimal.Decimal, observation string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNonPositiveAmount
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be CDF or USD")
	}
	if rateSnapshot.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRate
	}

	return &Payment{
		BaseEntity:   shared.NewBaseEntity(),
		InvoiceID:    invoiceID,
		Amount:       amount,
		Currency:     currency,
		RateSnapshot: rateSnapshot,
		Observation:  observation,
	}, nil
}

// AmountMoney returns the payment amount as a Money value
func (p *Payment) AmountMoney() valueobject.Money {
	if p.Currency == valueobject.USD {
		return valueobject.NewMoneyUSD(p.Amount)
	}
	return valueobject.NewMoneyCDF(p.Amount)
}
