package billing

import (
	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the settlement core
const (
	EventInvoiceCreated       = "billing.invoice.created"
	EventInvoiceUpdated       = "billing.invoice.updated"
	EventInvoiceStatusChanged = "billing.invoice.status_changed"
	EventInvoiceDeleted       = "billing.invoice.deleted"
	EventPaymentRecorded      = "billing.payment.recorded"
	EventPaymentRemoved       = "billing.payment.removed"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent is emitted when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	Number    string `json:"number"`
	ItemCount int    `json:"item_count"`
}

// NewInvoiceCreatedEvent creates an InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, aggregateTypeInvoice, inv.ID),
		Number:          inv.Number,
		ItemCount:       len(inv.Items),
	}
}

// InvoiceUpdatedEvent is emitted when items or reductions change
type InvoiceUpdatedEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewInvoiceUpdatedEvent creates an InvoiceUpdatedEvent
func NewInvoiceUpdatedEvent(inv *Invoice) *InvoiceUpdatedEvent {
	return &InvoiceUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceUpdated, aggregateTypeInvoice, inv.ID),
		Number:          inv.Number,
	}
}

// InvoiceStatusChangedEvent is emitted on every status transition
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	Number         string        `json:"number"`
	PreviousStatus InvoiceStatus `json:"previous_status"`
	NewStatus      InvoiceStatus `json:"new_status"`
}

// NewInvoiceStatusChangedEvent creates an InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, previous InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceStatusChanged, aggregateTypeInvoice, inv.ID),
		Number:          inv.Number,
		PreviousStatus:  previous,
		NewStatus:       inv.Status,
	}
}

// InvoiceDeletedEvent is emitted when an invoice and its payments are removed
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewInvoiceDeletedEvent creates an InvoiceDeletedEvent
func NewInvoiceDeletedEvent(inv *Invoice) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceDeleted, aggregateTypeInvoice, inv.ID),
		Number:          inv.Number,
	}
}

// PaymentRecordedEvent is emitted when a payment is applied to an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRecorded, aggregateTypeInvoice, inv.ID),
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Currency:        string(p.Currency),
	}
}

// PaymentRemovedEvent is emitted when a payment is deleted from an invoice
type PaymentRemovedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// NewPaymentRemovedEvent creates a PaymentRemovedEvent
func NewPaymentRemovedEvent(invoiceID uuid.UUID, p *Payment) *PaymentRemovedEvent {
	return &PaymentRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRemoved, aggregateTypeInvoice, invoiceID),
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Currency:        string(p.Currency),
	}
}
