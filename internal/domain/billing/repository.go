package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	From *time.Time
	To   *time.Time
	Debt *bool
}

// InvoiceRepository persists invoices. Implementations map domain errors:
// a missing record surfaces as shared.ErrNotFound, a version mismatch as
// shared.ErrConcurrencyConflict.
type InvoiceRepository interface {
	List(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Create(ctx context.Context, inv *Invoice) error
	// Update persists the invoice using its version for optimistic locking
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository persists payment records. Payments are immutable: there
// is no update operation.
type PaymentRepository interface {
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Create(ctx context.Context, p *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByInvoice cascades payment deletion when an invoice is removed
	DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error
}
