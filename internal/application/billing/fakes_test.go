package billing

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeInvoiceRepo is an in-memory InvoiceRepository with optimistic locking,
// safe for concurrent use.
type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
	failNext error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *fakeInvoiceRepo) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *fakeInvoiceRepo) List(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]billing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		if filter.Debt != nil && inv.Debt != *filter.Debt {
			continue
		}
		out = append(out, *inv.Clone())
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv.Clone(), nil
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.invoices[inv.ID] = inv.Clone()
	return nil
}

func (r *fakeInvoiceRepo) Update(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.invoices[inv.ID]; !ok {
		return shared.ErrNotFound
	}
	r.invoices[inv.ID] = inv.Clone()
	return nil
}

func (r *fakeInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

// fakePaymentRepo is an in-memory PaymentRepository
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*billing.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*billing.Payment)}
}

func (r *fakePaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]billing.Payment, 0)
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *fakePaymentRepo) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.payments {
		if p.InvoiceID == invoiceID {
			delete(r.payments, id)
		}
	}
	return nil
}

func newTestService(t *testing.T) (*SettlementService, *fakeInvoiceRepo, *fakePaymentRepo, *Coordinator) {
	t.Helper()
	invoiceRepo := newFakeInvoiceRepo()
	paymentRepo := newFakePaymentRepo()
	coordinator := NewCoordinator(invoiceRepo)
	rate := billing.NewFixedRateProvider(decimal.NewFromInt(2800))
	svc := NewSettlementService(invoiceRepo, paymentRepo, rate, coordinator, nil)
	return svc, invoiceRepo, paymentRepo, coordinator
}

func createTestInvoice(t *testing.T, svc *SettlementService) *billing.Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Number:     "FAC-2026-0042",
		ClientName: "Mokonzi Bar",
		TableLabel: "T7",
		Items: []LineItemInput{
			{ProductID: uuid.New(), ProductName: "Poulet braisé", UnitPriceCdf: decimal.NewFromInt(25000), UnitPriceUsd: decimal.NewFromInt(9), Quantity: 1},
			{ProductID: uuid.New(), ProductName: "Jus de gingembre", UnitPriceCdf: decimal.NewFromInt(12500), UnitPriceUsd: decimal.RequireFromString("4.50"), Quantity: 2},
		},
	})
	require.NoError(t, err)
	return inv
}
