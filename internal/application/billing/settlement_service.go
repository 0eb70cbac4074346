package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/restopos/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// SettlementService orchestrates the invoice settlement workflows: invoice
// lifecycle, payment recording and the computed statement view. All invoice
// mutations go through the coordinator so concurrent edits of the same
// invoice are applied one after another against the latest snapshot.
type SettlementService struct {
	invoiceRepo  billing.InvoiceRepository
	paymentRepo  billing.PaymentRepository
	rateProvider billing.RateProvider
	coordinator  *Coordinator
	publisher    shared.EventPublisher
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	rateProvider billing.RateProvider,
	coordinator *Coordinator,
	publisher shared.EventPublisher,
) *SettlementService {
	return &SettlementService{
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		rateProvider: rateProvider,
		coordinator:  coordinator,
		publisher:    publisher,
	}
}

// LineItemInput carries one basket line from the caller
type LineItemInput struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	UnitPriceCdf decimal.Decimal `json:"unit_price_cdf"`
	UnitPriceUsd decimal.Decimal `json:"unit_price_usd"`
	Quantity     int64           `json:"quantity"`
}

// CreateInvoiceRequest carries the data to open a new proforma invoice
type CreateInvoiceRequest struct {
	Number     string          `json:"number"`
	ClientName string          `json:"client_name"`
	TableLabel string          `json:"table_label"`
	Items      []LineItemInput `json:"items"`
}

// UpdateInvoiceRequest is the working copy merged back on save. Nil fields
// are left untouched; a non-nil Items slice replaces the whole basket.
type UpdateInvoiceRequest struct {
	ClientName    *string          `json:"client_name,omitempty"`
	TableLabel    *string          `json:"table_label,omitempty"`
	Items         []LineItemInput  `json:"items,omitempty"`
	ReductionCdf  *decimal.Decimal `json:"reduction_cdf,omitempty"`
	ReductionUsd  *decimal.Decimal `json:"reduction_usd,omitempty"`
	AmountPaidCdf *decimal.Decimal `json:"amount_paid_cdf,omitempty"`
	AmountPaidUsd *decimal.Decimal `json:"amount_paid_usd,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Debt          *bool            `json:"debt,omitempty"`
	Remark        *string          `json:"remark,omitempty"`
}

// AddPaymentRequest records money received against an invoice
type AddPaymentRequest struct {
	Amount      decimal.Decimal      `json:"amount"`
	Currency    valueobject.Currency `json:"currency"`
	Observation string               `json:"observation"`
}

// InvoiceView is the read model returned to callers: the invoice snapshot
// together with its computed balances.
type InvoiceView struct {
	Invoice   *billing.Invoice `json:"invoice"`
	Basket    billing.Totals   `json:"basket"`
	Due       billing.Totals   `json:"due"`
	Paid      billing.Totals   `json:"paid"`
	Remaining billing.Totals   `json:"remaining"`
}

func sumPayments(payments []billing.Payment) billing.Totals {
	paid := billing.ZeroTotals()
	for _, p := range payments {
		if p.Currency == valueobject.USD {
			paid.Usd = paid.Usd.Add(p.Amount)
		} else {
			paid.Cdf = paid.Cdf.Add(p.Amount)
		}
	}
	return paid
}

func buildItems(inputs []LineItemInput) ([]billing.LineItem, error) {
	items := make([]billing.LineItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := billing.NewLineItem(in.ProductID, in.ProductName, in.UnitPriceCdf, in.UnitPriceUsd, in.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *SettlementService) view(ctx context.Context, inv *billing.Invoice) (*InvoiceView, error) {
	payments, err := s.paymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	basket := billing.BasketTotals(inv.Items)
	due := billing.AmountDue(basket, inv.ReductionCdf, inv.ReductionUsd)
	paid := billing.AmountPaidToDate(inv, payments)
	return &InvoiceView{
		Invoice:   inv,
		Basket:    basket,
		Due:       due,
		Paid:      paid,
		Remaining: billing.Remaining(due, paid),
	}, nil
}

// ListInvoices returns invoices matching the filter, without balances
func (s *SettlementService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	invoices, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// GetInvoice returns one invoice with its computed balances
func (s *SettlementService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceView, error) {
	inv, err := s.coordinator.Latest(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, inv)
}

// CreateInvoice opens a new proforma invoice. The invoice is persisted first
// and only then tracked by the coordinator.
func (s *SettlementService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "create_invoice")
	defer span.End()

	items, err := buildItems(req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv, err := billing.NewInvoice(req.Number, req.ClientName, items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	inv.TableLabel = req.TableLabel
	// Seed the authoritative paid pair at zero so the full amount due reads
	// as outstanding. Without it the ledger treats the invoice as settled.
	inv.RecordPaidAmounts(decimal.Zero, decimal.Zero)

	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.publishEvents(ctx, inv)
	s.coordinator.Track(inv)

	telemetry.SetAttribute(span, "invoice_id", inv.ID.String())
	return inv, nil
}

// UpdateInvoice merges a working copy back onto the latest snapshot. The
// merge is all-or-nothing: any rejected field aborts the whole commit.
func (s *SettlementService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "update_invoice")
	defer span.End()
	telemetry.SetAttribute(span, "invoice_id", id.String())

	inv, err := s.coordinator.Commit(ctx, id, func(inv *billing.Invoice) error {
		if req.Items != nil {
			items, err := buildItems(req.Items)
			if err != nil {
				return err
			}
			if err := inv.ReplaceItems(items); err != nil {
				return err
			}
		}
		if req.ReductionCdf != nil || req.ReductionUsd != nil {
			cdf, usd := inv.ReductionCdf, inv.ReductionUsd
			if req.ReductionCdf != nil {
				cdf = *req.ReductionCdf
			}
			if req.ReductionUsd != nil {
				usd = *req.ReductionUsd
			}
			if err := inv.SetReduction(cdf, usd); err != nil {
				return err
			}
		}
		if req.AmountPaidCdf != nil || req.AmountPaidUsd != nil {
			cdf, usd := decimal.Zero, decimal.Zero
			if inv.AmountPaidCdf != nil {
				cdf = *inv.AmountPaidCdf
			}
			if inv.AmountPaidUsd != nil {
				usd = *inv.AmountPaidUsd
			}
			if req.AmountPaidCdf != nil {
				cdf = *req.AmountPaidCdf
			}
			if req.AmountPaidUsd != nil {
				usd = *req.AmountPaidUsd
			}
			inv.RecordPaidAmounts(cdf, usd)
		}
		if req.ClientName != nil {
			inv.ClientName = *req.ClientName
		}
		if req.TableLabel != nil {
			inv.TableLabel = *req.TableLabel
		}
		if req.PaymentMethod != nil {
			inv.SetPaymentMethod(*req.PaymentMethod)
		}
		if req.Debt != nil {
			inv.SetDebt(*req.Debt)
		}
		if req.Remark != nil {
			inv.Remark = *req.Remark
		}
		inv.AddDomainEvent(billing.NewInvoiceUpdatedEvent(inv))
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv)
	return s.view(ctx, inv)
}

// DeleteInvoice removes an invoice and cascades to its payments
func (s *SettlementService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "delete_invoice")
	defer span.End()
	telemetry.SetAttribute(span, "invoice_id", id.String())

	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.paymentRepo.DeleteByInvoice(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	s.coordinator.Remove(id)
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, billing.NewInvoiceDeletedEvent(inv))
	}
	return nil
}

// ToggleStatus flips the settlement status of an invoice
func (s *SettlementService) ToggleStatus(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, "toggle_status", func(inv *billing.Invoice) error {
		return inv.Toggle()
	})
}

// MarkPaid marks an invoice as settled regardless of its remaining balance
func (s *SettlementService) MarkPaid(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, "mark_paid", func(inv *billing.Invoice) error {
		return inv.MarkPaid()
	})
}

// Abort pauses an invoice, or cancels it definitively when already paused
func (s *SettlementService) Abort(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, "abort", func(inv *billing.Invoice) error {
		return inv.MarkAbortedOrPaused()
	})
}

func (s *SettlementService) transition(ctx context.Context, id uuid.UUID, op string, apply func(inv *billing.Invoice) error) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", op)
	defer span.End()
	telemetry.SetAttribute(span, "invoice_id", id.String())

	inv, err := s.coordinator.Commit(ctx, id, apply)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv)
	telemetry.SetAttribute(span, "status", inv.Status.String())
	return inv, nil
}

// ListPayments returns all payments recorded against an invoice
func (s *SettlementService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	payments, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// AddPayment validates and records a payment against the remaining balance
// of its currency. An overage within tolerance is clamped down to the exact
// remaining amount; beyond tolerance the payment is rejected.
func (s *SettlementService) AddPayment(ctx context.Context, invoiceID uuid.UUID, req AddPaymentRequest) (*billing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "add_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		"invoice_id", invoiceID.String(),
		"amount", req.Amount.String(),
		"currency", string(req.Currency),
	)

	if !req.Currency.IsValid() {
		err := shared.NewDomainError("INVALID_CURRENCY", "Currency must be CDF or USD")
		telemetry.RecordError(span, err)
		return nil, err
	}

	rate, err := s.rateProvider.Rate(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var payment *billing.Payment
	inv, err := s.coordinator.Commit(ctx, invoiceID, func(inv *billing.Invoice) error {
		payments, err := s.paymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		remaining := billing.InvoiceRemaining(inv, payments)
		amount, err := billing.ValidatePayment(req.Amount, req.Currency, remaining)
		if err != nil {
			return err
		}

		payment, err = billing.NewPayment(inv.ID, amount, req.Currency, rate, req.Observation)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			payment = nil
			return fmt.Errorf("failed to record payment: %w", err)
		}

		// Keep the authoritative paid pair in sync with the payment list.
		paid := sumPayments(append(payments, *payment))
		inv.RecordPaidAmounts(paid.Cdf, paid.Usd)
		inv.AddDomainEvent(billing.NewPaymentRecordedEvent(inv, payment))
		return nil
	})
	if err != nil {
		// The row must not survive a failed commit: without the invoice
		// write the stored paid pair still excludes it, and a retry would
		// record the payment twice.
		if payment != nil {
			_ = s.paymentRepo.Delete(ctx, payment.ID)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv)
	return payment, nil
}

// RemovePayment deletes a payment so its amount flows back into the
// remaining balance on the next read.
func (s *SettlementService) RemovePayment(ctx context.Context, invoiceID, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "remove_payment")
	defer span.End()
	telemetry.SetAttributes(span, "invoice_id", invoiceID.String(), "payment_id", paymentID.String())

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if payment.InvoiceID != invoiceID {
		err := shared.ErrNotFound
		telemetry.RecordError(span, err)
		return err
	}

	removed := false
	inv, err := s.coordinator.Commit(ctx, invoiceID, func(inv *billing.Invoice) error {
		if err := s.paymentRepo.Delete(ctx, paymentID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		removed = true

		survivors, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}
		paid := sumPayments(survivors)
		inv.RecordPaidAmounts(paid.Cdf, paid.Usd)
		inv.AddDomainEvent(billing.NewPaymentRemovedEvent(invoiceID, payment))
		return nil
	})
	if err != nil {
		// Restore the row on a failed commit: the stored paid pair still
		// counts this payment, so the list must keep showing it.
		if removed {
			_ = s.paymentRepo.Create(ctx, payment)
		}
		telemetry.RecordError(span, err)
		return err
	}

	s.publishEvents(ctx, inv)
	return nil
}

// SanitizeAmount clamps a raw amount string into the payable range for live
// input feedback. It never rejects: out-of-range values are clamped.
func (s *SettlementService) SanitizeAmount(ctx context.Context, invoiceID uuid.UUID, raw string, currency valueobject.Currency) (decimal.Decimal, error) {
	view, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	return billing.SanitizeAmountInput(raw, currency, view.Remaining)
}

// GetStatement builds the full settlement view of an invoice at the current
// exchange rate.
func (s *SettlementService) GetStatement(ctx context.Context, invoiceID uuid.UUID) (*billing.Statement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "get_statement")
	defer span.End()
	telemetry.SetAttribute(span, "invoice_id", invoiceID.String())

	inv, err := s.coordinator.Latest(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payments, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	rate, err := s.rateProvider.Rate(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	st, err := billing.BuildStatement(inv, payments, rate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &st, nil
}

// ExchangeRate returns the current CDF-per-USD rate
func (s *SettlementService) ExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	return s.rateProvider.Rate(ctx)
}

// RefreshExchangeRate re-reads the rate from its configuration source
func (s *SettlementService) RefreshExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	return s.rateProvider.Refresh(ctx)
}

func (s *SettlementService) publishEvents(ctx context.Context, inv *billing.Invoice) {
	if s.publisher == nil {
		return
	}
	if events := inv.GetDomainEvents(); len(events) > 0 {
		_ = s.publisher.Publish(ctx, events...)
	}
	inv.ClearDomainEvents()
}
