package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the settlement status of an invoice.
// Stored as an integer; unrecognized values normalize to Proforma.
type InvoiceStatus int

const (
	StatusProforma              InvoiceStatus = 0 // Unsettled/draft invoice
	StatusPaid                  InvoiceStatus = 1 // Marked as settled
	StatusCancelledOrPaused     InvoiceStatus = 2 // Aborted or put on hold, recoverable
	StatusCancelledDefinitively InvoiceStatus = 3 // Terminal: a second abort confirms the cancellation
)

// IsValid checks if the status is a recognized value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusProforma, StatusPaid, StatusCancelledOrPaused, StatusCancelledDefinitively:
		return true
	}
	return false
}

// Normalize maps unrecognized status values to Proforma
func (s InvoiceStatus) Normalize() InvoiceStatus {
	if !s.IsValid() {
		return StatusProforma
	}
	return s
}

// IsTerminal returns true once no further transition is allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == StatusCancelledDefinitively
}

// String returns a human-readable status label
func (s InvoiceStatus) String() string {
	switch s {
	case StatusProforma:
		return "proforma"
	case StatusPaid:
		return "paid"
	case StatusCancelledOrPaused:
		return "cancelled_or_paused"
	case StatusCancelledDefinitively:
		return "cancelled_definitively"
	}
	return "proforma"
}

// PaymentMethodSuggestions is the fixed suggestion set for the free-form
// payment method label.
var PaymentMethodSuggestions = []string{"cash", "card", "mobile money", "bank transfer"}

// LineItem belongs to exactly one invoice. Unit prices are carried in both
// currencies; a stored subtotal, when present, takes precedence over
// unitPrice * quantity recomputation.
type LineItem struct {
	ID           uuid.UUID        `json:"id"`
	ProductID    uuid.UUID        `json:"product_id"`
	ProductName  string           `json:"product_name"`
	UnitPriceCdf decimal.Decimal  `json:"unit_price_cdf"`
	UnitPriceUsd decimal.Decimal  `json:"unit_price_usd"`
	Quantity     int64            `json:"quantity"`
	SubtotalCdf  *decimal.Decimal `json:"subtotal_cdf,omitempty"`
	SubtotalUsd  *decimal.Decimal `json:"subtotal_usd,omitempty"`
}

// NewLineItem creates a line item with computed subtotals left implicit
func NewLineItem(productID uuid.UUID, productName string, unitPriceCdf, unitPriceUsd decimal.Decimal, quantity int64) (LineItem, error) {
	if productName == "" {
		return LineItem{}, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return LineItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")
	}
	if unitPriceCdf.IsNegative() || unitPriceUsd.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	return LineItem{
		ID:           uuid.New(),
		ProductID:    productID,
		ProductName:  productName,
		UnitPriceCdf: unitPriceCdf,
		UnitPriceUsd: unitPriceUsd,
		Quantity:     quantity,
	}, nil
}

// Subtotals returns the per-currency subtotal pair for this item.
// A stored subtotal is used verbatim; otherwise unitPrice * quantity.
func (li LineItem) Subtotals() Totals {
	qty := decimal.NewFromInt(li.Quantity)
	t := Totals{
		Cdf: li.UnitPriceCdf.Mul(qty),
		Usd: li.UnitPriceUsd.Mul(qty),
	}
	if li.SubtotalCdf != nil {
		t.Cdf = *li.SubtotalCdf
	}
	if li.SubtotalUsd != nil {
		t.Usd = *li.SubtotalUsd
	}
	return t
}

// LineItems is a slice of LineItem stored as a JSONB column
type LineItems []LineItem

// Value implements driver.Valuer for JSONB storage
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB retrieval
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Invoice is the aggregate root of the settlement core. Reductions and paid
// amounts are tracked per currency, independently, never derived from one
// another.
type Invoice struct {
	shared.BaseAggregateRoot
	Number        string           `json:"number"`
	ClientName    string           `json:"client_name"`
	TableLabel    string           `json:"table_label"`
	Items         LineItems        `json:"items"`
	ReductionCdf  decimal.Decimal  `json:"reduction_cdf"`
	ReductionUsd  decimal.Decimal  `json:"reduction_usd"`
	Status        InvoiceStatus    `json:"status"`
	Debt          bool             `json:"debt"`
	PaymentMethod string           `json:"payment_method"`
	AmountPaidCdf *decimal.Decimal `json:"amount_paid_cdf,omitempty"`
	AmountPaidUsd *decimal.Decimal `json:"amount_paid_usd,omitempty"`
	Remark        string           `json:"remark"`
}

// NewInvoice creates a new proforma invoice
func NewInvoice(number, clientName string, items []LineItem) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		ClientName:        clientName,
		Items:             append(LineItems{}, items...),
		ReductionCdf:      decimal.Zero,
		ReductionUsd:      decimal.Zero,
		Status:            StatusProforma,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AddItem appends a line item to the invoice
func (inv *Invoice) AddItem(item LineItem) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit items of a %s invoice", inv.Status))
	}
	inv.Items = append(inv.Items, item)
	inv.touch()
	return nil
}

// UpdateItemQuantity changes the quantity of an existing line item.
// Stored subtotals are discarded so the new quantity drives the totals.
func (inv *Invoice) UpdateItemQuantity(itemID uuid.UUID, quantity int64) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit items of a %s invoice", inv.Status))
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")
	}
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			inv.Items[i].Quantity = quantity
			inv.Items[i].SubtotalCdf = nil
			inv.Items[i].SubtotalUsd = nil
			inv.touch()
			return nil
		}
	}
	return shared.ErrNotFound
}

// RemoveItem deletes a line item from the invoice
func (inv *Invoice) RemoveItem(itemID uuid.UUID) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit items of a %s invoice", inv.Status))
	}
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			inv.touch()
			return nil
		}
	}
	return shared.ErrNotFound
}

// ReplaceItems swaps the whole item list, used when a working copy is merged
// back on save. The merge is all-or-nothing: callers discard the copy on
// cancel instead of applying it partially.
func (inv *Invoice) ReplaceItems(items []LineItem) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit items of a %s invoice", inv.Status))
	}
	inv.Items = append(LineItems{}, items...)
	inv.touch()
	return nil
}

// SetReduction sets the per-currency discount. A reduction larger than the
// basket total is accepted; the amount due clamps to zero instead.
func (inv *Invoice) SetReduction(cdf, usd decimal.Decimal) error {
	if cdf.IsNegative() || usd.IsNegative() {
		return shared.NewDomainError("INVALID_REDUCTION", "Reduction cannot be negative")
	}
	inv.ReductionCdf = cdf
	inv.ReductionUsd = usd
	inv.touch()
	return nil
}

// SetPaymentMethod records the free-form payment method label
func (inv *Invoice) SetPaymentMethod(method string) {
	inv.PaymentMethod = method
	inv.touch()
}

// SetDebt flags the invoice as a debtor invoice
func (inv *Invoice) SetDebt(debt bool) {
	inv.Debt = debt
	inv.touch()
}

// RecordPaidAmounts stores the authoritative amount-paid pair. Once set,
// these values take precedence over payment summation (I3).
func (inv *Invoice) RecordPaidAmounts(cdf, usd decimal.Decimal) {
	roundedCdf := valueobject.NewMoneyCDF(cdf).RoundForCurrency().Amount()
	roundedUsd := valueobject.NewMoneyUSD(usd).RoundForCurrency().Amount()
	inv.AmountPaidCdf = &roundedCdf
	inv.AmountPaidUsd = &roundedUsd
	inv.touch()
}

// ClearPaidAmounts drops the authoritative paid pair so summation over the
// remaining payments becomes the source of truth again.
func (inv *Invoice) ClearPaidAmounts() {
	inv.AmountPaidCdf = nil
	inv.AmountPaidUsd = nil
	inv.touch()
}

// Toggle flips the settlement status: Proforma becomes Paid, Paid reverts
// to Proforma, and a paused invoice resumes as Proforma. This is a manual,
// user-confirmed transition with no side effect on payments.
func (inv *Invoice) Toggle() error {
	previous := inv.Status.Normalize()
	switch previous {
	case StatusProforma:
		inv.Status = StatusPaid
	case StatusPaid:
		inv.Status = StatusProforma
	case StatusCancelledOrPaused:
		inv.Status = StatusProforma
	default:
		return shared.NewDomainError("INVALID_STATE", "A definitively cancelled invoice cannot be toggled")
	}
	inv.touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previous))
	return nil
}

// MarkPaid sets the status to Paid unconditionally. There is deliberately no
// check that the remaining balance is zero.
func (inv *Invoice) MarkPaid() error {
	previous := inv.Status.Normalize()
	if previous.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "A definitively cancelled invoice cannot be marked paid")
	}
	inv.Status = StatusPaid
	inv.touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previous))
	return nil
}

// MarkAbortedOrPaused cancels or pauses the invoice. A second invocation on
// an already paused invoice cancels it definitively, which is terminal.
func (inv *Invoice) MarkAbortedOrPaused() error {
	previous := inv.Status.Normalize()
	switch previous {
	case StatusProforma, StatusPaid:
		inv.Status = StatusCancelledOrPaused
	case StatusCancelledOrPaused:
		inv.Status = StatusCancelledDefinitively
	default:
		return shared.NewDomainError("INVALID_STATE", "Invoice is already definitively cancelled")
	}
	inv.touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previous))
	return nil
}

// Clone returns a deep copy of the invoice snapshot. Pending domain events
// are not carried over.
func (inv *Invoice) Clone() *Invoice {
	clone := *inv
	clone.ClearDomainEvents()
	clone.Items = append(LineItems{}, inv.Items...)
	for i := range clone.Items {
		if s := clone.Items[i].SubtotalCdf; s != nil {
			v := *s
			clone.Items[i].SubtotalCdf = &v
		}
		if s := clone.Items[i].SubtotalUsd; s != nil {
			v := *s
			clone.Items[i].SubtotalUsd = &v
		}
	}
	if inv.AmountPaidCdf != nil {
		v := *inv.AmountPaidCdf
		clone.AmountPaidCdf = &v
	}
	if inv.AmountPaidUsd != nil {
		v := *inv.AmountPaidUsd
		clone.AmountPaidUsd = &v
	}
	return &clone
}

// HasExplicitPaidAmounts reports whether the authoritative paid pair is set
func (inv *Invoice) HasExplicitPaidAmounts() bool {
	return inv.AmountPaidCdf != nil || inv.AmountPaidUsd != nil
}

// ItemCount returns the number of line items
func (inv *Invoice) ItemCount() int {
	return len(inv.Items)
}

func (inv *Invoice) touch() {
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}
