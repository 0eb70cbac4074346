package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/restopos/backend/internal/application/billing"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared/valueobject"
	"github.com/restopos/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice and payment API endpoints
type InvoiceHandler struct {
	BaseHandler
	service *billingapp.SettlementService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *billingapp.SettlementService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// LineItemRequest represents one basket line in a request body
type LineItemRequest struct {
	ProductID    string  `json:"product_id" binding:"omitempty,uuid"`
	ProductName  string  `json:"product_name" binding:"required,min=1,max=200"`
	UnitPriceCdf float64 `json:"unit_price_cdf"`
	UnitPriceUsd float64 `json:"unit_price_usd"`
	Quantity     int64   `json:"quantity" binding:"required,gt=0"`
}

// CreateInvoiceRequest represents a request to open a new invoice
type CreateInvoiceRequest struct {
	Number     string            `json:"number" binding:"required,min=1,max=50"`
	ClientName string            `json:"client_name" binding:"max=200"`
	TableLabel string            `json:"table_label" binding:"max=50"`
	Items      []LineItemRequest `json:"items" binding:"dive"`
}

// UpdateInvoiceRequest represents a working-copy save. Absent fields are
// left untouched; a present items array replaces the whole basket.
type UpdateInvoiceRequest struct {
	ClientName    *string           `json:"client_name" binding:"omitempty,max=200"`
	TableLabel    *string           `json:"table_label" binding:"omitempty,max=50"`
	Items         []LineItemRequest `json:"items" binding:"omitempty,dive"`
	ReductionCdf  *float64          `json:"reduction_cdf"`
	ReductionUsd  *float64          `json:"reduction_usd"`
	AmountPaidCdf *float64          `json:"amount_paid_cdf"`
	AmountPaidUsd *float64          `json:"amount_paid_usd"`
	PaymentMethod *string           `json:"payment_method" binding:"omitempty,max=50"`
	Debt          *bool             `json:"debt"`
	Remark        *string           `json:"remark" binding:"omitempty,max=500"`
}

// AddPaymentRequest represents a request to record a payment.
// Amount and currency are validated by the settlement rules, not by
// request binding, so violations surface with their domain error codes.
type AddPaymentRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Observation string  `json:"observation" binding:"max=500"`
}

// SanitizeAmountRequest represents a live payment input to sanitize
type SanitizeAmountRequest struct {
	Raw      string `json:"raw"`
	Currency string `json:"currency" binding:"required"`
}

func toLineItemInputs(items []LineItemRequest) ([]billingapp.LineItemInput, error) {
	inputs := make([]billingapp.LineItemInput, 0, len(items))
	for _, it := range items {
		productID := uuid.Nil
		if it.ProductID != "" {
			parsed, err := uuid.Parse(it.ProductID)
			if err != nil {
				return nil, err
			}
			productID = parsed
		}
		inputs = append(inputs, billingapp.LineItemInput{
			ProductID:    productID,
			ProductName:  it.ProductName,
			UnitPriceCdf: decimal.NewFromFloat(it.UnitPriceCdf),
			UnitPriceUsd: decimal.NewFromFloat(it.UnitPriceUsd),
			Quantity:     it.Quantity,
		})
	}
	return inputs, nil
}

func toDecimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// List returns invoices, optionally filtered by creation window and debt flag
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter billing.InvoiceFilter

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		filter.To = &to
	}
	if raw := c.Query("debt"); raw != "" {
		debt := raw == "true" || raw == "1"
		filter.Debt = &debt
	}

	invoices, err := h.service.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoices)
}

// Create opens a new proforma invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items, err := toLineItemInputs(req.Items)
	if err != nil {
		h.BadRequest(c, "Invalid product ID in items")
		return
	}

	invoice, err := h.service.CreateInvoice(c.Request.Context(), billingapp.CreateInvoiceRequest{
		Number:     req.Number,
		ClientName: req.ClientName,
		TableLabel: req.TableLabel,
		Items:      items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID returns an invoice with its computed balances
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	view, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// Update saves a working copy of an invoice in one all-or-nothing commit
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	appReq := billingapp.UpdateInvoiceRequest{
		ClientName:    req.ClientName,
		TableLabel:    req.TableLabel,
		ReductionCdf:  toDecimalPtr(req.ReductionCdf),
		ReductionUsd:  toDecimalPtr(req.ReductionUsd),
		AmountPaidCdf: toDecimalPtr(req.AmountPaidCdf),
		AmountPaidUsd: toDecimalPtr(req.AmountPaidUsd),
		PaymentMethod: req.PaymentMethod,
		Debt:          req.Debt,
		Remark:        req.Remark,
	}
	if req.Items != nil {
		items, err := toLineItemInputs(req.Items)
		if err != nil {
			h.BadRequest(c, "Invalid product ID in items")
			return
		}
		appReq.Items = items
	}

	view, err := h.service.UpdateInvoice(c.Request.Context(), id, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// Delete removes an invoice and its payments
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	if err := h.service.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ToggleStatus flips an invoice between proforma and paid
func (h *InvoiceHandler) ToggleStatus(c *gin.Context) {
	h.transition(c, h.service.ToggleStatus)
}

// MarkPaid settles an invoice regardless of its current non-terminal status
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.service.MarkPaid)
}

// Abort pauses an invoice, or cancels it definitively on a second abort
func (h *InvoiceHandler) Abort(c *gin.Context) {
	h.transition(c, h.service.Abort)
}

func (h *InvoiceHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListPayments returns the payments recorded against an invoice
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// AddPayment records a payment against an invoice
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	payment, err := h.service.AddPayment(c.Request.Context(), id, billingapp.AddPaymentRequest{
		Amount:      decimal.NewFromFloat(req.Amount),
		Currency:    valueobject.Currency(req.Currency),
		Observation: req.Observation,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// RemovePayment deletes a payment and rebuilds the invoice paid amounts
func (h *InvoiceHandler) RemovePayment(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	paymentID, err := uuid.Parse(c.Param("paymentID"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	if err := h.service.RemovePayment(c.Request.Context(), invoiceID, paymentID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetStatement returns the printable settlement statement of an invoice
func (h *InvoiceHandler) GetStatement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	statement, err := h.service.GetStatement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, statement)
}

// SanitizeAmount clamps a raw payment input against the invoice balance
func (h *InvoiceHandler) SanitizeAmount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req SanitizeAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	amount, err := h.service.SanitizeAmount(c.Request.Context(), id, req.Raw, valueobject.Currency(req.Currency))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"amount": amount})
}

// ListPaymentMethods returns the fixed payment-method suggestions.
// The stored label stays free-form; these only feed the input dropdown.
func (h *InvoiceHandler) ListPaymentMethods(c *gin.Context) {
	h.Success(c, billing.PaymentMethodSuggestions)
}

// RegisterRoutes registers the invoice routes on the given group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/payment-methods", h.ListPaymentMethods)

	invoices := rg.Group("/invoices")
	{
		invoices.GET("", h.List)
		invoices.POST("", h.Create)
		invoices.GET("/:id", h.GetByID)
		invoices.PUT("/:id", h.Update)
		invoices.DELETE("/:id", h.Delete)

		invoices.POST("/:id/toggle-status", h.ToggleStatus)
		invoices.POST("/:id/mark-paid", h.MarkPaid)
		invoices.POST("/:id/abort", h.Abort)

		invoices.GET("/:id/payments", h.ListPayments)
		invoices.POST("/:id/payments", h.AddPayment)
		invoices.DELETE("/:id/payments/:paymentID", h.RemovePayment)

		invoices.GET("/:id/statement", h.GetStatement)
		invoices.POST("/:id/sanitize-amount", h.SanitizeAmount)
	}
}
