package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/restopos/backend/internal/application/billing"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *memInvoiceRepo) List(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
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

func (r *memInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv.Clone(), nil
}

func (r *memInvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ID] = inv.Clone()
	return nil
}

func (r *memInvoiceRepo) Update(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID]; !ok {
		return shared.ErrNotFound
	}
	r.invoices[inv.ID] = inv.Clone()
	return nil
}

func (r *memInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*billing.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]*billing.Payment)}
}

func (r *memPaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
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

func (r *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) Create(ctx context.Context, p *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *memPaymentRepo) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.payments {
		if p.InvoiceID == invoiceID {
			delete(r.payments, id)
		}
	}
	return nil
}

func newTestAPI(t *testing.T) *gin.Engine {
	t.Helper()
	invoiceRepo := newMemInvoiceRepo()
	paymentRepo := newMemPaymentRepo()
	coordinator := billingapp.NewCoordinator(invoiceRepo)
	rate := billing.NewFixedRateProvider(decimal.NewFromInt(2800))
	svc := billingapp.NewSettlementService(invoiceRepo, paymentRepo, rate, coordinator, nil)

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewInvoiceHandler(svc).RegisterRoutes(api)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func createInvoiceViaAPI(t *testing.T, engine *gin.Engine) uuid.UUID {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", gin.H{
		"number":      "FAC-2026-0100",
		"client_name": "Chez Maman Colonel",
		"table_label": "T3",
		"items": []gin.H{
			{"product_name": "Poulet braisé", "unit_price_cdf": 25000, "unit_price_usd": 9, "quantity": 1},
			{"product_name": "Jus de gingembre", "unit_price_cdf": 12500, "unit_price_usd": 4.50, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	id, err := uuid.Parse(data["id"].(string))
	require.NoError(t, err)
	return id
}

func TestInvoiceAPI_CreateAndGet(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	view := resp.Data.(map[string]any)
	remaining := view["remaining"].(map[string]any)
	assert.Equal(t, "50000", fmt.Sprint(remaining["cdf"]))
	assert.Equal(t, "18", fmt.Sprint(remaining["usd"]))
}

func TestInvoiceAPI_CreateValidation(t *testing.T) {
	engine := newTestAPI(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", gin.H{
		"client_name": "No number",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
}

func TestInvoiceAPI_GetUnknownInvoice(t *testing.T) {
	engine := newTestAPI(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestInvoiceAPI_AddPayment(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/payments", gin.H{
		"amount":   25000,
		"currency": "CDF",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Remaining CDF drops by the paid amount
	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	resp := decodeResponse(t, w)
	view := resp.Data.(map[string]any)
	remaining := view["remaining"].(map[string]any)
	assert.Equal(t, "25000", fmt.Sprint(remaining["cdf"]))
}

func TestInvoiceAPI_AddPaymentDomainErrors(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	t.Run("non-positive amount", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/payments", gin.H{
			"amount":   0,
			"currency": "CDF",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeNonPositiveAmount, resp.Error.Code)
	})

	t.Run("exceeds remaining", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/payments", gin.H{
			"amount":   60000,
			"currency": "CDF",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeExceedsRemaining, resp.Error.Code)
	})

	t.Run("unknown currency", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/payments", gin.H{
			"amount":   10,
			"currency": "EUR",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInvoiceAPI_StatusTransitions(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/toggle-status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	inv := resp.Data.(map[string]any)
	assert.Equal(t, float64(billing.StatusPaid), inv["status"])

	w = doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/abort", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	inv = resp.Data.(map[string]any)
	assert.Equal(t, float64(billing.StatusCancelledOrPaused), inv["status"])

	// Second abort is definitive, after which transitions are rejected
	w = doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/abort", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/toggle-status", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp = decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
}

func TestInvoiceAPI_UpdateWorkingCopy(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodPut, "/api/v1/invoices/"+id.String(), gin.H{
		"client_name":   "Nouveau client",
		"reduction_cdf": 5000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	view := resp.Data.(map[string]any)
	due := view["due"].(map[string]any)
	assert.Equal(t, "45000", fmt.Sprint(due["cdf"]))
}

func TestInvoiceAPI_DeleteCascades(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodDelete, "/api/v1/invoices/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceAPI_Statement(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+id.String()+"/statement", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	st := resp.Data.(map[string]any)
	assert.Equal(t, "FAC-2026-0100", st["number"])
	assert.Equal(t, "2800", fmt.Sprint(st["rate"]))
}

func TestInvoiceAPI_SanitizeAmount(t *testing.T) {
	engine := newTestAPI(t)
	id := createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+id.String()+"/sanitize-amount", gin.H{
		"raw":      "12 500F",
		"currency": "CDF",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "12500", fmt.Sprint(data["amount"]))
}

func TestInvoiceAPI_ListWithDebtFilter(t *testing.T) {
	engine := newTestAPI(t)
	createInvoiceViaAPI(t, engine)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices?debt=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Empty(t, resp.Data)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices", nil)
	resp = decodeResponse(t, w)
	assert.Len(t, resp.Data, 1)
}
