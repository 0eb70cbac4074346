package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	billingapp "github.com/restopos/backend/internal/application/billing"
	"github.com/restopos/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// RateUpdater persists a new venue-wide exchange rate
type RateUpdater interface {
	Update(ctx context.Context, rate decimal.Decimal) error
}

// ExchangeRateHandler handles exchange rate API endpoints
type ExchangeRateHandler struct {
	BaseHandler
	service *billingapp.SettlementService
	updater RateUpdater
}

// NewExchangeRateHandler creates a new ExchangeRateHandler
func NewExchangeRateHandler(service *billingapp.SettlementService, updater RateUpdater) *ExchangeRateHandler {
	return &ExchangeRateHandler{service: service, updater: updater}
}

// UpdateRateRequest represents a request to set the CDF-per-USD rate
type UpdateRateRequest struct {
	Rate float64 `json:"rate"`
}

// Get returns the currently cached exchange rate
func (h *ExchangeRateHandler) Get(c *gin.Context) {
	rate, err := h.service.ExchangeRate(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"rate": rate})
}

// Refresh re-reads the rate from the configuration source
func (h *ExchangeRateHandler) Refresh(c *gin.Context) {
	rate, err := h.service.RefreshExchangeRate(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"rate": rate})
}

// Update persists a new rate and makes it current
func (h *ExchangeRateHandler) Update(c *gin.Context) {
	var req UpdateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	rate := decimal.NewFromFloat(req.Rate)
	if err := h.updater.Update(c.Request.Context(), rate); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"rate": rate})
}

// RegisterRoutes registers the exchange rate routes on the given group
func (h *ExchangeRateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rates := rg.Group("/exchange-rate")
	{
		rates.GET("", h.Get)
		rates.PUT("", h.Update)
		rates.POST("/refresh", h.Refresh)
	}
}
