package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"github.com/rafsan3051/TraceRoot-sub000/internal/pricing"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/repository"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceHandler serves the reconciled price endpoints.
type PriceHandler struct {
	svc    *service.TraceService
	prices *pricing.Service
	logger *zap.Logger
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(svc *service.TraceService, prices *pricing.Service, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{svc: svc, prices: prices, logger: logger}
}

// Register mounts the price routes on the given router group.
func (h *PriceHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/products/:id/price")
	{
		p.GET("", h.Latest)
		p.GET("/history", h.History)
		p.POST("", h.Update)
	}
}

// Latest handles GET /products/:id/price, the reconciled current price.
func (h *PriceHandler) Latest(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	point, err := h.prices.GetLatestPrice(c.Request.Context(), id.String())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, point)
}

// History handles GET /products/:id/price/history.
func (h *PriceHandler) History(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	points, err := h.prices.GetPriceHistory(c.Request.Context(), id.String())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if points == nil {
		points = []*pricing.PricePoint{}
	}
	c.JSON(http.StatusOK, gin.H{"history": points})
}

type updatePriceRequest struct {
	Price string `json:"price" binding:"required"`
	Notes string `json:"notes"`
	Actor string `json:"actor" binding:"required"`
}

// Update handles POST /products/:id/price.
func (h *PriceHandler) Update(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal number"})
		return
	}

	res, err := h.svc.UpdatePrice(c.Request.Context(), id, price, req.Notes, req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PriceHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *PriceHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	default:
		h.logger.Error("price handler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
