// Package handler exposes the traceability API over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/model"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/repository"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductHandler serves the product lifecycle endpoints.
type ProductHandler struct {
	svc    *service.TraceService
	logger *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc *service.TraceService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, logger: logger}
}

// Register mounts the product routes on the given router group.
func (h *ProductHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/products")
	{
		p.POST("", h.Create)
		p.GET("", h.List)
		p.GET("/:id", h.Get)
		p.POST("/:id/transfer", h.Transfer)
		p.POST("/:id/status", h.UpdateStatus)
		p.GET("/:id/trace", h.Trace)
	}
}

type createProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Origin      string `json:"origin"`
	Owner       string `json:"owner" binding:"required"`
	Price       string `json:"price"`
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		var err error
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal number"})
			return
		}
	}

	product, err := h.svc.RegisterProduct(c.Request.Context(), service.RegisterInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Origin:      req.Origin,
		Owner:       req.Owner,
		Price:       price,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, err := h.svc.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if products == nil {
		products = []*model.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type transferRequest struct {
	NewOwner string `json:"newOwner" binding:"required"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
	Actor    string `json:"actor" binding:"required"`
}

// Transfer handles POST /products/:id/transfer.
func (h *ProductHandler) Transfer(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.svc.TransferCustody(c.Request.Context(), id, req.NewOwner, req.Location, req.Notes, req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
	Actor  string `json:"actor" binding:"required"`
}

// UpdateStatus handles POST /products/:id/status.
func (h *ProductHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.svc.UpdateStatus(c.Request.Context(), id, model.ProductStatus(req.Status), req.Notes, req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// Trace handles GET /products/:id/trace, returning the on-ledger history
// next to the off-ledger mirror.
func (h *ProductHandler) Trace(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	records, mirrored, err := h.svc.GetTrace(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ledger":   records,
		"mirrored": mirrored,
	})
}

func (h *ProductHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProductHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	default:
		h.logger.Error("product handler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
