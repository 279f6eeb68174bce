package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only HTTP endpoints over the ledger facade.
type LedgerHandler struct {
	facade *ledger.Facade
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(facade *ledger.Facade, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{facade: facade, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("/verify/:txid", h.Verify)
		l.GET("/history/:subject", h.History)
		l.GET("/probe", h.Probe)
	}
}

// Verify handles GET /ledger/verify/:txid. An unknown transaction is a
// negative confirmation with status 200, not an error.
func (h *LedgerHandler) Verify(c *gin.Context) {
	conf, err := h.facade.VerifyTransaction(c.Request.Context(), c.Param("txid"))
	if err != nil {
		h.logger.Error("ledger verify", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify transaction"})
		return
	}
	c.JSON(http.StatusOK, conf)
}

// History handles GET /ledger/history/:subject.
func (h *LedgerHandler) History(c *gin.Context) {
	records, err := h.facade.GetHistory(c.Request.Context(), c.Param("subject"))
	if err != nil {
		h.logger.Error("ledger history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

// Probe handles GET /ledger/probe for operational visibility.
func (h *LedgerHandler) Probe(c *gin.Context) {
	res := h.facade.Probe(c.Request.Context())
	c.JSON(http.StatusOK, res)
}
