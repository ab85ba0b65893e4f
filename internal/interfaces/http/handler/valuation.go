package handler

import (
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// ValuationHandler answers cost and stock-level questions over the ledger.
// None of its endpoints write.
type ValuationHandler struct {
	BaseHandler
	ledger *inventoryapp.LedgerService
}

// NewValuationHandler creates a new ValuationHandler
func NewValuationHandler(ledger *inventoryapp.LedgerService) *ValuationHandler {
	return &ValuationHandler{ledger: ledger}
}

// AverageCost GET /valuation/average-cost
func (h *ValuationHandler) AverageCost(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q inventoryapp.StockKeyQuery
	if !h.bindQuery(c, &q) {
		return
	}

	cost, err := h.ledger.AverageCost(c.Request.Context(), p.Scope, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cost)
}

// FIFOCost GET /valuation/fifo-cost
func (h *ValuationHandler) FIFOCost(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q inventoryapp.FIFOCostQuery
	if !h.bindQuery(c, &q) {
		return
	}

	cost, err := h.ledger.FIFOCost(c.Request.Context(), p.Scope, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cost)
}

// TotalValue GET /valuation/total
func (h *ValuationHandler) TotalValue(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q inventoryapp.TotalValueQuery
	if !h.bindQuery(c, &q) {
		return
	}

	total, err := h.ledger.TotalValue(c.Request.Context(), p.Scope, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, total)
}

// Projection POST /valuation/projection
func (h *ValuationHandler) Projection(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.ProjectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	projection, err := h.ledger.Projection(c.Request.Context(), p.Scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, projection)
}

// Coverage GET /valuation/coverage
func (h *ValuationHandler) Coverage(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q inventoryapp.CoverageQuery
	if !h.bindQuery(c, &q) {
		return
	}

	coverage, err := h.ledger.Coverage(c.Request.Context(), p.Scope, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, coverage)
}

// Turnover GET /valuation/turnover. Pure arithmetic, but still behind
// authentication like every other ledger read.
func (h *ValuationHandler) Turnover(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	var q inventoryapp.TurnoverQuery
	if !h.bindQuery(c, &q) {
		return
	}

	turnover, err := h.ledger.Turnover(q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, turnover)
}
