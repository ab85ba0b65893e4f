package handler

import (
	"context"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryCountHandler drives the physical count lifecycle and the analyses
// run over sets of counts.
type InventoryCountHandler struct {
	BaseHandler
	counts *inventoryapp.CountService
}

// NewInventoryCountHandler creates a new InventoryCountHandler
func NewInventoryCountHandler(counts *inventoryapp.CountService) *InventoryCountHandler {
	return &InventoryCountHandler{counts: counts}
}

// Initiate snapshots the system quantity. POST /inventory-counts
func (h *InventoryCountHandler) Initiate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.InitiateCountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	count, err := h.counts.Initiate(c.Request.Context(), p.Scope, p.UserID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, count)
}

// Get GET /inventory-counts/:id
func (h *InventoryCountHandler) Get(c *gin.Context) {
	h.byID(c, h.counts.Get)
}

// List GET /inventory-counts
func (h *InventoryCountHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter inventoryapp.InventoryCountListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.counts.List(c.Request.Context(), p.Scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Start POST /inventory-counts/:id/start
func (h *InventoryCountHandler) Start(c *gin.Context) {
	h.byID(c, h.counts.Start)
}

// Cancel POST /inventory-counts/:id/cancel
func (h *InventoryCountHandler) Cancel(c *gin.Context) {
	h.byID(c, h.counts.Cancel)
}

// byID runs a single-count operation addressed by the :id path parameter
func (h *InventoryCountHandler) byID(c *gin.Context, fn func(context.Context, shared.Scope, uuid.UUID) (*inventoryapp.InventoryCountResponse, error)) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	count, err := fn(c.Request.Context(), p.Scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// Record stores the physical quantity. POST /inventory-counts/:id/record
func (h *InventoryCountHandler) Record(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.RecordCountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	count, err := h.counts.Record(c.Request.Context(), p.Scope, p.UserID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// Reconcile derives and applies the adjustment for a counted count.
// POST /inventory-counts/:id/reconcile
func (h *InventoryCountHandler) Reconcile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.ReconcileRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.idempotencyKey(c)
	if !ok {
		return
	}
	req.IdempotencyKey = key

	result, err := h.counts.Reconcile(c.Request.Context(), p.Scope, p.UserID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Validate reports whether one count can be finalized.
// GET /inventory-counts/:id/validation
func (h *InventoryCountHandler) Validate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	check, err := h.counts.ValidateCount(c.Request.Context(), p.Scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, check)
}

// Anomalies POST /inventory-counts/anomalies
func (h *InventoryCountHandler) Anomalies(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.CountSetRequest
	if !h.bindJSON(c, &req) {
		return
	}

	anomalies, err := h.counts.Anomalies(c.Request.Context(), p.Scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if anomalies == nil {
		anomalies = []inventory.Anomaly{}
	}
	h.Success(c, anomalies)
}

// Accuracy POST /inventory-counts/accuracy
func (h *InventoryCountHandler) Accuracy(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.CountSetRequest
	if !h.bindJSON(c, &req) {
		return
	}

	accuracy, err := h.counts.Accuracy(c.Request.Context(), p.Scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accuracy)
}

// FinalizationCheck POST /inventory-counts/finalization-check
func (h *InventoryCountHandler) FinalizationCheck(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.CountSetRequest
	if !h.bindJSON(c, &req) {
		return
	}

	check, err := h.counts.FinalizationCheck(c.Request.Context(), p.Scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, check)
}
