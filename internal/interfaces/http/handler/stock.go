package handler

import (
	"context"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// StockHandler exposes the stock ledger: movements, reservations and the
// stock item and movement queries.
type StockHandler struct {
	BaseHandler
	ledger *inventoryapp.LedgerService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(ledger *inventoryapp.LedgerService) *StockHandler {
	return &StockHandler{ledger: ledger}
}

type movementCommand[R any] func(ctx context.Context, scope shared.Scope, executedBy string, req R) (*inventoryapp.MovementResultResponse, error)

// runMovement binds R, stamps the idempotency key through setKey, runs cmd for
// the caller and answers 201 with the movement and touched items.
func runMovement[R any](h *StockHandler, c *gin.Context, setKey func(*R, string), cmd movementCommand[R]) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req R
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.idempotencyKey(c)
	if !ok {
		return
	}
	setKey(&req, key)

	result, err := cmd(c.Request.Context(), p.Scope, p.UserID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

func setMovementKey(r *inventoryapp.MovementRequest, key string) { r.IdempotencyKey = key }

// Receive records an ENTRY. POST /stock/entries
func (h *StockHandler) Receive(c *gin.Context) {
	runMovement(h, c, func(r *inventoryapp.ReceiveRequest, k string) { r.IdempotencyKey = k }, h.ledger.Receive)
}

// Issue records an EXIT. POST /stock/exits
func (h *StockHandler) Issue(c *gin.Context) {
	runMovement(h, c, setMovementKey, h.ledger.Issue)
}

// Pick records a PICKING. POST /stock/pickings
func (h *StockHandler) Pick(c *gin.Context) {
	runMovement(h, c, setMovementKey, h.ledger.Pick)
}

// Return records a RETURN. POST /stock/returns
func (h *StockHandler) Return(c *gin.Context) {
	runMovement(h, c, func(r *inventoryapp.ReturnRequest, k string) { r.IdempotencyKey = k }, h.ledger.Return)
}

// Transfer moves stock between locations. POST /stock/transfers
func (h *StockHandler) Transfer(c *gin.Context) {
	runMovement(h, c, func(r *inventoryapp.TransferRequest, k string) { r.IdempotencyKey = k }, h.ledger.Transfer)
}

// Reserve holds available stock. POST /stock/reservations
func (h *StockHandler) Reserve(c *gin.Context) {
	runMovement(h, c, setMovementKey, h.ledger.Reserve)
}

// Release returns reserved stock to available. POST /stock/reservations/release
func (h *StockHandler) Release(c *gin.Context) {
	runMovement(h, c, setMovementKey, h.ledger.Release)
}

// Adjust records a manual ADJUSTMENT_PLUS or ADJUSTMENT_MINUS. POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	runMovement(h, c, func(r *inventoryapp.AdjustRequest, k string) { r.IdempotencyKey = k }, h.ledger.Adjust)
}

// UpdateUnitCost PUT /stock-items/:id/unit-cost
func (h *StockHandler) UpdateUnitCost(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateUnitCostRequest
	if !h.bindJSON(c, &req) {
		return
	}

	item, err := h.ledger.UpdateUnitCost(c.Request.Context(), p.Scope, p.UserID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// GetItem GET /stock-items/:id
func (h *StockHandler) GetItem(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	item, err := h.ledger.GetItem(c.Request.Context(), p.Scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ListItems GET /stock-items
func (h *StockHandler) ListItems(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter inventoryapp.StockItemListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.ledger.ListItems(c.Request.Context(), p.Scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// GetMovement GET /stock-movements/:id
func (h *StockHandler) GetMovement(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	mv, err := h.ledger.GetMovement(c.Request.Context(), p.Scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mv)
}

// ListMovements GET /stock-movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter inventoryapp.StockMovementListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.ledger.ListMovements(c.Request.Context(), p.Scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}
