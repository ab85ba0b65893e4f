package event

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"go.uber.org/zap"
)

// LedgerAuditHandler writes one structured log line per delivered ledger event.
// It is the default subscriber wired by the server.
type LedgerAuditHandler struct {
	logger *zap.Logger
}

// NewLedgerAuditHandler creates a new LedgerAuditHandler
func NewLedgerAuditHandler(logger *zap.Logger) *LedgerAuditHandler {
	return &LedgerAuditHandler{logger: logger.Named("ledger_audit")}
}

// EventTypes returns nil: the handler receives every event
func (h *LedgerAuditHandler) EventTypes() []string { return nil }

func (h *LedgerAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	scope := event.EventScope()
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("organization_id", scope.OrganizationID.String()),
		zap.String("branch_id", scope.BranchID.String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *inventory.StockMovementRecordedEvent:
		fields = append(fields,
			zap.String("movement_type", string(e.MovementType)),
			zap.String("product_id", e.ProductID.String()),
			zap.String("quantity", e.Quantity.String()),
			zap.String("total_cost", e.TotalCost.String()),
		)
	case *inventory.StockReservationEvent:
		fields = append(fields,
			zap.String("product_id", e.ProductID.String()),
			zap.String("quantity", e.Quantity.String()),
			zap.String("available", e.AvailableQuantity.String()),
		)
	case *inventory.InventoryCountEvent:
		fields = append(fields, zap.String("status", string(e.Status)))
		if e.Difference != nil {
			fields = append(fields, zap.String("difference", e.Difference.String()))
		}
	}

	h.logger.Info("ledger event", fields...)
	return nil
}
