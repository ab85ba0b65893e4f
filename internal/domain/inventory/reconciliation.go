package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ReconciliationInput carries what the pipeline needs besides the two entities
type ReconciliationInput struct {
	ExecutedBy string
	UnitCost   valueobject.Money
	MovementID uuid.UUID
	ExecutedAt time.Time
}

// ReconciliationResult holds the outcome of a successful reconciliation.
// Item and Count are new copies; the inputs are left untouched.
type ReconciliationResult struct {
	Movement *StockMovement
	Item     *StockItem
	Count    *InventoryCount
}

// Reconcile resolves a divergent count against its stock item:
// validate, derive the adjustment, apply it to stock, then record it on the count.
// On any failure nothing is changed.
func Reconcile(validator *InventoryValidator, count *InventoryCount, item *StockItem, in ReconciliationInput) (*ReconciliationResult, error) {
	if !count.Scope.Contains(item.Scope) ||
		count.ProductID != item.ProductID || count.LocationID != item.LocationID {
		return nil, shared.NewInvariantError("COUNT_ITEM_MISMATCH",
			"count %s does not belong to stock item %s", count.ID, item.ID)
	}
	if err := validator.ValidateForAdjustment(count); err != nil {
		return nil, err
	}

	movement, err := validator.CalculateAdjustment(count, in.ExecutedBy, in.UnitCost, in.MovementID, in.ExecutedAt)
	if err != nil {
		return nil, err
	}

	nextItem := item.Clone()
	switch movement.Type {
	case MovementTypeAdjustmentPlus:
		err = nextItem.AddQuantity(movement.Quantity(), in.ExecutedAt)
	case MovementTypeAdjustmentMinus:
		err = nextItem.RemoveQuantity(movement.Quantity(), in.ExecutedAt)
	}
	if err != nil {
		return nil, err
	}

	nextCount := count.Clone()
	if err := nextCount.RecordAdjustment(movement.ID, in.ExecutedAt); err != nil {
		return nil, err
	}

	return &ReconciliationResult{Movement: movement, Item: nextItem, Count: nextCount}, nil
}
