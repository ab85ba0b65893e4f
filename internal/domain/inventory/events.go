package inventory

import (
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeStockItem      = "StockItem"
	AggregateTypeInventoryCount = "InventoryCount"
)

// Event type constants
const (
	EventTypeStockMovementRecorded   = "StockMovementRecorded"
	EventTypeStockReserved           = "StockReserved"
	EventTypeStockReleased           = "StockReleased"
	EventTypeStockUnitCostUpdated    = "StockUnitCostUpdated"
	EventTypeInventoryCountStarted   = "InventoryCountStarted"
	EventTypeInventoryCountRecorded  = "InventoryCountRecorded"
	EventTypeInventoryCountAdjusted  = "InventoryCountAdjusted"
	EventTypeInventoryCountCancelled = "InventoryCountCancelled"
)

// StockMovementRecordedEvent is raised after a movement is appended to the ledger
type StockMovementRecordedEvent struct {
	shared.BaseDomainEvent
	MovementID     uuid.UUID                 `json:"movement_id"`
	StockItemID    uuid.UUID                 `json:"stock_item_id"`
	ProductID      uuid.UUID                 `json:"product_id"`
	MovementType   MovementType              `json:"movement_type"`
	FromLocationID *uuid.UUID                `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID                `json:"to_location_id,omitempty"`
	Quantity       valueobject.StockQuantity `json:"quantity"`
	TotalCost      valueobject.Money         `json:"total_cost"`
	ReferenceType  ReferenceType             `json:"reference_type,omitempty"`
	ReferenceID    string                    `json:"reference_id,omitempty"`
}

// NewStockMovementRecordedEvent creates a new StockMovementRecordedEvent
func NewStockMovementRecordedEvent(meta shared.EventMeta, item *StockItem, m *StockMovement) *StockMovementRecordedEvent {
	return &StockMovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(meta, EventTypeStockMovementRecorded, AggregateTypeStockItem, item.ID, item.Scope),
		MovementID:      m.ID,
		StockItemID:     item.ID,
		ProductID:       m.ProductID,
		MovementType:    m.Type,
		FromLocationID:  m.FromLocationID,
		ToLocationID:    m.ToLocationID,
		Quantity:        m.Quantity(),
		TotalCost:       m.TotalCost(),
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
	}
}

// StockReservationEvent is raised when a reservation is placed or released
type StockReservationEvent struct {
	shared.BaseDomainEvent
	StockItemID       uuid.UUID                 `json:"stock_item_id"`
	ProductID         uuid.UUID                 `json:"product_id"`
	LocationID        uuid.UUID                 `json:"location_id"`
	Quantity          valueobject.StockQuantity `json:"quantity"`
	ReservedQuantity  valueobject.StockQuantity `json:"reserved_quantity"`
	AvailableQuantity valueobject.StockQuantity `json:"available_quantity"`
	ReferenceID       string                    `json:"reference_id,omitempty"`
}

// NewStockReservationEvent creates a StockReserved or StockReleased event
func NewStockReservationEvent(meta shared.EventMeta, eventType string, item *StockItem, q valueobject.StockQuantity, referenceID string) *StockReservationEvent {
	return &StockReservationEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(meta, eventType, AggregateTypeStockItem, item.ID, item.Scope),
		StockItemID:       item.ID,
		ProductID:         item.ProductID,
		LocationID:        item.LocationID,
		Quantity:          q,
		ReservedQuantity:  item.ReservedQuantity(),
		AvailableQuantity: item.AvailableQuantity(),
		ReferenceID:       referenceID,
	}
}

// StockUnitCostUpdatedEvent is raised when a stock item's unit cost changes
type StockUnitCostUpdatedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID         `json:"stock_item_id"`
	OldCost     valueobject.Money `json:"old_cost"`
	NewCost     valueobject.Money `json:"new_cost"`
}

// NewStockUnitCostUpdatedEvent creates a new StockUnitCostUpdatedEvent
func NewStockUnitCostUpdatedEvent(meta shared.EventMeta, item *StockItem, oldCost valueobject.Money) *StockUnitCostUpdatedEvent {
	return &StockUnitCostUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(meta, EventTypeStockUnitCostUpdated, AggregateTypeStockItem, item.ID, item.Scope),
		StockItemID:     item.ID,
		OldCost:         oldCost,
		NewCost:         item.UnitCost(),
	}
}

// InventoryCountEvent is raised on every status change of a count
type InventoryCountEvent struct {
	shared.BaseDomainEvent
	CountID              uuid.UUID                  `json:"count_id"`
	ProductID            uuid.UUID                  `json:"product_id"`
	LocationID           uuid.UUID                  `json:"location_id"`
	Status               InventoryStatus            `json:"status"`
	SystemQuantity       valueobject.StockQuantity  `json:"system_quantity"`
	CountedQuantity      *valueobject.StockQuantity `json:"counted_quantity,omitempty"`
	Difference           *valueobject.StockQuantity `json:"difference,omitempty"`
	AdjustmentMovementID *uuid.UUID                 `json:"adjustment_movement_id,omitempty"`
}

// NewInventoryCountEvent creates an event of the given type from the count's current state
func NewInventoryCountEvent(meta shared.EventMeta, eventType string, c *InventoryCount) *InventoryCountEvent {
	e := &InventoryCountEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(meta, eventType, AggregateTypeInventoryCount, c.ID, c.Scope),
		CountID:              c.ID,
		ProductID:            c.ProductID,
		LocationID:           c.LocationID,
		Status:               c.Status(),
		SystemQuantity:       c.SystemQuantity(),
		AdjustmentMovementID: c.AdjustmentMovementID(),
	}
	if counted, ok := c.CountedQuantity(); ok {
		e.CountedQuantity = &counted
	}
	if diff, ok := c.Difference(); ok {
		e.Difference = &diff
	}
	return e
}
