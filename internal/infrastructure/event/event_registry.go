package event

import (
	"github.com/erp/warehouse/internal/domain/inventory"
)

// RegisterLedgerEvents registers every ledger event with the serializer.
// The outbox relay cannot deserialize a type that is missing here.
func RegisterLedgerEvents(serializer *EventSerializer) {
	serializer.Register(inventory.EventTypeStockMovementRecorded, &inventory.StockMovementRecordedEvent{})
	serializer.Register(inventory.EventTypeStockReserved, &inventory.StockReservationEvent{})
	serializer.Register(inventory.EventTypeStockReleased, &inventory.StockReservationEvent{})
	serializer.Register(inventory.EventTypeStockUnitCostUpdated, &inventory.StockUnitCostUpdatedEvent{})

	serializer.Register(inventory.EventTypeInventoryCountStarted, &inventory.InventoryCountEvent{})
	serializer.Register(inventory.EventTypeInventoryCountRecorded, &inventory.InventoryCountEvent{})
	serializer.Register(inventory.EventTypeInventoryCountAdjusted, &inventory.InventoryCountEvent{})
	serializer.Register(inventory.EventTypeInventoryCountCancelled, &inventory.InventoryCountEvent{})
}

// NewLedgerSerializer returns a serializer with every ledger event registered
func NewLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterLedgerEvents(s)
	return s
}
