package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// StockItemFilter narrows a stock item listing
type StockItemFilter struct {
	shared.Filter
	ProductID  *uuid.UUID
	LocationID *uuid.UUID
}

// StockMovementFilter narrows a ledger listing
type StockMovementFilter struct {
	shared.Filter
	ProductID     *uuid.UUID
	LocationID    *uuid.UUID
	Type          *MovementType
	ReferenceType *ReferenceType
	ReferenceID   string
}

// InventoryCountFilter narrows a count listing
type InventoryCountFilter struct {
	shared.Filter
	ProductID  *uuid.UUID
	LocationID *uuid.UUID
	Status     *InventoryStatus
}

// StockItemRepository persists stock items. Reads always go through ReconstituteStockItem.
type StockItemRepository interface {
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*StockItem, error)
	// FindByProductAndLocation returns shared.ErrNotFound if the product never entered the location
	FindByProductAndLocation(ctx context.Context, scope shared.Scope, productID, locationID uuid.UUID) (*StockItem, error)
	FindByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID) ([]*StockItem, error)
	FindByLocation(ctx context.Context, scope shared.Scope, locationID uuid.UUID) ([]*StockItem, error)
	List(ctx context.Context, scope shared.Scope, filter StockItemFilter) ([]*StockItem, int64, error)
	// Save inserts a new item or updates an existing one.
	// Updates use optimistic locking and fail with shared.ErrConcurrencyConflict on a stale version.
	Save(ctx context.Context, item *StockItem) error
}

// StockMovementRepository is the append-only ledger store
type StockMovementRepository interface {
	Append(ctx context.Context, movements ...*StockMovement) error
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*StockMovement, error)
	// FindByProductAndLocation returns movements touching the location, oldest first
	FindByProductAndLocation(ctx context.Context, scope shared.Scope, productID, locationID uuid.UUID) ([]*StockMovement, error)
	FindByReference(ctx context.Context, scope shared.Scope, refType ReferenceType, refID string) ([]*StockMovement, error)
	List(ctx context.Context, scope shared.Scope, filter StockMovementFilter) ([]*StockMovement, int64, error)
}

// InventoryCountRepository persists inventory counts. Reads go through ReconstituteInventoryCount.
type InventoryCountRepository interface {
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*InventoryCount, error)
	FindByIDs(ctx context.Context, scope shared.Scope, ids []uuid.UUID) ([]*InventoryCount, error)
	// FindOpenByProductAndLocation returns counts still PENDING, IN_PROGRESS or DIVERGENT
	FindOpenByProductAndLocation(ctx context.Context, scope shared.Scope, productID, locationID uuid.UUID) ([]*InventoryCount, error)
	List(ctx context.Context, scope shared.Scope, filter InventoryCountFilter) ([]*InventoryCount, int64, error)
	Save(ctx context.Context, count *InventoryCount) error
}
