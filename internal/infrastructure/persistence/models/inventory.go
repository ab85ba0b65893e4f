package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItemModel is the persistence model for the StockItem aggregate root
type StockItemModel struct {
	ScopedAggregateModel
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_item_product_location,priority:1"`
	LocationID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_item_product_location,priority:2"`
	Quantity         decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	ReservedQuantity decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	Unit             string          `gorm:"type:varchar(8);not null"`
	LotNumber        string          `gorm:"type:varchar(64)"`
	ExpirationDate   *time.Time
	UnitCost         decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Currency         string          `gorm:"type:char(3);not null"`
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain rebuilds the stock item, failing with corrupted data on a broken row
func (m *StockItemModel) ToDomain() (*inventory.StockItem, error) {
	unit := valueobject.UnitOfMeasure(m.Unit)
	qty, err := valueobject.NewStockQuantity(m.Quantity, unit)
	if err != nil {
		return nil, shared.NewCorruptedDataError("stock item", err)
	}
	reserved, err := valueobject.NewStockQuantity(m.ReservedQuantity, unit)
	if err != nil {
		return nil, shared.NewCorruptedDataError("stock item", err)
	}
	cost, err := valueobject.NewMoney(m.UnitCost, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, shared.NewCorruptedDataError("stock item", err)
	}
	return inventory.ReconstituteStockItem(inventory.StockItemParams{
		ID:               m.ID,
		Scope:            m.Scope(),
		ProductID:        m.ProductID,
		LocationID:       m.LocationID,
		Quantity:         qty,
		ReservedQuantity: reserved,
		LotNumber:        m.LotNumber,
		ExpirationDate:   m.ExpirationDate,
		UnitCost:         cost,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	})
}

// FromDomain populates the persistence model from a domain StockItem
func (m *StockItemModel) FromDomain(s *inventory.StockItem) {
	m.FromDomainScopedAggregateRoot(s.ScopedAggregateRoot)
	m.ProductID = s.ProductID
	m.LocationID = s.LocationID
	m.Quantity = s.Quantity().Value()
	m.ReservedQuantity = s.ReservedQuantity().Value()
	m.Unit = string(s.Unit())
	m.LotNumber = s.LotNumber()
	m.ExpirationDate = s.ExpirationDate()
	m.UnitCost = s.UnitCost().Amount()
	m.Currency = string(s.UnitCost().Currency())
}

// StockItemModelFromDomain creates a persistence model from a domain StockItem
func StockItemModelFromDomain(s *inventory.StockItem) *StockItemModel {
	m := &StockItemModel{}
	m.FromDomain(s)
	return m
}

// StockMovementModel is one row of the append-only ledger
type StockMovementModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_scope_product,priority:1"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_scope_product,priority:2"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_scope_product,priority:3"`
	FromLocationID *uuid.UUID      `gorm:"type:uuid;index"`
	ToLocationID   *uuid.UUID      `gorm:"type:uuid;index"`
	Type           string          `gorm:"type:varchar(32);not null;index"`
	Quantity       decimal.Decimal `gorm:"type:numeric(18,3);not null"`
	Unit           string          `gorm:"type:varchar(8);not null"`
	UnitCost       decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Currency       string          `gorm:"type:char(3);not null"`
	ReferenceType  string          `gorm:"type:varchar(32);index:idx_stock_movement_reference,priority:1"`
	ReferenceID    string          `gorm:"type:varchar(128);index:idx_stock_movement_reference,priority:2"`
	Reason         string          `gorm:"type:text"`
	ExecutedBy     string          `gorm:"type:varchar(128);not null"`
	ExecutedAt     time.Time       `gorm:"not null;index"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain rebuilds the movement, re-validating every ledger rule
func (m *StockMovementModel) ToDomain() (*inventory.StockMovement, error) {
	qty, err := valueobject.NewStockQuantity(m.Quantity, valueobject.UnitOfMeasure(m.Unit))
	if err != nil {
		return nil, shared.NewCorruptedDataError("stock movement", err)
	}
	cost, err := valueobject.NewMoney(m.UnitCost, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, shared.NewCorruptedDataError("stock movement", err)
	}
	return inventory.ReconstituteStockMovement(inventory.StockMovementParams{
		ID:             m.ID,
		Scope:          shared.Scope{OrganizationID: m.OrganizationID, BranchID: m.BranchID},
		ProductID:      m.ProductID,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Type:           inventory.MovementType(m.Type),
		Quantity:       qty,
		UnitCost:       cost,
		ReferenceType:  inventory.ReferenceType(m.ReferenceType),
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		ExecutedBy:     m.ExecutedBy,
		ExecutedAt:     m.ExecutedAt,
	})
}

// StockMovementModelFromDomain creates a ledger row from a domain movement
func StockMovementModelFromDomain(mv *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:             mv.ID,
		OrganizationID: mv.Scope.OrganizationID,
		BranchID:       mv.Scope.BranchID,
		ProductID:      mv.ProductID,
		FromLocationID: mv.FromLocationID,
		ToLocationID:   mv.ToLocationID,
		Type:           string(mv.Type),
		Quantity:       mv.Quantity().Value(),
		Unit:           string(mv.Quantity().Unit()),
		UnitCost:       mv.UnitCost().Amount(),
		Currency:       string(mv.UnitCost().Currency()),
		ReferenceType:  string(mv.ReferenceType),
		ReferenceID:    mv.ReferenceID,
		Reason:         mv.Reason,
		ExecutedBy:     mv.ExecutedBy,
		ExecutedAt:     mv.ExecutedAt,
		CreatedAt:      mv.ExecutedAt,
	}
}

// InventoryCountModel is the persistence model for the InventoryCount aggregate root
type InventoryCountModel struct {
	ScopedAggregateModel
	ProductID            uuid.UUID        `gorm:"type:uuid;not null;index:idx_inventory_count_product_location,priority:1"`
	LocationID           uuid.UUID        `gorm:"type:uuid;not null;index:idx_inventory_count_product_location,priority:2"`
	SystemQuantity       decimal.Decimal  `gorm:"type:numeric(18,3);not null"`
	CountedQuantity      *decimal.Decimal `gorm:"type:numeric(18,3)"`
	Unit                 string           `gorm:"type:varchar(8);not null"`
	CountedBy            string           `gorm:"type:varchar(128)"`
	CountedAt            *time.Time
	AdjustmentMovementID *uuid.UUID `gorm:"type:uuid"`
	Status               string     `gorm:"type:varchar(20);not null;index"`
	Notes                string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InventoryCountModel) TableName() string {
	return "inventory_counts"
}

// ToDomain rebuilds the count, failing with corrupted data on a broken row
func (m *InventoryCountModel) ToDomain() (*inventory.InventoryCount, error) {
	unit := valueobject.UnitOfMeasure(m.Unit)
	system, err := valueobject.NewStockQuantity(m.SystemQuantity, unit)
	if err != nil {
		return nil, shared.NewCorruptedDataError("inventory count", err)
	}
	var counted *valueobject.StockQuantity
	if m.CountedQuantity != nil {
		q, err := valueobject.NewStockQuantity(*m.CountedQuantity, unit)
		if err != nil {
			return nil, shared.NewCorruptedDataError("inventory count", err)
		}
		counted = &q
	}
	return inventory.ReconstituteInventoryCount(inventory.InventoryCountParams{
		ID:                   m.ID,
		Scope:                m.Scope(),
		ProductID:            m.ProductID,
		LocationID:           m.LocationID,
		SystemQuantity:       system,
		CountedQuantity:      counted,
		CountedBy:            m.CountedBy,
		CountedAt:            m.CountedAt,
		AdjustmentMovementID: m.AdjustmentMovementID,
		Status:               inventory.InventoryStatus(m.Status),
		Notes:                m.Notes,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	})
}

// FromDomain populates the persistence model from a domain InventoryCount
func (m *InventoryCountModel) FromDomain(c *inventory.InventoryCount) {
	m.FromDomainScopedAggregateRoot(c.ScopedAggregateRoot)
	m.ProductID = c.ProductID
	m.LocationID = c.LocationID
	m.SystemQuantity = c.SystemQuantity().Value()
	m.Unit = string(c.SystemQuantity().Unit())
	m.CountedQuantity = nil
	if q, ok := c.CountedQuantity(); ok {
		v := q.Value()
		m.CountedQuantity = &v
	}
	m.CountedBy = c.CountedBy()
	m.CountedAt = c.CountedAt()
	m.AdjustmentMovementID = c.AdjustmentMovementID()
	m.Status = string(c.Status())
	m.Notes = c.Notes
}

// InventoryCountModelFromDomain creates a persistence model from a domain InventoryCount
func InventoryCountModelFromDomain(c *inventory.InventoryCount) *InventoryCountModel {
	m := &InventoryCountModel{}
	m.FromDomain(c)
	return m
}
