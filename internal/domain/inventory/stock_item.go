package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DefaultNearExpirationDays is the window used by IsNearExpiration when callers have no policy of their own
const DefaultNearExpirationDays = 30

// StockItem is the physical stock of one product at one location within a tenant scope.
// Available quantity is derived as quantity minus reserved and never goes below zero.
type StockItem struct {
	shared.ScopedAggregateRoot
	ProductID  uuid.UUID
	LocationID uuid.UUID

	quantity       valueobject.StockQuantity
	reserved       valueobject.StockQuantity
	lotNumber      string
	expirationDate *time.Time
	unitCost       valueobject.Money
}

// StockItemParams carries every field needed to build or reload a StockItem
type StockItemParams struct {
	ID               uuid.UUID
	Scope            shared.Scope
	ProductID        uuid.UUID
	LocationID       uuid.UUID
	Quantity         valueobject.StockQuantity
	ReservedQuantity valueobject.StockQuantity
	LotNumber        string
	ExpirationDate   *time.Time
	UnitCost         valueobject.Money
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStockItem creates a stock item for a product entering a location.
// Besides the structural rules it rejects lots that are already expired at now.
func NewStockItem(p StockItemParams, now time.Time) (*StockItem, error) {
	p.defaultReserved()
	if err := validateStockItem(p); err != nil {
		return nil, err
	}
	if p.ExpirationDate != nil && p.ExpirationDate.Before(now) {
		return nil, shared.NewValidationError("EXPIRED_LOT",
			"expiration date %s is already in the past", p.ExpirationDate.Format(time.DateOnly))
	}

	return &StockItem{
		ScopedAggregateRoot: shared.NewScopedAggregateRoot(p.ID, p.Scope, now),
		ProductID:           p.ProductID,
		LocationID:          p.LocationID,
		quantity:            p.Quantity,
		reserved:            p.ReservedQuantity,
		lotNumber:           p.LotNumber,
		expirationDate:      copyTime(p.ExpirationDate),
		unitCost:            p.UnitCost,
	}, nil
}

// ReconstituteStockItem rebuilds a persisted stock item.
// Expired lots stay loadable; a broken structural rule is reported as corrupted data.
func ReconstituteStockItem(p StockItemParams) (*StockItem, error) {
	p.defaultReserved()
	if err := validateStockItem(p); err != nil {
		return nil, shared.NewCorruptedDataError("stock item", err)
	}
	if p.Version < 1 {
		return nil, shared.NewCorruptedDataError("stock item",
			shared.NewValidationError("INVALID_VERSION", "version must be at least 1, got %d", p.Version))
	}

	item := &StockItem{
		ScopedAggregateRoot: shared.RestoreScopedAggregateRoot(p.ID, p.Scope, p.Version, p.CreatedAt, p.UpdatedAt),
		ProductID:           p.ProductID,
		LocationID:          p.LocationID,
		quantity:            p.Quantity,
		reserved:            p.ReservedQuantity,
		lotNumber:           p.LotNumber,
		expirationDate:      copyTime(p.ExpirationDate),
		unitCost:            p.UnitCost,
	}
	return item, nil
}

// defaultReserved treats an unset reservation as zero in the item's unit
func (p *StockItemParams) defaultReserved() {
	if p.ReservedQuantity.Unit() == "" {
		p.ReservedQuantity = valueobject.ZeroStockQuantity(p.Quantity.Unit())
	}
}

func validateStockItem(p StockItemParams) error {
	if p.ID == uuid.Nil {
		return shared.NewValidationError("INVALID_ID", "stock item ID cannot be empty")
	}
	if err := p.Scope.Validate(); err != nil {
		return err
	}
	if p.ProductID == uuid.Nil {
		return shared.NewValidationError("INVALID_PRODUCT", "product ID cannot be empty")
	}
	if p.LocationID == uuid.Nil {
		return shared.NewValidationError("INVALID_LOCATION", "location ID cannot be empty")
	}
	if !p.Quantity.Unit().IsValid() {
		return shared.NewValidationError("INVALID_UNIT", "invalid unit of measure: %q", p.Quantity.Unit().String())
	}
	if !p.UnitCost.Currency().IsValid() {
		return shared.NewValidationError("INVALID_CURRENCY", "unit cost currency is required")
	}
	if p.UnitCost.IsNegative() {
		return shared.NewValidationError("INVALID_COST", "unit cost cannot be negative")
	}
	return checkStockBalance(p.Quantity, p.ReservedQuantity)
}

// checkStockBalance enforces the reservation accounting rules shared by every mutator
func checkStockBalance(quantity, reserved valueobject.StockQuantity) error {
	if quantity.IsNegative() {
		return shared.NewInvariantError("NEGATIVE_QUANTITY", "quantity cannot be negative: %s", quantity)
	}
	if reserved.IsNegative() {
		return shared.NewInvariantError("NEGATIVE_RESERVED", "reserved quantity cannot be negative: %s", reserved)
	}
	exceeds, err := reserved.IsGreaterThan(quantity)
	if err != nil {
		return err
	}
	if exceeds {
		return shared.NewInvariantError("RESERVED_EXCEEDS_QUANTITY",
			"reserved quantity %s exceeds quantity %s", reserved, quantity)
	}
	return nil
}

func requirePositive(q valueobject.StockQuantity, what string) error {
	if !q.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "%s quantity must be positive, got %s", what, q)
	}
	return nil
}

// Quantity returns the quantity on hand
func (s *StockItem) Quantity() valueobject.StockQuantity {
	return s.quantity
}

// ReservedQuantity returns the quantity held by reservations
func (s *StockItem) ReservedQuantity() valueobject.StockQuantity {
	return s.reserved
}

// AvailableQuantity returns quantity minus reserved
func (s *StockItem) AvailableQuantity() valueobject.StockQuantity {
	available, _ := s.quantity.Subtract(s.reserved)
	return available
}

// Unit returns the unit every quantity of this item is expressed in
func (s *StockItem) Unit() valueobject.UnitOfMeasure {
	return s.quantity.Unit()
}

func (s *StockItem) LotNumber() string {
	return s.lotNumber
}

// ExpirationDate returns a copy of the expiration date, or nil
func (s *StockItem) ExpirationDate() *time.Time {
	return copyTime(s.expirationDate)
}

func (s *StockItem) UnitCost() valueobject.Money {
	return s.unitCost
}

// TotalCost returns unit cost times quantity on hand
func (s *StockItem) TotalCost() valueobject.Money {
	return s.unitCost.Multiply(s.quantity.Value())
}

// AddQuantity increases quantity on hand
func (s *StockItem) AddQuantity(q valueobject.StockQuantity, at time.Time) error {
	if err := requirePositive(q, "added"); err != nil {
		return err
	}
	next, err := s.quantity.Add(q)
	if err != nil {
		return err
	}
	if err := checkStockBalance(next, s.reserved); err != nil {
		return err
	}
	s.quantity = next
	s.Touch(at)
	return nil
}

// RemoveQuantity decreases quantity on hand; only unreserved stock can leave
func (s *StockItem) RemoveQuantity(q valueobject.StockQuantity, at time.Time) error {
	if err := requirePositive(q, "removed"); err != nil {
		return err
	}
	if err := s.ensureAvailable(q); err != nil {
		return err
	}
	next, err := s.quantity.Subtract(q)
	if err != nil {
		return err
	}
	if err := checkStockBalance(next, s.reserved); err != nil {
		return err
	}
	s.quantity = next
	s.Touch(at)
	return nil
}

// Reserve holds part of the available quantity
func (s *StockItem) Reserve(q valueobject.StockQuantity, at time.Time) error {
	if err := requirePositive(q, "reserved"); err != nil {
		return err
	}
	if err := s.ensureAvailable(q); err != nil {
		return err
	}
	next, err := s.reserved.Add(q)
	if err != nil {
		return err
	}
	if err := checkStockBalance(s.quantity, next); err != nil {
		return err
	}
	s.reserved = next
	s.Touch(at)
	return nil
}

// Release returns reserved quantity to available
func (s *StockItem) Release(q valueobject.StockQuantity, at time.Time) error {
	if err := requirePositive(q, "released"); err != nil {
		return err
	}
	exceeds, err := q.IsGreaterThan(s.reserved)
	if err != nil {
		return err
	}
	if exceeds {
		return shared.NewInvariantError("INSUFFICIENT_RESERVED",
			"cannot release %s, only %s reserved", q, s.reserved)
	}
	next, err := s.reserved.Subtract(q)
	if err != nil {
		return err
	}
	if err := checkStockBalance(s.quantity, next); err != nil {
		return err
	}
	s.reserved = next
	s.Touch(at)
	return nil
}

// UpdateUnitCost replaces the unit cost
func (s *StockItem) UpdateUnitCost(cost valueobject.Money, at time.Time) error {
	if !cost.Currency().IsValid() {
		return shared.NewValidationError("INVALID_CURRENCY", "unit cost currency is required")
	}
	if cost.IsNegative() {
		return shared.NewValidationError("INVALID_COST", "unit cost cannot be negative: %s", cost)
	}
	s.unitCost = cost
	s.Touch(at)
	return nil
}

func (s *StockItem) ensureAvailable(q valueobject.StockQuantity) error {
	available := s.AvailableQuantity()
	exceeds, err := q.IsGreaterThan(available)
	if err != nil {
		return err
	}
	if exceeds {
		return shared.NewInvariantError("INSUFFICIENT_STOCK",
			"insufficient stock: requested %s, available %s", q, available)
	}
	return nil
}

// IsExpired reports whether the lot expired before now
func (s *StockItem) IsExpired(now time.Time) bool {
	return s.expirationDate != nil && s.expirationDate.Before(now)
}

// IsNearExpiration reports whether an unexpired lot expires within the given number of days
func (s *StockItem) IsNearExpiration(now time.Time, days int) bool {
	if s.expirationDate == nil || s.IsExpired(now) {
		return false
	}
	return !s.expirationDate.After(now.AddDate(0, 0, days))
}

// Snapshot returns the fields of the item in reloadable form
func (s *StockItem) Snapshot() StockItemParams {
	return StockItemParams{
		ID:               s.ID,
		Scope:            s.Scope,
		ProductID:        s.ProductID,
		LocationID:       s.LocationID,
		Quantity:         s.quantity,
		ReservedQuantity: s.reserved,
		LotNumber:        s.lotNumber,
		ExpirationDate:   copyTime(s.expirationDate),
		UnitCost:         s.unitCost,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// Clone returns an independent copy of the item without pending events
func (s *StockItem) Clone() *StockItem {
	c := *s
	c.expirationDate = copyTime(s.expirationDate)
	c.ClearDomainEvents()
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
