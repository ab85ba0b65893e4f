package inventory

import (
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InventoryCount compares the system quantity of one product/location with a physical count.
// The system quantity is a snapshot taken when the count is initiated.
type InventoryCount struct {
	shared.ScopedAggregateRoot
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Notes      string

	systemQuantity       valueobject.StockQuantity
	countedQuantity      *valueobject.StockQuantity
	countedBy            string
	countedAt            *time.Time
	adjustmentMovementID *uuid.UUID
	status               InventoryStatus
}

// InventoryCountParams carries every persisted field of an InventoryCount
type InventoryCountParams struct {
	ID                   uuid.UUID
	Scope                shared.Scope
	ProductID            uuid.UUID
	LocationID           uuid.UUID
	SystemQuantity       valueobject.StockQuantity
	CountedQuantity      *valueobject.StockQuantity
	CountedBy            string
	CountedAt            *time.Time
	AdjustmentMovementID *uuid.UUID
	Status               InventoryStatus
	Notes                string
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewInventoryCount initiates a PENDING count with the given system quantity snapshot
func NewInventoryCount(id uuid.UUID, scope shared.Scope, productID, locationID uuid.UUID, systemQuantity valueobject.StockQuantity, now time.Time) (*InventoryCount, error) {
	p := InventoryCountParams{
		ID:             id,
		Scope:          scope,
		ProductID:      productID,
		LocationID:     locationID,
		SystemQuantity: systemQuantity,
		Status:         InventoryStatusPending,
		Version:        1,
	}
	if err := validateInventoryCount(p); err != nil {
		return nil, err
	}
	if systemQuantity.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "system quantity cannot be negative: %s", systemQuantity)
	}
	return &InventoryCount{
		ScopedAggregateRoot: shared.NewScopedAggregateRoot(id, scope, now),
		ProductID:           productID,
		LocationID:          locationID,
		systemQuantity:      systemQuantity,
		status:              InventoryStatusPending,
	}, nil
}

// ReconstituteInventoryCount reloads a persisted count, reporting broken invariants as corrupted data
func ReconstituteInventoryCount(p InventoryCountParams) (*InventoryCount, error) {
	if err := validateInventoryCount(p); err != nil {
		return nil, shared.NewCorruptedDataError("inventory count", err)
	}
	if p.Version < 1 {
		return nil, shared.NewCorruptedDataError("inventory count",
			shared.NewValidationError("INVALID_VERSION", "version must be at least 1, got %d", p.Version))
	}
	c := &InventoryCount{
		ScopedAggregateRoot:  shared.RestoreScopedAggregateRoot(p.ID, p.Scope, p.Version, p.CreatedAt, p.UpdatedAt),
		ProductID:            p.ProductID,
		LocationID:           p.LocationID,
		Notes:                p.Notes,
		systemQuantity:       p.SystemQuantity,
		countedQuantity:      copyQuantity(p.CountedQuantity),
		countedBy:            p.CountedBy,
		countedAt:            copyTime(p.CountedAt),
		adjustmentMovementID: copyID(p.AdjustmentMovementID),
		status:               p.Status,
	}
	return c, nil
}

// validateInventoryCount checks the structural rules every state of a count must satisfy
func validateInventoryCount(p InventoryCountParams) error {
	if p.ID == uuid.Nil {
		return shared.NewValidationError("INVALID_ID", "inventory count ID cannot be empty")
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
	if !p.SystemQuantity.Unit().IsValid() {
		return shared.NewValidationError("INVALID_UNIT", "invalid unit of measure: %q", p.SystemQuantity.Unit().String())
	}
	if !p.Status.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", "invalid inventory status: %q", p.Status.String())
	}

	counted := p.CountedQuantity != nil
	if counted != (strings.TrimSpace(p.CountedBy) != "") {
		return shared.NewInvariantError("INVALID_COUNT", "counted quantity and countedBy must be present together")
	}
	if p.Status.IsFinalized() && !counted {
		return shared.NewInvariantError("INVALID_COUNT", "%s count requires a counted quantity", p.Status)
	}
	if p.AdjustmentMovementID != nil && p.Status != InventoryStatusCompleted {
		return shared.NewInvariantError("INVALID_COUNT", "only a COMPLETED count can reference an adjustment")
	}
	if !counted {
		return nil
	}

	diff, err := p.CountedQuantity.Subtract(p.SystemQuantity)
	if err != nil {
		return err
	}
	switch p.Status {
	case InventoryStatusDivergent:
		if diff.IsZero() {
			return shared.NewInvariantError("INVALID_COUNT", "DIVERGENT count requires a nonzero difference")
		}
	case InventoryStatusCompleted:
		if !diff.IsZero() && p.AdjustmentMovementID == nil {
			return shared.NewInvariantError("INVALID_COUNT", "COMPLETED count with a difference must reference its adjustment")
		}
	}
	return nil
}

// Status returns the current reconciliation status
func (c *InventoryCount) Status() InventoryStatus {
	return c.status
}

// SystemQuantity returns the snapshot taken when the count was initiated
func (c *InventoryCount) SystemQuantity() valueobject.StockQuantity {
	return c.systemQuantity
}

// CountedQuantity returns the physical count, if recorded
func (c *InventoryCount) CountedQuantity() (valueobject.StockQuantity, bool) {
	if c.countedQuantity == nil {
		return valueobject.StockQuantity{}, false
	}
	return *c.countedQuantity, true
}

func (c *InventoryCount) CountedBy() string {
	return c.countedBy
}

func (c *InventoryCount) CountedAt() *time.Time {
	return copyTime(c.countedAt)
}

// AdjustmentMovementID returns the movement that resolved a divergence, if any
func (c *InventoryCount) AdjustmentMovementID() *uuid.UUID {
	return copyID(c.adjustmentMovementID)
}

// Difference returns counted minus system quantity; ok is false until the count is recorded
func (c *InventoryCount) Difference() (diff valueobject.StockQuantity, ok bool) {
	if c.countedQuantity == nil {
		return valueobject.StockQuantity{}, false
	}
	d, err := c.countedQuantity.Subtract(c.systemQuantity)
	if err != nil {
		return valueobject.StockQuantity{}, false
	}
	return d, true
}

// IsCounted returns true once a physical count is recorded
func (c *InventoryCount) IsCounted() bool {
	return c.countedQuantity != nil
}

// HasDivergence returns true when the recorded count differs from the system quantity
func (c *InventoryCount) HasDivergence() bool {
	d, ok := c.Difference()
	return ok && !d.IsZero()
}

// IsAdjusted returns true once an adjustment movement has been recorded
func (c *InventoryCount) IsAdjusted() bool {
	return c.adjustmentMovementID != nil
}

// StartCount moves a PENDING count to IN_PROGRESS
func (c *InventoryCount) StartCount(at time.Time) error {
	if c.status != InventoryStatusPending {
		return shared.NewTransitionError("cannot start count in status %s", c.status)
	}
	c.status = InventoryStatusInProgress
	c.Touch(at)
	return nil
}

// RecordCount stores the physical count and resolves the status to COMPLETED or DIVERGENT.
// A PENDING count passes through IN_PROGRESS implicitly.
func (c *InventoryCount) RecordCount(counted valueobject.StockQuantity, countedBy string, countedAt time.Time) error {
	if !c.status.CanBeModified() {
		return shared.NewTransitionError("cannot record count in status %s", c.status)
	}
	countedBy = strings.TrimSpace(countedBy)
	if countedBy == "" {
		return shared.NewValidationError("INVALID_COUNTED_BY", "countedBy cannot be empty")
	}
	if counted.Unit() != c.systemQuantity.Unit() {
		return shared.NewMismatchError("UNIT_MISMATCH",
			"counted unit %s does not match system unit %s", counted.Unit(), c.systemQuantity.Unit())
	}
	if counted.IsNegative() {
		return shared.NewValidationError("INVALID_QUANTITY", "counted quantity cannot be negative: %s", counted)
	}

	diff, err := counted.Subtract(c.systemQuantity)
	if err != nil {
		return err
	}
	next := InventoryStatusDivergent
	if diff.IsZero() {
		next = InventoryStatusCompleted
	}

	candidate := c.params()
	candidate.CountedQuantity = &counted
	candidate.CountedBy = countedBy
	candidate.CountedAt = &countedAt
	candidate.Status = next
	if err := validateInventoryCount(candidate); err != nil {
		return err
	}

	c.countedQuantity = &counted
	c.countedBy = countedBy
	c.countedAt = &countedAt
	c.status = next
	c.Touch(countedAt)
	return nil
}

// RecordAdjustment links the movement that resolved a divergence and completes the count
func (c *InventoryCount) RecordAdjustment(movementID uuid.UUID, at time.Time) error {
	if c.status != InventoryStatusDivergent {
		return shared.NewTransitionError("cannot record adjustment in status %s", c.status)
	}
	if movementID == uuid.Nil {
		return shared.NewValidationError("INVALID_MOVEMENT", "adjustment movement ID cannot be empty")
	}
	c.adjustmentMovementID = &movementID
	c.status = InventoryStatusCompleted
	c.Touch(at)
	return nil
}

// Cancel abandons a count that has not produced a result
func (c *InventoryCount) Cancel(at time.Time) error {
	if !c.status.CanTransitionTo(InventoryStatusCancelled) {
		return shared.NewTransitionError("cannot cancel count in status %s", c.status)
	}
	c.status = InventoryStatusCancelled
	c.Touch(at)
	return nil
}

func (c *InventoryCount) params() InventoryCountParams {
	return InventoryCountParams{
		ID:                   c.ID,
		Scope:                c.Scope,
		ProductID:            c.ProductID,
		LocationID:           c.LocationID,
		SystemQuantity:       c.systemQuantity,
		CountedQuantity:      copyQuantity(c.countedQuantity),
		CountedBy:            c.countedBy,
		CountedAt:            copyTime(c.countedAt),
		AdjustmentMovementID: copyID(c.adjustmentMovementID),
		Status:               c.status,
		Notes:                c.Notes,
		Version:              c.Version,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// Snapshot returns the fields of the count in reloadable form
func (c *InventoryCount) Snapshot() InventoryCountParams {
	return c.params()
}

// Clone returns an independent copy of the count without pending events
func (c *InventoryCount) Clone() *InventoryCount {
	cp := *c
	cp.countedQuantity = copyQuantity(c.countedQuantity)
	cp.countedAt = copyTime(c.countedAt)
	cp.adjustmentMovementID = copyID(c.adjustmentMovementID)
	cp.ClearDomainEvents()
	return &cp
}

func copyQuantity(q *valueobject.StockQuantity) *valueobject.StockQuantity {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}
