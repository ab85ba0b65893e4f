package inventory

import (
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

type locationRule int

const (
	locationAny locationRule = iota
	locationRequired
	locationForbidden
)

type locationRequirement struct {
	from     locationRule
	to       locationRule
	distinct bool
}

// movementLocationRules fixes which endpoints each movement type carries
var movementLocationRules = map[MovementType]locationRequirement{
	MovementTypeEntry:           {from: locationForbidden, to: locationRequired},
	MovementTypeExit:            {from: locationRequired, to: locationForbidden},
	MovementTypeTransfer:        {from: locationRequired, to: locationRequired, distinct: true},
	MovementTypeAdjustmentPlus:  {},
	MovementTypeAdjustmentMinus: {},
	MovementTypeReservation:     {},
	MovementTypePicking:         {from: locationRequired},
	MovementTypeReturn:          {to: locationRequired},
}

// StockMovement is an immutable ledger entry recording one quantity change.
// Corrections are new movements; nothing here is ever updated.
type StockMovement struct {
	ID             uuid.UUID
	Scope          shared.Scope
	ProductID      uuid.UUID
	FromLocationID *uuid.UUID
	ToLocationID   *uuid.UUID
	Type           MovementType
	ReferenceType  ReferenceType
	ReferenceID    string
	Reason         string
	ExecutedBy     string
	ExecutedAt     time.Time

	quantity valueobject.StockQuantity
	unitCost valueobject.Money
}

// StockMovementParams carries every field needed to build or reload a StockMovement
type StockMovementParams struct {
	ID             uuid.UUID
	Scope          shared.Scope
	ProductID      uuid.UUID
	FromLocationID *uuid.UUID
	ToLocationID   *uuid.UUID
	Type           MovementType
	Quantity       valueobject.StockQuantity
	UnitCost       valueobject.Money
	ReferenceType  ReferenceType
	ReferenceID    string
	Reason         string
	ExecutedBy     string
	ExecutedAt     time.Time
}

// NewStockMovement validates and creates a ledger entry
func NewStockMovement(p StockMovementParams) (*StockMovement, error) {
	if err := validateStockMovement(p); err != nil {
		return nil, err
	}
	return buildStockMovement(p), nil
}

// ReconstituteStockMovement reloads a persisted ledger entry, re-checking every rule
func ReconstituteStockMovement(p StockMovementParams) (*StockMovement, error) {
	if err := validateStockMovement(p); err != nil {
		return nil, shared.NewCorruptedDataError("stock movement", err)
	}
	return buildStockMovement(p), nil
}

func buildStockMovement(p StockMovementParams) *StockMovement {
	return &StockMovement{
		ID:             p.ID,
		Scope:          p.Scope,
		ProductID:      p.ProductID,
		FromLocationID: copyID(p.FromLocationID),
		ToLocationID:   copyID(p.ToLocationID),
		Type:           p.Type,
		ReferenceType:  p.ReferenceType,
		ReferenceID:    strings.TrimSpace(p.ReferenceID),
		Reason:         p.Reason,
		ExecutedBy:     strings.TrimSpace(p.ExecutedBy),
		ExecutedAt:     p.ExecutedAt,
		quantity:       p.Quantity,
		unitCost:       p.UnitCost,
	}
}

func validateStockMovement(p StockMovementParams) error {
	if p.ID == uuid.Nil {
		return shared.NewValidationError("INVALID_ID", "movement ID cannot be empty")
	}
	if err := p.Scope.Validate(); err != nil {
		return err
	}
	if p.ProductID == uuid.Nil {
		return shared.NewValidationError("INVALID_PRODUCT", "product ID cannot be empty")
	}
	if !p.Type.IsValid() {
		return shared.NewValidationError("INVALID_MOVEMENT_TYPE", "invalid movement type: %q", p.Type.String())
	}
	if !p.Quantity.Unit().IsValid() {
		return shared.NewValidationError("INVALID_UNIT", "invalid unit of measure: %q", p.Quantity.Unit().String())
	}
	if !p.Quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "movement quantity must be positive, got %s", p.Quantity)
	}
	if !p.UnitCost.Currency().IsValid() {
		return shared.NewValidationError("INVALID_CURRENCY", "unit cost currency is required")
	}
	if p.UnitCost.IsNegative() {
		return shared.NewValidationError("INVALID_COST", "unit cost cannot be negative")
	}
	if strings.TrimSpace(p.ExecutedBy) == "" {
		return shared.NewValidationError("INVALID_EXECUTED_BY", "executedBy cannot be empty")
	}
	if p.ExecutedAt.IsZero() {
		return shared.NewValidationError("INVALID_EXECUTED_AT", "executedAt is required")
	}
	if err := validateReference(p.ReferenceType, p.ReferenceID); err != nil {
		return err
	}
	return validateMovementLocations(p.Type, p.FromLocationID, p.ToLocationID)
}

func validateReference(refType ReferenceType, refID string) error {
	hasType := refType != ""
	hasID := strings.TrimSpace(refID) != ""
	if hasType && !refType.IsValid() {
		return shared.NewValidationError("INVALID_REFERENCE_TYPE", "invalid reference type: %q", refType.String())
	}
	if hasType != hasID {
		return shared.NewValidationError("INVALID_REFERENCE", "reference type and reference ID must be given together")
	}
	return nil
}

func validateMovementLocations(t MovementType, from, to *uuid.UUID) error {
	rule := movementLocationRules[t]
	if err := checkLocation(rule.from, from, t, "fromLocationId"); err != nil {
		return err
	}
	if err := checkLocation(rule.to, to, t, "toLocationId"); err != nil {
		return err
	}
	if rule.distinct && *from == *to {
		return shared.NewInvariantError("INVALID_LOCATIONS",
			"%s requires different source and destination locations", t)
	}
	return nil
}

func checkLocation(rule locationRule, id *uuid.UUID, t MovementType, field string) error {
	present := id != nil && *id != uuid.Nil
	switch rule {
	case locationRequired:
		if !present {
			return shared.NewInvariantError("INVALID_LOCATIONS", "%s requires %s", t, field)
		}
	case locationForbidden:
		if id != nil {
			return shared.NewInvariantError("INVALID_LOCATIONS", "%s must not have %s", t, field)
		}
	default:
		if id != nil && !present {
			return shared.NewValidationError("INVALID_LOCATION", "%s cannot be an empty ID", field)
		}
	}
	return nil
}

// Quantity returns the moved quantity, always positive
func (m *StockMovement) Quantity() valueobject.StockQuantity {
	return m.quantity
}

func (m *StockMovement) UnitCost() valueobject.Money {
	return m.unitCost
}

// TotalCost returns unit cost times moved quantity
func (m *StockMovement) TotalCost() valueobject.Money {
	return m.unitCost.Multiply(m.quantity.Value())
}

// SignedQuantity returns the movement's effect on total stock:
// positive for increases, negative for decreases, zero for neutral types
func (m *StockMovement) SignedQuantity() valueobject.StockQuantity {
	switch {
	case m.Type.IncreasesStock():
		return m.quantity
	case m.Type.DecreasesStock():
		return m.quantity.Negate()
	default:
		return valueobject.ZeroStockQuantity(m.quantity.Unit())
	}
}

// HasReference returns true if the movement points at a business document
func (m *StockMovement) HasReference() bool {
	return m.ReferenceType != "" && m.ReferenceID != ""
}

// IsFiscalDocEntry returns true for entries backed by a fiscal document
func (m *StockMovement) IsFiscalDocEntry() bool {
	return m.Type == MovementTypeEntry && m.ReferenceType == ReferenceTypeFiscalDocument
}

// IsOrderExit returns true for exits and pickings that fulfil an order
func (m *StockMovement) IsOrderExit() bool {
	return (m.Type == MovementTypeExit || m.Type == MovementTypePicking) &&
		m.ReferenceType == ReferenceTypeOrder
}

// AffectsLocation returns true if either endpoint is the given location
func (m *StockMovement) AffectsLocation(locationID uuid.UUID) bool {
	return (m.FromLocationID != nil && *m.FromLocationID == locationID) ||
		(m.ToLocationID != nil && *m.ToLocationID == locationID)
}

// Snapshot returns the fields of the movement in reloadable form
func (m *StockMovement) Snapshot() StockMovementParams {
	return StockMovementParams{
		ID:             m.ID,
		Scope:          m.Scope,
		ProductID:      m.ProductID,
		FromLocationID: copyID(m.FromLocationID),
		ToLocationID:   copyID(m.ToLocationID),
		Type:           m.Type,
		Quantity:       m.quantity,
		UnitCost:       m.unitCost,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		ExecutedBy:     m.ExecutedBy,
		ExecutedAt:     m.ExecutedAt,
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
