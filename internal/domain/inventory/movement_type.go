package inventory

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// MovementType is the kind of a ledger entry
type MovementType string

const (
	MovementTypeEntry           MovementType = "ENTRY"
	MovementTypeExit            MovementType = "EXIT"
	MovementTypeTransfer        MovementType = "TRANSFER"
	MovementTypeAdjustmentPlus  MovementType = "ADJUSTMENT_PLUS"
	MovementTypeAdjustmentMinus MovementType = "ADJUSTMENT_MINUS"
	MovementTypeReservation     MovementType = "RESERVATION"
	MovementTypePicking         MovementType = "PICKING"
	MovementTypeReturn          MovementType = "RETURN"
)

// ParseMovementType converts a string into a MovementType
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewValidationError("INVALID_MOVEMENT_TYPE", "invalid movement type: %q", s)
	}
	return t, nil
}

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is one of the eight known kinds
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeEntry,
		MovementTypeExit,
		MovementTypeTransfer,
		MovementTypeAdjustmentPlus,
		MovementTypeAdjustmentMinus,
		MovementTypeReservation,
		MovementTypePicking,
		MovementTypeReturn:
		return true
	}
	return false
}

// IncreasesStock returns true if the movement adds to quantity on hand
func (t MovementType) IncreasesStock() bool {
	switch t {
	case MovementTypeEntry, MovementTypeAdjustmentPlus, MovementTypeReturn:
		return true
	}
	return false
}

// DecreasesStock returns true if the movement removes quantity on hand
func (t MovementType) DecreasesStock() bool {
	switch t {
	case MovementTypeExit, MovementTypeAdjustmentMinus, MovementTypePicking:
		return true
	}
	return false
}

// IsNeutral returns true for TRANSFER and RESERVATION, which leave the total unchanged
func (t MovementType) IsNeutral() bool {
	return t.IsValid() && !t.IncreasesStock() && !t.DecreasesStock()
}

// AllMovementTypes returns every movement type
func AllMovementTypes() []MovementType {
	return []MovementType{
		MovementTypeEntry,
		MovementTypeExit,
		MovementTypeTransfer,
		MovementTypeAdjustmentPlus,
		MovementTypeAdjustmentMinus,
		MovementTypeReservation,
		MovementTypePicking,
		MovementTypeReturn,
	}
}

// ReferenceType names the kind of business document a movement originates from
type ReferenceType string

const (
	ReferenceTypeFiscalDocument ReferenceType = "FISCAL_DOCUMENT"
	ReferenceTypeOrder          ReferenceType = "ORDER"
	ReferenceTypeTransfer       ReferenceType = "TRANSFER"
	ReferenceTypeInventory      ReferenceType = "INVENTORY"
	ReferenceTypeReturn         ReferenceType = "RETURN"
	ReferenceTypeManual         ReferenceType = "MANUAL"
)

// ParseReferenceType converts a string into a ReferenceType
func ParseReferenceType(s string) (ReferenceType, error) {
	r := ReferenceType(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewValidationError("INVALID_REFERENCE_TYPE", "invalid reference type: %q", s)
	}
	return r, nil
}

// IsValid returns true if the reference type is known
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeFiscalDocument,
		ReferenceTypeOrder,
		ReferenceTypeTransfer,
		ReferenceTypeInventory,
		ReferenceTypeReturn,
		ReferenceTypeManual:
		return true
	}
	return false
}

func (r ReferenceType) String() string {
	return string(r)
}
