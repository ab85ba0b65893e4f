package valueobject

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// UnitOfMeasure tags a quantity. Only quantities with the same unit combine.
type UnitOfMeasure string

const (
	UnitPiece       UnitOfMeasure = "UN"
	UnitKilogram    UnitOfMeasure = "KG"
	UnitGram        UnitOfMeasure = "G"
	UnitLiter       UnitOfMeasure = "L"
	UnitMilliliter  UnitOfMeasure = "ML"
	UnitMeter       UnitOfMeasure = "M"
	UnitSquareMeter UnitOfMeasure = "M2"
	UnitCubicMeter  UnitOfMeasure = "M3"
	UnitBox         UnitOfMeasure = "CX"
	UnitPackage     UnitOfMeasure = "PCT"
	UnitPair        UnitOfMeasure = "PAR"
	UnitDozen       UnitOfMeasure = "DZ"
)

var knownUnits = map[UnitOfMeasure]string{
	UnitPiece:       "unit",
	UnitKilogram:    "kilogram",
	UnitGram:        "gram",
	UnitLiter:       "liter",
	UnitMilliliter:  "milliliter",
	UnitMeter:       "meter",
	UnitSquareMeter: "square meter",
	UnitCubicMeter:  "cubic meter",
	UnitBox:         "box",
	UnitPackage:     "package",
	UnitPair:        "pair",
	UnitDozen:       "dozen",
}

// ParseUnitOfMeasure normalizes a code and checks it against the known units
func ParseUnitOfMeasure(code string) (UnitOfMeasure, error) {
	u := UnitOfMeasure(strings.ToUpper(strings.TrimSpace(code)))
	if !u.IsValid() {
		return "", shared.NewValidationError("INVALID_UNIT", "invalid unit of measure: %q", code)
	}
	return u, nil
}

// IsValid reports whether the unit is one of the known codes
func (u UnitOfMeasure) IsValid() bool {
	_, ok := knownUnits[u]
	return ok
}

// Name returns the human-readable name of the unit
func (u UnitOfMeasure) Name() string {
	return knownUnits[u]
}

func (u UnitOfMeasure) String() string {
	return string(u)
}

// UnitsOfMeasure lists every known unit code
func UnitsOfMeasure() []UnitOfMeasure {
	return []UnitOfMeasure{
		UnitPiece, UnitKilogram, UnitGram, UnitLiter, UnitMilliliter, UnitMeter,
		UnitSquareMeter, UnitCubicMeter, UnitBox, UnitPackage, UnitPair, UnitDozen,
	}
}
