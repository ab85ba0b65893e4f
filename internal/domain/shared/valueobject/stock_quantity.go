package valueobject

import (
	"encoding/json"
	"math"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuantityPrecision is the number of decimal places every StockQuantity is rounded to
const QuantityPrecision int32 = 3

// StockQuantity is an immutable decimal amount tagged with a unit of measure.
// It is non-negative unless constructed through NewSignedStockQuantity.
type StockQuantity struct {
	value decimal.Decimal
	unit  UnitOfMeasure
}

func newStockQuantity(value decimal.Decimal, unit UnitOfMeasure, allowNegative bool) (StockQuantity, error) {
	if !unit.IsValid() {
		return StockQuantity{}, shared.NewValidationError("INVALID_UNIT", "invalid unit of measure: %q", string(unit))
	}
	rounded := value.Round(QuantityPrecision)
	if rounded.IsNegative() && !allowNegative {
		return StockQuantity{}, shared.NewValidationError("NEGATIVE_QUANTITY",
			"quantity cannot be negative: %s", rounded.String())
	}
	return StockQuantity{value: rounded, unit: unit}, nil
}

// NewStockQuantity creates a non-negative quantity rounded to three decimals
func NewStockQuantity(value decimal.Decimal, unit UnitOfMeasure) (StockQuantity, error) {
	return newStockQuantity(value, unit, false)
}

// NewSignedStockQuantity creates a quantity that may be negative.
// Used for reservation deltas and projections, never for balances.
func NewSignedStockQuantity(value decimal.Decimal, unit UnitOfMeasure) (StockQuantity, error) {
	return newStockQuantity(value, unit, true)
}

// NewStockQuantityFromFloat creates a quantity from a float, rejecting NaN and infinities
func NewStockQuantityFromFloat(value float64, unit UnitOfMeasure, allowNegative bool) (StockQuantity, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return StockQuantity{}, shared.NewValidationError("INVALID_QUANTITY", "quantity must be a finite number")
	}
	return newStockQuantity(decimal.NewFromFloat(value), unit, allowNegative)
}

// NewStockQuantityFromString parses a decimal string into a quantity
func NewStockQuantityFromString(value string, unit UnitOfMeasure, allowNegative bool) (StockQuantity, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return StockQuantity{}, shared.NewValidationError("INVALID_QUANTITY", "invalid quantity %q: %v", value, err)
	}
	return newStockQuantity(d, unit, allowNegative)
}

// MustNewStockQuantity parses a signed quantity and panics on error. Intended for tests.
func MustNewStockQuantity(value string, unit UnitOfMeasure) StockQuantity {
	q, err := NewStockQuantityFromString(value, unit, true)
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroStockQuantity returns a zero quantity in the given unit
func ZeroStockQuantity(unit UnitOfMeasure) StockQuantity {
	return StockQuantity{value: decimal.Zero, unit: unit}
}

// Value returns the decimal amount
func (q StockQuantity) Value() decimal.Decimal {
	return q.value
}

// Unit returns the unit of measure
func (q StockQuantity) Unit() UnitOfMeasure {
	return q.unit
}

func (q StockQuantity) sameUnit(other StockQuantity) error {
	if q.unit != other.unit {
		return shared.NewMismatchError("UNIT_MISMATCH",
			"cannot combine quantities with different units: %s and %s", q.unit, other.unit)
	}
	return nil
}

// Add returns the sum. The result may be negative when either operand is.
func (q StockQuantity) Add(other StockQuantity) (StockQuantity, error) {
	if err := q.sameUnit(other); err != nil {
		return StockQuantity{}, err
	}
	return StockQuantity{value: q.value.Add(other.value).Round(QuantityPrecision), unit: q.unit}, nil
}

// Subtract returns the difference, which may be negative.
// Callers decide whether a negative result is legal for them.
func (q StockQuantity) Subtract(other StockQuantity) (StockQuantity, error) {
	if err := q.sameUnit(other); err != nil {
		return StockQuantity{}, err
	}
	return StockQuantity{value: q.value.Sub(other.value).Round(QuantityPrecision), unit: q.unit}, nil
}

// Multiply scales the quantity, keeping the unit
func (q StockQuantity) Multiply(factor decimal.Decimal) StockQuantity {
	return StockQuantity{value: q.value.Mul(factor).Round(QuantityPrecision), unit: q.unit}
}

// Negate flips the sign
func (q StockQuantity) Negate() StockQuantity {
	return StockQuantity{value: q.value.Neg(), unit: q.unit}
}

// Abs returns the absolute value
func (q StockQuantity) Abs() StockQuantity {
	return StockQuantity{value: q.value.Abs(), unit: q.unit}
}

// IsGreaterThan fails instead of answering when units differ
func (q StockQuantity) IsGreaterThan(other StockQuantity) (bool, error) {
	if err := q.sameUnit(other); err != nil {
		return false, err
	}
	return q.value.GreaterThan(other.value), nil
}

// IsLessThan fails instead of answering when units differ
func (q StockQuantity) IsLessThan(other StockQuantity) (bool, error) {
	if err := q.sameUnit(other); err != nil {
		return false, err
	}
	return q.value.LessThan(other.value), nil
}

// IsGreaterThanOrEqual fails instead of answering when units differ
func (q StockQuantity) IsGreaterThanOrEqual(other StockQuantity) (bool, error) {
	if err := q.sameUnit(other); err != nil {
		return false, err
	}
	return q.value.GreaterThanOrEqual(other.value), nil
}

func (q StockQuantity) IsZero() bool     { return q.value.IsZero() }
func (q StockQuantity) IsPositive() bool { return q.value.IsPositive() }
func (q StockQuantity) IsNegative() bool { return q.value.IsNegative() }

// Equals reports whether both quantities have the same unit and value
func (q StockQuantity) Equals(other StockQuantity) bool {
	return q.unit == other.unit && q.value.Equal(other.value)
}

// String renders the quantity with three decimals, e.g. "12.500 KG"
func (q StockQuantity) String() string {
	return q.value.StringFixed(QuantityPrecision) + " " + string(q.unit)
}

type stockQuantityJSON struct {
	Value string        `json:"value"`
	Unit  UnitOfMeasure `json:"unit"`
}

// MarshalJSON implements json.Marshaler
func (q StockQuantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(stockQuantityJSON{Value: q.value.StringFixed(QuantityPrecision), Unit: q.unit})
}

// UnmarshalJSON implements json.Unmarshaler. Negative values are accepted here;
// entity constructors apply the sign rules that matter to them.
func (q *StockQuantity) UnmarshalJSON(data []byte) error {
	var v stockQuantityJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewStockQuantityFromString(v.Value, v.Unit, true)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
