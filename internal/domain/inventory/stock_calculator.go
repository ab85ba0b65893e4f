package inventory

import (
	"sort"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimals kept on derived unit costs
const CostPrecision int32 = 4

// PlannedMovement is a movement not yet executed, used for projections
type PlannedMovement struct {
	Type     MovementType
	Quantity valueobject.StockQuantity
}

// StockCalculator holds the costing and projection algorithms.
// It is stateless; every method is a pure function of its arguments.
type StockCalculator struct{}

// NewStockCalculator creates a new StockCalculator
func NewStockCalculator() *StockCalculator {
	return &StockCalculator{}
}

// increasingMovements keeps only movements that add stock, checking they share unit and currency
func increasingMovements(movements []*StockMovement) ([]*StockMovement, error) {
	var out []*StockMovement
	for _, m := range movements {
		if m == nil || !m.Type.IncreasesStock() {
			continue
		}
		if len(out) > 0 {
			first := out[0]
			if m.Quantity().Unit() != first.Quantity().Unit() {
				return nil, shared.NewMismatchError("UNIT_MISMATCH",
					"movements use different units: %s and %s", first.Quantity().Unit(), m.Quantity().Unit())
			}
			if m.UnitCost().Currency() != first.UnitCost().Currency() {
				return nil, shared.NewMismatchError("CURRENCY_MISMATCH",
					"movements use different currencies: %s and %s", first.UnitCost().Currency(), m.UnitCost().Currency())
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// CalculateAverageCost returns the weighted average unit cost of the stock-increasing movements
func (c *StockCalculator) CalculateAverageCost(movements []*StockMovement) (valueobject.Money, error) {
	entries, err := increasingMovements(movements)
	if err != nil {
		return valueobject.Money{}, err
	}
	if len(entries) == 0 {
		return valueobject.Money{}, shared.NewValidationError("NO_ENTRIES", "no stock-increasing movements to average")
	}

	currency := entries[0].UnitCost().Currency()
	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, m := range entries {
		totalCost = totalCost.Add(m.Quantity().Value().Mul(m.UnitCost().Amount()))
		totalQty = totalQty.Add(m.Quantity().Value())
	}
	if totalQty.IsZero() {
		return valueobject.Money{}, shared.NewValidationError("ZERO_QUANTITY", "total entry quantity is zero")
	}
	return valueobject.NewMoney(totalCost.Div(totalQty).Round(CostPrecision), currency)
}

// CalculateFIFOCost prices a withdrawal of quantity against the oldest entries first
func (c *StockCalculator) CalculateFIFOCost(movements []*StockMovement, quantity valueobject.StockQuantity) (valueobject.Money, error) {
	if !quantity.IsPositive() {
		return valueobject.Money{}, shared.NewValidationError("INVALID_QUANTITY", "quantity to cost must be positive, got %s", quantity)
	}
	entries, err := increasingMovements(movements)
	if err != nil {
		return valueobject.Money{}, err
	}
	if len(entries) == 0 {
		return valueobject.Money{}, shared.NewInvariantError("INSUFFICIENT_STOCK",
			"insufficient entries to cost %s: none available", quantity)
	}
	if entries[0].Quantity().Unit() != quantity.Unit() {
		return valueobject.Money{}, shared.NewMismatchError("UNIT_MISMATCH",
			"requested unit %s does not match movement unit %s", quantity.Unit(), entries[0].Quantity().Unit())
	}

	layers := make([]*StockMovement, len(entries))
	copy(layers, entries)
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].ExecutedAt.Before(layers[j].ExecutedAt)
	})

	remaining := quantity.Value()
	total := decimal.Zero
	for _, layer := range layers {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, layer.Quantity().Value())
		total = total.Add(take.Mul(layer.UnitCost().Amount()))
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		available := quantity.Value().Sub(remaining)
		return valueobject.Money{}, shared.NewInvariantError("INSUFFICIENT_STOCK",
			"insufficient entries to cost %s: only %s %s available", quantity, available.StringFixed(valueobject.QuantityPrecision), quantity.Unit())
	}
	return valueobject.NewMoney(total, layers[0].UnitCost().Currency())
}

// CalculateTotalValue sums the total cost of items sharing one currency.
// Nil entries are skipped.
func (c *StockCalculator) CalculateTotalValue(items []*StockItem) (valueobject.Money, error) {
	present := make([]*StockItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			present = append(present, item)
		}
	}
	if len(present) == 0 {
		return valueobject.Money{}, shared.NewValidationError("NO_ITEMS", "no stock items to value")
	}
	total := valueobject.ZeroMoney(present[0].UnitCost().Currency())
	for _, item := range present {
		next, err := total.Add(item.TotalCost())
		if err != nil {
			return valueobject.Money{}, err
		}
		total = next
	}
	return total, nil
}

// ProjectStock applies planned movements to the current stock.
// The projection may go negative; TRANSFER and RESERVATION leave the total unchanged.
func (c *StockCalculator) ProjectStock(current valueobject.StockQuantity, planned []PlannedMovement) (valueobject.StockQuantity, error) {
	projected := current.Value()
	for _, pm := range planned {
		if !pm.Type.IsValid() {
			return valueobject.StockQuantity{}, shared.NewValidationError("INVALID_MOVEMENT_TYPE",
				"invalid movement type: %q", pm.Type.String())
		}
		if pm.Quantity.Unit() != current.Unit() {
			return valueobject.StockQuantity{}, shared.NewMismatchError("UNIT_MISMATCH",
				"planned movement unit %s does not match stock unit %s", pm.Quantity.Unit(), current.Unit())
		}
		switch {
		case pm.Type.IncreasesStock():
			projected = projected.Add(pm.Quantity.Value())
		case pm.Type.DecreasesStock():
			projected = projected.Sub(pm.Quantity.Value())
		}
	}
	return valueobject.NewSignedStockQuantity(projected, current.Unit())
}

// CalculateCoverageDays returns how many whole days the stock lasts at the given daily usage
func (c *StockCalculator) CalculateCoverageDays(current, avgDailyUsage valueobject.StockQuantity) (int64, error) {
	if current.Unit() != avgDailyUsage.Unit() {
		return 0, shared.NewMismatchError("UNIT_MISMATCH",
			"usage unit %s does not match stock unit %s", avgDailyUsage.Unit(), current.Unit())
	}
	if !avgDailyUsage.IsPositive() {
		return 0, shared.NewValidationError("INVALID_USAGE", "average daily usage must be positive, got %s", avgDailyUsage)
	}
	return current.Value().Div(avgDailyUsage.Value()).Floor().IntPart(), nil
}

// CalculateTurnover returns sold quantity divided by average stock
func (c *StockCalculator) CalculateTurnover(sold, averageStock valueobject.StockQuantity) (decimal.Decimal, error) {
	if sold.Unit() != averageStock.Unit() {
		return decimal.Zero, shared.NewMismatchError("UNIT_MISMATCH",
			"sold unit %s does not match average stock unit %s", sold.Unit(), averageStock.Unit())
	}
	if averageStock.IsZero() {
		return decimal.Zero, shared.NewValidationError("INVALID_AVERAGE_STOCK", "average stock cannot be zero")
	}
	return sold.Value().Div(averageStock.Value()).Round(CostPrecision), nil
}

// Planned converts an executed movement into its projection form
func (m *StockMovement) Planned() PlannedMovement {
	return PlannedMovement{Type: m.Type, Quantity: m.quantity}
}
