package inventory

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryMovement(t *testing.T, qty, cost string, at time.Time) *StockMovement {
	t.Helper()
	loc := uuid.New()
	p := movementParams(MovementTypeEntry, nil, &loc)
	p.Quantity = un(qty)
	p.UnitCost = brl(cost)
	p.ExecutedAt = at
	m, err := NewStockMovement(p)
	require.NoError(t, err)
	return m
}

func exitMovement(t *testing.T, qty string) *StockMovement {
	t.Helper()
	loc := uuid.New()
	p := movementParams(MovementTypeExit, &loc, nil)
	p.Quantity = un(qty)
	m, err := NewStockMovement(p)
	require.NoError(t, err)
	return m
}

func TestStockCalculator_AverageCost(t *testing.T) {
	calc := NewStockCalculator()

	t.Run("weighted average of entries", func(t *testing.T) {
		avg, err := calc.CalculateAverageCost([]*StockMovement{
			entryMovement(t, "10", "5.00", testNow),
			entryMovement(t, "10", "7.00", testNow),
			exitMovement(t, "15"),
		})
		require.NoError(t, err)
		assert.True(t, avg.Equals(brl("6.00")), avg.String())
	})

	t.Run("fails without entries", func(t *testing.T) {
		_, err := calc.CalculateAverageCost([]*StockMovement{exitMovement(t, "1")})
		assert.Error(t, err)
		_, err = calc.CalculateAverageCost(nil)
		assert.Error(t, err)
	})

	t.Run("fails on mixed currencies", func(t *testing.T) {
		usd := entryMovement(t, "1", "1", testNow)
		usd.unitCost = valueobject.MustNewMoney("1", valueobject.USD)
		_, err := calc.CalculateAverageCost([]*StockMovement{entryMovement(t, "1", "1", testNow), usd})
		assert.True(t, shared.IsKind(err, shared.KindMismatch))
	})
}

func TestStockCalculator_FIFOCost(t *testing.T) {
	calc := NewStockCalculator()

	t.Run("single entry round trip", func(t *testing.T) {
		moves := []*StockMovement{entryMovement(t, "50", "3.20", testNow)}
		cost, err := calc.CalculateFIFOCost(moves, un("50"))
		require.NoError(t, err)
		assert.True(t, cost.Equals(brl("160")))

		_, err = calc.CalculateFIFOCost(moves, un("51"))
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("consumes oldest first with partial layer", func(t *testing.T) {
		moves := []*StockMovement{
			entryMovement(t, "10", "7.00", testNow.Add(2*time.Hour)),
			entryMovement(t, "10", "5.00", testNow),
			entryMovement(t, "10", "9.00", testNow.Add(time.Hour)),
		}
		cost, err := calc.CalculateFIFOCost(moves, un("15"))
		require.NoError(t, err)
		// 10 x 5.00 + 5 x 9.00
		assert.True(t, cost.Equals(brl("95")), cost.String())
	})

	t.Run("rejects unit mismatch", func(t *testing.T) {
		moves := []*StockMovement{entryMovement(t, "10", "1", testNow)}
		_, err := calc.CalculateFIFOCost(moves, valueobject.MustNewStockQuantity("1", valueobject.UnitKilogram))
		assert.True(t, shared.IsKind(err, shared.KindMismatch))
	})

	t.Run("rejects non-positive request", func(t *testing.T) {
		_, err := calc.CalculateFIFOCost(nil, un("0"))
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})
}

func TestStockCalculator_TotalValue(t *testing.T) {
	calc := NewStockCalculator()
	a := newTestItem(t, "10")
	b := newTestItem(t, "2.5")

	total, err := calc.CalculateTotalValue([]*StockItem{a, b})
	require.NoError(t, err)
	assert.True(t, total.Equals(brl("125")))

	total, err = calc.CalculateTotalValue([]*StockItem{nil, a, nil, b})
	require.NoError(t, err)
	assert.True(t, total.Equals(brl("125")))

	_, err = calc.CalculateTotalValue([]*StockItem{nil})
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	require.NoError(t, b.UpdateUnitCost(valueobject.MustNewMoney("1", valueobject.EUR), testNow))
	_, err = calc.CalculateTotalValue([]*StockItem{a, b})
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestStockCalculator_ProjectStock(t *testing.T) {
	calc := NewStockCalculator()

	projected, err := calc.ProjectStock(un("10"), []PlannedMovement{
		{Type: MovementTypeEntry, Quantity: un("5")},
		{Type: MovementTypeTransfer, Quantity: un("100")},
		{Type: MovementTypeReservation, Quantity: un("3")},
		{Type: MovementTypeExit, Quantity: un("20")},
		{Type: MovementTypePicking, Quantity: un("1")},
	})
	require.NoError(t, err)
	assert.True(t, projected.Equals(un("-6")))

	_, err = calc.ProjectStock(un("10"), []PlannedMovement{
		{Type: MovementTypeEntry, Quantity: valueobject.MustNewStockQuantity("1", valueobject.UnitLiter)},
	})
	assert.True(t, shared.IsKind(err, shared.KindMismatch))
}

func TestStockCalculator_CoverageAndTurnover(t *testing.T) {
	calc := NewStockCalculator()

	days, err := calc.CalculateCoverageDays(un("100"), un("7"))
	require.NoError(t, err)
	assert.Equal(t, int64(14), days)

	_, err = calc.CalculateCoverageDays(un("100"), un("0"))
	assert.Error(t, err)
	_, err = calc.CalculateCoverageDays(un("100"), valueobject.MustNewStockQuantity("1", valueobject.UnitBox))
	assert.True(t, shared.IsKind(err, shared.KindMismatch))

	turnover, err := calc.CalculateTurnover(un("300"), un("120"))
	require.NoError(t, err)
	assert.True(t, turnover.Equal(decimal.RequireFromString("2.5")))

	_, err = calc.CalculateTurnover(un("300"), un("0"))
	assert.Error(t, err)
}
