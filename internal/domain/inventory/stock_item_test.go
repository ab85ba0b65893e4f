package inventory

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItemParams() StockItemParams {
	return StockItemParams{
		ID:         uuid.New(),
		Scope:      testScope(),
		ProductID:  uuid.New(),
		LocationID: uuid.New(),
		Quantity:   un("100"),
		UnitCost:   brl("10.00"),
	}
}

func TestNewStockItem(t *testing.T) {
	t.Run("creates item with zero reservation", func(t *testing.T) {
		item, err := NewStockItem(validItemParams(), testNow)
		require.NoError(t, err)
		assert.True(t, item.Quantity().Equals(un("100")))
		assert.True(t, item.ReservedQuantity().IsZero())
		assert.True(t, item.AvailableQuantity().Equals(un("100")))
		assert.Equal(t, 1, item.Version)
		assert.Equal(t, testNow, item.CreatedAt)
	})

	t.Run("rejects past expiration date", func(t *testing.T) {
		p := validItemParams()
		p.ExpirationDate = ptr(testNow.Add(-time.Hour))
		_, err := NewStockItem(p, testNow)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejects unit mismatch between quantity and reserved", func(t *testing.T) {
		p := validItemParams()
		p.ReservedQuantity = valueobject.MustNewStockQuantity("1", valueobject.UnitKilogram)
		_, err := NewStockItem(p, testNow)
		assert.True(t, shared.IsKind(err, shared.KindMismatch))
	})

	t.Run("rejects reserved above quantity", func(t *testing.T) {
		p := validItemParams()
		p.ReservedQuantity = un("101")
		_, err := NewStockItem(p, testNow)
		assert.True(t, shared.IsKind(err, shared.KindInvariant))
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		for name, mutate := range map[string]func(*StockItemParams){
			"id":       func(p *StockItemParams) { p.ID = uuid.Nil },
			"product":  func(p *StockItemParams) { p.ProductID = uuid.Nil },
			"location": func(p *StockItemParams) { p.LocationID = uuid.Nil },
			"scope":    func(p *StockItemParams) { p.Scope = shared.Scope{} },
		} {
			p := validItemParams()
			mutate(&p)
			_, err := NewStockItem(p, testNow)
			assert.True(t, shared.IsKind(err, shared.KindValidation), name)
		}
	})

	t.Run("rejects negative unit cost", func(t *testing.T) {
		p := validItemParams()
		p.UnitCost = brl("-1")
		_, err := NewStockItem(p, testNow)
		assert.Error(t, err)
	})
}

func TestReconstituteStockItem(t *testing.T) {
	t.Run("loads expired stock", func(t *testing.T) {
		p := validItemParams()
		p.ExpirationDate = ptr(testNow.AddDate(0, -1, 0))
		p.Version = 7
		item, err := ReconstituteStockItem(p)
		require.NoError(t, err)
		assert.True(t, item.IsExpired(testNow))
		assert.Equal(t, 7, item.Version)
		assert.True(t, item.ReservedQuantity().IsZero())
		assert.Equal(t, item.Quantity().Unit(), item.ReservedQuantity().Unit())
	})

	t.Run("reports broken invariants as corrupted data", func(t *testing.T) {
		p := validItemParams()
		p.ReservedQuantity = un("150")
		p.Version = 1
		_, err := ReconstituteStockItem(p)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindCorrupted))
	})
}

func TestStockItem_Movements(t *testing.T) {
	t.Run("entry then exit", func(t *testing.T) {
		item := newTestItem(t, "100")
		require.NoError(t, item.RemoveQuantity(un("40"), testNow))
		assert.True(t, item.Quantity().Equals(un("60")))
		assert.True(t, item.AvailableQuantity().Equals(un("60")))
		assert.Equal(t, 2, item.Version)
	})

	t.Run("add requires positive quantity", func(t *testing.T) {
		item := newTestItem(t, "10")
		err := item.AddQuantity(un("0"), testNow)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
		assert.Equal(t, 1, item.Version)
	})

	t.Run("remove more than available fails and leaves state unchanged", func(t *testing.T) {
		item := newTestItem(t, "10")
		require.NoError(t, item.Reserve(un("8"), testNow))
		err := item.RemoveQuantity(un("3"), testNow)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, item.Quantity().Equals(un("10")))
		assert.True(t, item.ReservedQuantity().Equals(un("8")))
	})

	t.Run("unit mismatch is rejected", func(t *testing.T) {
		item := newTestItem(t, "10")
		err := item.AddQuantity(valueobject.MustNewStockQuantity("1", valueobject.UnitKilogram), testNow)
		assert.True(t, shared.IsKind(err, shared.KindMismatch))
	})
}

func TestStockItem_Reservations(t *testing.T) {
	item := newTestItem(t, "60")

	require.NoError(t, item.Reserve(un("30"), testNow))
	assert.True(t, item.ReservedQuantity().Equals(un("30")))
	assert.True(t, item.AvailableQuantity().Equals(un("30")))

	err := item.Reserve(un("40"), testNow)
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindInvariant))
	assert.True(t, item.ReservedQuantity().Equals(un("30")))

	err = item.Release(un("31"), testNow)
	assert.True(t, shared.IsKind(err, shared.KindInvariant))

	require.NoError(t, item.Release(un("10"), testNow))
	assert.True(t, item.AvailableQuantity().Equals(un("40")))
}

func TestStockItem_QuantityConservation(t *testing.T) {
	item := newTestItem(t, "20")
	ops := []func() error{
		func() error { return item.Reserve(un("5"), testNow) },
		func() error { return item.RemoveQuantity(un("16"), testNow) },
		func() error { return item.RemoveQuantity(un("15"), testNow) },
		func() error { return item.Reserve(un("0.5"), testNow) },
		func() error { return item.Release(un("6"), testNow) },
		func() error { return item.AddQuantity(un("2.25"), testNow) },
		func() error { return item.Reserve(un("7.75"), testNow) },
		func() error { return item.Release(un("5.5"), testNow) },
		func() error { return item.RemoveQuantity(un("100"), testNow) },
	}
	for i, op := range ops {
		_ = op()
		over, err := item.ReservedQuantity().IsGreaterThan(item.Quantity())
		require.NoError(t, err)
		assert.False(t, over, "step %d", i)
		assert.False(t, item.AvailableQuantity().IsNegative(), "step %d", i)
	}
}

func TestStockItem_UpdateUnitCost(t *testing.T) {
	item := newTestItem(t, "5")
	require.NoError(t, item.UpdateUnitCost(brl("12.50"), testNow))
	assert.True(t, item.TotalCost().Equals(brl("62.5")))

	err := item.UpdateUnitCost(brl("-0.01"), testNow)
	assert.Error(t, err)
	assert.True(t, item.UnitCost().Equals(brl("12.50")))
}

func TestStockItem_Expiration(t *testing.T) {
	p := validItemParams()
	p.ExpirationDate = ptr(testNow.AddDate(0, 0, 20))
	item, err := NewStockItem(p, testNow)
	require.NoError(t, err)

	assert.False(t, item.IsExpired(testNow))
	assert.True(t, item.IsNearExpiration(testNow, DefaultNearExpirationDays))
	assert.False(t, item.IsNearExpiration(testNow, 10))
	assert.True(t, item.IsExpired(testNow.AddDate(0, 0, 21)))
	assert.False(t, item.IsNearExpiration(testNow.AddDate(0, 0, 21), DefaultNearExpirationDays))

	noExpiry := newTestItem(t, "1")
	assert.False(t, noExpiry.IsExpired(testNow))
	assert.False(t, noExpiry.IsNearExpiration(testNow, 30))
}
