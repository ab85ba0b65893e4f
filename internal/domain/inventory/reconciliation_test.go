package inventory

import (
	"testing"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFor(t *testing.T, item *StockItem, counted string) *InventoryCount {
	t.Helper()
	c, err := NewInventoryCount(uuid.New(), item.Scope, item.ProductID, item.LocationID, item.Quantity(), testNow)
	require.NoError(t, err)
	require.NoError(t, c.StartCount(testNow))
	require.NoError(t, c.RecordCount(un(counted), "user1", testNow))
	return c
}

func TestReconcile(t *testing.T) {
	v := NewInventoryValidator()

	t.Run("shortage is removed from stock and count completes", func(t *testing.T) {
		item := newTestItem(t, "60")
		count := countFor(t, item, "55")
		movementID := uuid.New()

		res, err := Reconcile(v, count, item, ReconciliationInput{
			ExecutedBy: "user1", UnitCost: item.UnitCost(), MovementID: movementID, ExecutedAt: testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, MovementTypeAdjustmentMinus, res.Movement.Type)
		assert.True(t, res.Item.Quantity().Equals(un("55")))
		assert.Equal(t, InventoryStatusCompleted, res.Count.Status())
		assert.Equal(t, movementID, *res.Count.AdjustmentMovementID())

		assert.True(t, item.Quantity().Equals(un("60")), "input item untouched")
		assert.Equal(t, InventoryStatusDivergent, count.Status(), "input count untouched")
	})

	t.Run("deviation above the count limit is still adjustable", func(t *testing.T) {
		item := newTestItem(t, "60")
		count := countFor(t, item, "130")
		assert.Error(t, v.ValidateCount(count))

		res, err := Reconcile(v, count, item, ReconciliationInput{
			ExecutedBy: "user1", UnitCost: item.UnitCost(), MovementID: uuid.New(), ExecutedAt: testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, MovementTypeAdjustmentPlus, res.Movement.Type)
		assert.True(t, res.Item.Quantity().Equals(un("130")))
		assert.Equal(t, InventoryStatusCompleted, res.Count.Status())
	})

	t.Run("surplus is added to stock", func(t *testing.T) {
		item := newTestItem(t, "10")
		res, err := Reconcile(v, countFor(t, item, "12"), item, ReconciliationInput{
			ExecutedBy: "user1", UnitCost: item.UnitCost(), MovementID: uuid.New(), ExecutedAt: testNow,
		})
		require.NoError(t, err)
		assert.True(t, res.Item.Quantity().Equals(un("12")))
	})

	t.Run("shortage exceeding available stock fails atomically", func(t *testing.T) {
		item := newTestItem(t, "10")
		count := countFor(t, item, "4")
		require.NoError(t, item.Reserve(un("8"), testNow))

		_, err := Reconcile(v, count, item, ReconciliationInput{
			ExecutedBy: "user1", UnitCost: item.UnitCost(), MovementID: uuid.New(), ExecutedAt: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, InventoryStatusDivergent, count.Status())
		assert.True(t, item.Quantity().Equals(un("10")))
	})

	t.Run("count for another item is rejected", func(t *testing.T) {
		item := newTestItem(t, "10")
		other := newTestItem(t, "10")
		_, err := Reconcile(v, countFor(t, other, "9"), item, ReconciliationInput{
			ExecutedBy: "user1", UnitCost: item.UnitCost(), MovementID: uuid.New(), ExecutedAt: testNow,
		})
		assert.True(t, shared.IsKind(err, shared.KindInvariant))
	})

	t.Run("matching count has nothing to reconcile", func(t *testing.T) {
		item := newTestItem(t, "10")
		_, err := Reconcile(v, countFor(t, item, "10"), item, ReconciliationInput{
			ExecutedBy: "user1", UnitCost: item.UnitCost(), MovementID: uuid.New(), ExecutedAt: testNow,
		})
		assert.Error(t, err)
	})
}
