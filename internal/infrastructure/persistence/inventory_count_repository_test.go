package persistence

import (
	"context"
	"testing"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInventoryCountRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormInventoryCountRepository(db)
	scope := newScope()
	productID, locationID := uuid.New(), uuid.New()

	open := newCount(t, scope, productID, locationID, "20")
	require.NoError(t, repo.Save(ctx, open))

	done := newCount(t, scope, productID, locationID, "20")
	require.NoError(t, done.RecordCount(qty("18"), "auditor", testNow))
	require.NoError(t, repo.Save(ctx, done))

	matched := newCount(t, scope, productID, locationID, "20")
	require.NoError(t, matched.RecordCount(qty("20"), "auditor", testNow))
	require.NoError(t, repo.Save(ctx, matched))

	t.Run("round trip of a recorded count", func(t *testing.T) {
		got, err := repo.FindByID(ctx, scope, done.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.InventoryStatusDivergent, got.Status())
		counted, ok := got.CountedQuantity()
		require.True(t, ok)
		assert.True(t, counted.Equals(qty("18")))
		assert.Equal(t, "auditor", got.CountedBy())
		require.NotNil(t, got.CountedAt())
		assert.True(t, testNow.Equal(*got.CountedAt()))
	})

	t.Run("unreconciled divergent counts stay open", func(t *testing.T) {
		got, err := repo.FindOpenByProductAndLocation(ctx, scope, productID, locationID)
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(got))
		for _, c := range got {
			ids = append(ids, c.ID)
		}
		assert.ElementsMatch(t, []uuid.UUID{open.ID, done.ID}, ids)
	})

	t.Run("find by ids ignores other scopes", func(t *testing.T) {
		foreign := newCount(t, newScope(), productID, locationID, "1")
		require.NoError(t, repo.Save(ctx, foreign))

		got, err := repo.FindByIDs(ctx, scope, []uuid.UUID{open.ID, done.ID, matched.ID, foreign.ID})
		require.NoError(t, err)
		assert.Len(t, got, 3)

		none, err := repo.FindByIDs(ctx, scope, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("status transition persists with version guard", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, scope, open.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Cancel(testNow))
		require.NoError(t, repo.Save(ctx, loaded))

		require.NoError(t, open.StartCount(testNow))
		assert.ErrorIs(t, repo.Save(ctx, open), shared.ErrConcurrencyConflict)
	})

	t.Run("list by status", func(t *testing.T) {
		status := inventory.InventoryStatusCancelled
		got, total, err := repo.List(ctx, scope, inventory.InventoryCountFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, open.ID, got[0].ID)
	})

	t.Run("corrupted row surfaces as corrupted data", func(t *testing.T) {
		require.NoError(t, db.Exec("UPDATE inventory_counts SET status = 'LOST' WHERE id = ?", done.ID).Error)
		_, err := repo.FindByID(ctx, scope, done.ID)
		assert.True(t, shared.IsKind(err, shared.KindCorrupted), "got %v", err)
	})
}
