package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockMovementRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStockMovementRepository(newSQLiteDB(t))
	scope := newScope()
	productID, locA, locB := uuid.New(), uuid.New(), uuid.New()

	first := newEntry(t, scope, productID, locA, "10", testNow)
	second := newEntry(t, scope, productID, locA, "5", testNow.Add(time.Hour))
	transfer, err := inventory.NewStockMovement(inventory.StockMovementParams{
		ID:             uuid.New(),
		Scope:          scope,
		ProductID:      productID,
		FromLocationID: &locA,
		ToLocationID:   &locB,
		Type:           inventory.MovementTypeTransfer,
		Quantity:       qty("4"),
		UnitCost:       brl("2.50"),
		ReferenceType:  inventory.ReferenceTypeTransfer,
		ReferenceID:    "TR-7",
		ExecutedBy:     "mover",
		ExecutedAt:     testNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	// appended out of order: reads are ordered by executed_at
	require.NoError(t, repo.Append(ctx, second, transfer, first))
	require.NoError(t, repo.Append(ctx, newEntry(t, newScope(), productID, locA, "1", testNow)))

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, scope, transfer.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.MovementTypeTransfer, got.Type)
		assert.Equal(t, locA, *got.FromLocationID)
		assert.Equal(t, locB, *got.ToLocationID)
		assert.True(t, got.Quantity().Equals(qty("4")))

		_, err = repo.FindByID(ctx, scope, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("history touching a location, oldest first", func(t *testing.T) {
		atA, err := repo.FindByProductAndLocation(ctx, scope, productID, locA)
		require.NoError(t, err)
		require.Len(t, atA, 3)
		assert.Equal(t, first.ID, atA[0].ID)
		assert.Equal(t, second.ID, atA[1].ID)
		assert.Equal(t, transfer.ID, atA[2].ID)

		atB, err := repo.FindByProductAndLocation(ctx, scope, productID, locB)
		require.NoError(t, err)
		require.Len(t, atB, 1)
	})

	t.Run("by reference", func(t *testing.T) {
		got, err := repo.FindByReference(ctx, scope, inventory.ReferenceTypeFiscalDocument, "NF-100")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("list with filters", func(t *testing.T) {
		mt := inventory.MovementTypeEntry
		got, total, err := repo.List(ctx, scope, inventory.StockMovementFilter{
			Filter:     shared.Filter{Page: 1, PageSize: 1, OrderDir: "asc"},
			LocationID: &locA,
			Type:       &mt,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, got, 1)
		assert.Equal(t, first.ID, got[0].ID)
	})

	t.Run("ids are never reused", func(t *testing.T) {
		err := repo.Append(ctx, first)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("empty append is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.Append(ctx))
	})
}
