package inventory

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func testScope() shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()}
}

func un(v string) valueobject.StockQuantity {
	return valueobject.MustNewStockQuantity(v, valueobject.UnitPiece)
}

func brl(v string) valueobject.Money {
	return valueobject.MustNewMoney(v, valueobject.BRL)
}

func newTestItem(t *testing.T, qty string) *StockItem {
	t.Helper()
	item, err := NewStockItem(StockItemParams{
		ID:         uuid.New(),
		Scope:      testScope(),
		ProductID:  uuid.New(),
		LocationID: uuid.New(),
		Quantity:   un(qty),
		UnitCost:   brl("10.00"),
	}, testNow)
	require.NoError(t, err)
	return item
}

func newTestCount(t *testing.T, system string) *InventoryCount {
	t.Helper()
	c, err := NewInventoryCount(uuid.New(), testScope(), uuid.New(), uuid.New(), un(system), testNow)
	require.NoError(t, err)
	return c
}

func recordedCount(t *testing.T, system, counted string) *InventoryCount {
	t.Helper()
	c := newTestCount(t, system)
	require.NoError(t, c.StartCount(testNow))
	require.NoError(t, c.RecordCount(un(counted), "user1", testNow))
	return c
}

func ptr[T any](v T) *T {
	return &v
}
