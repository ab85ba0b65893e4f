package persistence

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

// newSQLiteDB opens a private in-memory database with the ledger tables
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })
	return database.DB
}

// newMockDB wires gorm's postgres dialect to sqlmock for checking SQL shape
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock
}

func newScope() shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()}
}

func qty(v string) valueobject.StockQuantity {
	return valueobject.MustNewStockQuantity(v, valueobject.UnitPiece)
}

func brl(v string) valueobject.Money {
	return valueobject.MustNewMoney(v, valueobject.BRL)
}

func newItem(t *testing.T, scope shared.Scope, productID, locationID uuid.UUID, q string) *inventory.StockItem {
	t.Helper()
	item, err := inventory.NewStockItem(inventory.StockItemParams{
		ID:         uuid.New(),
		Scope:      scope,
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   qty(q),
		LotNumber:  "L-01",
		UnitCost:   brl("2.50"),
	}, testNow)
	require.NoError(t, err)
	return item
}

func newEntry(t *testing.T, scope shared.Scope, productID, locationID uuid.UUID, q string, at time.Time) *inventory.StockMovement {
	t.Helper()
	mv, err := inventory.NewStockMovement(inventory.StockMovementParams{
		ID:            uuid.New(),
		Scope:         scope,
		ProductID:     productID,
		ToLocationID:  &locationID,
		Type:          inventory.MovementTypeEntry,
		Quantity:      qty(q),
		UnitCost:      brl("2.50"),
		ReferenceType: inventory.ReferenceTypeFiscalDocument,
		ReferenceID:   "NF-100",
		ExecutedBy:    "receiver",
		ExecutedAt:    at,
	})
	require.NoError(t, err)
	return mv
}

func newCount(t *testing.T, scope shared.Scope, productID, locationID uuid.UUID, system string) *inventory.InventoryCount {
	t.Helper()
	c, err := inventory.NewInventoryCount(uuid.New(), scope, productID, locationID, qty(system), testNow)
	require.NoError(t, err)
	return c
}
