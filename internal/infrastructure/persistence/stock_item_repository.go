package persistence

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

func (r *GormStockItemRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

func (r *GormStockItemRepository) FindByProductAndLocation(ctx context.Context, scope shared.Scope, productID, locationID uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

func (r *GormStockItemRepository) FindByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID) ([]*inventory.StockItem, error) {
	var rows []models.StockItemModel
	err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("product_id = ?", productID).
		Order("location_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return stockItemsToDomain(rows)
}

func (r *GormStockItemRepository) FindByLocation(ctx context.Context, scope shared.Scope, locationID uuid.UUID) ([]*inventory.StockItem, error) {
	var rows []models.StockItemModel
	err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("location_id = ?", locationID).
		Order("product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return stockItemsToDomain(rows)
}

func (r *GormStockItemRepository) List(ctx context.Context, scope shared.Scope, filter inventory.StockItemFilter) ([]*inventory.StockItem, int64, error) {
	f := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.StockItemModel{}).Scopes(scoped(scope))
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockItemModel
	err := query.Scopes(paginate(f)).
		Order(orderClause(f.OrderBy, f.OrderDir, StockItemSortFields, "created_at")).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	items, err := stockItemsToDomain(rows)
	return items, total, err
}

// Save inserts a never-persisted item or updates a stored one guarded by its persisted version
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	model := models.StockItemModelFromDomain(item)
	db := r.db.WithContext(ctx)

	if item.PersistedVersion() == 0 {
		if err := db.Create(model).Error; err != nil {
			return fmt.Errorf("insert stock item: %w", translateError(err))
		}
		item.MarkPersisted()
		return nil
	}

	result := db.Model(&models.StockItemModel{}).
		Scopes(scoped(item.Scope)).
		Where("id = ? AND version = ?", item.ID, item.PersistedVersion()).
		Updates(map[string]any{
			"quantity":          model.Quantity,
			"reserved_quantity": model.ReservedQuantity,
			"unit":              model.Unit,
			"lot_number":        model.LotNumber,
			"expiration_date":   model.ExpirationDate,
			"unit_cost":         model.UnitCost,
			"currency":          model.Currency,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update stock item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	item.MarkPersisted()
	return nil
}

func stockItemsToDomain(rows []models.StockItemModel) ([]*inventory.StockItem, error) {
	items := make([]*inventory.StockItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

var _ inventory.StockItemRepository = (*GormStockItemRepository)(nil)
