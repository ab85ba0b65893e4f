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

// GormInventoryCountRepository implements InventoryCountRepository using GORM
type GormInventoryCountRepository struct {
	db *gorm.DB
}

// NewGormInventoryCountRepository creates a new GormInventoryCountRepository
func NewGormInventoryCountRepository(db *gorm.DB) *GormInventoryCountRepository {
	return &GormInventoryCountRepository{db: db}
}

func (r *GormInventoryCountRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*inventory.InventoryCount, error) {
	var model models.InventoryCountModel
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindByIDs returns the counts found, in no particular order. Missing ids are simply absent.
func (r *GormInventoryCountRepository) FindByIDs(ctx context.Context, scope shared.Scope, ids []uuid.UUID) ([]*inventory.InventoryCount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.InventoryCountModel
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return countsToDomain(rows)
}

func openStatuses() []string {
	out := make([]string, len(inventory.OpenInventoryStatuses))
	for i, s := range inventory.OpenInventoryStatuses {
		out[i] = string(s)
	}
	return out
}

func (r *GormInventoryCountRepository) FindOpenByProductAndLocation(ctx context.Context, scope shared.Scope, productID, locationID uuid.UUID) ([]*inventory.InventoryCount, error) {
	var rows []models.InventoryCountModel
	err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Where("status IN ?", openStatuses()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return countsToDomain(rows)
}

func (r *GormInventoryCountRepository) List(ctx context.Context, scope shared.Scope, filter inventory.InventoryCountFilter) ([]*inventory.InventoryCount, int64, error) {
	f := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.InventoryCountModel{}).Scopes(scoped(scope))
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryCountModel
	err := query.Scopes(paginate(f)).
		Order(orderClause(f.OrderBy, f.OrderDir, InventoryCountSortFields, "created_at")).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	counts, err := countsToDomain(rows)
	return counts, total, err
}

// Save inserts a new count or updates a stored one guarded by its persisted version
func (r *GormInventoryCountRepository) Save(ctx context.Context, count *inventory.InventoryCount) error {
	model := models.InventoryCountModelFromDomain(count)
	db := r.db.WithContext(ctx)

	if count.PersistedVersion() == 0 {
		if err := db.Create(model).Error; err != nil {
			return fmt.Errorf("insert inventory count: %w", translateError(err))
		}
		count.MarkPersisted()
		return nil
	}

	result := db.Model(&models.InventoryCountModel{}).
		Scopes(scoped(count.Scope)).
		Where("id = ? AND version = ?", count.ID, count.PersistedVersion()).
		Updates(map[string]any{
			"counted_quantity":       model.CountedQuantity,
			"counted_by":             model.CountedBy,
			"counted_at":             model.CountedAt,
			"adjustment_movement_id": model.AdjustmentMovementID,
			"status":                 model.Status,
			"notes":                  model.Notes,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update inventory count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	count.MarkPersisted()
	return nil
}

func countsToDomain(rows []models.InventoryCountModel) ([]*inventory.InventoryCount, error) {
	out := make([]*inventory.InventoryCount, 0, len(rows))
	for i := range rows {
		c, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

var _ inventory.InventoryCountRepository = (*GormInventoryCountRepository)(nil)
