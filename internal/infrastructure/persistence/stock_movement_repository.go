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

// GormStockMovementRepository is the append-only ledger store. It never issues UPDATE or DELETE.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

func (r *GormStockMovementRepository) Append(ctx context.Context, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([]*models.StockMovementModel, len(movements))
	for i, mv := range movements {
		rows[i] = models.StockMovementModelFromDomain(mv)
	}
	if err := r.db.WithContext(ctx).Create(rows).Error; err != nil {
		return fmt.Errorf("append stock movements: %w", translateError(err))
	}
	return nil
}

func (r *GormStockMovementRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*inventory.StockMovement, error) {
	var model models.StockMovementModel
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

func (r *GormStockMovementRepository) FindByProductAndLocation(ctx context.Context, scope shared.Scope, productID, locationID uuid.UUID) ([]*inventory.StockMovement, error) {
	var rows []models.StockMovementModel
	err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("product_id = ?", productID).
		Where("from_location_id = ? OR to_location_id = ?", locationID, locationID).
		Order("executed_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return movementsToDomain(rows)
}

func (r *GormStockMovementRepository) FindByReference(ctx context.Context, scope shared.Scope, refType inventory.ReferenceType, refID string) ([]*inventory.StockMovement, error) {
	var rows []models.StockMovementModel
	err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("reference_type = ? AND reference_id = ?", string(refType), refID).
		Order("executed_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return movementsToDomain(rows)
}

func (r *GormStockMovementRepository) List(ctx context.Context, scope shared.Scope, filter inventory.StockMovementFilter) ([]*inventory.StockMovement, int64, error) {
	f := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).Scopes(scoped(scope))
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		query = query.Where("from_location_id = ? OR to_location_id = ?", *filter.LocationID, *filter.LocationID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.ReferenceType != nil {
		query = query.Where("reference_type = ?", string(*filter.ReferenceType))
	}
	if filter.ReferenceID != "" {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockMovementModel
	err := query.Scopes(paginate(f)).
		Order(orderClause(f.OrderBy, f.OrderDir, StockMovementSortFields, "executed_at")).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	movements, err := movementsToDomain(rows)
	return movements, total, err
}

func movementsToDomain(rows []models.StockMovementModel) ([]*inventory.StockMovement, error) {
	out := make([]*inventory.StockMovement, 0, len(rows))
	for i := range rows {
		mv, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, nil
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
