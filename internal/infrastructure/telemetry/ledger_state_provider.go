package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormLedgerStateProvider implements LedgerStateProvider with aggregate queries
// over the stock_items and inventory_counts tables.
type GormLedgerStateProvider struct {
	db *gorm.DB
}

// NewGormLedgerStateProvider creates a new GormLedgerStateProvider.
func NewGormLedgerStateProvider(db *gorm.DB) *GormLedgerStateProvider {
	return &GormLedgerStateProvider{db: db}
}

// OpenCountsByStatus groups PENDING and IN_PROGRESS counts by status
func (p *GormLedgerStateProvider) OpenCountsByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string `gorm:"column:status"`
		Total  int64  `gorm:"column:total"`
	}
	var rows []row
	err := p.db.WithContext(ctx).
		Table("inventory_counts").
		Select("status, COUNT(*) AS total").
		Where("status IN ?", []string{"PENDING", "IN_PROGRESS"}).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// ReservedItemCount counts stock items with a positive reservation
func (p *GormLedgerStateProvider) ReservedItemCount(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Table("stock_items").
		Where("reserved_quantity > 0").
		Count(&n).Error
	return n, err
}
