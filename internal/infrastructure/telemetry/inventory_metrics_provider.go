package telemetry

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormStockLevelProvider sums inventory_details per material for the
// stock gauge.
type GormStockLevelProvider struct {
	db *gorm.DB
}

// NewGormStockLevelProvider creates a provider reading from db
func NewGormStockLevelProvider(db *gorm.DB) *GormStockLevelProvider {
	return &GormStockLevelProvider{db: db}
}

// StockLevels returns the on-hand total of every material that has stock rows.
func (p *GormStockLevelProvider) StockLevels(ctx context.Context) ([]StockLevel, error) {
	var rows []struct {
		Code     string
		Quantity int64
	}
	err := p.db.WithContext(ctx).
		Table("inventory_details AS d").
		Select("m.code AS code, COALESCE(SUM(d.quantity), 0) AS quantity").
		Joins("JOIN materials m ON m.id = d.material_id").
		Group("m.code").
		Order("m.code").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stock levels: %w", err)
	}

	levels := make([]StockLevel, len(rows))
	for i, r := range rows {
		levels[i] = StockLevel{MaterialCode: r.Code, Quantity: r.Quantity}
	}
	return levels, nil
}
