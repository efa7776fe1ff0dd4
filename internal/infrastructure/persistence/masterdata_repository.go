package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMaterialRepository implements masterdata.MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

// FindByID finds a material by its ID
func (r *GormMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*masterdata.Material, error) {
	var m models.MaterialModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIDs finds the materials among ids
func (r *GormMaterialRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]masterdata.Material, error) {
	if len(ids) == 0 {
		return []masterdata.Material{}, nil
	}
	var ms []models.MaterialModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]masterdata.Material, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out, nil
}

// Exists checks if a material exists
func (r *GormMaterialRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MaterialModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GormBinRepository implements masterdata.BinRepository using GORM
type GormBinRepository struct {
	db *gorm.DB
}

// NewGormBinRepository creates a new GormBinRepository
func NewGormBinRepository(db *gorm.DB) *GormBinRepository {
	return &GormBinRepository{db: db}
}

// FindByID finds a bin by its ID
func (r *GormBinRepository) FindByID(ctx context.Context, id uuid.UUID) (*masterdata.Bin, error) {
	var m models.BinModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Exists checks if a bin exists
func (r *GormBinRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BinModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var (
	_ masterdata.MaterialRepository = (*GormMaterialRepository)(nil)
	_ masterdata.BinRepository      = (*GormBinRepository)(nil)
)
