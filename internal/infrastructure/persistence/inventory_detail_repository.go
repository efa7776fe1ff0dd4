package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryDetailRepository implements inventory.DetailRepository using GORM.
// The ForUpdate reads take a row lock that lasts until the enclosing
// transaction commits or rolls back.
type GormInventoryDetailRepository struct {
	db *gorm.DB
}

// NewGormInventoryDetailRepository creates a new GormInventoryDetailRepository
func NewGormInventoryDetailRepository(db *gorm.DB) *GormInventoryDetailRepository {
	return &GormInventoryDetailRepository{db: db}
}

// FindByBatchID finds the stock row of a batch
func (r *GormInventoryDetailRepository) FindByBatchID(ctx context.Context, batchID uuid.UUID) (*inventory.InventoryDetail, error) {
	var m models.InventoryDetailModel
	if err := r.db.WithContext(ctx).Take(&m, "batch_id = ?", batchID).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByBatchIDForUpdate finds and locks the stock row of a batch
func (r *GormInventoryDetailRepository) FindByBatchIDForUpdate(ctx context.Context, batchID uuid.UUID) (*inventory.InventoryDetail, error) {
	var m models.InventoryDetailModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&m, "batch_id = ?", batchID).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByBatchIDsForUpdate locks several stock rows. Rows are locked in
// batch_id order so that concurrent movements cannot deadlock.
func (r *GormInventoryDetailRepository) FindByBatchIDsForUpdate(ctx context.Context, batchIDs []uuid.UUID) ([]inventory.InventoryDetail, error) {
	if len(batchIDs) == 0 {
		return []inventory.InventoryDetail{}, nil
	}
	var ms []models.InventoryDetailModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("batch_id IN ?", batchIDs).
		Order("batch_id").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return detailsToDomain(ms), nil
}

// FindByMaterialID finds every stock row of a material
func (r *GormInventoryDetailRepository) FindByMaterialID(ctx context.Context, materialID uuid.UUID) ([]inventory.InventoryDetail, error) {
	var ms []models.InventoryDetailModel
	if err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("batch_id").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return detailsToDomain(ms), nil
}

// SumQuantityByMaterial sums a material's stock across bins and batches
func (r *GormInventoryDetailRepository) SumQuantityByMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryDetailModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("material_id = ?", materialID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Save creates or updates a stock row
func (r *GormInventoryDetailRepository) Save(ctx context.Context, detail *inventory.InventoryDetail) error {
	return translateError(r.db.WithContext(ctx).Save(models.InventoryDetailModelFromDomain(detail)).Error)
}

// UpdateMaterialByBatchID rewrites the material of a batch's stock row
func (r *GormInventoryDetailRepository) UpdateMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryDetailModel{}).
		Where("batch_id = ?", batchID).
		Update("material_id", materialID).Error
}

// DeleteByBatchID deletes the stock row of a batch
func (r *GormInventoryDetailRepository) DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&models.InventoryDetailModel{}).Error
}

func detailsToDomain(ms []models.InventoryDetailModel) []inventory.InventoryDetail {
	out := make([]inventory.InventoryDetail, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}

// Ensure GormInventoryDetailRepository implements inventory.DetailRepository
var _ inventory.DetailRepository = (*GormInventoryDetailRepository)(nil)
