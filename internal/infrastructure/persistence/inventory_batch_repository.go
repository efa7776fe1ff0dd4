package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryBatchRepository implements inventory.BatchRepository using GORM
type GormInventoryBatchRepository struct {
	db *gorm.DB
}

// NewGormInventoryBatchRepository creates a new GormInventoryBatchRepository
func NewGormInventoryBatchRepository(db *gorm.DB) *GormInventoryBatchRepository {
	return &GormInventoryBatchRepository{db: db}
}

// FindByID finds a live batch by its ID
func (r *GormInventoryBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	var m models.InventoryBatchModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIDs finds the live batches among ids
func (r *GormInventoryBatchRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.InventoryBatch, error) {
	if len(ids) == 0 {
		return []inventory.InventoryBatch{}, nil
	}
	var ms []models.InventoryBatchModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	return batchesToDomain(ms), nil
}

// FindByBatchNumber finds a live batch by its normalized number
func (r *GormInventoryBatchRepository) FindByBatchNumber(ctx context.Context, batchNumber string) (*inventory.InventoryBatch, error) {
	var m models.InventoryBatchModel
	if err := r.db.WithContext(ctx).Take(&m, "batch_number = ?", batchNumber).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// ExistsByBatchNumber checks live and deleted batches
func (r *GormInventoryBatchRepository) ExistsByBatchNumber(ctx context.Context, batchNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Unscoped().
		Model(&models.InventoryBatchModel{}).
		Where("batch_number = ?", batchNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByBatchNumberPrefix counts live and deleted batches whose number starts with prefix
func (r *GormInventoryBatchRepository) CountByBatchNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Unscoped().
		Model(&models.InventoryBatchModel{}).
		Where(`batch_number LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindAll returns one page of live batches and the total match count
func (r *GormInventoryBatchRepository) FindAll(ctx context.Context, filter inventory.BatchFilter) ([]inventory.InventoryBatch, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryBatchModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f := filter.Filter.Normalize()
	orderBy := ValidateSortField(f.OrderBy, BatchSortFields, "created_at")
	var ms []models.InventoryBatchModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryBatchModel{}), filter).
		Order(orderBy + " " + ValidateSortOrder(f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return batchesToDomain(ms), total, nil
}

// applyFilter applies batch filter conditions without pagination
func (r *GormInventoryBatchRepository) applyFilter(query *gorm.DB, filter inventory.BatchFilter) *gorm.DB {
	if filter.MaterialID != nil {
		query = query.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.BatchNumber != "" {
		query = query.Where(`batch_number LIKE ? ESCAPE '\'`, escapeLike(filter.BatchNumber)+"%")
	}
	return query
}

// Save creates or updates a batch
func (r *GormInventoryBatchRepository) Save(ctx context.Context, batch *inventory.InventoryBatch) error {
	return translateError(r.db.WithContext(ctx).Save(models.InventoryBatchModelFromDomain(batch)).Error)
}

// SoftDelete marks a batch deleted
func (r *GormInventoryBatchRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InventoryBatchModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func batchesToDomain(ms []models.InventoryBatchModel) []inventory.InventoryBatch {
	out := make([]inventory.InventoryBatch, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}

// Ensure GormInventoryBatchRepository implements inventory.BatchRepository
var _ inventory.BatchRepository = (*GormInventoryBatchRepository)(nil)
