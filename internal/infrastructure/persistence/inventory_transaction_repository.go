package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements inventory.TransactionRepository using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// FindByID finds a transaction by its ID
func (r *GormInventoryTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	var m models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Find returns one page of matching transactions and the total match count
func (r *GormInventoryTransactionRepository) Find(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.InventoryTransaction, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryTransactionModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f := filter.Filter.Normalize()
	orderBy := ValidateSortField(f.OrderBy, TransactionSortFields, "transaction_time")
	orderDir := ValidateSortOrder(f.OrderDir)
	var ms []models.InventoryTransactionModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryTransactionModel{}), filter).
		Order(orderBy + " " + orderDir).
		Order("id " + orderDir).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return transactionsToDomain(ms), total, nil
}

// FindByBatchID returns every transaction of a batch in time order
func (r *GormInventoryTransactionRepository) FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var ms []models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("transaction_time ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return transactionsToDomain(ms), nil
}

// Create inserts a transaction
func (r *GormInventoryTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	return translateError(r.db.WithContext(ctx).Create(models.InventoryTransactionModelFromDomain(tx)).Error)
}

// Update rewrites the mutable columns of a transaction. transaction_time is
// never part of the update.
func (r *GormInventoryTransactionRepository) Update(ctx context.Context, tx *inventory.InventoryTransaction) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryTransactionModel{}).
		Where("id = ?", tx.ID).
		Updates(map[string]any{
			"material_id":     tx.MaterialID,
			"batch_id":        tx.BatchID,
			"change_type":     tx.ChangeType.String(),
			"quantity_change": tx.QuantityChange,
			"quantity_before": tx.QuantityBefore,
			"quantity_after":  tx.QuantityAfter,
			"reference_type":  tx.ReferenceType.String(),
			"reference_id":    tx.ReferenceID,
			"creator":         tx.Creator,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes a transaction
func (r *GormInventoryTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InventoryTransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByBatchID deletes every transaction of a batch
func (r *GormInventoryTransactionRepository) DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&models.InventoryTransactionModel{}).Error
}

// UpdateMaterialByBatchID rewrites the material of every transaction of a batch
func (r *GormInventoryTransactionRepository) UpdateMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryTransactionModel{}).
		Where("batch_id = ?", batchID).
		Update("material_id", materialID).Error
}

// transactionTotals is the scan target of the statistics query.
type transactionTotals struct {
	TotalIn     int64
	TotalOut    int64
	TotalAdjust int64
	Count       int64
}

// Statistics aggregates every transaction matching filter in one query
func (r *GormInventoryTransactionRepository) Statistics(ctx context.Context, filter inventory.TransactionFilter) (inventory.TransactionStatistics, error) {
	var totals transactionTotals
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryTransactionModel{}), filter).
		Select(`COALESCE(SUM(CASE WHEN change_type = 'IN' THEN quantity_change ELSE 0 END), 0) AS total_in,
			COALESCE(SUM(CASE WHEN change_type = 'OUT' THEN -quantity_change ELSE 0 END), 0) AS total_out,
			COALESCE(SUM(CASE WHEN change_type = 'ADJUST' THEN quantity_change ELSE 0 END), 0) AS total_adjust,
			COUNT(*) AS count`).
		Scan(&totals).Error; err != nil {
		return inventory.TransactionStatistics{}, err
	}
	return inventory.NewTransactionStatistics(totals.TotalIn, totals.TotalOut, totals.TotalAdjust, totals.Count), nil
}

// applyFilter applies transaction filter conditions without pagination
func (r *GormInventoryTransactionRepository) applyFilter(query *gorm.DB, filter inventory.TransactionFilter) *gorm.DB {
	if filter.MaterialID != nil {
		query = query.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.ChangeType != nil {
		query = query.Where("change_type = ?", filter.ChangeType.String())
	}
	if filter.ReferenceType != nil {
		query = query.Where("reference_type = ?", filter.ReferenceType.String())
	}
	if filter.ReferenceID != nil {
		query = query.Where("reference_id = ?", *filter.ReferenceID)
	}
	if filter.From != nil {
		query = query.Where("transaction_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("transaction_time <= ?", *filter.To)
	}
	return query
}

func transactionsToDomain(ms []models.InventoryTransactionModel) []inventory.InventoryTransaction {
	out := make([]inventory.InventoryTransaction, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}

// Ensure GormInventoryTransactionRepository implements inventory.TransactionRepository
var _ inventory.TransactionRepository = (*GormInventoryTransactionRepository)(nil)
