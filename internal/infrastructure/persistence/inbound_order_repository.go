package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInboundOrderRepository implements order.InboundOrderRepository using GORM
type GormInboundOrderRepository struct {
	db *gorm.DB
}

// NewGormInboundOrderRepository creates a new GormInboundOrderRepository
func NewGormInboundOrderRepository(db *gorm.DB) *GormInboundOrderRepository {
	return &GormInboundOrderRepository{db: db}
}

// FindByID loads an inbound order with its items
func (r *GormInboundOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.InboundOrder, error) {
	return r.find(ctx, id, false)
}

// FindByIDForUpdate loads an inbound order and locks its header row until
// the enclosing transaction ends.
func (r *GormInboundOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.InboundOrder, error) {
	return r.find(ctx, id, true)
}

func (r *GormInboundOrderRepository) find(ctx context.Context, id uuid.UUID, lock bool) (*order.InboundOrder, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m models.InboundOrderModel
	if err := query.Take(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	var items []models.InboundOrderItemModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return m.ToDomain(items), nil
}

// ExistsByOrderNumber checks if an order number is taken
func (r *GormInboundOrderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InboundOrderModel{}).
		Where("order_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveHeader creates or updates the order row
func (r *GormInboundOrderRepository) SaveHeader(ctx context.Context, o *order.InboundOrder) error {
	return translateError(r.db.WithContext(ctx).Save(models.InboundOrderModelFromDomain(o)).Error)
}

// SaveItem creates or updates an order line
func (r *GormInboundOrderRepository) SaveItem(ctx context.Context, item *order.InboundOrderItem) error {
	return translateError(r.db.WithContext(ctx).Save(models.InboundOrderItemModelFromDomain(item)).Error)
}

// DeleteItem deletes an order line
func (r *GormInboundOrderRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InboundOrderItemModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes an order and its remaining lines
func (r *GormInboundOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&models.InboundOrderItemModel{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.InboundOrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormInboundOrderRepository implements order.InboundOrderRepository
var _ order.InboundOrderRepository = (*GormInboundOrderRepository)(nil)
