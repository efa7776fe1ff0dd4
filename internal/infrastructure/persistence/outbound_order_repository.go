package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboundOrderRepository implements order.OutboundOrderRepository using GORM
type GormOutboundOrderRepository struct {
	db *gorm.DB
}

// NewGormOutboundOrderRepository creates a new GormOutboundOrderRepository
func NewGormOutboundOrderRepository(db *gorm.DB) *GormOutboundOrderRepository {
	return &GormOutboundOrderRepository{db: db}
}

// FindByID loads an outbound order with its items
func (r *GormOutboundOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.OutboundOrder, error) {
	return r.find(ctx, id, false)
}

// FindByIDForUpdate loads an outbound order and locks its header row until
// the enclosing transaction ends.
func (r *GormOutboundOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.OutboundOrder, error) {
	return r.find(ctx, id, true)
}

func (r *GormOutboundOrderRepository) find(ctx context.Context, id uuid.UUID, lock bool) (*order.OutboundOrder, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m models.OutboundOrderModel
	if err := query.Take(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	var items []models.OutboundOrderItemModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return m.ToDomain(items), nil
}

// ExistsByOrderNumber checks if an order number is taken
func (r *GormOutboundOrderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OutboundOrderModel{}).
		Where("order_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveHeader creates or updates the order row
func (r *GormOutboundOrderRepository) SaveHeader(ctx context.Context, o *order.OutboundOrder) error {
	return translateError(r.db.WithContext(ctx).Save(models.OutboundOrderModelFromDomain(o)).Error)
}

// SaveItem creates or updates an order line
func (r *GormOutboundOrderRepository) SaveItem(ctx context.Context, item *order.OutboundOrderItem) error {
	return translateError(r.db.WithContext(ctx).Save(models.OutboundOrderItemModelFromDomain(item)).Error)
}

// DeleteItem deletes an order line
func (r *GormOutboundOrderRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.OutboundOrderItemModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateItemMaterialByBatchID rewrites the material of every line drawing from a batch
func (r *GormOutboundOrderRepository) UpdateItemMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboundOrderItemModel{}).
		Where("batch_id = ?", batchID).
		Update("material_id", materialID).Error
}

// Delete deletes an order and its remaining lines
func (r *GormOutboundOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&models.OutboundOrderItemModel{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.OutboundOrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// blockingOrderRow is the scan target of FindBlockingOrders.
type blockingOrderRow struct {
	OrderID     uuid.UUID
	OrderNumber string
	ItemCount   int64
	Quantity    int64
}

// FindBlockingOrders lists the outbound orders that still draw from a batch,
// with the number of lines and total quantity per order.
func (r *GormOutboundOrderRepository) FindBlockingOrders(ctx context.Context, batchID uuid.UUID) ([]inventory.BlockingOrder, error) {
	var rows []blockingOrderRow
	if err := r.db.WithContext(ctx).
		Table("outbound_order_items AS i").
		Select("o.id AS order_id, o.order_number AS order_number, COUNT(i.id) AS item_count, COALESCE(SUM(i.quantity), 0) AS quantity").
		Joins("JOIN outbound_orders AS o ON o.id = i.order_id").
		Where("i.batch_id = ?", batchID).
		Group("o.id, o.order_number").
		Order("o.order_number").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.BlockingOrder, len(rows))
	for i, row := range rows {
		out[i] = inventory.BlockingOrder{
			OrderID:     row.OrderID,
			OrderNumber: row.OrderNumber,
			ItemCount:   row.ItemCount,
			Quantity:    row.Quantity,
		}
	}
	return out, nil
}

// Ensure GormOutboundOrderRepository implements order.OutboundOrderRepository
var _ order.OutboundOrderRepository = (*GormOutboundOrderRepository)(nil)
