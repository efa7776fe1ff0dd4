package order

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
)

// OutboundOrder is an issuing document. Items draw from existing batches.
type OutboundOrder struct {
	Header
	CustomerID *uuid.UUID
	Items      []OutboundOrderItem
}

// OutboundOrderItem is one issued line. Material and bin are copied from the
// batch's detail row when the line is posted. It owns one OUT ledger row.
type OutboundOrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	BatchID       uuid.UUID
	MaterialID    uuid.UUID
	BinID         *uuid.UUID
	Quantity      int64
	TransactionID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboundOrder creates an empty outbound order. An empty number is generated.
func NewOutboundOrder(number string, customerID *uuid.UUID, orderDate time.Time, creator, remark string, now time.Time) (*OutboundOrder, error) {
	h, err := newHeader(number, OutboundNumberPrefix, creator, remark, orderDate, now)
	if err != nil {
		return nil, err
	}
	return &OutboundOrder{Header: h, CustomerID: customerID}, nil
}

// AddItem attaches a posted line and increments the order total.
func (o *OutboundOrder) AddItem(item OutboundOrderItem, now time.Time) (*OutboundOrderItem, error) {
	if err := validateQuantity(item.Quantity); err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.OrderID = o.ID
	item.CreatedAt = now
	item.UpdatedAt = now
	o.Items = append(o.Items, item)
	o.adjustTotal(item.Quantity, now)
	return &o.Items[len(o.Items)-1], nil
}

// FindItem returns the item with id, or an ORDER_ITEM_NOT_FOUND error.
func (o *OutboundOrder) FindItem(id uuid.UUID) (*OutboundOrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], nil
		}
	}
	return nil, NewOrderItemNotFoundError(id)
}

// ChangeItemQuantity sets a line's quantity and moves the total by the difference.
func (o *OutboundOrder) ChangeItemQuantity(id uuid.UUID, quantity int64, now time.Time) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	item, err := o.FindItem(id)
	if err != nil {
		return err
	}
	o.adjustTotal(quantity-item.Quantity, now)
	item.Quantity = quantity
	item.UpdatedAt = now
	return nil
}

// RemoveItem detaches a line and decrements the total.
func (o *OutboundOrder) RemoveItem(id uuid.UUID, now time.Time) (*OutboundOrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			removed := o.Items[i]
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.adjustTotal(-removed.Quantity, now)
			return &removed, nil
		}
	}
	return nil, NewOrderItemNotFoundError(id)
}

// OutboundOrderRepository persists outbound orders. It also answers which
// orders still reference a batch.
type OutboundOrderRepository interface {
	inventory.OutboundUsageReader

	// FindByID loads the order with its items; shared.ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*OutboundOrder, error)
	// FindByIDForUpdate is FindByID with the order row locked for the rest
	// of the transaction. Movements that change an existing order use it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*OutboundOrder, error)
	ExistsByOrderNumber(ctx context.Context, number string) (bool, error)
	// SaveHeader creates or updates the order row only.
	SaveHeader(ctx context.Context, order *OutboundOrder) error
	SaveItem(ctx context.Context, item *OutboundOrderItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	// UpdateItemMaterialByBatchID rewrites the denormalized material of every
	// item drawing from a batch.
	UpdateItemMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error
	// Delete removes the order and any remaining items.
	Delete(ctx context.Context, id uuid.UUID) error
}
