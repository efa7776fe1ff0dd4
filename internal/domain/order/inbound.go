package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InboundOrder is a receiving document. Every item creates one batch.
type InboundOrder struct {
	Header
	SupplierID *uuid.UUID
	Items      []InboundOrderItem
}

// InboundOrderItem is one received line. It owns the batch it created and
// the IN ledger row recorded for it.
type InboundOrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	MaterialID    uuid.UUID
	BatchID       uuid.UUID
	BinID         *uuid.UUID
	Quantity      int64
	UnitPrice     decimal.Decimal
	Unit          string
	TransactionID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewInboundOrder creates an empty inbound order. An empty number is generated.
func NewInboundOrder(number string, supplierID *uuid.UUID, orderDate time.Time, creator, remark string, now time.Time) (*InboundOrder, error) {
	h, err := newHeader(number, InboundNumberPrefix, creator, remark, orderDate, now)
	if err != nil {
		return nil, err
	}
	return &InboundOrder{Header: h, SupplierID: supplierID}, nil
}

// AddItem attaches a posted line and increments the order total.
func (o *InboundOrder) AddItem(item InboundOrderItem, now time.Time) (*InboundOrderItem, error) {
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
func (o *InboundOrder) FindItem(id uuid.UUID) (*InboundOrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], nil
		}
	}
	return nil, NewOrderItemNotFoundError(id)
}

// ChangeItemQuantity sets a line's quantity and moves the total by the difference.
func (o *InboundOrder) ChangeItemQuantity(id uuid.UUID, quantity int64, now time.Time) error {
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
func (o *InboundOrder) RemoveItem(id uuid.UUID, now time.Time) (*InboundOrderItem, error) {
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

// InboundOrderRepository persists inbound orders.
type InboundOrderRepository interface {
	// FindByID loads the order with its items; shared.ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*InboundOrder, error)
	// FindByIDForUpdate is FindByID with the order row locked for the rest
	// of the transaction. Movements that change an existing order use it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InboundOrder, error)
	ExistsByOrderNumber(ctx context.Context, number string) (bool, error)
	// SaveHeader creates or updates the order row only.
	SaveHeader(ctx context.Context, order *InboundOrder) error
	SaveItem(ctx context.Context, item *InboundOrderItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	// Delete removes the order and any remaining items.
	Delete(ctx context.Context, id uuid.UUID) error
}
