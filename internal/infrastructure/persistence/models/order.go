package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderHeaderModel holds the columns shared by both order tables.
type OrderHeaderModel struct {
	BaseModel
	OrderNumber   string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	OrderDate     time.Time `gorm:"not null"`
	Creator       string    `gorm:"type:varchar(100);not null"`
	Remark        string    `gorm:"type:text"`
	TotalQuantity int64     `gorm:"not null;default:0"`
}

func (m *OrderHeaderModel) toDomain() order.Header {
	return order.Header{
		BaseEntity:    m.BaseModel.ToDomain(),
		OrderNumber:   m.OrderNumber,
		OrderDate:     m.OrderDate,
		Creator:       m.Creator,
		Remark:        m.Remark,
		TotalQuantity: m.TotalQuantity,
	}
}

func (m *OrderHeaderModel) fromDomain(h order.Header) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.OrderNumber = h.OrderNumber
	m.OrderDate = h.OrderDate
	m.Creator = h.Creator
	m.Remark = h.Remark
	m.TotalQuantity = h.TotalQuantity
}

// InboundOrderModel is the persistence model for inbound order headers.
type InboundOrderModel struct {
	OrderHeaderModel
	SupplierID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (InboundOrderModel) TableName() string {
	return "inbound_orders"
}

// ToDomain converts the header and the given items to a domain InboundOrder.
func (m *InboundOrderModel) ToDomain(items []InboundOrderItemModel) *order.InboundOrder {
	o := &order.InboundOrder{
		Header:     m.toDomain(),
		SupplierID: m.SupplierID,
		Items:      make([]order.InboundOrderItem, len(items)),
	}
	for i := range items {
		o.Items[i] = *items[i].ToDomain()
	}
	return o
}

// InboundOrderModelFromDomain creates a header model from a domain order.
func InboundOrderModelFromDomain(o *order.InboundOrder) *InboundOrderModel {
	m := &InboundOrderModel{SupplierID: o.SupplierID}
	m.fromDomain(o.Header)
	return m
}

// InboundOrderItemModel is the persistence model for inbound order lines.
type InboundOrderItemModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID    uuid.UUID       `gorm:"type:uuid;not null"`
	BatchID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	BinID         *uuid.UUID      `gorm:"type:uuid"`
	Quantity      int64           `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Unit          string          `gorm:"type:varchar(32)"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InboundOrderItemModel) TableName() string {
	return "inbound_order_items"
}

// ToDomain converts the persistence model to a domain InboundOrderItem.
func (m *InboundOrderItemModel) ToDomain() *order.InboundOrderItem {
	return &order.InboundOrderItem{
		ID:            m.ID,
		OrderID:       m.OrderID,
		MaterialID:    m.MaterialID,
		BatchID:       m.BatchID,
		BinID:         m.BinID,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		Unit:          m.Unit,
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// InboundOrderItemModelFromDomain creates a persistence model from a domain line.
func InboundOrderItemModelFromDomain(it *order.InboundOrderItem) *InboundOrderItemModel {
	return &InboundOrderItemModel{
		ID:            it.ID,
		OrderID:       it.OrderID,
		MaterialID:    it.MaterialID,
		BatchID:       it.BatchID,
		BinID:         it.BinID,
		Quantity:      it.Quantity,
		UnitPrice:     it.UnitPrice,
		Unit:          it.Unit,
		TransactionID: it.TransactionID,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}

// OutboundOrderModel is the persistence model for outbound order headers.
type OutboundOrderModel struct {
	OrderHeaderModel
	CustomerID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (OutboundOrderModel) TableName() string {
	return "outbound_orders"
}

// ToDomain converts the header and the given items to a domain OutboundOrder.
func (m *OutboundOrderModel) ToDomain(items []OutboundOrderItemModel) *order.OutboundOrder {
	o := &order.OutboundOrder{
		Header:     m.toDomain(),
		CustomerID: m.CustomerID,
		Items:      make([]order.OutboundOrderItem, len(items)),
	}
	for i := range items {
		o.Items[i] = *items[i].ToDomain()
	}
	return o
}

// OutboundOrderModelFromDomain creates a header model from a domain order.
func OutboundOrderModelFromDomain(o *order.OutboundOrder) *OutboundOrderModel {
	m := &OutboundOrderModel{CustomerID: o.CustomerID}
	m.fromDomain(o.Header)
	return m
}

// OutboundOrderItemModel is the persistence model for outbound order lines.
type OutboundOrderItemModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	BatchID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	MaterialID    uuid.UUID  `gorm:"type:uuid;not null"`
	BinID         *uuid.UUID `gorm:"type:uuid"`
	Quantity      int64      `gorm:"not null"`
	TransactionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboundOrderItemModel) TableName() string {
	return "outbound_order_items"
}

// ToDomain converts the persistence model to a domain OutboundOrderItem.
func (m *OutboundOrderItemModel) ToDomain() *order.OutboundOrderItem {
	return &order.OutboundOrderItem{
		ID:            m.ID,
		OrderID:       m.OrderID,
		BatchID:       m.BatchID,
		MaterialID:    m.MaterialID,
		BinID:         m.BinID,
		Quantity:      m.Quantity,
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// OutboundOrderItemModelFromDomain creates a persistence model from a domain line.
func OutboundOrderItemModelFromDomain(it *order.OutboundOrderItem) *OutboundOrderItemModel {
	return &OutboundOrderItemModel{
		ID:            it.ID,
		OrderID:       it.OrderID,
		BatchID:       it.BatchID,
		MaterialID:    it.MaterialID,
		BinID:         it.BinID,
		Quantity:      it.Quantity,
		TransactionID: it.TransactionID,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}
