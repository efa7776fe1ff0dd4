package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryBatchModel is the persistence model for the InventoryBatch entity.
// Deleted batches keep their row so the unique batch number stays taken.
type InventoryBatchModel struct {
	BaseModel
	BatchNumber    string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_inventory_batches_batch_number"`
	MaterialID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Unit           string          `gorm:"type:varchar(32)"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ProductionDate *time.Time      `gorm:"type:date"`
	SupplierID     *uuid.UUID      `gorm:"type:uuid;index"`
	InboundDate    time.Time       `gorm:"not null"`
	Creator        string          `gorm:"type:varchar(100);not null"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

// TableName returns the table name for GORM
func (InventoryBatchModel) TableName() string {
	return "inventory_batches"
}

// ToDomain converts the persistence model to a domain InventoryBatch.
func (m *InventoryBatchModel) ToDomain() *inventory.InventoryBatch {
	b := &inventory.InventoryBatch{
		BaseEntity:     m.BaseModel.ToDomain(),
		BatchNumber:    m.BatchNumber,
		MaterialID:     m.MaterialID,
		Unit:           m.Unit,
		UnitPrice:      m.UnitPrice,
		ProductionDate: m.ProductionDate,
		SupplierID:     m.SupplierID,
		InboundDate:    m.InboundDate,
		Creator:        m.Creator,
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		b.DeletedAt = &t
	}
	return b
}

// InventoryBatchModelFromDomain creates a persistence model from a domain batch.
func InventoryBatchModelFromDomain(b *inventory.InventoryBatch) *InventoryBatchModel {
	m := &InventoryBatchModel{
		BatchNumber:    b.BatchNumber,
		MaterialID:     b.MaterialID,
		Unit:           b.Unit,
		UnitPrice:      b.UnitPrice,
		ProductionDate: b.ProductionDate,
		SupplierID:     b.SupplierID,
		InboundDate:    b.InboundDate,
		Creator:        b.Creator,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	if b.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *b.DeletedAt, Valid: true}
	}
	return m
}

// InventoryDetailModel is the persistence model for InventoryDetail. The
// unique index on batch_id allows one stock row per batch.
type InventoryDetailModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	BatchID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_details_batch_id"`
	MaterialID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	BinID       *uuid.UUID `gorm:"type:uuid;index"`
	Quantity    int64      `gorm:"not null;default:0;check:chk_inventory_details_quantity,quantity >= 0"`
	LastUpdated time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryDetailModel) TableName() string {
	return "inventory_details"
}

// ToDomain converts the persistence model to a domain InventoryDetail.
func (m *InventoryDetailModel) ToDomain() *inventory.InventoryDetail {
	return &inventory.InventoryDetail{
		ID:          m.ID,
		BatchID:     m.BatchID,
		MaterialID:  m.MaterialID,
		BinID:       m.BinID,
		Quantity:    m.Quantity,
		LastUpdated: m.LastUpdated,
	}
}

// InventoryDetailModelFromDomain creates a persistence model from a domain detail.
func InventoryDetailModelFromDomain(d *inventory.InventoryDetail) *InventoryDetailModel {
	return &InventoryDetailModel{
		ID:          d.ID,
		BatchID:     d.BatchID,
		MaterialID:  d.MaterialID,
		BinID:       d.BinID,
		Quantity:    d.Quantity,
		LastUpdated: d.LastUpdated,
	}
}

// InventoryTransactionModel is the persistence model for ledger rows.
type InventoryTransactionModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	MaterialID      uuid.UUID `gorm:"type:uuid;not null;index"`
	BatchID         uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_transactions_batch_time,priority:1"`
	ChangeType      string    `gorm:"type:varchar(10);not null;index"`
	QuantityChange  int64     `gorm:"not null"`
	QuantityBefore  int64     `gorm:"not null"`
	QuantityAfter   int64     `gorm:"not null"`
	ReferenceType   string    `gorm:"type:varchar(20);not null;index:idx_inventory_transactions_reference,priority:1"`
	ReferenceID     uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_transactions_reference,priority:2"`
	Creator         string    `gorm:"type:varchar(100);not null"`
	TransactionTime time.Time `gorm:"not null;index:idx_inventory_transactions_batch_time,priority:2"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain InventoryTransaction.
func (m *InventoryTransactionModel) ToDomain() *inventory.InventoryTransaction {
	return &inventory.InventoryTransaction{
		ID:              m.ID,
		MaterialID:      m.MaterialID,
		BatchID:         m.BatchID,
		ChangeType:      inventory.ChangeType(m.ChangeType),
		QuantityChange:  m.QuantityChange,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		ReferenceType:   inventory.ReferenceType(m.ReferenceType),
		ReferenceID:     m.ReferenceID,
		Creator:         m.Creator,
		TransactionTime: m.TransactionTime,
	}
}

// InventoryTransactionModelFromDomain creates a persistence model from a ledger row.
func InventoryTransactionModelFromDomain(t *inventory.InventoryTransaction) *InventoryTransactionModel {
	return &InventoryTransactionModel{
		ID:              t.ID,
		MaterialID:      t.MaterialID,
		BatchID:         t.BatchID,
		ChangeType:      t.ChangeType.String(),
		QuantityChange:  t.QuantityChange,
		QuantityBefore:  t.QuantityBefore,
		QuantityAfter:   t.QuantityAfter,
		ReferenceType:   t.ReferenceType.String(),
		ReferenceID:     t.ReferenceID,
		Creator:         t.Creator,
		TransactionTime: t.TransactionTime,
	}
}
