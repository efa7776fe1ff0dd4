package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// All lists every model in dependency order. Tests migrate it onto SQLite;
// production schemas come from the SQL migrations.
func All() []any {
	return []any{
		&MaterialModel{},
		&BinModel{},
		&InventoryBatchModel{},
		&InventoryDetailModel{},
		&InventoryTransactionModel{},
		&InboundOrderModel{},
		&InboundOrderItemModel{},
		&OutboundOrderModel{},
		&OutboundOrderItemModel{},
	}
}
