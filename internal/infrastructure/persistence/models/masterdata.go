package models

import (
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/google/uuid"
)

// MaterialModel is the persistence model for materials.
type MaterialModel struct {
	BaseModel
	Code string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(255);not null"`
	Unit string `gorm:"type:varchar(32)"`
}

// TableName returns the table name for GORM
func (MaterialModel) TableName() string {
	return "materials"
}

// ToDomain converts the persistence model to a domain Material.
func (m *MaterialModel) ToDomain() *masterdata.Material {
	return &masterdata.Material{
		ID:   m.ID,
		Code: m.Code,
		Name: m.Name,
		Unit: m.Unit,
	}
}

// BinModel is the persistence model for storage bins.
type BinModel struct {
	BaseModel
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Code        string    `gorm:"type:varchar(64);not null"`
}

// TableName returns the table name for GORM
func (BinModel) TableName() string {
	return "bins"
}

// ToDomain converts the persistence model to a domain Bin.
func (m *BinModel) ToDomain() *masterdata.Bin {
	return &masterdata.Bin{
		ID:          m.ID,
		WarehouseID: m.WarehouseID,
		Code:        m.Code,
	}
}
