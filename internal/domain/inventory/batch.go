package inventory

import (
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryBatch is one receipt lot of one material. It carries the cost
// basis and provenance of every unit received under its batch number.
type InventoryBatch struct {
	shared.BaseEntity
	BatchNumber    string
	MaterialID     uuid.UUID
	Unit           string
	UnitPrice      decimal.Decimal
	ProductionDate *time.Time
	SupplierID     *uuid.UUID
	InboundDate    time.Time
	Creator        string
	DeletedAt      *time.Time
}

// NewBatchInput carries the attributes of a new batch.
type NewBatchInput struct {
	BatchNumber    string
	MaterialID     uuid.UUID
	Unit           string
	UnitPrice      decimal.Decimal
	ProductionDate *time.Time
	SupplierID     *uuid.UUID
	InboundDate    time.Time
	Creator        string
}

// NewInventoryBatch validates input and builds a batch stamped at now.
// The batch number is normalized; uniqueness is checked by the registry.
func NewInventoryBatch(in NewBatchInput, now time.Time) (*InventoryBatch, error) {
	number := NormalizeDocumentNumber(in.BatchNumber)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if len(number) > MaxDocumentNumberLength {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number is too long")
	}
	if in.MaterialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if in.UnitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	if strings.TrimSpace(in.Creator) == "" {
		return nil, shared.NewDomainError("INVALID_CREATOR", "Creator cannot be empty")
	}

	inboundDate := in.InboundDate
	if inboundDate.IsZero() {
		inboundDate = now
	}

	return &InventoryBatch{
		BaseEntity:     shared.NewBaseEntityAt(now),
		BatchNumber:    number,
		MaterialID:     in.MaterialID,
		Unit:           strings.TrimSpace(in.Unit),
		UnitPrice:      in.UnitPrice,
		ProductionDate: in.ProductionDate,
		SupplierID:     in.SupplierID,
		InboundDate:    inboundDate,
		Creator:        in.Creator,
	}, nil
}

// BatchFieldUpdate lists the batch attributes an inbound item edit may change.
// Nil fields are left untouched.
type BatchFieldUpdate struct {
	UnitPrice      *decimal.Decimal
	ProductionDate *time.Time
	MaterialID     *uuid.UUID
	Unit           *string
}

// IsEmpty reports whether the update changes nothing.
func (u BatchFieldUpdate) IsEmpty() bool {
	return u.UnitPrice == nil && u.ProductionDate == nil && u.MaterialID == nil && u.Unit == nil
}

// Apply writes the supplied fields onto the batch and reports whether the
// material changed. Dependent detail and transaction rows are not touched here.
func (b *InventoryBatch) Apply(u BatchFieldUpdate, now time.Time) (materialChanged bool, err error) {
	if u.UnitPrice != nil {
		if u.UnitPrice.IsNegative() {
			return false, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
		}
		b.UnitPrice = *u.UnitPrice
	}
	if u.ProductionDate != nil {
		d := *u.ProductionDate
		b.ProductionDate = &d
	}
	if u.Unit != nil {
		b.Unit = strings.TrimSpace(*u.Unit)
	}
	if u.MaterialID != nil {
		if *u.MaterialID == uuid.Nil {
			return false, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
		}
		if *u.MaterialID != b.MaterialID {
			b.MaterialID = *u.MaterialID
			materialChanged = true
		}
	}
	b.Touch(now)
	return materialChanged, nil
}

// Value returns quantity * unit price.
func (b *InventoryBatch) Value(quantity int64) decimal.Decimal {
	return b.UnitPrice.Mul(decimal.NewFromInt(quantity))
}
