package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// InventoryDetail is the on-hand quantity of one batch at one bin.
// A batch has at most one detail row; quantity is never negative.
type InventoryDetail struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	MaterialID  uuid.UUID
	BinID       *uuid.UUID
	Quantity    int64
	LastUpdated time.Time
}

// NewInventoryDetail creates an empty detail row for a batch.
func NewInventoryDetail(batchID, materialID uuid.UUID, binID *uuid.UUID, now time.Time) *InventoryDetail {
	return &InventoryDetail{
		ID:          uuid.New(),
		BatchID:     batchID,
		MaterialID:  materialID,
		BinID:       binID,
		Quantity:    0,
		LastUpdated: now,
	}
}

// Increase adds delta units. delta must be positive.
func (d *InventoryDetail) Increase(delta int64, asOf time.Time) error {
	if delta <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Increase quantity must be positive")
	}
	d.Quantity += delta
	d.LastUpdated = asOf
	return nil
}

// Decrease removes delta units, failing without mutation when fewer than
// delta units are on hand.
func (d *InventoryDetail) Decrease(delta int64, asOf time.Time) error {
	if delta <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Decrease quantity must be positive")
	}
	if d.Quantity < delta {
		return &InsufficientStockError{
			BatchID:   d.BatchID,
			Available: d.Quantity,
			Requested: delta,
		}
	}
	d.Quantity -= delta
	d.LastUpdated = asOf
	return nil
}

// SetQuantity overwrites the on-hand quantity (stocktake) and returns the
// signed difference.
func (d *InventoryDetail) SetQuantity(quantity int64, asOf time.Time) (int64, error) {
	if quantity < 0 {
		return 0, shared.NewDomainError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	diff := quantity - d.Quantity
	d.Quantity = quantity
	d.LastUpdated = asOf
	return diff, nil
}

// Relocate moves the batch to another bin.
func (d *InventoryDetail) Relocate(binID *uuid.UUID, asOf time.Time) {
	d.BinID = binID
	d.LastUpdated = asOf
}
