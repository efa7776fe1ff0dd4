package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// StockChange is the outcome of one write to a detail row.
type StockChange struct {
	Detail *inventory.InventoryDetail
	Before int64
	After  int64
}

// StockLedger maintains InventoryDetail rows. Every mutating method locks
// the row before reading its quantity, so the check and the write happen in
// the same transaction with no other writer in between.
type StockLedger struct {
	details inventory.DetailRepository
}

// NewStockLedger creates a StockLedger.
func NewStockLedger(details inventory.DetailRepository) *StockLedger {
	return &StockLedger{details: details}
}

// GetQuantity returns the on-hand quantity of a batch, 0 when it has no row.
func (l *StockLedger) GetQuantity(ctx context.Context, batchID uuid.UUID) (int64, error) {
	d, err := l.details.FindByBatchID(ctx, batchID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return d.Quantity, nil
}

// lock returns the locked row of a batch, or nil when it has none.
func (l *StockLedger) lock(ctx context.Context, batchID uuid.UUID) (*inventory.InventoryDetail, error) {
	d, err := l.details.FindByBatchIDForUpdate(ctx, batchID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock inventory detail: %w", err)
	}
	return d, nil
}

// Increase adds delta to the batch's row, creating it at binID when absent.
func (l *StockLedger) Increase(ctx context.Context, batchID, materialID uuid.UUID, binID *uuid.UUID, delta int64, asOf time.Time) (*StockChange, error) {
	d, err := l.lock(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = inventory.NewInventoryDetail(batchID, materialID, binID, asOf)
	}
	before := d.Quantity
	if err := d.Increase(delta, asOf); err != nil {
		return nil, err
	}
	if err := l.details.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save inventory detail: %w", err)
	}
	return &StockChange{Detail: d, Before: before, After: d.Quantity}, nil
}

// Decrease removes delta from the batch's row. It fails with
// InsufficientStockError, without writing, if the row would go negative.
func (l *StockLedger) Decrease(ctx context.Context, batchID uuid.UUID, delta int64, asOf time.Time) (*StockChange, error) {
	d, err := l.lock(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &inventory.InsufficientStockError{BatchID: batchID, Available: 0, Requested: delta}
	}
	before := d.Quantity
	if err := d.Decrease(delta, asOf); err != nil {
		return nil, err
	}
	if err := l.details.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save inventory detail: %w", err)
	}
	return &StockChange{Detail: d, Before: before, After: d.Quantity}, nil
}

// Set overwrites the batch's quantity with a counted value.
func (l *StockLedger) Set(ctx context.Context, batchID, materialID uuid.UUID, quantity int64, asOf time.Time) (*StockChange, error) {
	d, err := l.lock(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = inventory.NewInventoryDetail(batchID, materialID, nil, asOf)
	}
	before := d.Quantity
	if _, err := d.SetQuantity(quantity, asOf); err != nil {
		return nil, err
	}
	if err := l.details.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save inventory detail: %w", err)
	}
	return &StockChange{Detail: d, Before: before, After: d.Quantity}, nil
}

// Relocate moves a batch's row to another bin.
func (l *StockLedger) Relocate(ctx context.Context, batchID uuid.UUID, binID *uuid.UUID, asOf time.Time) error {
	d, err := l.lock(ctx, batchID)
	if err != nil {
		return err
	}
	if d == nil {
		return inventory.NewBatchNotFoundError(batchID)
	}
	d.Relocate(binID, asOf)
	if err := l.details.Save(ctx, d); err != nil {
		return fmt.Errorf("save inventory detail: %w", err)
	}
	return nil
}

// LockMany locks the rows of several batches in a stable order and returns
// them keyed by batch id. Batches without a row are absent from the map.
func (l *StockLedger) LockMany(ctx context.Context, batchIDs []uuid.UUID) (map[uuid.UUID]*inventory.InventoryDetail, error) {
	rows, err := l.details.FindByBatchIDsForUpdate(ctx, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("lock inventory details: %w", err)
	}
	out := make(map[uuid.UUID]*inventory.InventoryDetail, len(rows))
	for i := range rows {
		out[rows[i].BatchID] = &rows[i]
	}
	return out, nil
}
