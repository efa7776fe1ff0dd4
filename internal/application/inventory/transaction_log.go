package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionLog writes and queries InventoryTransaction rows.
type TransactionLog struct {
	transactions inventory.TransactionRepository
	materials    masterdata.MaterialRepository
	batches      inventory.BatchRepository
	clock        shared.Clock
}

// NewTransactionLog creates a TransactionLog.
func NewTransactionLog(
	transactions inventory.TransactionRepository,
	materials masterdata.MaterialRepository,
	batches inventory.BatchRepository,
	clock shared.Clock,
) *TransactionLog {
	return &TransactionLog{
		transactions: transactions,
		materials:    materials,
		batches:      batches,
		clock:        clock,
	}
}

// checkReferences verifies that the material and batch a row points at exist.
func (l *TransactionLog) checkReferences(ctx context.Context, materialID, batchID uuid.UUID) error {
	ok, err := l.materials.Exists(ctx, materialID)
	if err != nil {
		return fmt.Errorf("check material: %w", err)
	}
	if !ok {
		return inventory.NewMaterialNotFoundError(materialID)
	}
	if _, err := l.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return inventory.NewBatchNotFoundError(batchID)
		}
		return fmt.Errorf("check batch: %w", err)
	}
	return nil
}

// Append validates and inserts a ledger row. TransactionTime comes from the
// log's clock, never from the caller.
func (l *TransactionLog) Append(ctx context.Context, in inventory.TransactionInput) (*inventory.InventoryTransaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := l.checkReferences(ctx, in.MaterialID, in.BatchID); err != nil {
		return nil, err
	}
	tx, err := inventory.NewInventoryTransaction(in, l.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := l.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create inventory transaction: %w", err)
	}
	return tx, nil
}

// Get returns one row or TRANSACTION_NOT_FOUND.
func (l *TransactionLog) Get(ctx context.Context, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	tx, err := l.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(inventory.CodeTransactionNotFound,
				fmt.Sprintf("Inventory transaction %s not found", id))
		}
		return nil, err
	}
	return tx, nil
}

// Find returns one page of rows, newest first unless asked otherwise.
func (l *TransactionLog) Find(ctx context.Context, filter inventory.TransactionFilter) (shared.Paginated[inventory.InventoryTransaction], error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "transaction_time"
	}
	filter.Filter = filter.Filter.Normalize()

	rows, total, err := l.transactions.Find(ctx, filter)
	if err != nil {
		return shared.Paginated[inventory.InventoryTransaction]{}, err
	}
	return shared.NewPaginated(rows, total, filter.Page, filter.PageSize), nil
}

// Update corrects a row in place. Only the fields of TransactionUpdate can
// change; the transaction time is kept.
func (l *TransactionLog) Update(ctx context.Context, id uuid.UUID, u inventory.TransactionUpdate) (*inventory.InventoryTransaction, error) {
	tx, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Apply(u); err != nil {
		return nil, err
	}
	if u.MaterialID != nil || u.BatchID != nil {
		if err := l.checkReferences(ctx, tx.MaterialID, tx.BatchID); err != nil {
			return nil, err
		}
	}
	if err := l.transactions.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("update inventory transaction: %w", err)
	}
	return tx, nil
}

// Delete removes one row.
func (l *TransactionLog) Delete(ctx context.Context, id uuid.UUID) error {
	if err := l.transactions.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(inventory.CodeTransactionNotFound,
				fmt.Sprintf("Inventory transaction %s not found", id))
		}
		return fmt.Errorf("delete inventory transaction: %w", err)
	}
	return nil
}

// Statistics aggregates every row matching filter.
func (l *TransactionLog) Statistics(ctx context.Context, filter inventory.TransactionFilter) (inventory.TransactionStatistics, error) {
	return l.transactions.Statistics(ctx, filter)
}

// History returns every row of a batch in time order.
func (l *TransactionLog) History(ctx context.Context, batchID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	return l.transactions.FindByBatchID(ctx, batchID)
}
