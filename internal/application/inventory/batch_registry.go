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

// maxBatchNumberAttempts bounds the search for a free generated batch number.
const maxBatchNumberAttempts = 50

// BatchRegistry creates, edits and retires InventoryBatch records.
type BatchRegistry struct {
	batches      inventory.BatchRepository
	details      inventory.DetailRepository
	transactions inventory.TransactionRepository
	usage        inventory.OutboundUsageReader
	clock        shared.Clock
}

// NewBatchRegistry creates a BatchRegistry over the given repositories.
func NewBatchRegistry(
	batches inventory.BatchRepository,
	details inventory.DetailRepository,
	transactions inventory.TransactionRepository,
	usage inventory.OutboundUsageReader,
	clock shared.Clock,
) *BatchRegistry {
	return &BatchRegistry{
		batches:      batches,
		details:      details,
		transactions: transactions,
		usage:        usage,
		clock:        clock,
	}
}

// Create registers a new batch. The pre-insert lookup gives a friendly
// error; the unique index on batch_number is what actually guards races.
func (r *BatchRegistry) Create(ctx context.Context, in inventory.NewBatchInput) (*inventory.InventoryBatch, error) {
	batch, err := inventory.NewInventoryBatch(in, r.clock.Now())
	if err != nil {
		return nil, err
	}

	exists, err := r.batches.ExistsByBatchNumber(ctx, batch.BatchNumber)
	if err != nil {
		return nil, fmt.Errorf("check batch number: %w", err)
	}
	if exists {
		return nil, inventory.NewDuplicateBatchNumberError(batch.BatchNumber)
	}

	if err := r.batches.Save(ctx, batch); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, inventory.NewDuplicateBatchNumberError(batch.BatchNumber)
		}
		return nil, fmt.Errorf("save batch: %w", err)
	}
	return batch, nil
}

// Get returns a live batch or BATCH_NOT_FOUND.
func (r *BatchRegistry) Get(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	batch, err := r.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.NewBatchNotFoundError(id)
		}
		return nil, err
	}
	return batch, nil
}

// UpdateFields writes the supplied batch attributes. When the material
// changes the caller must rewrite the dependent detail and ledger rows.
func (r *BatchRegistry) UpdateFields(ctx context.Context, id uuid.UUID, u inventory.BatchFieldUpdate) (*inventory.InventoryBatch, bool, error) {
	batch, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if u.IsEmpty() {
		return batch, false, nil
	}
	materialChanged, err := batch.Apply(u, r.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if err := r.batches.Save(ctx, batch); err != nil {
		return nil, false, fmt.Errorf("save batch: %w", err)
	}
	return batch, materialChanged, nil
}

// EnsureDeletable fails with BatchInUseError when outbound items still
// reference the batch. It performs no writes.
func (r *BatchRegistry) EnsureDeletable(ctx context.Context, batch *inventory.InventoryBatch) error {
	blocking, err := r.usage.FindBlockingOrders(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("find outbound references: %w", err)
	}
	if len(blocking) > 0 {
		return &inventory.BatchInUseError{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Blocking:    blocking,
		}
	}
	return nil
}

// Delete retires a batch together with its ledger rows, in the order
// transactions, detail, batch. The batch row is soft-deleted so its number
// stays reserved.
func (r *BatchRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	batch, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.EnsureDeletable(ctx, batch); err != nil {
		return err
	}
	if err := r.transactions.DeleteByBatchID(ctx, id); err != nil {
		return fmt.Errorf("delete batch transactions: %w", err)
	}
	if err := r.details.DeleteByBatchID(ctx, id); err != nil {
		return fmt.Errorf("delete batch detail: %w", err)
	}
	if err := r.batches.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

// NextBatchNumber returns the first unused number of the form
// <MATERIAL>-<YYYYMMDD><NNN>. reserved holds numbers already claimed by the
// current request and not yet written.
func (r *BatchRegistry) NextBatchNumber(ctx context.Context, materialCode string, day time.Time, reserved map[string]struct{}) (string, error) {
	prefix := inventory.BatchNumberPrefix(materialCode, day)
	count, err := r.batches.CountByBatchNumberPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("count batch numbers: %w", err)
	}

	for seq := int(count) + 1; seq <= int(count)+maxBatchNumberAttempts; seq++ {
		candidate := inventory.FormatBatchNumber(prefix, seq)
		if _, taken := reserved[candidate]; taken {
			continue
		}
		exists, err := r.batches.ExistsByBatchNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check batch number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", shared.NewDomainError(inventory.CodeDuplicateBatchNumber,
		fmt.Sprintf("No free batch number under prefix %s", prefix))
}
