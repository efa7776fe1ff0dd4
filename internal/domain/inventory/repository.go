package inventory

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// BatchFilter narrows batch listings.
type BatchFilter struct {
	shared.Filter
	MaterialID *uuid.UUID
	SupplierID *uuid.UUID
	// BatchNumber matches as a prefix.
	BatchNumber string
}

// BatchRepository persists InventoryBatch rows.
type BatchRepository interface {
	// FindByID returns shared.ErrNotFound when the batch does not exist or is deleted.
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryBatch, error)

	// FindByIDs returns the live batches among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]InventoryBatch, error)

	// FindByBatchNumber looks up a live batch by its normalized number.
	FindByBatchNumber(ctx context.Context, batchNumber string) (*InventoryBatch, error)

	// ExistsByBatchNumber also counts soft-deleted batches: numbers are never reused.
	ExistsByBatchNumber(ctx context.Context, batchNumber string) (bool, error)

	// CountByBatchNumberPrefix counts batches (deleted included) whose number starts with prefix.
	CountByBatchNumberPrefix(ctx context.Context, prefix string) (int64, error)

	FindAll(ctx context.Context, filter BatchFilter) ([]InventoryBatch, int64, error)

	// Save creates or updates a batch. A batch number collision returns shared.ErrAlreadyExists.
	Save(ctx context.Context, batch *InventoryBatch) error

	// SoftDelete marks the batch deleted; its number stays reserved.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// DetailRepository persists InventoryDetail rows. A batch has at most one row.
type DetailRepository interface {
	// FindByBatchID returns shared.ErrNotFound when the batch has no detail row.
	FindByBatchID(ctx context.Context, batchID uuid.UUID) (*InventoryDetail, error)

	// FindByBatchIDForUpdate is FindByBatchID holding a row lock until the
	// enclosing transaction ends.
	FindByBatchIDForUpdate(ctx context.Context, batchID uuid.UUID) (*InventoryDetail, error)

	// FindByBatchIDsForUpdate locks the rows of several batches in batch_id order.
	FindByBatchIDsForUpdate(ctx context.Context, batchIDs []uuid.UUID) ([]InventoryDetail, error)

	FindByMaterialID(ctx context.Context, materialID uuid.UUID) ([]InventoryDetail, error)

	SumQuantityByMaterial(ctx context.Context, materialID uuid.UUID) (int64, error)

	Save(ctx context.Context, detail *InventoryDetail) error

	// UpdateMaterialByBatchID rewrites the denormalized material of a batch's row.
	UpdateMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error

	DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error
}

// TransactionFilter narrows ledger searches and statistics.
type TransactionFilter struct {
	shared.Filter
	MaterialID    *uuid.UUID
	BatchID       *uuid.UUID
	ChangeType    *ChangeType
	ReferenceType *ReferenceType
	ReferenceID   *uuid.UUID
	From          *time.Time
	To            *time.Time
}

// DefaultTransactionFilter sorts newest first.
func DefaultTransactionFilter() TransactionFilter {
	f := shared.DefaultFilter()
	f.OrderBy = "transaction_time"
	return TransactionFilter{Filter: f}
}

// TransactionRepository persists InventoryTransaction rows.
type TransactionRepository interface {
	// FindByID returns shared.ErrNotFound when the row does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryTransaction, error)

	// Find returns one page of matching rows and the total match count.
	Find(ctx context.Context, filter TransactionFilter) ([]InventoryTransaction, int64, error)

	// FindByBatchID returns every row of a batch in transaction_time order.
	FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]InventoryTransaction, error)

	Create(ctx context.Context, tx *InventoryTransaction) error

	// Update rewrites the mutable columns. transaction_time is never written.
	Update(ctx context.Context, tx *InventoryTransaction) error

	Delete(ctx context.Context, id uuid.UUID) error

	DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error

	// UpdateMaterialByBatchID rewrites the denormalized material of a batch's rows.
	UpdateMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error

	// Statistics aggregates every row matching filter; paging is ignored.
	Statistics(ctx context.Context, filter TransactionFilter) (TransactionStatistics, error)
}

// OutboundUsageReader reports which outbound orders still reference a batch.
// It is implemented by the order persistence layer.
type OutboundUsageReader interface {
	FindBlockingOrders(ctx context.Context, batchID uuid.UUID) ([]BlockingOrder, error)
}
