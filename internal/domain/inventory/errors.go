package inventory

import (
	"fmt"
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes raised by the ledger.
const (
	CodeDuplicateBatchNumber      = "DUPLICATE_BATCH_NUMBER"
	CodeInsufficientStock         = "INSUFFICIENT_STOCK"
	CodeBatchInUse                = "BATCH_IN_USE"
	CodeMaterialNotFound          = "MATERIAL_NOT_FOUND"
	CodeBinNotFound               = "BIN_NOT_FOUND"
	CodeBatchNotFound             = "BATCH_NOT_FOUND"
	CodeTransactionNotFound       = "TRANSACTION_NOT_FOUND"
	CodeIncompleteTransactionData = "INCOMPLETE_TRANSACTION_DATA"
)

// Sentinels for errors.Is checks. Errors built by the constructors below
// carry the same code and therefore match.
var (
	ErrDuplicateBatchNumber      = shared.NewDomainError(CodeDuplicateBatchNumber, "Batch number already exists")
	ErrInsufficientStock         = shared.NewDomainError(CodeInsufficientStock, "Insufficient stock")
	ErrBatchInUse                = shared.NewDomainError(CodeBatchInUse, "Batch is referenced by outbound orders")
	ErrMaterialNotFound          = shared.NewDomainError(CodeMaterialNotFound, "Material not found")
	ErrBinNotFound               = shared.NewDomainError(CodeBinNotFound, "Bin not found")
	ErrBatchNotFound             = shared.NewDomainError(CodeBatchNotFound, "Batch not found")
	ErrTransactionNotFound       = shared.NewDomainError(CodeTransactionNotFound, "Inventory transaction not found")
	ErrIncompleteTransactionData = shared.NewDomainError(CodeIncompleteTransactionData, "Incomplete transaction data")
)

// NewDuplicateBatchNumberError reports a batch number collision.
func NewDuplicateBatchNumberError(batchNumber string) *shared.DomainError {
	return shared.NewDomainError(CodeDuplicateBatchNumber,
		fmt.Sprintf("Batch number %s already exists", batchNumber))
}

// NewMaterialNotFoundError reports an unknown material.
func NewMaterialNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeMaterialNotFound, fmt.Sprintf("Material %s not found", id))
}

// NewBinNotFoundError reports an unknown bin.
func NewBinNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeBinNotFound, fmt.Sprintf("Bin %s not found", id))
}

// NewBatchNotFoundError reports an unknown batch.
func NewBatchNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeBatchNotFound, fmt.Sprintf("Batch %s not found", id))
}

// NewIncompleteTransactionDataError reports a ledger row that violates its
// write contract. It indicates a programming error in the caller.
func NewIncompleteTransactionDataError(reason string) *shared.DomainError {
	return shared.NewDomainError(CodeIncompleteTransactionData, "Incomplete transaction data: "+reason)
}

// InsufficientStockError is returned when a movement would drive a batch
// below zero. Material and batch labels are filled in by the caller that
// knows them.
type InsufficientStockError struct {
	BatchID      uuid.UUID `json:"batch_id"`
	BatchNumber  string    `json:"batch_number,omitempty"`
	MaterialID   uuid.UUID `json:"material_id,omitempty"`
	MaterialCode string    `json:"material_code,omitempty"`
	Available    int64     `json:"available"`
	Requested    int64     `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	label := e.BatchNumber
	if label == "" {
		label = e.BatchID.String()
	}
	if e.MaterialCode != "" {
		label = e.MaterialCode + " / " + label
	}
	return fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", label, e.Available, e.Requested)
}

// Unwrap exposes the error as a DomainError with the INSUFFICIENT_STOCK code.
func (e *InsufficientStockError) Unwrap() error {
	return shared.NewDomainError(CodeInsufficientStock, e.Error())
}

// Details returns the structured context for API responses.
func (e *InsufficientStockError) Details() any {
	return e
}

// BlockingOrder is an outbound order that still references a batch.
type BlockingOrder struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ItemCount   int64     `json:"item_count"`
	Quantity    int64     `json:"quantity"`
}

// BatchInUseError is returned when a batch cannot be deleted because
// outbound order items still reference it.
type BatchInUseError struct {
	BatchID      uuid.UUID       `json:"batch_id"`
	BatchNumber  string          `json:"batch_number"`
	MaterialCode string          `json:"material_code,omitempty"`
	Blocking     []BlockingOrder `json:"blocking_orders"`
}

func (e *BatchInUseError) Error() string {
	numbers := make([]string, 0, len(e.Blocking))
	var items int64
	for _, b := range e.Blocking {
		numbers = append(numbers, b.OrderNumber)
		items += b.ItemCount
	}
	return fmt.Sprintf("Batch %s is used by %d outbound item(s) in order(s) %s",
		e.BatchNumber, items, strings.Join(numbers, ", "))
}

// Unwrap exposes the error as a DomainError with the BATCH_IN_USE code.
func (e *BatchInUseError) Unwrap() error {
	return shared.NewDomainError(CodeBatchInUse, e.Error())
}

// Details returns the structured context for API responses.
func (e *BatchInUseError) Details() any {
	return e
}

var (
	_ shared.DetailedError = (*InsufficientStockError)(nil)
	_ shared.DetailedError = (*BatchInUseError)(nil)
)
