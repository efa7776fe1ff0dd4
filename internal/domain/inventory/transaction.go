package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeType is the direction of a ledger entry.
type ChangeType string

const (
	// ChangeTypeIn is a receipt into stock.
	ChangeTypeIn ChangeType = "IN"
	// ChangeTypeOut is an issue out of stock.
	ChangeTypeOut ChangeType = "OUT"
	// ChangeTypeAdjust is a stocktake correction in either direction.
	ChangeTypeAdjust ChangeType = "ADJUST"
)

// String returns the string representation of ChangeType
func (t ChangeType) String() string {
	return string(t)
}

// IsValid returns true if the change type is valid
func (t ChangeType) IsValid() bool {
	switch t {
	case ChangeTypeIn, ChangeTypeOut, ChangeTypeAdjust:
		return true
	}
	return false
}

// acceptsChange reports whether a signed quantity change fits the type:
// IN is positive, OUT is negative, ADJUST is any non-zero value.
func (t ChangeType) acceptsChange(change int64) bool {
	switch t {
	case ChangeTypeIn:
		return change > 0
	case ChangeTypeOut:
		return change < 0
	case ChangeTypeAdjust:
		return change != 0
	}
	return false
}

// ReferenceType names the kind of document that caused a ledger entry.
type ReferenceType string

const (
	ReferenceTypeInbound   ReferenceType = "inbound"
	ReferenceTypeOutbound  ReferenceType = "outbound"
	ReferenceTypeStocktake ReferenceType = "stocktake"
)

// String returns the string representation of ReferenceType
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid returns true if the reference type is valid
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeInbound, ReferenceTypeOutbound, ReferenceTypeStocktake:
		return true
	}
	return false
}

// InventoryTransaction is one ledger row describing a single quantity change
// of a batch and the document that caused it.
//
// QuantityAfter == QuantityBefore + QuantityChange holds for every row.
// TransactionTime is assigned when the row is first written and never changes.
type InventoryTransaction struct {
	ID              uuid.UUID
	MaterialID      uuid.UUID
	BatchID         uuid.UUID
	ChangeType      ChangeType
	QuantityChange  int64
	QuantityBefore  int64
	QuantityAfter   int64
	ReferenceType   ReferenceType
	ReferenceID     uuid.UUID
	Creator         string
	TransactionTime time.Time
}

// TransactionInput carries every caller-supplied field of a ledger row.
type TransactionInput struct {
	MaterialID     uuid.UUID
	BatchID        uuid.UUID
	ChangeType     ChangeType
	QuantityChange int64
	QuantityBefore int64
	QuantityAfter  int64
	ReferenceType  ReferenceType
	ReferenceID    uuid.UUID
	Creator        string
}

// Validate returns an IncompleteTransactionData error describing the first
// missing or inconsistent field.
func (in TransactionInput) Validate() error {
	var missing []string
	if in.MaterialID == uuid.Nil {
		missing = append(missing, "material_id")
	}
	if in.BatchID == uuid.Nil {
		missing = append(missing, "batch_id")
	}
	if !in.ChangeType.IsValid() {
		missing = append(missing, "change_type")
	}
	if !in.ReferenceType.IsValid() {
		missing = append(missing, "reference_type")
	}
	if in.ReferenceID == uuid.Nil {
		missing = append(missing, "reference_id")
	}
	if strings.TrimSpace(in.Creator) == "" {
		missing = append(missing, "creator")
	}
	if len(missing) > 0 {
		return NewIncompleteTransactionDataError("missing " + strings.Join(missing, ", "))
	}
	if !in.ChangeType.acceptsChange(in.QuantityChange) {
		return NewIncompleteTransactionDataError(
			fmt.Sprintf("quantity_change %d does not match change_type %s", in.QuantityChange, in.ChangeType))
	}
	if in.QuantityAfter != in.QuantityBefore+in.QuantityChange {
		return NewIncompleteTransactionDataError(
			fmt.Sprintf("quantity_after %d != quantity_before %d + quantity_change %d",
				in.QuantityAfter, in.QuantityBefore, in.QuantityChange))
	}
	if in.QuantityAfter < 0 {
		return NewIncompleteTransactionDataError("quantity_after cannot be negative")
	}
	return nil
}

// NewInventoryTransaction validates input and stamps the row with the
// server-side transaction time.
func NewInventoryTransaction(in TransactionInput, now time.Time) (*InventoryTransaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &InventoryTransaction{
		ID:              uuid.New(),
		MaterialID:      in.MaterialID,
		BatchID:         in.BatchID,
		ChangeType:      in.ChangeType,
		QuantityChange:  in.QuantityChange,
		QuantityBefore:  in.QuantityBefore,
		QuantityAfter:   in.QuantityAfter,
		ReferenceType:   in.ReferenceType,
		ReferenceID:     in.ReferenceID,
		Creator:         in.Creator,
		TransactionTime: now,
	}, nil
}

// TransactionUpdate is the restricted set of fields an in-place correction
// may rewrite. TransactionTime is deliberately absent.
type TransactionUpdate struct {
	MaterialID     *uuid.UUID
	BatchID        *uuid.UUID
	ChangeType     *ChangeType
	QuantityChange *int64
	QuantityBefore *int64
	QuantityAfter  *int64
	ReferenceType  *ReferenceType
	ReferenceID    *uuid.UUID
	Creator        *string
}

// input returns the transaction's fields as a TransactionInput.
func (t *InventoryTransaction) input() TransactionInput {
	return TransactionInput{
		MaterialID:     t.MaterialID,
		BatchID:        t.BatchID,
		ChangeType:     t.ChangeType,
		QuantityChange: t.QuantityChange,
		QuantityBefore: t.QuantityBefore,
		QuantityAfter:  t.QuantityAfter,
		ReferenceType:  t.ReferenceType,
		ReferenceID:    t.ReferenceID,
		Creator:        t.Creator,
	}
}

// Apply rewrites the supplied fields and re-validates the whole row. The
// transaction is left unchanged when validation fails.
func (t *InventoryTransaction) Apply(u TransactionUpdate) error {
	in := t.input()
	if u.MaterialID != nil {
		in.MaterialID = *u.MaterialID
	}
	if u.BatchID != nil {
		in.BatchID = *u.BatchID
	}
	if u.ChangeType != nil {
		in.ChangeType = *u.ChangeType
	}
	if u.QuantityChange != nil {
		in.QuantityChange = *u.QuantityChange
	}
	if u.QuantityBefore != nil {
		in.QuantityBefore = *u.QuantityBefore
	}
	if u.QuantityAfter != nil {
		in.QuantityAfter = *u.QuantityAfter
	}
	if u.ReferenceType != nil {
		in.ReferenceType = *u.ReferenceType
	}
	if u.ReferenceID != nil {
		in.ReferenceID = *u.ReferenceID
	}
	if u.Creator != nil {
		in.Creator = *u.Creator
	}
	if err := in.Validate(); err != nil {
		return err
	}

	t.MaterialID = in.MaterialID
	t.BatchID = in.BatchID
	t.ChangeType = in.ChangeType
	t.QuantityChange = in.QuantityChange
	t.QuantityBefore = in.QuantityBefore
	t.QuantityAfter = in.QuantityAfter
	t.ReferenceType = in.ReferenceType
	t.ReferenceID = in.ReferenceID
	t.Creator = in.Creator
	return nil
}

// TransactionStatistics aggregates ledger rows matching a filter.
type TransactionStatistics struct {
	TotalIn          int64 `json:"total_in"`
	TotalOut         int64 `json:"total_out"`
	TotalAdjust      int64 `json:"total_adjust"`
	NetChange        int64 `json:"net_change"`
	TransactionCount int64 `json:"transaction_count"`
}

// NewTransactionStatistics derives NetChange from the per-type sums.
// totalOut is the absolute sum of OUT changes.
func NewTransactionStatistics(totalIn, totalOut, totalAdjust, count int64) TransactionStatistics {
	return TransactionStatistics{
		TotalIn:          totalIn,
		TotalOut:         totalOut,
		TotalAdjust:      totalAdjust,
		NetChange:        totalIn - totalOut + totalAdjust,
		TransactionCount: count,
	}
}

// ReplaySum adds up QuantityChange across a batch's ledger rows. Starting
// from zero, the result must equal the batch's on-hand quantity.
func ReplaySum(txs []InventoryTransaction) int64 {
	var sum int64
	for i := range txs {
		sum += txs[i].QuantityChange
	}
	return sum
}
