package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InboundItemInput describes one received line.
type InboundItemInput struct {
	MaterialID uuid.UUID
	BinID      *uuid.UUID
	// BatchNumber is generated from the material code when empty.
	BatchNumber    string
	Quantity       int64
	UnitPrice      decimal.Decimal
	Unit           string
	ProductionDate *time.Time
}

// CreateInboundOrderInput describes a receiving document and its lines.
type CreateInboundOrderInput struct {
	OrderNumber string
	SupplierID  *uuid.UUID
	OrderDate   time.Time
	Creator     string
	Remark      string
	Items       []InboundItemInput
}

// InboundItemUpdate lists the editable fields of a received line. Nil
// fields are left untouched.
type InboundItemUpdate struct {
	Quantity       *int64
	UnitPrice      *decimal.Decimal
	Unit           *string
	ProductionDate *time.Time
	MaterialID     *uuid.UUID
	BinID          *uuid.UUID
	Operator       string
}

// OutboundItemInput describes one issued line.
type OutboundItemInput struct {
	BatchID  uuid.UUID
	Quantity int64
}

// CreateOutboundOrderInput describes an issuing document and its lines.
type CreateOutboundOrderInput struct {
	OrderNumber string
	CustomerID  *uuid.UUID
	OrderDate   time.Time
	Creator     string
	Remark      string
	Items       []OutboundItemInput
}

// OutboundItemUpdate lists the editable fields of an issued line.
type OutboundItemUpdate struct {
	BatchID  *uuid.UUID
	Quantity *int64
	Operator string
}

// AdjustStockInput records a stocktake count for one batch.
type AdjustStockInput struct {
	BatchID         uuid.UUID
	CountedQuantity int64
	// ReferenceID points at the stocktake document; a fresh id is used when nil.
	ReferenceID *uuid.UUID
	Creator     string
	Reason      string
}

// PostedItem identifies a line written by a movement.
type PostedItem struct {
	ItemID        uuid.UUID `json:"item_id"`
	BatchID       uuid.UUID `json:"batch_id"`
	BatchNumber   string    `json:"batch_number,omitempty"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

// OrderHeaderResponse is the common part of order responses.
type OrderHeaderResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"order_number"`
	OrderDate     time.Time `json:"order_date"`
	Creator       string    `json:"creator"`
	Remark        string    `json:"remark,omitempty"`
	TotalQuantity int64     `json:"total_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InboundItemResponse represents a received line in API responses.
type InboundItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	MaterialID    uuid.UUID       `json:"material_id"`
	BatchID       uuid.UUID       `json:"batch_id"`
	BinID         *uuid.UUID      `json:"bin_id,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Unit          string          `json:"unit,omitempty"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// InboundOrderResponse represents an inbound order in API responses.
type InboundOrderResponse struct {
	OrderHeaderResponse
	SupplierID *uuid.UUID            `json:"supplier_id,omitempty"`
	Items      []InboundItemResponse `json:"items"`
}

// OutboundItemResponse represents an issued line in API responses.
type OutboundItemResponse struct {
	ID            uuid.UUID  `json:"id"`
	BatchID       uuid.UUID  `json:"batch_id"`
	MaterialID    uuid.UUID  `json:"material_id"`
	BinID         *uuid.UUID `json:"bin_id,omitempty"`
	Quantity      int64      `json:"quantity"`
	TransactionID uuid.UUID  `json:"transaction_id"`
}

// OutboundOrderResponse represents an outbound order in API responses.
type OutboundOrderResponse struct {
	OrderHeaderResponse
	CustomerID *uuid.UUID             `json:"customer_id,omitempty"`
	Items      []OutboundItemResponse `json:"items"`
}

// InboundOrderResult is returned by inbound order creation.
type InboundOrderResult struct {
	Order InboundOrderResponse `json:"order"`
	Items []PostedItem         `json:"items"`
}

// OutboundOrderResult is returned by outbound order creation.
type OutboundOrderResult struct {
	Order OutboundOrderResponse `json:"order"`
	Items []PostedItem          `json:"items"`
}

// TransactionResponse represents a ledger row in API responses.
type TransactionResponse struct {
	ID              uuid.UUID `json:"id"`
	MaterialID      uuid.UUID `json:"material_id"`
	BatchID         uuid.UUID `json:"batch_id"`
	ChangeType      string    `json:"change_type"`
	QuantityChange  int64     `json:"quantity_change"`
	QuantityBefore  int64     `json:"quantity_before"`
	QuantityAfter   int64     `json:"quantity_after"`
	ReferenceType   string    `json:"reference_type"`
	ReferenceID     uuid.UUID `json:"reference_id"`
	Creator         string    `json:"creator"`
	TransactionTime time.Time `json:"transaction_time"`
}

// AdjustmentResult reports the effect of a stocktake count.
type AdjustmentResult struct {
	BatchID     uuid.UUID            `json:"batch_id"`
	Before      int64                `json:"before"`
	After       int64                `json:"after"`
	Difference  int64                `json:"difference"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// BatchResponse represents a batch in API responses.
type BatchResponse struct {
	ID             uuid.UUID       `json:"id"`
	BatchNumber    string          `json:"batch_number"`
	MaterialID     uuid.UUID       `json:"material_id"`
	Unit           string          `json:"unit,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ProductionDate *time.Time      `json:"production_date,omitempty"`
	SupplierID     *uuid.UUID      `json:"supplier_id,omitempty"`
	InboundDate    time.Time       `json:"inbound_date"`
	Creator        string          `json:"creator"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BatchStockResponse is a batch with its on-hand quantity.
type BatchStockResponse struct {
	Batch    BatchResponse   `json:"batch"`
	BinID    *uuid.UUID      `json:"bin_id,omitempty"`
	Quantity int64           `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// MaterialStockLine is one batch's share of a material's stock.
type MaterialStockLine struct {
	BatchID  uuid.UUID  `json:"batch_id"`
	BinID    *uuid.UUID `json:"bin_id,omitempty"`
	Quantity int64      `json:"quantity"`
}

// MaterialStockResponse sums a material's stock across bins and batches.
type MaterialStockResponse struct {
	MaterialID   uuid.UUID           `json:"material_id"`
	MaterialCode string              `json:"material_code"`
	Quantity     int64               `json:"quantity"`
	Batches      []MaterialStockLine `json:"batches"`
}

// ConservationReport compares a batch's on-hand quantity with the sum of
// its ledger rows.
type ConservationReport struct {
	BatchID          uuid.UUID `json:"batch_id"`
	DetailQuantity   int64     `json:"detail_quantity"`
	LedgerSum        int64     `json:"ledger_sum"`
	TransactionCount int       `json:"transaction_count"`
	Balanced         bool      `json:"balanced"`
}

func toHeaderResponse(h order.Header) OrderHeaderResponse {
	return OrderHeaderResponse{
		ID:            h.ID,
		OrderNumber:   h.OrderNumber,
		OrderDate:     h.OrderDate,
		Creator:       h.Creator,
		Remark:        h.Remark,
		TotalQuantity: h.TotalQuantity,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

// ToInboundItemResponse converts a received line to a response.
func ToInboundItemResponse(it *order.InboundOrderItem) InboundItemResponse {
	return InboundItemResponse{
		ID:            it.ID,
		MaterialID:    it.MaterialID,
		BatchID:       it.BatchID,
		BinID:         it.BinID,
		Quantity:      it.Quantity,
		UnitPrice:     it.UnitPrice,
		Unit:          it.Unit,
		TransactionID: it.TransactionID,
	}
}

// ToOutboundItemResponse converts an issued line to a response.
func ToOutboundItemResponse(it *order.OutboundOrderItem) OutboundItemResponse {
	return OutboundItemResponse{
		ID:            it.ID,
		BatchID:       it.BatchID,
		MaterialID:    it.MaterialID,
		BinID:         it.BinID,
		Quantity:      it.Quantity,
		TransactionID: it.TransactionID,
	}
}

// ToInboundOrderResponse converts a domain inbound order to a response.
func ToInboundOrderResponse(o *order.InboundOrder) InboundOrderResponse {
	items := make([]InboundItemResponse, len(o.Items))
	for i := range o.Items {
		items[i] = ToInboundItemResponse(&o.Items[i])
	}
	return InboundOrderResponse{
		OrderHeaderResponse: toHeaderResponse(o.Header),
		SupplierID:          o.SupplierID,
		Items:               items,
	}
}

// ToOutboundOrderResponse converts a domain outbound order to a response.
func ToOutboundOrderResponse(o *order.OutboundOrder) OutboundOrderResponse {
	items := make([]OutboundItemResponse, len(o.Items))
	for i := range o.Items {
		items[i] = ToOutboundItemResponse(&o.Items[i])
	}
	return OutboundOrderResponse{
		OrderHeaderResponse: toHeaderResponse(o.Header),
		CustomerID:          o.CustomerID,
		Items:               items,
	}
}

// ToTransactionResponse converts a ledger row to a response.
func ToTransactionResponse(tx *inventory.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		MaterialID:      tx.MaterialID,
		BatchID:         tx.BatchID,
		ChangeType:      tx.ChangeType.String(),
		QuantityChange:  tx.QuantityChange,
		QuantityBefore:  tx.QuantityBefore,
		QuantityAfter:   tx.QuantityAfter,
		ReferenceType:   tx.ReferenceType.String(),
		ReferenceID:     tx.ReferenceID,
		Creator:         tx.Creator,
		TransactionTime: tx.TransactionTime,
	}
}

// ToBatchResponse converts a batch to a response.
func ToBatchResponse(b *inventory.InventoryBatch) BatchResponse {
	return BatchResponse{
		ID:             b.ID,
		BatchNumber:    b.BatchNumber,
		MaterialID:     b.MaterialID,
		Unit:           b.Unit,
		UnitPrice:      b.UnitPrice,
		ProductionDate: b.ProductionDate,
		SupplierID:     b.SupplierID,
		InboundDate:    b.InboundDate,
		Creator:        b.Creator,
		CreatedAt:      b.CreatedAt,
	}
}
