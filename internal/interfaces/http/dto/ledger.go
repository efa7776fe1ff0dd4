package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates such as production_date.
const DateLayout = "2006-01-02"

// InboundItemRequest is one received line.
type InboundItemRequest struct {
	MaterialID string `json:"material_id" binding:"required,uuid"`
	BinID      string `json:"bin_id" binding:"omitempty,uuid"`
	// BatchNumber is generated from the material code when empty.
	BatchNumber    string          `json:"batch_number" binding:"omitempty,max=64"`
	Quantity       int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Unit           string          `json:"unit" binding:"omitempty,max=32"`
	ProductionDate string          `json:"production_date" binding:"omitempty,datetime=2006-01-02"`
}

// CreateInboundOrderRequest creates a receiving document with its lines.
type CreateInboundOrderRequest struct {
	OrderNumber string               `json:"order_number" binding:"omitempty,max=64"`
	SupplierID  string               `json:"supplier_id" binding:"omitempty,uuid"`
	OrderDate   *time.Time           `json:"order_date"`
	Remark      string               `json:"remark" binding:"omitempty,max=500"`
	Items       []InboundItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateInboundItemRequest edits a received line. Omitted fields are kept.
type UpdateInboundItemRequest struct {
	Quantity       *int64           `json:"quantity" binding:"omitempty,gt=0"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	Unit           *string          `json:"unit" binding:"omitempty,max=32"`
	ProductionDate *string          `json:"production_date" binding:"omitempty,datetime=2006-01-02"`
	MaterialID     *string          `json:"material_id" binding:"omitempty,uuid"`
	BinID          *string          `json:"bin_id" binding:"omitempty,uuid"`
}

// OutboundItemRequest is one issued line.
type OutboundItemRequest struct {
	BatchID  string `json:"batch_id" binding:"required,uuid"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

// CreateOutboundOrderRequest creates an issuing document with its lines.
type CreateOutboundOrderRequest struct {
	OrderNumber string                `json:"order_number" binding:"omitempty,max=64"`
	CustomerID  string                `json:"customer_id" binding:"omitempty,uuid"`
	OrderDate   *time.Time            `json:"order_date"`
	Remark      string                `json:"remark" binding:"omitempty,max=500"`
	Items       []OutboundItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOutboundItemRequest edits an issued line. Omitted fields are kept.
type UpdateOutboundItemRequest struct {
	BatchID  *string `json:"batch_id" binding:"omitempty,uuid"`
	Quantity *int64  `json:"quantity" binding:"omitempty,gt=0"`
}

// AdjustStockRequest records a stocktake count for one batch.
type AdjustStockRequest struct {
	BatchID         string `json:"batch_id" binding:"required,uuid"`
	CountedQuantity *int64 `json:"counted_quantity" binding:"required,gte=0"`
	ReferenceID     string `json:"reference_id" binding:"omitempty,uuid"`
	Reason          string `json:"reason" binding:"omitempty,max=255"`
}

// PageQuery carries the paging parameters shared by list endpoints.
type PageQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TransactionQuery filters the inventory transaction log.
type TransactionQuery struct {
	PageQuery
	MaterialID    string     `form:"material_id" binding:"omitempty,uuid"`
	BatchID       string     `form:"batch_id" binding:"omitempty,uuid"`
	ChangeType    string     `form:"change_type" binding:"omitempty,oneof=IN OUT ADJUST"`
	ReferenceType string     `form:"reference_type" binding:"omitempty,oneof=inbound outbound stocktake"`
	ReferenceID   string     `form:"reference_id" binding:"omitempty,uuid"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// BatchQuery filters the batch list.
type BatchQuery struct {
	PageQuery
	MaterialID  string `form:"material_id" binding:"omitempty,uuid"`
	SupplierID  string `form:"supplier_id" binding:"omitempty,uuid"`
	BatchNumber string `form:"batch_number" binding:"omitempty,max=64"`
}
