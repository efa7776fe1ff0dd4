package handler

import (
	"context"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// MovementCommands is the write side of the ledger.
type MovementCommands interface {
	CreateInboundOrder(ctx context.Context, in appinv.CreateInboundOrderInput) (*appinv.InboundOrderResult, error)
	AddInboundItem(ctx context.Context, orderID uuid.UUID, in appinv.InboundItemInput, operator string) (*appinv.PostedItem, error)
	UpdateInboundItem(ctx context.Context, orderID, itemID uuid.UUID, u appinv.InboundItemUpdate) (*appinv.InboundItemResponse, error)
	DeleteInboundItem(ctx context.Context, orderID, itemID uuid.UUID) error
	DeleteInboundOrder(ctx context.Context, orderID uuid.UUID) error

	CreateOutboundOrder(ctx context.Context, in appinv.CreateOutboundOrderInput) (*appinv.OutboundOrderResult, error)
	AddOutboundItem(ctx context.Context, orderID uuid.UUID, in appinv.OutboundItemInput, operator string) (*appinv.PostedItem, error)
	UpdateOutboundItem(ctx context.Context, orderID, itemID uuid.UUID, u appinv.OutboundItemUpdate) (*appinv.OutboundItemResponse, error)
	DeleteOutboundItem(ctx context.Context, orderID, itemID uuid.UUID) error
	DeleteOutboundOrder(ctx context.Context, orderID uuid.UUID) error

	AdjustStock(ctx context.Context, in appinv.AdjustStockInput) (*appinv.AdjustmentResult, error)
}

// LedgerQueries is the read side of the ledger.
type LedgerQueries interface {
	GetInboundOrder(ctx context.Context, id uuid.UUID) (*appinv.InboundOrderResponse, error)
	GetOutboundOrder(ctx context.Context, id uuid.UUID) (*appinv.OutboundOrderResponse, error)
	GetBatchStock(ctx context.Context, batchID uuid.UUID) (*appinv.BatchStockResponse, error)
	GetMaterialStock(ctx context.Context, materialID uuid.UUID) (*appinv.MaterialStockResponse, error)
	ListBatches(ctx context.Context, filter inventory.BatchFilter) (shared.Paginated[appinv.BatchResponse], error)
	VerifyBatchConservation(ctx context.Context, batchID uuid.UUID) (*appinv.ConservationReport, error)
	FindTransactions(ctx context.Context, filter inventory.TransactionFilter) (shared.Paginated[appinv.TransactionResponse], error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*appinv.TransactionResponse, error)
	Statistics(ctx context.Context, filter inventory.TransactionFilter) (inventory.TransactionStatistics, error)
}

var (
	_ MovementCommands = (*appinv.MovementService)(nil)
	_ LedgerQueries    = (*appinv.QueryService)(nil)
)
