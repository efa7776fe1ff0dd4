package inventory

import (
	"context"
	"errors"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// QueryService answers read-only questions about stock, batches, orders and
// the ledger. Every read goes to the database.
type QueryService struct {
	batches   inventory.BatchRepository
	details   inventory.DetailRepository
	materials masterdata.MaterialRepository
	inbound   order.InboundOrderRepository
	outbound  order.OutboundOrderRepository
	log       *TransactionLog
}

// NewQueryService creates a QueryService.
func NewQueryService(
	batches inventory.BatchRepository,
	details inventory.DetailRepository,
	transactions inventory.TransactionRepository,
	materials masterdata.MaterialRepository,
	inbound order.InboundOrderRepository,
	outbound order.OutboundOrderRepository,
) *QueryService {
	return &QueryService{
		batches:   batches,
		details:   details,
		materials: materials,
		inbound:   inbound,
		outbound:  outbound,
		log:       NewTransactionLog(transactions, materials, batches, shared.SystemClock{}),
	}
}

// FindTransactions returns one page of ledger rows.
func (s *QueryService) FindTransactions(ctx context.Context, filter inventory.TransactionFilter) (shared.Paginated[TransactionResponse], error) {
	page, err := s.log.Find(ctx, filter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	items := make([]TransactionResponse, len(page.Items))
	for i := range page.Items {
		items[i] = ToTransactionResponse(&page.Items[i])
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize), nil
}

// GetTransaction returns one ledger row.
func (s *QueryService) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.log.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// Statistics aggregates the ledger rows matching filter.
func (s *QueryService) Statistics(ctx context.Context, filter inventory.TransactionFilter) (inventory.TransactionStatistics, error) {
	return s.log.Statistics(ctx, filter)
}

func (s *QueryService) batch(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.NewBatchNotFoundError(id)
		}
		return nil, err
	}
	return batch, nil
}

// GetBatchStock returns a batch with its on-hand quantity and value.
func (s *QueryService) GetBatchStock(ctx context.Context, batchID uuid.UUID) (*BatchStockResponse, error) {
	batch, err := s.batch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	resp := &BatchStockResponse{Batch: ToBatchResponse(batch), Value: batch.Value(0)}
	detail, err := s.details.FindByBatchID(ctx, batchID)
	switch {
	case err == nil:
		resp.BinID = detail.BinID
		resp.Quantity = detail.Quantity
		resp.Value = batch.Value(detail.Quantity)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	return resp, nil
}

// GetMaterialStock sums a material's stock across every bin and batch.
func (s *QueryService) GetMaterialStock(ctx context.Context, materialID uuid.UUID) (*MaterialStockResponse, error) {
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.NewMaterialNotFoundError(materialID)
		}
		return nil, err
	}
	rows, err := s.details.FindByMaterialID(ctx, materialID)
	if err != nil {
		return nil, err
	}

	resp := &MaterialStockResponse{
		MaterialID:   material.ID,
		MaterialCode: material.Code,
		Batches:      make([]MaterialStockLine, 0, len(rows)),
	}
	for _, d := range rows {
		resp.Quantity += d.Quantity
		resp.Batches = append(resp.Batches, MaterialStockLine{
			BatchID:  d.BatchID,
			BinID:    d.BinID,
			Quantity: d.Quantity,
		})
	}
	return resp, nil
}

// GetInboundOrder returns an inbound order with its items.
func (s *QueryService) GetInboundOrder(ctx context.Context, id uuid.UUID) (*InboundOrderResponse, error) {
	o, err := s.inbound.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	resp := ToInboundOrderResponse(o)
	return &resp, nil
}

// GetOutboundOrder returns an outbound order with its items.
func (s *QueryService) GetOutboundOrder(ctx context.Context, id uuid.UUID) (*OutboundOrderResponse, error) {
	o, err := s.outbound.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	resp := ToOutboundOrderResponse(o)
	return &resp, nil
}

// ListBatches returns one page of live batches.
func (s *QueryService) ListBatches(ctx context.Context, filter inventory.BatchFilter) (shared.Paginated[BatchResponse], error) {
	filter.Filter = filter.Filter.Normalize()
	if filter.BatchNumber != "" {
		filter.BatchNumber = inventory.NormalizeDocumentNumber(filter.BatchNumber)
	}
	rows, total, err := s.batches.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[BatchResponse]{}, err
	}
	items := make([]BatchResponse, len(rows))
	for i := range rows {
		items[i] = ToBatchResponse(&rows[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// VerifyBatchConservation replays a batch's ledger and compares the sum of
// its changes with the on-hand quantity.
func (s *QueryService) VerifyBatchConservation(ctx context.Context, batchID uuid.UUID) (*ConservationReport, error) {
	if _, err := s.batch(ctx, batchID); err != nil {
		return nil, err
	}
	var onHand int64
	detail, err := s.details.FindByBatchID(ctx, batchID)
	switch {
	case err == nil:
		onHand = detail.Quantity
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	history, err := s.log.History(ctx, batchID)
	if err != nil {
		return nil, err
	}
	sum := inventory.ReplaySum(history)
	return &ConservationReport{
		BatchID:          batchID,
		DetailQuantity:   onHand,
		LedgerSum:        sum,
		TransactionCount: len(history),
		Balanced:         sum == onHand,
	}, nil
}
