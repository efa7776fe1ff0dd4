package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MovementRecorder observes committed and rejected movements.
type MovementRecorder interface {
	RecordMovement(ctx context.Context, operation string, changeType inventory.ChangeType, quantity int64)
	RecordRejection(ctx context.Context, operation, code string)
}

type noopRecorder struct{}

func (noopRecorder) RecordMovement(context.Context, string, inventory.ChangeType, int64) {}
func (noopRecorder) RecordRejection(context.Context, string, string) {}

// Operation names used in logs and metrics.
const (
	OpCreateInboundOrder  = "create_inbound_order"
	OpAddInboundItem      = "add_inbound_item"
	OpUpdateInboundItem   = "update_inbound_item"
	OpDeleteInboundItem   = "delete_inbound_item"
	OpDeleteInboundOrder  = "delete_inbound_order"
	OpCreateOutboundOrder = "create_outbound_order"
	OpAddOutboundItem     = "add_outbound_item"
	OpUpdateOutboundItem  = "update_outbound_item"
	OpDeleteOutboundItem  = "delete_outbound_item"
	OpDeleteOutboundOrder = "delete_outbound_order"
	OpAdjustStock         = "adjust_stock"
)

// MovementService runs the multi-step inventory movements. Each public
// method is one database transaction: every write of a movement commits
// together or not at all.
type MovementService struct {
	scope   TransactionScope
	clock   shared.Clock
	logger  *zap.Logger
	metrics MovementRecorder
}

// NewMovementService creates a MovementService.
func NewMovementService(scope TransactionScope, clock shared.Clock) *MovementService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &MovementService{
		scope:   scope,
		clock:   clock,
		logger:  zap.NewNop(),
		metrics: noopRecorder{},
	}
}

// SetLogger sets the logger used for movement outcomes.
func (s *MovementService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics sets the recorder notified of movement outcomes.
func (s *MovementService) SetMetrics(metrics MovementRecorder) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// movement binds the ledger components to the repositories of one
// database transaction.
type movement struct {
	repos    TransactionalRepositories
	registry *BatchRegistry
	stock    *StockLedger
	log      *TransactionLog
	now      time.Time
	span     trace.Span
}

// annotate tags the movement span, e.g. with the order number once known.
func (m *movement) annotate(key, value string) {
	if m.span != nil {
		m.span.SetAttributes(attribute.String(key, value))
	}
}

func (s *MovementService) bind(repos TransactionalRepositories) *movement {
	return &movement{
		repos: repos,
		registry: NewBatchRegistry(
			repos.BatchRepo(),
			repos.DetailRepo(),
			repos.TransactionRepo(),
			repos.OutboundOrderRepo(),
			s.clock,
		),
		stock: NewStockLedger(repos.DetailRepo()),
		log:   NewTransactionLog(repos.TransactionRepo(), repos.MaterialRepo(), repos.BatchRepo(), s.clock),
		now:   s.clock.Now(),
	}
}

// run executes fn inside one database transaction, traced and labelled
// for profiling by operation, and reports failures.
func (s *MovementService) run(ctx context.Context, operation string, fn func(m *movement) error) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "movement", operation,
		attribute.String(telemetry.SpanAttrOperation, operation))
	defer func() { telemetry.EndSpan(span, err) }()

	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operation), func(ctx context.Context) {
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			m := s.bind(repos)
			m.span = span
			return fn(m)
		})
	})
	if err != nil {
		s.reject(ctx, operation, err)
	}
	return err
}

func (s *MovementService) reject(ctx context.Context, operation string, err error) {
	code := "INTERNAL_ERROR"
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}
	s.metrics.RecordRejection(ctx, operation, code)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("code", code),
		zap.Error(err),
	}
	if code == "INTERNAL_ERROR" || code == inventory.CodeIncompleteTransactionData {
		s.logger.Error("Inventory movement failed", fields...)
		return
	}
	s.logger.Warn("Inventory movement rejected", fields...)
}

// ===================== Inbound =====================

// CreateInboundOrder posts a receiving document. Every line is validated
// before the first write; each line then creates a batch, raises its stock
// and records one IN transaction.
func (s *MovementService) CreateInboundOrder(ctx context.Context, in CreateInboundOrderInput) (*InboundOrderResult, error) {
	var result *InboundOrderResult
	err := s.run(ctx, OpCreateInboundOrder, func(m *movement) error {
		o, err := order.NewInboundOrder(in.OrderNumber, in.SupplierID, in.OrderDate, in.Creator, in.Remark, m.now)
		if err != nil {
			return err
		}
		m.annotate(telemetry.SpanAttrOrderNumber, o.OrderNumber)
		repo := m.repos.InboundOrderRepo()
		if err := m.ensureOrderNumberFree(ctx, repo.ExistsByOrderNumber, o.OrderNumber); err != nil {
			return err
		}
		items, err := m.prepareInbound(ctx, in.Items)
		if err != nil {
			return err
		}
		if err := saveHeader(repo.SaveHeader(ctx, o), o.OrderNumber); err != nil {
			return err
		}

		posted := make([]PostedItem, 0, len(items))
		for _, it := range items {
			p, err := m.postInbound(ctx, o, it, in.Creator)
			if err != nil {
				return err
			}
			posted = append(posted, *p)
		}
		if err := repo.SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save inbound order: %w", err)
		}
		result = &InboundOrderResult{Order: ToInboundOrderResponse(o), Items: posted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, it := range result.Order.Items {
		s.metrics.RecordMovement(ctx, OpCreateInboundOrder, inventory.ChangeTypeIn, it.Quantity)
	}
	s.logger.Info("Inbound order posted",
		zap.String("order_id", result.Order.ID.String()),
		zap.String("order_number", result.Order.OrderNumber),
		zap.Int("items", len(result.Items)),
		zap.Int64("total_quantity", result.Order.TotalQuantity),
	)
	return result, nil
}

// AddInboundItem posts one more line on an existing inbound order.
func (s *MovementService) AddInboundItem(ctx context.Context, orderID uuid.UUID, in InboundItemInput, operator string) (*PostedItem, error) {
	var posted *PostedItem
	err := s.run(ctx, OpAddInboundItem, func(m *movement) error {
		o, err := m.inboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		items, err := m.prepareInbound(ctx, []InboundItemInput{in})
		if err != nil {
			return err
		}
		posted, err = m.postInbound(ctx, o, items[0], creatorOr(operator, o.Creator))
		if err != nil {
			return err
		}
		if err := m.repos.InboundOrderRepo().SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save inbound order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMovement(ctx, OpAddInboundItem, inventory.ChangeTypeIn, in.Quantity)
	s.logger.Info("Inbound item posted",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", posted.ItemID.String()),
		zap.String("batch_number", posted.BatchNumber),
		zap.Int64("quantity", in.Quantity),
	)
	return posted, nil
}

// UpdateInboundItem edits a received line. Batch attributes are rewritten,
// a material change cascades to every row denormalizing it, and the stock
// moves by the net quantity difference. The line's IN transaction is
// corrected in place.
func (s *MovementService) UpdateInboundItem(ctx context.Context, orderID, itemID uuid.UUID, u InboundItemUpdate) (*InboundItemResponse, error) {
	var resp InboundItemResponse
	var delta int64
	err := s.run(ctx, OpUpdateInboundItem, func(m *movement) error {
		o, err := m.inboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := o.FindItem(itemID)
		if err != nil {
			return err
		}

		if u.Quantity != nil && *u.Quantity <= 0 {
			return invalidQuantity()
		}
		if u.MaterialID != nil {
			if _, err := m.material(ctx, *u.MaterialID); err != nil {
				return err
			}
		}
		if u.BinID != nil {
			if err := m.checkBin(ctx, *u.BinID); err != nil {
				return err
			}
		}

		batch, materialChanged, err := m.registry.UpdateFields(ctx, item.BatchID, inventory.BatchFieldUpdate{
			UnitPrice:      u.UnitPrice,
			ProductionDate: u.ProductionDate,
			MaterialID:     u.MaterialID,
			Unit:           u.Unit,
		})
		if err != nil {
			return err
		}
		if materialChanged {
			if err := m.cascadeMaterial(ctx, batch.ID, batch.MaterialID); err != nil {
				return err
			}
			item.MaterialID = batch.MaterialID
		}
		if u.UnitPrice != nil {
			item.UnitPrice = batch.UnitPrice
		}
		if u.Unit != nil {
			item.Unit = batch.Unit
		}
		if u.BinID != nil {
			if err := m.stock.Relocate(ctx, item.BatchID, u.BinID, m.now); err != nil {
				return err
			}
			item.BinID = u.BinID
		}

		newQty := item.Quantity
		if u.Quantity != nil {
			newQty = *u.Quantity
		}
		delta = newQty - item.Quantity

		var after int64
		switch {
		case delta > 0:
			change, err := m.stock.Increase(ctx, item.BatchID, batch.MaterialID, item.BinID, delta, m.now)
			if err != nil {
				return err
			}
			after = change.After
		case delta < 0:
			change, err := m.stock.Decrease(ctx, item.BatchID, -delta, m.now)
			if err != nil {
				return m.labelShortage(ctx, err, batch)
			}
			after = change.After
		}

		if delta != 0 {
			before := after - newQty
			if _, err := m.log.Update(ctx, item.TransactionID, inventory.TransactionUpdate{
				QuantityChange: &newQty,
				QuantityBefore: &before,
				QuantityAfter:  &after,
			}); err != nil {
				return err
			}
			if err := o.ChangeItemQuantity(item.ID, newQty, m.now); err != nil {
				return err
			}
		}
		item.UpdatedAt = m.now

		repo := m.repos.InboundOrderRepo()
		if err := repo.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("save inbound item: %w", err)
		}
		if err := repo.SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save inbound order: %w", err)
		}
		resp = ToInboundItemResponse(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if delta != 0 {
		s.metrics.RecordMovement(ctx, OpUpdateInboundItem, inventory.ChangeTypeIn, delta)
	}
	s.logger.Info("Inbound item updated",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", itemID.String()),
		zap.Int64("quantity_delta", delta),
		zap.String("operator", u.Operator),
	)
	return &resp, nil
}

// DeleteInboundItem removes a received line together with its batch, stock
// and ledger rows. It fails with BATCH_IN_USE while outbound lines draw from
// the batch.
func (s *MovementService) DeleteInboundItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	var quantity int64
	err := s.run(ctx, OpDeleteInboundItem, func(m *movement) error {
		o, err := m.inboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := o.FindItem(itemID)
		if err != nil {
			return err
		}
		quantity = item.Quantity
		batch, err := m.registry.Get(ctx, item.BatchID)
		if err != nil {
			return err
		}
		if err := m.ensureBatchDeletable(ctx, batch); err != nil {
			return err
		}
		if err := m.deleteInboundLine(ctx, o, *item); err != nil {
			return err
		}
		if err := m.repos.InboundOrderRepo().SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save inbound order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMovement(ctx, OpDeleteInboundItem, inventory.ChangeTypeIn, -quantity)
	s.logger.Info("Inbound item deleted",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", itemID.String()),
		zap.Int64("quantity", quantity),
	)
	return nil
}

// DeleteInboundOrder removes an inbound order and every line on it. All
// lines are checked before anything is deleted.
func (s *MovementService) DeleteInboundOrder(ctx context.Context, orderID uuid.UUID) error {
	var number string
	err := s.run(ctx, OpDeleteInboundOrder, func(m *movement) error {
		o, err := m.inboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		number = o.OrderNumber

		for i := range o.Items {
			batch, err := m.registry.Get(ctx, o.Items[i].BatchID)
			if err != nil {
				return err
			}
			if err := m.ensureBatchDeletable(ctx, batch); err != nil {
				return err
			}
		}

		lines := append([]order.InboundOrderItem(nil), o.Items...)
		for _, line := range lines {
			if err := m.deleteInboundLine(ctx, o, line); err != nil {
				return err
			}
		}
		if err := m.repos.InboundOrderRepo().Delete(ctx, o.ID); err != nil {
			return fmt.Errorf("delete inbound order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Inbound order deleted",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", number),
	)
	return nil
}

// prepareInbound validates every line and resolves generated batch numbers
// without writing anything.
func (m *movement) prepareInbound(ctx context.Context, items []InboundItemInput) ([]InboundItemInput, error) {
	if len(items) == 0 {
		return nil, shared.NewDomainError(order.CodeEmptyOrder, "Order must contain at least one item")
	}

	prepared := make([]InboundItemInput, len(items))
	reserved := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, invalidQuantity()
		}
		material, err := m.material(ctx, it.MaterialID)
		if err != nil {
			return nil, err
		}
		if it.BinID != nil {
			if err := m.checkBin(ctx, *it.BinID); err != nil {
				return nil, err
			}
		}

		number := inventory.NormalizeDocumentNumber(it.BatchNumber)
		if number == "" {
			number, err = m.registry.NextBatchNumber(ctx, material.Code, m.now, reserved)
			if err != nil {
				return nil, err
			}
		} else {
			if _, dup := reserved[number]; dup {
				return nil, inventory.NewDuplicateBatchNumberError(number)
			}
			exists, err := m.repos.BatchRepo().ExistsByBatchNumber(ctx, number)
			if err != nil {
				return nil, fmt.Errorf("check batch number: %w", err)
			}
			if exists {
				return nil, inventory.NewDuplicateBatchNumberError(number)
			}
		}
		reserved[number] = struct{}{}

		it.BatchNumber = number
		if it.Unit == "" {
			it.Unit = material.Unit
		}
		prepared[i] = it
	}
	return prepared, nil
}

// postInbound writes one received line: batch, stock, IN transaction, item.
func (m *movement) postInbound(ctx context.Context, o *order.InboundOrder, it InboundItemInput, creator string) (*PostedItem, error) {
	batch, err := m.registry.Create(ctx, inventory.NewBatchInput{
		BatchNumber:    it.BatchNumber,
		MaterialID:     it.MaterialID,
		Unit:           it.Unit,
		UnitPrice:      it.UnitPrice,
		ProductionDate: it.ProductionDate,
		SupplierID:     o.SupplierID,
		InboundDate:    o.OrderDate,
		Creator:        creator,
	})
	if err != nil {
		return nil, err
	}

	change, err := m.stock.Increase(ctx, batch.ID, it.MaterialID, it.BinID, it.Quantity, m.now)
	if err != nil {
		return nil, err
	}

	tx, err := m.log.Append(ctx, inventory.TransactionInput{
		MaterialID:     it.MaterialID,
		BatchID:        batch.ID,
		ChangeType:     inventory.ChangeTypeIn,
		QuantityChange: it.Quantity,
		QuantityBefore: change.Before,
		QuantityAfter:  change.After,
		ReferenceType:  inventory.ReferenceTypeInbound,
		ReferenceID:    o.ID,
		Creator:        creator,
	})
	if err != nil {
		return nil, err
	}

	item, err := o.AddItem(order.InboundOrderItem{
		MaterialID:    it.MaterialID,
		BatchID:       batch.ID,
		BinID:         it.BinID,
		Quantity:      it.Quantity,
		UnitPrice:     it.UnitPrice,
		Unit:          it.Unit,
		TransactionID: tx.ID,
	}, m.now)
	if err != nil {
		return nil, err
	}
	if err := m.repos.InboundOrderRepo().SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save inbound item: %w", err)
	}

	return &PostedItem{
		ItemID:        item.ID,
		BatchID:       batch.ID,
		BatchNumber:   batch.BatchNumber,
		TransactionID: tx.ID,
	}, nil
}

// deleteInboundLine removes the item first because it references both the
// batch and the transaction, then retires the batch.
func (m *movement) deleteInboundLine(ctx context.Context, o *order.InboundOrder, line order.InboundOrderItem) error {
	if err := m.repos.InboundOrderRepo().DeleteItem(ctx, line.ID); err != nil {
		return fmt.Errorf("delete inbound item: %w", err)
	}
	if err := m.registry.Delete(ctx, line.BatchID); err != nil {
		return err
	}
	_, err := o.RemoveItem(line.ID, m.now)
	return err
}

// cascadeMaterial rewrites the material of every row denormalizing it for a batch.
func (m *movement) cascadeMaterial(ctx context.Context, batchID, materialID uuid.UUID) error {
	if err := m.repos.DetailRepo().UpdateMaterialByBatchID(ctx, batchID, materialID); err != nil {
		return fmt.Errorf("update detail material: %w", err)
	}
	if err := m.repos.TransactionRepo().UpdateMaterialByBatchID(ctx, batchID, materialID); err != nil {
		return fmt.Errorf("update transaction material: %w", err)
	}
	if err := m.repos.OutboundOrderRepo().UpdateItemMaterialByBatchID(ctx, batchID, materialID); err != nil {
		return fmt.Errorf("update outbound item material: %w", err)
	}
	return nil
}

// ===================== Outbound =====================

// CreateOutboundOrder posts an issuing document. Every referenced batch is
// locked and checked before the first write, so a short line leaves the
// whole order unposted.
func (s *MovementService) CreateOutboundOrder(ctx context.Context, in CreateOutboundOrderInput) (*OutboundOrderResult, error) {
	var result *OutboundOrderResult
	err := s.run(ctx, OpCreateOutboundOrder, func(m *movement) error {
		o, err := order.NewOutboundOrder(in.OrderNumber, in.CustomerID, in.OrderDate, in.Creator, in.Remark, m.now)
		if err != nil {
			return err
		}
		m.annotate(telemetry.SpanAttrOrderNumber, o.OrderNumber)
		repo := m.repos.OutboundOrderRepo()
		if err := m.ensureOrderNumberFree(ctx, repo.ExistsByOrderNumber, o.OrderNumber); err != nil {
			return err
		}
		if _, err := m.prepareOutbound(ctx, in.Items, nil); err != nil {
			return err
		}
		if err := saveHeader(repo.SaveHeader(ctx, o), o.OrderNumber); err != nil {
			return err
		}

		posted := make([]PostedItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, err := m.postOutbound(ctx, o, it, in.Creator)
			if err != nil {
				return err
			}
			posted = append(posted, *p)
		}
		if err := repo.SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save outbound order: %w", err)
		}
		result = &OutboundOrderResult{Order: ToOutboundOrderResponse(o), Items: posted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, it := range result.Order.Items {
		s.metrics.RecordMovement(ctx, OpCreateOutboundOrder, inventory.ChangeTypeOut, it.Quantity)
	}
	s.logger.Info("Outbound order posted",
		zap.String("order_id", result.Order.ID.String()),
		zap.String("order_number", result.Order.OrderNumber),
		zap.Int("items", len(result.Items)),
		zap.Int64("total_quantity", result.Order.TotalQuantity),
	)
	return result, nil
}

// AddOutboundItem posts one more line on an existing outbound order.
func (s *MovementService) AddOutboundItem(ctx context.Context, orderID uuid.UUID, in OutboundItemInput, operator string) (*PostedItem, error) {
	var posted *PostedItem
	err := s.run(ctx, OpAddOutboundItem, func(m *movement) error {
		o, err := m.outboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if _, err := m.prepareOutbound(ctx, []OutboundItemInput{in}, nil); err != nil {
			return err
		}
		posted, err = m.postOutbound(ctx, o, in, creatorOr(operator, o.Creator))
		if err != nil {
			return err
		}
		if err := m.repos.OutboundOrderRepo().SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save outbound order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMovement(ctx, OpAddOutboundItem, inventory.ChangeTypeOut, in.Quantity)
	s.logger.Info("Outbound item posted",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", posted.ItemID.String()),
		zap.String("batch_id", in.BatchID.String()),
		zap.Int64("quantity", in.Quantity),
	)
	return posted, nil
}

// UpdateOutboundItem changes the batch or quantity of an issued line. The
// old quantity is returned to its batch and the new quantity drawn, both
// under row lock. On the same batch the OUT transaction is corrected in
// place; on a new batch it is replaced.
func (s *MovementService) UpdateOutboundItem(ctx context.Context, orderID, itemID uuid.UUID, u OutboundItemUpdate) (*OutboundItemResponse, error) {
	var resp OutboundItemResponse
	var delta int64
	err := s.run(ctx, OpUpdateOutboundItem, func(m *movement) error {
		o, err := m.outboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := o.FindItem(itemID)
		if err != nil {
			return err
		}

		newBatchID := item.BatchID
		if u.BatchID != nil {
			newBatchID = *u.BatchID
		}
		newQty := item.Quantity
		if u.Quantity != nil {
			newQty = *u.Quantity
		}
		if newBatchID == item.BatchID && newQty == item.Quantity {
			resp = ToOutboundItemResponse(item)
			return nil
		}
		delta = newQty - item.Quantity

		// The line's current draw counts as available on its own batch.
		credit := map[uuid.UUID]int64{item.BatchID: item.Quantity}
		batches, err := m.prepareOutbound(ctx, []OutboundItemInput{{BatchID: newBatchID, Quantity: newQty}}, credit)
		if err != nil {
			return err
		}

		if _, err := m.stock.Increase(ctx, item.BatchID, item.MaterialID, item.BinID, item.Quantity, m.now); err != nil {
			return err
		}
		change, err := m.stock.Decrease(ctx, newBatchID, newQty, m.now)
		if err != nil {
			return m.labelShortage(ctx, err, batches[newBatchID])
		}

		repo := m.repos.OutboundOrderRepo()
		if newBatchID == item.BatchID {
			outChange := -newQty
			before := change.After + newQty
			after := change.After
			if _, err := m.log.Update(ctx, item.TransactionID, inventory.TransactionUpdate{
				QuantityChange: &outChange,
				QuantityBefore: &before,
				QuantityAfter:  &after,
			}); err != nil {
				return err
			}
		} else {
			old, err := m.log.Get(ctx, item.TransactionID)
			if err != nil {
				return err
			}
			tx, err := m.log.Append(ctx, inventory.TransactionInput{
				MaterialID:     change.Detail.MaterialID,
				BatchID:        newBatchID,
				ChangeType:     inventory.ChangeTypeOut,
				QuantityChange: -newQty,
				QuantityBefore: change.Before,
				QuantityAfter:  change.After,
				ReferenceType:  inventory.ReferenceTypeOutbound,
				ReferenceID:    o.ID,
				Creator:        old.Creator,
			})
			if err != nil {
				return err
			}
			item.BatchID = newBatchID
			item.MaterialID = change.Detail.MaterialID
			item.BinID = change.Detail.BinID
			item.TransactionID = tx.ID
			// The item must point at the new row before the old one goes.
			if err := repo.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("save outbound item: %w", err)
			}
			if err := m.log.Delete(ctx, old.ID); err != nil {
				return err
			}
		}

		if err := o.ChangeItemQuantity(item.ID, newQty, m.now); err != nil {
			return err
		}
		if err := repo.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("save outbound item: %w", err)
		}
		if err := repo.SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save outbound order: %w", err)
		}
		resp = ToOutboundItemResponse(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if delta != 0 {
		s.metrics.RecordMovement(ctx, OpUpdateOutboundItem, inventory.ChangeTypeOut, delta)
	}
	s.logger.Info("Outbound item updated",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("batch_id", resp.BatchID.String()),
		zap.Int64("quantity", resp.Quantity),
		zap.String("operator", u.Operator),
	)
	return &resp, nil
}

// DeleteOutboundItem returns an issued line's quantity to its batch and
// removes the line and its OUT transaction.
func (s *MovementService) DeleteOutboundItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	var quantity int64
	err := s.run(ctx, OpDeleteOutboundItem, func(m *movement) error {
		o, err := m.outboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := o.FindItem(itemID)
		if err != nil {
			return err
		}
		quantity = item.Quantity
		if err := m.deleteOutboundLine(ctx, o, *item); err != nil {
			return err
		}
		if err := m.repos.OutboundOrderRepo().SaveHeader(ctx, o); err != nil {
			return fmt.Errorf("save outbound order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMovement(ctx, OpDeleteOutboundItem, inventory.ChangeTypeOut, -quantity)
	s.logger.Info("Outbound item deleted",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", itemID.String()),
		zap.Int64("quantity", quantity),
	)
	return nil
}

// DeleteOutboundOrder restores every line's stock and removes the order.
func (s *MovementService) DeleteOutboundOrder(ctx context.Context, orderID uuid.UUID) error {
	var number string
	err := s.run(ctx, OpDeleteOutboundOrder, func(m *movement) error {
		o, err := m.outboundOrder(ctx, orderID)
		if err != nil {
			return err
		}
		number = o.OrderNumber

		for i := range o.Items {
			if _, err := m.log.Get(ctx, o.Items[i].TransactionID); err != nil {
				return err
			}
		}

		lines := append([]order.OutboundOrderItem(nil), o.Items...)
		for _, line := range lines {
			if err := m.deleteOutboundLine(ctx, o, line); err != nil {
				return err
			}
		}
		if err := m.repos.OutboundOrderRepo().Delete(ctx, o.ID); err != nil {
			return fmt.Errorf("delete outbound order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Outbound order deleted",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", number),
	)
	return nil
}

// prepareOutbound checks lines without writing: quantities are positive,
// batches exist, and the summed request per batch fits the locked on-hand
// quantity plus any credit. It returns the referenced batches by id.
func (m *movement) prepareOutbound(ctx context.Context, items []OutboundItemInput, credit map[uuid.UUID]int64) (map[uuid.UUID]*inventory.InventoryBatch, error) {
	if len(items) == 0 {
		return nil, shared.NewDomainError(order.CodeEmptyOrder, "Order must contain at least one item")
	}

	requested := make(map[uuid.UUID]int64, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, invalidQuantity()
		}
		if _, seen := requested[it.BatchID]; !seen {
			ids = append(ids, it.BatchID)
		}
		requested[it.BatchID] += it.Quantity
	}

	found, err := m.repos.BatchRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	batches := make(map[uuid.UUID]*inventory.InventoryBatch, len(found))
	for i := range found {
		batches[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		if _, ok := batches[id]; !ok {
			return nil, inventory.NewBatchNotFoundError(id)
		}
	}

	locked, err := m.stock.LockMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		var available int64
		if d, ok := locked[id]; ok {
			available = d.Quantity
		}
		available += credit[id]
		if requested[id] > available {
			return nil, m.labelShortage(ctx, &inventory.InsufficientStockError{
				BatchID:   id,
				Available: available,
				Requested: requested[id],
			}, batches[id])
		}
	}
	return batches, nil
}

// postOutbound writes one issued line: stock, OUT transaction, item. Material
// and bin are taken from the batch's detail row.
func (m *movement) postOutbound(ctx context.Context, o *order.OutboundOrder, it OutboundItemInput, creator string) (*PostedItem, error) {
	change, err := m.stock.Decrease(ctx, it.BatchID, it.Quantity, m.now)
	if err != nil {
		return nil, m.labelShortageOf(ctx, err, it.BatchID)
	}

	tx, err := m.log.Append(ctx, inventory.TransactionInput{
		MaterialID:     change.Detail.MaterialID,
		BatchID:        it.BatchID,
		ChangeType:     inventory.ChangeTypeOut,
		QuantityChange: -it.Quantity,
		QuantityBefore: change.Before,
		QuantityAfter:  change.After,
		ReferenceType:  inventory.ReferenceTypeOutbound,
		ReferenceID:    o.ID,
		Creator:        creator,
	})
	if err != nil {
		return nil, err
	}

	item, err := o.AddItem(order.OutboundOrderItem{
		BatchID:       it.BatchID,
		MaterialID:    change.Detail.MaterialID,
		BinID:         change.Detail.BinID,
		Quantity:      it.Quantity,
		TransactionID: tx.ID,
	}, m.now)
	if err != nil {
		return nil, err
	}
	if err := m.repos.OutboundOrderRepo().SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save outbound item: %w", err)
	}

	return &PostedItem{
		ItemID:        item.ID,
		BatchID:       it.BatchID,
		TransactionID: tx.ID,
	}, nil
}

func (m *movement) deleteOutboundLine(ctx context.Context, o *order.OutboundOrder, line order.OutboundOrderItem) error {
	if _, err := m.stock.Increase(ctx, line.BatchID, line.MaterialID, line.BinID, line.Quantity, m.now); err != nil {
		return err
	}
	if err := m.repos.OutboundOrderRepo().DeleteItem(ctx, line.ID); err != nil {
		return fmt.Errorf("delete outbound item: %w", err)
	}
	if err := m.log.Delete(ctx, line.TransactionID); err != nil {
		return err
	}
	_, err := o.RemoveItem(line.ID, m.now)
	return err
}

// ===================== Stocktake =====================

// AdjustStock overwrites a batch's quantity with a counted value and records
// the signed difference as an ADJUST transaction. A count equal to the
// current quantity writes nothing.
func (s *MovementService) AdjustStock(ctx context.Context, in AdjustStockInput) (*AdjustmentResult, error) {
	var result *AdjustmentResult
	err := s.run(ctx, OpAdjustStock, func(m *movement) error {
		if in.CountedQuantity < 0 {
			return shared.NewDomainError(order.CodeInvalidOrderQuantity, "Counted quantity cannot be negative")
		}
		batch, err := m.registry.Get(ctx, in.BatchID)
		if err != nil {
			return err
		}
		m.annotate(telemetry.SpanAttrBatchNumber, batch.BatchNumber)

		current, err := m.stock.GetQuantity(ctx, batch.ID)
		if err != nil {
			return err
		}
		if current == in.CountedQuantity {
			result = &AdjustmentResult{BatchID: batch.ID, Before: current, After: current}
			return nil
		}

		change, err := m.stock.Set(ctx, batch.ID, batch.MaterialID, in.CountedQuantity, m.now)
		if err != nil {
			return err
		}
		diff := change.After - change.Before
		result = &AdjustmentResult{
			BatchID:    batch.ID,
			Before:     change.Before,
			After:      change.After,
			Difference: diff,
		}
		if diff == 0 {
			return nil
		}

		ref := uuid.New()
		if in.ReferenceID != nil && *in.ReferenceID != uuid.Nil {
			ref = *in.ReferenceID
		}
		tx, err := m.log.Append(ctx, inventory.TransactionInput{
			MaterialID:     change.Detail.MaterialID,
			BatchID:        batch.ID,
			ChangeType:     inventory.ChangeTypeAdjust,
			QuantityChange: diff,
			QuantityBefore: change.Before,
			QuantityAfter:  change.After,
			ReferenceType:  inventory.ReferenceTypeStocktake,
			ReferenceID:    ref,
			Creator:        in.Creator,
		})
		if err != nil {
			return err
		}
		txResp := ToTransactionResponse(tx)
		result.Transaction = &txResp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Difference != 0 {
		s.metrics.RecordMovement(ctx, OpAdjustStock, inventory.ChangeTypeAdjust, result.Difference)
	}
	s.logger.Info("Stock adjusted",
		zap.String("batch_id", in.BatchID.String()),
		zap.Int64("before", result.Before),
		zap.Int64("after", result.After),
		zap.String("reason", in.Reason),
	)
	return result, nil
}

// ===================== Helpers =====================

// inboundOrder and outboundOrder lock the order header, so concurrent edits
// of one order apply one after the other against fresh item quantities.
func (m *movement) inboundOrder(ctx context.Context, id uuid.UUID) (*order.InboundOrder, error) {
	o, err := m.repos.InboundOrderRepo().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	return o, nil
}

func (m *movement) outboundOrder(ctx context.Context, id uuid.UUID) (*order.OutboundOrder, error) {
	o, err := m.repos.OutboundOrderRepo().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	return o, nil
}

func (m *movement) material(ctx context.Context, id uuid.UUID) (*masterdata.Material, error) {
	material, err := m.repos.MaterialRepo().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.NewMaterialNotFoundError(id)
		}
		return nil, fmt.Errorf("load material: %w", err)
	}
	return material, nil
}

func (m *movement) checkBin(ctx context.Context, id uuid.UUID) error {
	ok, err := m.repos.BinRepo().Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check bin: %w", err)
	}
	if !ok {
		return inventory.NewBinNotFoundError(id)
	}
	return nil
}

func (m *movement) ensureOrderNumberFree(ctx context.Context, exists func(context.Context, string) (bool, error), number string) error {
	taken, err := exists(ctx, number)
	if err != nil {
		return fmt.Errorf("check order number: %w", err)
	}
	if taken {
		return order.NewDuplicateOrderNumberError(number)
	}
	return nil
}

// ensureBatchDeletable adds the material code to a BatchInUseError.
func (m *movement) ensureBatchDeletable(ctx context.Context, batch *inventory.InventoryBatch) error {
	err := m.registry.EnsureDeletable(ctx, batch)
	var inUse *inventory.BatchInUseError
	if errors.As(err, &inUse) {
		inUse.MaterialCode = m.materialCode(ctx, batch.MaterialID)
	}
	return err
}

// labelShortage fills the batch and material labels of an
// InsufficientStockError. Other errors pass through unchanged.
func (m *movement) labelShortage(ctx context.Context, err error, batch *inventory.InventoryBatch) error {
	var shortage *inventory.InsufficientStockError
	if !errors.As(err, &shortage) || batch == nil {
		return err
	}
	shortage.BatchNumber = batch.BatchNumber
	shortage.MaterialID = batch.MaterialID
	shortage.MaterialCode = m.materialCode(ctx, batch.MaterialID)
	return shortage
}

// labelShortageOf looks the batch up only for a shortage. A failed lookup is
// recorded on the span and the shortage is returned unlabelled.
func (m *movement) labelShortageOf(ctx context.Context, err error, batchID uuid.UUID) error {
	var shortage *inventory.InsufficientStockError
	if !errors.As(err, &shortage) {
		return err
	}
	batch, lookupErr := m.repos.BatchRepo().FindByID(ctx, batchID)
	if lookupErr != nil {
		if m.span != nil {
			m.span.RecordError(lookupErr)
		}
		return err
	}
	return m.labelShortage(ctx, err, batch)
}

// materialCode is best effort; labels are cosmetic.
func (m *movement) materialCode(ctx context.Context, id uuid.UUID) string {
	material, err := m.repos.MaterialRepo().FindByID(ctx, id)
	if err != nil {
		return ""
	}
	return material.Code
}

// saveHeader translates a unique violation on the first header insert.
func saveHeader(err error, number string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrAlreadyExists) {
		return order.NewDuplicateOrderNumberError(number)
	}
	return fmt.Errorf("save order: %w", err)
}

func invalidQuantity() error {
	return shared.NewDomainError(order.CodeInvalidOrderQuantity, "Quantity must be positive")
}

func creatorOr(operator, fallback string) string {
	if operator != "" {
		return operator
	}
	return fallback
}
