package inventory_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/erp/warehouse/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var testDay = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type recordedMovement struct {
	op       string
	change   inventory.ChangeType
	quantity int64
}

type recordingMetrics struct {
	mu         sync.Mutex
	movements  []recordedMovement
	rejections map[string]string
}

func (r *recordingMetrics) RecordMovement(_ context.Context, op string, ct inventory.ChangeType, qty int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, recordedMovement{op, ct, qty})
}

func (r *recordingMetrics) RecordRejection(_ context.Context, op, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejections == nil {
		r.rejections = map[string]string{}
	}
	r.rejections[op] = code
}

type fixture struct {
	db       *gorm.DB
	svc      *appinv.MovementService
	query    *appinv.QueryService
	metrics  *recordingMetrics
	material uuid.UUID
	bin      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	svc := appinv.NewMovementService(persistence.NewGormTransactionScope(db, sql.LevelDefault), shared.FixedClock{T: testDay})
	metrics := &recordingMetrics{}
	svc.SetMetrics(metrics)

	batches := persistence.NewGormInventoryBatchRepository(db)
	query := appinv.NewQueryService(
		batches,
		persistence.NewGormInventoryDetailRepository(db),
		persistence.NewGormInventoryTransactionRepository(db),
		persistence.NewGormMaterialRepository(db),
		persistence.NewGormInboundOrderRepository(db),
		persistence.NewGormOutboundOrderRepository(db),
	)

	return &fixture{
		db:       db,
		svc:      svc,
		query:    query,
		metrics:  metrics,
		material: testutil.SeedMaterial(t, db, "M-1", "pcs"),
		bin:      testutil.SeedBin(t, db, "A-01"),
	}
}

// receive posts a one-line inbound order and returns the new batch id.
func (f *fixture) receive(t *testing.T, number string, qty int64) (*appinv.InboundOrderResult, uuid.UUID) {
	t.Helper()
	res, err := f.svc.CreateInboundOrder(context.Background(), appinv.CreateInboundOrderInput{
		OrderNumber: number,
		OrderDate:   testDay,
		Creator:     "alice",
		Items: []appinv.InboundItemInput{{
			MaterialID: f.material,
			BinID:      &f.bin,
			Quantity:   qty,
			UnitPrice:  decimal.NewFromInt(10),
		}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	return res, res.Items[0].BatchID
}

func (f *fixture) issue(number string, lines ...appinv.OutboundItemInput) (*appinv.OutboundOrderResult, error) {
	return f.svc.CreateOutboundOrder(context.Background(), appinv.CreateOutboundOrderInput{
		OrderNumber: number,
		OrderDate:   testDay,
		Creator:     "bob",
		Items:       lines,
	})
}

func (f *fixture) onHand(t *testing.T, batchID uuid.UUID) int64 {
	t.Helper()
	stock, err := f.query.GetBatchStock(context.Background(), batchID)
	require.NoError(t, err)
	return stock.Quantity
}

func (f *fixture) assertBalanced(t *testing.T, batchID uuid.UUID) {
	t.Helper()
	report, err := f.query.VerifyBatchConservation(context.Background(), batchID)
	require.NoError(t, err)
	assert.True(t, report.Balanced, "detail %d ledger %d", report.DetailQuantity, report.LedgerSum)
}

func TestMovementService_InboundOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, batchID := f.receive(t, "in-001", 100)

	assert.Equal(t, "IN-001", res.Order.OrderNumber)
	assert.Equal(t, int64(100), res.Order.TotalQuantity)
	assert.Equal(t, "M-1-20260314001", res.Items[0].BatchNumber)

	stock, err := f.query.GetBatchStock(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stock.Quantity)
	assert.Equal(t, &f.bin, stock.BinID)
	assert.True(t, decimal.NewFromInt(1000).Equal(stock.Value))

	tx, err := f.query.GetTransaction(ctx, res.Items[0].TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "IN", tx.ChangeType)
	assert.Equal(t, int64(100), tx.QuantityChange)
	assert.Equal(t, int64(0), tx.QuantityBefore)
	assert.Equal(t, int64(100), tx.QuantityAfter)
	assert.Equal(t, res.Order.ID, tx.ReferenceID)
	assert.Equal(t, "alice", tx.Creator)

	f.assertBalanced(t, batchID)
	assert.Equal(t, []recordedMovement{{appinv.OpCreateInboundOrder, inventory.ChangeTypeIn, 100}}, f.metrics.movements)
}

func TestMovementService_GeneratedBatchNumbersAreSequential(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateInboundOrder(context.Background(), appinv.CreateInboundOrderInput{
		OrderNumber: "IN-001",
		OrderDate:   testDay,
		Creator:     "alice",
		Items: []appinv.InboundItemInput{
			{MaterialID: f.material, Quantity: 1},
			{MaterialID: f.material, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "M-1-20260314001", res.Items[0].BatchNumber)
	assert.Equal(t, "M-1-20260314002", res.Items[1].BatchNumber)

	_, batchID := f.receive(t, "IN-002", 3)
	batch, err := f.query.GetBatchStock(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, "M-1-20260314003", batch.Batch.BatchNumber)
	assert.Equal(t, "pcs", batch.Batch.Unit)
}

func TestMovementService_OutboundScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inbound, batchID := f.receive(t, "IN-001", 100)

	out, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: batchID, Quantity: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(70), f.onHand(t, batchID))

	txID := out.Items[0].TransactionID
	tx, err := f.query.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, "OUT", tx.ChangeType)
	assert.Equal(t, int64(-30), tx.QuantityChange)
	assert.Equal(t, int64(100), tx.QuantityBefore)
	assert.Equal(t, int64(70), tx.QuantityAfter)

	t.Run("over-issue is rejected without writes", func(t *testing.T) {
		_, err := f.issue("OUT-002", appinv.OutboundItemInput{BatchID: batchID, Quantity: 1000})
		require.Error(t, err)
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

		var shortage *inventory.InsufficientStockError
		require.True(t, errors.As(err, &shortage))
		assert.Equal(t, int64(70), shortage.Available)
		assert.Equal(t, int64(1000), shortage.Requested)
		assert.Equal(t, "M-1", shortage.MaterialCode)
		assert.Equal(t, "M-1-20260314001", shortage.BatchNumber)

		assert.Equal(t, int64(70), f.onHand(t, batchID))
		assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.OutboundOrderModel{}))
		assert.Equal(t, inventory.CodeInsufficientStock, f.metrics.rejections[appinv.OpCreateOutboundOrder])
	})

	t.Run("editing the line corrects the transaction in place", func(t *testing.T) {
		qty := int64(50)
		resp, err := f.svc.UpdateOutboundItem(ctx, out.Order.ID, out.Items[0].ItemID, appinv.OutboundItemUpdate{
			Quantity: &qty,
			Operator: "carol",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(50), resp.Quantity)
		assert.Equal(t, txID, resp.TransactionID)
		assert.Equal(t, int64(50), f.onHand(t, batchID))

		tx, err := f.query.GetTransaction(ctx, txID)
		require.NoError(t, err)
		assert.Equal(t, int64(-50), tx.QuantityChange)
		assert.Equal(t, int64(100), tx.QuantityBefore)
		assert.Equal(t, int64(50), tx.QuantityAfter)

		o, err := f.query.GetOutboundOrder(ctx, out.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), o.TotalQuantity)
		f.assertBalanced(t, batchID)
	})

	t.Run("editing beyond stock plus the line's own draw fails", func(t *testing.T) {
		qty := int64(101)
		_, err := f.svc.UpdateOutboundItem(ctx, out.Order.ID, out.Items[0].ItemID, appinv.OutboundItemUpdate{Quantity: &qty})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		assert.Equal(t, int64(50), f.onHand(t, batchID))
	})

	t.Run("deleting the inbound order is blocked by the outbound order", func(t *testing.T) {
		err := f.svc.DeleteInboundOrder(ctx, inbound.Order.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, inventory.ErrBatchInUse)

		var inUse *inventory.BatchInUseError
		require.True(t, errors.As(err, &inUse))
		require.Len(t, inUse.Blocking, 1)
		assert.Equal(t, "OUT-001", inUse.Blocking[0].OrderNumber)
		assert.Equal(t, "M-1", inUse.MaterialCode)
		assert.Contains(t, err.Error(), "OUT-001")

		_, err = f.query.GetInboundOrder(ctx, inbound.Order.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(50), f.onHand(t, batchID))
	})

	t.Run("deleting the outbound order restores stock and unblocks the batch", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteOutboundOrder(ctx, out.Order.ID))
		assert.Equal(t, int64(100), f.onHand(t, batchID))
		f.assertBalanced(t, batchID)

		require.NoError(t, f.svc.DeleteInboundOrder(ctx, inbound.Order.ID))
		_, err := f.query.GetBatchStock(ctx, batchID)
		assert.ErrorIs(t, err, inventory.ErrBatchNotFound)
		assert.Zero(t, testutil.CountRows(t, f.db, &models.InventoryTransactionModel{}))
		assert.Zero(t, testutil.CountRows(t, f.db, &models.InventoryDetailModel{}))
	})
}

func TestMovementService_OutboundIsAtomic(t *testing.T) {
	f := newFixture(t)
	_, a := f.receive(t, "IN-001", 10)
	_, b := f.receive(t, "IN-002", 10)
	_, c := f.receive(t, "IN-003", 5)

	_, err := f.issue("OUT-001",
		appinv.OutboundItemInput{BatchID: a, Quantity: 10},
		appinv.OutboundItemInput{BatchID: b, Quantity: 4},
		appinv.OutboundItemInput{BatchID: c, Quantity: 6},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	assert.Equal(t, int64(10), f.onHand(t, a))
	assert.Equal(t, int64(10), f.onHand(t, b))
	assert.Equal(t, int64(5), f.onHand(t, c))
	assert.Zero(t, testutil.CountRows(t, f.db, &models.OutboundOrderModel{}))
	assert.Zero(t, testutil.CountRows(t, f.db, &models.OutboundOrderItemModel{}))
	assert.Equal(t, int64(3), testutil.CountRows(t, f.db, &models.InventoryTransactionModel{}))
}

func TestMovementService_OutboundSumsLinesPerBatch(t *testing.T) {
	f := newFixture(t)
	_, batchID := f.receive(t, "IN-001", 10)

	_, err := f.issue("OUT-001",
		appinv.OutboundItemInput{BatchID: batchID, Quantity: 6},
		appinv.OutboundItemInput{BatchID: batchID, Quantity: 6},
	)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, int64(10), f.onHand(t, batchID))

	res, err := f.issue("OUT-002",
		appinv.OutboundItemInput{BatchID: batchID, Quantity: 6},
		appinv.OutboundItemInput{BatchID: batchID, Quantity: 4},
	)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Zero(t, f.onHand(t, batchID))
	f.assertBalanced(t, batchID)
}

func TestMovementService_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, batchID := f.receive(t, "IN-001", 10)

	tests := []struct {
		name string
		run  func() error
		code string
	}{
		{
			name: "duplicate inbound number after normalization",
			run: func() error {
				_, err := f.svc.CreateInboundOrder(ctx, appinv.CreateInboundOrderInput{
					OrderNumber: " ｉｎ-００１ ",
					OrderDate:   testDay,
					Creator:     "alice",
					Items:       []appinv.InboundItemInput{{MaterialID: f.material, Quantity: 1}},
				})
				return err
			},
			code: order.CodeDuplicateOrderNumber,
		},
		{
			name: "duplicate explicit batch number",
			run: func() error {
				_, err := f.svc.CreateInboundOrder(ctx, appinv.CreateInboundOrderInput{
					OrderNumber: "IN-002",
					OrderDate:   testDay,
					Creator:     "alice",
					Items: []appinv.InboundItemInput{{
						MaterialID:  f.material,
						BatchNumber: "m-1-20260314001",
						Quantity:    1,
					}},
				})
				return err
			},
			code: inventory.CodeDuplicateBatchNumber,
		},
		{
			name: "batch number repeated within one order",
			run: func() error {
				_, err := f.svc.CreateInboundOrder(ctx, appinv.CreateInboundOrderInput{
					OrderNumber: "IN-003",
					OrderDate:   testDay,
					Creator:     "alice",
					Items: []appinv.InboundItemInput{
						{MaterialID: f.material, BatchNumber: "LOT-9", Quantity: 1},
						{MaterialID: f.material, BatchNumber: "lot-9", Quantity: 1},
					},
				})
				return err
			},
			code: inventory.CodeDuplicateBatchNumber,
		},
		{
			name: "unknown material",
			run: func() error {
				_, err := f.svc.CreateInboundOrder(ctx, appinv.CreateInboundOrderInput{
					OrderNumber: "IN-004",
					OrderDate:   testDay,
					Creator:     "alice",
					Items:       []appinv.InboundItemInput{{MaterialID: uuid.New(), Quantity: 1}},
				})
				return err
			},
			code: inventory.CodeMaterialNotFound,
		},
		{
			name: "unknown bin",
			run: func() error {
				bin := uuid.New()
				_, err := f.svc.CreateInboundOrder(ctx, appinv.CreateInboundOrderInput{
					OrderNumber: "IN-005",
					OrderDate:   testDay,
					Creator:     "alice",
					Items:       []appinv.InboundItemInput{{MaterialID: f.material, BinID: &bin, Quantity: 1}},
				})
				return err
			},
			code: inventory.CodeBinNotFound,
		},
		{
			name: "non-positive inbound quantity",
			run: func() error {
				_, err := f.svc.CreateInboundOrder(ctx, appinv.CreateInboundOrderInput{
					OrderNumber: "IN-006",
					OrderDate:   testDay,
					Creator:     "alice",
					Items:       []appinv.InboundItemInput{{MaterialID: f.material, Quantity: 0}},
				})
				return err
			},
			code: order.CodeInvalidOrderQuantity,
		},
		{
			name: "empty outbound order",
			run: func() error {
				_, err := f.issue("OUT-001")
				return err
			},
			code: order.CodeEmptyOrder,
		},
		{
			name: "unknown batch on outbound",
			run: func() error {
				_, err := f.issue("OUT-002", appinv.OutboundItemInput{BatchID: uuid.New(), Quantity: 1})
				return err
			},
			code: inventory.CodeBatchNotFound,
		},
		{
			name: "unknown order",
			run: func() error {
				return f.svc.DeleteOutboundOrder(ctx, uuid.New())
			},
			code: order.CodeOrderNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr), "%v", err)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}

	assert.Equal(t, int64(10), f.onHand(t, batchID))
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.InventoryBatchModel{}))
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.InboundOrderModel{}))
}

func TestMovementService_UpdateInboundItem(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity change corrects stock and the IN transaction", func(t *testing.T) {
		f := newFixture(t)
		res, batchID := f.receive(t, "IN-001", 100)
		_, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: batchID, Quantity: 30})
		require.NoError(t, err)

		qty := int64(120)
		item, err := f.svc.UpdateInboundItem(ctx, res.Order.ID, res.Items[0].ItemID, appinv.InboundItemUpdate{Quantity: &qty})
		require.NoError(t, err)
		assert.Equal(t, int64(120), item.Quantity)
		assert.Equal(t, int64(90), f.onHand(t, batchID))

		tx, err := f.query.GetTransaction(ctx, res.Items[0].TransactionID)
		require.NoError(t, err)
		assert.Equal(t, int64(120), tx.QuantityChange)
		f.assertBalanced(t, batchID)
	})

	t.Run("reducing below what was issued fails", func(t *testing.T) {
		f := newFixture(t)
		res, batchID := f.receive(t, "IN-001", 100)
		_, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: batchID, Quantity: 80})
		require.NoError(t, err)

		qty := int64(50)
		_, err = f.svc.UpdateInboundItem(ctx, res.Order.ID, res.Items[0].ItemID, appinv.InboundItemUpdate{Quantity: &qty})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		assert.Equal(t, int64(20), f.onHand(t, batchID))
	})

	t.Run("material change cascades", func(t *testing.T) {
		f := newFixture(t)
		other := testutil.SeedMaterial(t, f.db, "M-2", "kg")
		res, batchID := f.receive(t, "IN-001", 10)
		out, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: batchID, Quantity: 4})
		require.NoError(t, err)

		_, err = f.svc.UpdateInboundItem(ctx, res.Order.ID, res.Items[0].ItemID, appinv.InboundItemUpdate{MaterialID: &other})
		require.NoError(t, err)

		stock, err := f.query.GetMaterialStock(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, int64(6), stock.Quantity)
		for _, id := range []uuid.UUID{res.Items[0].TransactionID, out.Items[0].TransactionID} {
			tx, err := f.query.GetTransaction(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, other, tx.MaterialID)
		}
		o, err := f.query.GetOutboundOrder(ctx, out.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, other, o.Items[0].MaterialID)

		old, err := f.query.GetMaterialStock(ctx, f.material)
		require.NoError(t, err)
		assert.Zero(t, old.Quantity)
	})
}

func TestMovementService_OutboundItemBatchSwitch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, a := f.receive(t, "IN-001", 10)
	_, b := f.receive(t, "IN-002", 10)
	out, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: a, Quantity: 4})
	require.NoError(t, err)
	oldTx := out.Items[0].TransactionID

	resp, err := f.svc.UpdateOutboundItem(ctx, out.Order.ID, out.Items[0].ItemID, appinv.OutboundItemUpdate{BatchID: &b})
	require.NoError(t, err)
	assert.Equal(t, b, resp.BatchID)
	assert.NotEqual(t, oldTx, resp.TransactionID)

	assert.Equal(t, int64(10), f.onHand(t, a))
	assert.Equal(t, int64(6), f.onHand(t, b))
	_, err = f.query.GetTransaction(ctx, oldTx)
	assert.ErrorIs(t, err, inventory.ErrTransactionNotFound)
	f.assertBalanced(t, a)
	f.assertBalanced(t, b)
}

func TestMovementService_ItemLevelOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, a := f.receive(t, "IN-001", 10)

	posted, err := f.svc.AddInboundItem(ctx, res.Order.ID, appinv.InboundItemInput{MaterialID: f.material, Quantity: 5}, "")
	require.NoError(t, err)
	assert.Equal(t, "M-1-20260314002", posted.BatchNumber)

	o, err := f.query.GetInboundOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), o.TotalQuantity)

	out, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: a, Quantity: 2})
	require.NoError(t, err)
	line, err := f.svc.AddOutboundItem(ctx, out.Order.ID, appinv.OutboundItemInput{BatchID: posted.BatchID, Quantity: 5}, "dave")
	require.NoError(t, err)
	assert.Zero(t, f.onHand(t, posted.BatchID))

	tx, err := f.query.GetTransaction(ctx, line.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "dave", tx.Creator)

	require.NoError(t, f.svc.DeleteOutboundItem(ctx, out.Order.ID, line.ItemID))
	assert.Equal(t, int64(5), f.onHand(t, posted.BatchID))

	require.NoError(t, f.svc.DeleteInboundItem(ctx, res.Order.ID, posted.ItemID))
	o, err = f.query.GetInboundOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Len(t, o.Items, 1)
	assert.Equal(t, int64(10), o.TotalQuantity)

	err = f.svc.DeleteInboundItem(ctx, res.Order.ID, res.Items[0].ItemID)
	assert.ErrorIs(t, err, inventory.ErrBatchInUse)
}

func TestMovementService_AdjustStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, batchID := f.receive(t, "IN-001", 100)

	res, err := f.svc.AdjustStock(ctx, appinv.AdjustStockInput{BatchID: batchID, CountedQuantity: 97, Creator: "eve", Reason: "count"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Before)
	assert.Equal(t, int64(97), res.After)
	assert.Equal(t, int64(-3), res.Difference)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, "ADJUST", res.Transaction.ChangeType)
	assert.Equal(t, "stocktake", res.Transaction.ReferenceType)
	f.assertBalanced(t, batchID)

	t.Run("matching count writes nothing", func(t *testing.T) {
		res, err := f.svc.AdjustStock(ctx, appinv.AdjustStockInput{BatchID: batchID, CountedQuantity: 97})
		require.NoError(t, err)
		assert.Nil(t, res.Transaction)
		assert.Equal(t, int64(2), testutil.CountRows(t, f.db, &models.InventoryTransactionModel{}))
	})

	t.Run("negative count is rejected", func(t *testing.T) {
		_, err := f.svc.AdjustStock(ctx, appinv.AdjustStockInput{BatchID: batchID, CountedQuantity: -1})
		assert.Error(t, err)
		assert.Equal(t, int64(97), f.onHand(t, batchID))
	})

	t.Run("statistics include the adjustment", func(t *testing.T) {
		stats, err := f.query.Statistics(ctx, inventory.TransactionFilter{BatchID: &batchID})
		require.NoError(t, err)
		assert.Equal(t, int64(100), stats.TotalIn)
		assert.Equal(t, int64(-3), stats.TotalAdjust)
		assert.Equal(t, int64(97), stats.NetChange)
	})
}

func TestMovementService_LogsRejections(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t)
	f.svc.SetLogger(zap.New(core))

	_, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: uuid.New(), Quantity: 1})
	require.Error(t, err)

	entries := logs.FilterMessage("Inventory movement rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, inventory.CodeBatchNotFound, entries[0].ContextMap()["code"])
	assert.Equal(t, appinv.OpCreateOutboundOrder, entries[0].ContextMap()["operation"])
}

func TestMovementService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	f := newFixture(t)
	_, batchID := f.receive(t, "IN-001", 10)
	_, err := f.svc.AdjustStock(context.Background(), appinv.AdjustStockInput{BatchID: batchID, CountedQuantity: 8, Creator: "eve"})
	require.NoError(t, err)

	attrs := map[string]map[attribute.Key]string{}
	for _, s := range recorder.Ended() {
		m := map[attribute.Key]string{}
		for _, kv := range s.Attributes() {
			m[kv.Key] = kv.Value.Emit()
		}
		attrs[s.Name()] = m
	}
	require.Contains(t, attrs, "movement."+appinv.OpCreateInboundOrder)
	assert.Equal(t, "IN-001", attrs["movement."+appinv.OpCreateInboundOrder]["ledger.order_number"])
	require.Contains(t, attrs, "movement."+appinv.OpAdjustStock)
	assert.NotEmpty(t, attrs["movement."+appinv.OpAdjustStock]["ledger.batch_number"])
}

func TestQueryService_Listings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, a := f.receive(t, "IN-001", 10)
	f.receive(t, "IN-002", 20)
	_, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: a, Quantity: 3})
	require.NoError(t, err)

	batches, err := f.query.ListBatches(ctx, inventory.BatchFilter{BatchNumber: "m-1-2026"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), batches.Total)

	out := inventory.ChangeTypeOut
	page, err := f.query.FindTransactions(ctx, inventory.TransactionFilter{ChangeType: &out})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(-3), page.Items[0].QuantityChange)

	stock, err := f.query.GetMaterialStock(ctx, f.material)
	require.NoError(t, err)
	assert.Equal(t, int64(27), stock.Quantity)
	assert.Len(t, stock.Batches, 2)

	_, err = f.query.GetMaterialStock(ctx, uuid.New())
	assert.ErrorIs(t, err, inventory.ErrMaterialNotFound)
}
