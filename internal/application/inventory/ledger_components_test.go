package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDetailRepository is a mock implementation of inventory.DetailRepository
type MockDetailRepository struct {
	mock.Mock
}

func (m *MockDetailRepository) FindByBatchID(ctx context.Context, batchID uuid.UUID) (*inventory.InventoryDetail, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryDetail), args.Error(1)
}

func (m *MockDetailRepository) FindByBatchIDForUpdate(ctx context.Context, batchID uuid.UUID) (*inventory.InventoryDetail, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryDetail), args.Error(1)
}

func (m *MockDetailRepository) FindByBatchIDsForUpdate(ctx context.Context, batchIDs []uuid.UUID) ([]inventory.InventoryDetail, error) {
	args := m.Called(ctx, batchIDs)
	return args.Get(0).([]inventory.InventoryDetail), args.Error(1)
}

func (m *MockDetailRepository) FindByMaterialID(ctx context.Context, materialID uuid.UUID) ([]inventory.InventoryDetail, error) {
	args := m.Called(ctx, materialID)
	return args.Get(0).([]inventory.InventoryDetail), args.Error(1)
}

func (m *MockDetailRepository) SumQuantityByMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	args := m.Called(ctx, materialID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDetailRepository) Save(ctx context.Context, detail *inventory.InventoryDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockDetailRepository) UpdateMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error {
	args := m.Called(ctx, batchID, materialID)
	return args.Error(0)
}

func (m *MockDetailRepository) DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of inventory.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryTransaction), args.Error(1)
}

func (m *MockTransactionRepository) Find(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.InventoryTransaction, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]inventory.InventoryTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]inventory.InventoryTransaction), args.Error(1)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *inventory.InventoryTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTransactionRepository) DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error {
	args := m.Called(ctx, batchID, materialID)
	return args.Error(0)
}

func (m *MockTransactionRepository) Statistics(ctx context.Context, filter inventory.TransactionFilter) (inventory.TransactionStatistics, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(inventory.TransactionStatistics), args.Error(1)
}

// MockBatchRepository is a mock implementation of inventory.BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryBatch), args.Error(1)
}

func (m *MockBatchRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.InventoryBatch, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]inventory.InventoryBatch), args.Error(1)
}

func (m *MockBatchRepository) FindByBatchNumber(ctx context.Context, batchNumber string) (*inventory.InventoryBatch, error) {
	args := m.Called(ctx, batchNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryBatch), args.Error(1)
}

func (m *MockBatchRepository) ExistsByBatchNumber(ctx context.Context, batchNumber string) (bool, error) {
	args := m.Called(ctx, batchNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockBatchRepository) CountByBatchNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchRepository) FindAll(ctx context.Context, filter inventory.BatchFilter) ([]inventory.InventoryBatch, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]inventory.InventoryBatch), args.Get(1).(int64), args.Error(2)
}

func (m *MockBatchRepository) Save(ctx context.Context, batch *inventory.InventoryBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMaterialRepository is a mock implementation of masterdata.MaterialRepository
type MockMaterialRepository struct {
	mock.Mock
}

func (m *MockMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*masterdata.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*masterdata.Material), args.Error(1)
}

func (m *MockMaterialRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]masterdata.Material, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]masterdata.Material), args.Error(1)
}

func (m *MockMaterialRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockUsageReader is a mock implementation of inventory.OutboundUsageReader
type MockUsageReader struct {
	mock.Mock
}

func (m *MockUsageReader) FindBlockingOrders(ctx context.Context, batchID uuid.UUID) ([]inventory.BlockingOrder, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]inventory.BlockingOrder), args.Error(1)
}

var ledgerNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func stockedDetail(batchID uuid.UUID, qty int64) *inventory.InventoryDetail {
	d := inventory.NewInventoryDetail(batchID, uuid.New(), nil, ledgerNow)
	d.Quantity = qty
	return d
}

func TestStockLedger_Increase(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()

	t.Run("creates the row on first receipt", func(t *testing.T) {
		details := new(MockDetailRepository)
		details.On("FindByBatchIDForUpdate", ctx, batchID).Return(nil, shared.ErrNotFound)
		details.On("Save", ctx, mock.MatchedBy(func(d *inventory.InventoryDetail) bool {
			return d.BatchID == batchID && d.Quantity == 100
		})).Return(nil)

		change, err := NewStockLedger(details).Increase(ctx, batchID, uuid.New(), nil, 100, ledgerNow)
		require.NoError(t, err)
		assert.Equal(t, int64(0), change.Before)
		assert.Equal(t, int64(100), change.After)
		details.AssertExpectations(t)
	})

	t.Run("adds to the locked row", func(t *testing.T) {
		details := new(MockDetailRepository)
		details.On("FindByBatchIDForUpdate", ctx, batchID).Return(stockedDetail(batchID, 40), nil)
		details.On("Save", ctx, mock.Anything).Return(nil)

		change, err := NewStockLedger(details).Increase(ctx, batchID, uuid.New(), nil, 2, ledgerNow)
		require.NoError(t, err)
		assert.Equal(t, int64(40), change.Before)
		assert.Equal(t, int64(42), change.After)
	})

	t.Run("lock failure is wrapped", func(t *testing.T) {
		details := new(MockDetailRepository)
		boom := errors.New("connection reset")
		details.On("FindByBatchIDForUpdate", ctx, batchID).Return(nil, boom)

		_, err := NewStockLedger(details).Increase(ctx, batchID, uuid.New(), nil, 1, ledgerNow)
		assert.ErrorIs(t, err, boom)
		details.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestStockLedger_Decrease(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()

	t.Run("shortage writes nothing", func(t *testing.T) {
		details := new(MockDetailRepository)
		details.On("FindByBatchIDForUpdate", ctx, batchID).Return(stockedDetail(batchID, 70), nil)

		_, err := NewStockLedger(details).Decrease(ctx, batchID, 1000, ledgerNow)
		var shortage *inventory.InsufficientStockError
		require.True(t, errors.As(err, &shortage))
		assert.Equal(t, int64(70), shortage.Available)
		assert.Equal(t, int64(1000), shortage.Requested)
		details.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing row counts as zero", func(t *testing.T) {
		details := new(MockDetailRepository)
		details.On("FindByBatchIDForUpdate", ctx, batchID).Return(nil, shared.ErrNotFound)

		_, err := NewStockLedger(details).Decrease(ctx, batchID, 1, ledgerNow)
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	})

	t.Run("draws down to zero", func(t *testing.T) {
		details := new(MockDetailRepository)
		details.On("FindByBatchIDForUpdate", ctx, batchID).Return(stockedDetail(batchID, 5), nil)
		details.On("Save", ctx, mock.Anything).Return(nil)

		change, err := NewStockLedger(details).Decrease(ctx, batchID, 5, ledgerNow)
		require.NoError(t, err)
		assert.Equal(t, int64(5), change.Before)
		assert.Zero(t, change.After)
	})
}

func TestStockLedger_GetQuantityAndLockMany(t *testing.T) {
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	details := new(MockDetailRepository)
	details.On("FindByBatchID", ctx, a).Return(stockedDetail(a, 9), nil)
	details.On("FindByBatchID", ctx, b).Return(nil, shared.ErrNotFound)
	details.On("FindByBatchIDsForUpdate", ctx, []uuid.UUID{a, b}).
		Return([]inventory.InventoryDetail{*stockedDetail(a, 9)}, nil)
	ledger := NewStockLedger(details)

	q, err := ledger.GetQuantity(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(9), q)

	q, err = ledger.GetQuantity(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, q)

	locked, err := ledger.LockMany(ctx, []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Contains(t, locked, a)
	assert.NotContains(t, locked, b)
}

func validInput(materialID, batchID uuid.UUID) inventory.TransactionInput {
	return inventory.TransactionInput{
		MaterialID:     materialID,
		BatchID:        batchID,
		ChangeType:     inventory.ChangeTypeIn,
		QuantityChange: 10,
		QuantityBefore: 0,
		QuantityAfter:  10,
		ReferenceType:  inventory.ReferenceTypeInbound,
		ReferenceID:    uuid.New(),
		Creator:        "alice",
	}
}

func TestTransactionLog_Append(t *testing.T) {
	ctx := context.Background()
	materialID, batchID := uuid.New(), uuid.New()

	t.Run("stamps the clock time", func(t *testing.T) {
		txs := new(MockTransactionRepository)
		materials := new(MockMaterialRepository)
		batches := new(MockBatchRepository)
		materials.On("Exists", ctx, materialID).Return(true, nil)
		batches.On("FindByID", ctx, batchID).Return(&inventory.InventoryBatch{}, nil)
		txs.On("Create", ctx, mock.Anything).Return(nil)

		log := NewTransactionLog(txs, materials, batches, shared.FixedClock{T: ledgerNow})
		tx, err := log.Append(ctx, validInput(materialID, batchID))
		require.NoError(t, err)
		assert.Equal(t, ledgerNow, tx.TransactionTime)
		txs.AssertExpectations(t)
	})

	t.Run("rejects inconsistent arithmetic before any lookup", func(t *testing.T) {
		txs := new(MockTransactionRepository)
		materials := new(MockMaterialRepository)
		batches := new(MockBatchRepository)
		in := validInput(materialID, batchID)
		in.QuantityAfter = 11

		_, err := NewTransactionLog(txs, materials, batches, shared.FixedClock{T: ledgerNow}).Append(ctx, in)
		assert.ErrorIs(t, err, inventory.ErrIncompleteTransactionData)
		materials.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
		txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown material", func(t *testing.T) {
		txs := new(MockTransactionRepository)
		materials := new(MockMaterialRepository)
		batches := new(MockBatchRepository)
		materials.On("Exists", ctx, materialID).Return(false, nil)

		_, err := NewTransactionLog(txs, materials, batches, shared.FixedClock{T: ledgerNow}).Append(ctx, validInput(materialID, batchID))
		assert.ErrorIs(t, err, inventory.ErrMaterialNotFound)
	})

	t.Run("unknown batch", func(t *testing.T) {
		txs := new(MockTransactionRepository)
		materials := new(MockMaterialRepository)
		batches := new(MockBatchRepository)
		materials.On("Exists", ctx, materialID).Return(true, nil)
		batches.On("FindByID", ctx, batchID).Return(nil, shared.ErrNotFound)

		_, err := NewTransactionLog(txs, materials, batches, shared.FixedClock{T: ledgerNow}).Append(ctx, validInput(materialID, batchID))
		assert.ErrorIs(t, err, inventory.ErrBatchNotFound)
	})
}

func TestTransactionLog_GetAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	txs := new(MockTransactionRepository)
	txs.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)
	txs.On("Delete", ctx, id).Return(shared.ErrNotFound)
	log := NewTransactionLog(txs, new(MockMaterialRepository), new(MockBatchRepository), shared.SystemClock{})

	_, err := log.Get(ctx, id)
	assert.ErrorIs(t, err, inventory.ErrTransactionNotFound)
	assert.ErrorIs(t, log.Delete(ctx, id), inventory.ErrTransactionNotFound)
}

func TestTransactionLog_FindDefaultsToTransactionTime(t *testing.T) {
	ctx := context.Background()
	txs := new(MockTransactionRepository)
	txs.On("Find", ctx, mock.MatchedBy(func(f inventory.TransactionFilter) bool {
		return f.OrderBy == "transaction_time" && f.Page == 1 && f.PageSize > 0
	})).Return([]inventory.InventoryTransaction{}, int64(0), nil)

	log := NewTransactionLog(txs, new(MockMaterialRepository), new(MockBatchRepository), shared.SystemClock{})
	page, err := log.Find(ctx, inventory.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	txs.AssertExpectations(t)
}

func TestBatchRegistry_NextBatchNumber(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	batches := new(MockBatchRepository)
	batches.On("CountByBatchNumberPrefix", ctx, "MAT-20260501").Return(int64(2), nil)
	batches.On("ExistsByBatchNumber", ctx, "MAT-20260501004").Return(true, nil)
	batches.On("ExistsByBatchNumber", ctx, "MAT-20260501005").Return(false, nil)

	registry := NewBatchRegistry(batches, nil, nil, nil, shared.FixedClock{T: day})
	reserved := map[string]struct{}{"MAT-20260501003": {}}

	number, err := registry.NextBatchNumber(ctx, "MAT", day, reserved)
	require.NoError(t, err)
	assert.Equal(t, "MAT-20260501005", number)
	batches.AssertNotCalled(t, "ExistsByBatchNumber", ctx, "MAT-20260501003")
}

func TestBatchRegistry_Create(t *testing.T) {
	ctx := context.Background()
	in := inventory.NewBatchInput{
		BatchNumber: "b-1",
		MaterialID:  uuid.New(),
		InboundDate: ledgerNow,
		Creator:     "alice",
	}

	t.Run("lookup collision", func(t *testing.T) {
		batches := new(MockBatchRepository)
		batches.On("ExistsByBatchNumber", ctx, "B-1").Return(true, nil)

		_, err := NewBatchRegistry(batches, nil, nil, nil, shared.FixedClock{T: ledgerNow}).Create(ctx, in)
		assert.ErrorIs(t, err, inventory.ErrDuplicateBatchNumber)
		batches.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("insert race is reported as a duplicate", func(t *testing.T) {
		batches := new(MockBatchRepository)
		batches.On("ExistsByBatchNumber", ctx, "B-1").Return(false, nil)
		batches.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists)

		_, err := NewBatchRegistry(batches, nil, nil, nil, shared.FixedClock{T: ledgerNow}).Create(ctx, in)
		assert.ErrorIs(t, err, inventory.ErrDuplicateBatchNumber)
	})
}

func TestBatchRegistry_DeleteChecksUsageFirst(t *testing.T) {
	ctx := context.Background()
	batch := &inventory.InventoryBatch{BatchNumber: "B-1"}
	batch.ID = uuid.New()

	batches := new(MockBatchRepository)
	details := new(MockDetailRepository)
	txs := new(MockTransactionRepository)
	usage := new(MockUsageReader)
	batches.On("FindByID", ctx, batch.ID).Return(batch, nil)
	usage.On("FindBlockingOrders", ctx, batch.ID).Return([]inventory.BlockingOrder{
		{OrderID: uuid.New(), OrderNumber: "OUT-7", ItemCount: 2, Quantity: 9},
	}, nil)

	err := NewBatchRegistry(batches, details, txs, usage, shared.SystemClock{}).Delete(ctx, batch.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrBatchInUse)
	assert.Contains(t, err.Error(), "OUT-7")
	txs.AssertNotCalled(t, "DeleteByBatchID", mock.Anything, mock.Anything)
	details.AssertNotCalled(t, "DeleteByBatchID", mock.Anything, mock.Anything)
	batches.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

// MockInboundOrderRepository is a mock implementation of order.InboundOrderRepository
type MockInboundOrderRepository struct {
	mock.Mock
}

func (m *MockInboundOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.InboundOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.InboundOrder), args.Error(1)
}

func (m *MockInboundOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.InboundOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.InboundOrder), args.Error(1)
}

func (m *MockInboundOrderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockInboundOrderRepository) SaveHeader(ctx context.Context, o *order.InboundOrder) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockInboundOrderRepository) SaveItem(ctx context.Context, item *order.InboundOrderItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockInboundOrderRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInboundOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockOutboundOrderRepository is a mock implementation of order.OutboundOrderRepository
type MockOutboundOrderRepository struct {
	mock.Mock
}

func (m *MockOutboundOrderRepository) FindBlockingOrders(ctx context.Context, batchID uuid.UUID) ([]inventory.BlockingOrder, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]inventory.BlockingOrder), args.Error(1)
}

func (m *MockOutboundOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.OutboundOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.OutboundOrder), args.Error(1)
}

func (m *MockOutboundOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.OutboundOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.OutboundOrder), args.Error(1)
}

func (m *MockOutboundOrderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockOutboundOrderRepository) SaveHeader(ctx context.Context, o *order.OutboundOrder) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOutboundOrderRepository) SaveItem(ctx context.Context, item *order.OutboundOrderItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockOutboundOrderRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboundOrderRepository) UpdateItemMaterialByBatchID(ctx context.Context, batchID, materialID uuid.UUID) error {
	return m.Called(ctx, batchID, materialID).Error(0)
}

func (m *MockOutboundOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// Movements on an existing order read it through the locking lookup, so two
// edits of one line never both start from the same item quantity.
func TestMovementService_LocksExistingOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("outbound edit reads the order under lock", func(t *testing.T) {
		o := &order.OutboundOrder{Items: []order.OutboundOrderItem{{ID: uuid.New(), BatchID: uuid.New(), Quantity: 30}}}
		o.ID = uuid.New()
		outbound := new(MockOutboundOrderRepository)
		outbound.On("FindByIDForUpdate", mock.Anything, o.ID).Return(o, nil)

		svc := NewMovementService(&NoOpTransactionScope{Outbound: outbound}, shared.FixedClock{T: ledgerNow})
		qty := int64(30)
		resp, err := svc.UpdateOutboundItem(ctx, o.ID, o.Items[0].ID, OutboundItemUpdate{Quantity: &qty, Operator: "bob"})
		require.NoError(t, err)
		assert.Equal(t, int64(30), resp.Quantity)
		outbound.AssertExpectations(t)
		outbound.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missing inbound order is reported after the locking lookup", func(t *testing.T) {
		id := uuid.New()
		inbound := new(MockInboundOrderRepository)
		inbound.On("FindByIDForUpdate", mock.Anything, id).Return(nil, shared.ErrNotFound)

		svc := NewMovementService(&NoOpTransactionScope{Inbound: inbound}, nil)
		err := svc.DeleteInboundItem(ctx, id, uuid.New())
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		inbound.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		inbound.AssertNotCalled(t, "DeleteItem", mock.Anything, mock.Anything)
	})

	t.Run("outbound order delete reads the order under lock", func(t *testing.T) {
		id := uuid.New()
		outbound := new(MockOutboundOrderRepository)
		outbound.On("FindByIDForUpdate", mock.Anything, id).Return(nil, shared.ErrNotFound)

		svc := NewMovementService(&NoOpTransactionScope{Outbound: outbound}, nil)
		err := svc.DeleteOutboundOrder(ctx, id)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		outbound.AssertExpectations(t)
	})
}

func TestMovement_LabelShortageOf(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()
	materialID := uuid.New()
	shortage := func() error {
		return &inventory.InsufficientStockError{BatchID: batchID, Available: 3, Requested: 5}
	}

	t.Run("labels the shortage with batch and material", func(t *testing.T) {
		batches := new(MockBatchRepository)
		materials := new(MockMaterialRepository)
		batches.On("FindByID", ctx, batchID).Return(&inventory.InventoryBatch{
			BaseEntity:  shared.BaseEntity{ID: batchID},
			BatchNumber: "B-001",
			MaterialID:  materialID,
		}, nil)
		materials.On("FindByID", ctx, materialID).Return(&masterdata.Material{ID: materialID, Code: "M-7"}, nil)
		m := &movement{repos: &NoOpTransactionScope{Batches: batches, Materials: materials}}

		var labelled *inventory.InsufficientStockError
		require.ErrorAs(t, m.labelShortageOf(ctx, shortage(), batchID), &labelled)
		assert.Equal(t, "B-001", labelled.BatchNumber)
		assert.Equal(t, "M-7", labelled.MaterialCode)
		assert.Equal(t, int64(3), labelled.Available)
	})

	t.Run("failed batch lookup keeps the shortage unlabelled", func(t *testing.T) {
		batches := new(MockBatchRepository)
		batches.On("FindByID", ctx, batchID).Return(nil, errors.New("connection reset"))
		m := &movement{repos: &NoOpTransactionScope{Batches: batches}}

		var unlabelled *inventory.InsufficientStockError
		require.ErrorAs(t, m.labelShortageOf(ctx, shortage(), batchID), &unlabelled)
		assert.Empty(t, unlabelled.BatchNumber)
		assert.Equal(t, int64(5), unlabelled.Requested)
	})

	t.Run("other errors skip the lookup", func(t *testing.T) {
		batches := new(MockBatchRepository)
		m := &movement{repos: &NoOpTransactionScope{Batches: batches}}

		err := m.labelShortageOf(ctx, inventory.ErrBatchNotFound, batchID)
		assert.ErrorIs(t, err, inventory.ErrBatchNotFound)
		batches.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}
