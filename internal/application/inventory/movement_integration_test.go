//go:build integration

package inventory_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewPostgresDB(t)

	svc := appinv.NewMovementService(persistence.NewGormTransactionScope(db, sql.LevelReadCommitted), shared.FixedClock{T: testDay})
	metrics := &recordingMetrics{}
	svc.SetMetrics(metrics)

	return &fixture{
		db:      db,
		svc:     svc,
		metrics: metrics,
		query: appinv.NewQueryService(
			persistence.NewGormInventoryBatchRepository(db),
			persistence.NewGormInventoryDetailRepository(db),
			persistence.NewGormInventoryTransactionRepository(db),
			persistence.NewGormMaterialRepository(db),
			persistence.NewGormInboundOrderRepository(db),
			persistence.NewGormOutboundOrderRepository(db),
		),
		material: testutil.SeedMaterial(t, db, "M-1", "pcs"),
		bin:      testutil.SeedBin(t, db, "A-01"),
	}
}

// Concurrent issues against one batch must never drive stock negative, and
// every accepted issue must appear exactly once in the ledger.
func TestMovementService_ConcurrentOutbound(t *testing.T) {
	f := newPostgresFixture(t)
	_, batchID := f.receive(t, "IN-001", 100)

	const workers = 20
	const each = 7

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		short    atomic.Int64
		errs     = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.issue(fmt.Sprintf("OUT-%03d", i), appinv.OutboundItemInput{BatchID: batchID, Quantity: each})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, inventory.ErrInsufficientStock):
				short.Add(1)
			default:
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	assert.Equal(t, int64(100/each), accepted.Load())
	assert.Equal(t, int64(workers-100/each), short.Load())
	assert.Equal(t, int64(100-accepted.Load()*each), f.onHand(t, batchID))
	f.assertBalanced(t, batchID)
}

func TestMovementService_ConcurrentAdjustAndIssue(t *testing.T) {
	ctx := context.Background()
	f := newPostgresFixture(t)
	_, batchID := f.receive(t, "IN-001", 50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = f.issue(fmt.Sprintf("OUT-%03d", i), appinv.OutboundItemInput{BatchID: batchID, Quantity: 3})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = f.svc.AdjustStock(ctx, appinv.AdjustStockInput{BatchID: batchID, CountedQuantity: 40, Creator: "carol"})
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, f.onHand(t, batchID), int64(0))
	f.assertBalanced(t, batchID)
}

func TestMovementService_PostgresDeleteInboundInUse(t *testing.T) {
	ctx := context.Background()
	f := newPostgresFixture(t)
	inbound, batchID := f.receive(t, "IN-001", 10)

	_, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: batchID, Quantity: 1})
	require.NoError(t, err)

	err = f.svc.DeleteInboundOrder(ctx, inbound.Order.ID)
	assert.True(t, errors.Is(err, inventory.ErrBatchInUse), "got %v", err)
	assert.Equal(t, int64(9), f.onHand(t, batchID))
}

// Concurrent edits of one outbound line serialize on the order row: each
// edit reverses the quantity the previous one committed, so the line, the
// order total and the stock row agree once all of them finish.
func TestMovementService_ConcurrentEditsOfOneLine(t *testing.T) {
	ctx := context.Background()
	f := newPostgresFixture(t)
	_, batchID := f.receive(t, "IN-001", 100)

	out, err := f.issue("OUT-001", appinv.OutboundItemInput{BatchID: batchID, Quantity: 30})
	require.NoError(t, err)
	orderID, itemID := out.Order.ID, out.Items[0].ItemID

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(qty int64) {
			defer wg.Done()
			_, err := f.svc.UpdateOutboundItem(ctx, orderID, itemID, appinv.OutboundItemUpdate{Quantity: &qty, Operator: "bob"})
			if err != nil {
				errs <- err
			}
		}(int64(31 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	o, err := f.query.GetOutboundOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	line := o.Items[0].Quantity
	assert.Equal(t, line, o.TotalQuantity)
	assert.Equal(t, 100-line, f.onHand(t, batchID))
	f.assertBalanced(t, batchID)
}
