package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/order"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/erp/warehouse/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInboundOrderRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormInboundOrderRepository(db)
	materialID := testutil.SeedMaterial(t, db, "M-1", "pcs")
	now := time.Now()

	o, err := order.NewInboundOrder("in-001", nil, now, "alice", "first receipt", now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveHeader(ctx, o))

	item, err := o.AddItem(order.InboundOrderItem{
		MaterialID:    materialID,
		BatchID:       uuid.New(),
		Quantity:      100,
		UnitPrice:     decimal.NewFromInt(10),
		Unit:          "pcs",
		TransactionID: uuid.New(),
	}, now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveItem(ctx, item))
	require.NoError(t, repo.SaveHeader(ctx, o))

	t.Run("loads header and items", func(t *testing.T) {
		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "IN-001", found.OrderNumber)
		assert.Equal(t, int64(100), found.TotalQuantity)
		require.Len(t, found.Items, 1)
		assert.Equal(t, item.TransactionID, found.Items[0].TransactionID)
		assert.True(t, decimal.NewFromInt(10).Equal(found.Items[0].UnitPrice))
	})

	t.Run("order number is unique", func(t *testing.T) {
		exists, err := repo.ExistsByOrderNumber(ctx, "IN-001")
		require.NoError(t, err)
		assert.True(t, exists)

		dup, err := order.NewInboundOrder("IN-001", nil, now, "bob", "", now)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.SaveHeader(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteItem(ctx, uuid.New()), shared.ErrNotFound)
	})

	t.Run("delete removes items with the header", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, o.ID))
		_, err := repo.FindByID(ctx, o.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Zero(t, testutil.CountRows(t, db, &models.InboundOrderItemModel{}))
		assert.ErrorIs(t, repo.Delete(ctx, o.ID), shared.ErrNotFound)
	})
}

func newPostedOutbound(t *testing.T, number string, batchID, materialID uuid.UUID, quantities ...int64) (*order.OutboundOrder, []*order.OutboundOrderItem) {
	t.Helper()
	now := time.Now()
	o, err := order.NewOutboundOrder(number, nil, now, "alice", "", now)
	require.NoError(t, err)
	var items []*order.OutboundOrderItem
	for _, q := range quantities {
		it, err := o.AddItem(order.OutboundOrderItem{
			BatchID:       batchID,
			MaterialID:    materialID,
			Quantity:      q,
			TransactionID: uuid.New(),
		}, now)
		require.NoError(t, err)
		items = append(items, it)
	}
	return o, items
}

func TestGormOutboundOrderRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("blocking orders are grouped per order", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		repo := NewGormOutboundOrderRepository(db)
		materialID := testutil.SeedMaterial(t, db, "M-1", "pcs")
		batchID := uuid.New()

		for _, tc := range []struct {
			number string
			qty    []int64
		}{{"OUT-002", []int64{5}}, {"OUT-001", []int64{10, 20}}} {
			o, items := newPostedOutbound(t, tc.number, batchID, materialID, tc.qty...)
			require.NoError(t, repo.SaveHeader(ctx, o))
			for _, it := range items {
				require.NoError(t, repo.SaveItem(ctx, it))
			}
		}
		other, items := newPostedOutbound(t, "OUT-003", uuid.New(), materialID, 7)
		require.NoError(t, repo.SaveHeader(ctx, other))
		require.NoError(t, repo.SaveItem(ctx, items[0]))

		blocking, err := repo.FindBlockingOrders(ctx, batchID)
		require.NoError(t, err)
		require.Len(t, blocking, 2)
		assert.Equal(t, "OUT-001", blocking[0].OrderNumber)
		assert.Equal(t, int64(2), blocking[0].ItemCount)
		assert.Equal(t, int64(30), blocking[0].Quantity)
		assert.Equal(t, "OUT-002", blocking[1].OrderNumber)
		assert.Equal(t, int64(1), blocking[1].ItemCount)
	})

	t.Run("no blocking orders for an unused batch", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		blocking, err := NewGormOutboundOrderRepository(db).FindBlockingOrders(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, blocking)
	})

	t.Run("material rewrite follows the batch", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		repo := NewGormOutboundOrderRepository(db)
		m1 := testutil.SeedMaterial(t, db, "M-1", "pcs")
		m2 := testutil.SeedMaterial(t, db, "M-2", "pcs")
		batchID := uuid.New()
		o, items := newPostedOutbound(t, "OUT-001", batchID, m1, 3)
		require.NoError(t, repo.SaveHeader(ctx, o))
		require.NoError(t, repo.SaveItem(ctx, items[0]))

		require.NoError(t, repo.UpdateItemMaterialByBatchID(ctx, batchID, m2))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, m2, found.Items[0].MaterialID)
	})
}

func TestParseIsolationLevel(t *testing.T) {
	tests := []struct {
		in   string
		want sql.IsolationLevel
	}{
		{"", sql.LevelDefault},
		{"read_committed", sql.LevelReadCommitted},
		{"REPEATABLE_READ", sql.LevelRepeatableRead},
		{" serializable ", sql.LevelSerializable},
	}
	for _, tt := range tests {
		got, err := ParseIsolationLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseIsolationLevel("snapshot")
	assert.Error(t, err)
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()

	t.Run("commits every repository write", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		materialID := testutil.SeedMaterial(t, db, "M-1", "pcs")
		scope := NewGormTransactionScope(db, sql.LevelDefault)

		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			b := newTestBatch(t, "B-1", materialID)
			if err := repos.BatchRepo().Save(ctx, b); err != nil {
				return err
			}
			d := inventory.NewInventoryDetail(b.ID, materialID, nil, time.Now())
			if err := d.Increase(10, time.Now()); err != nil {
				return err
			}
			return repos.DetailRepo().Save(ctx, d)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.InventoryBatchModel{}))
		assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.InventoryDetailModel{}))
	})

	t.Run("rolls back every write on error", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		materialID := testutil.SeedMaterial(t, db, "M-1", "pcs")
		scope := NewGormTransactionScope(db, sql.LevelDefault)
		boom := errors.New("boom")

		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			b := newTestBatch(t, "B-1", materialID)
			if err := repos.BatchRepo().Save(ctx, b); err != nil {
				return err
			}
			tx := newTestTransaction(t, materialID, b.ID, inventory.ChangeTypeIn, 10, 0)
			if err := repos.TransactionRepo().Create(ctx, tx); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, testutil.CountRows(t, db, &models.InventoryBatchModel{}))
		assert.Zero(t, testutil.CountRows(t, db, &models.InventoryTransactionModel{}))
	})

	t.Run("master data is readable inside the transaction", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		materialID := testutil.SeedMaterial(t, db, "M-1", "pcs")
		binID := testutil.SeedBin(t, db, "A-01")
		scope := NewGormTransactionScope(db, sql.LevelDefault)

		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			m, err := repos.MaterialRepo().FindByID(ctx, materialID)
			if err != nil {
				return err
			}
			assert.Equal(t, "M-1", m.Code)
			ok, err := repos.BinRepo().Exists(ctx, binID)
			if err != nil {
				return err
			}
			assert.True(t, ok)
			_, err = repos.MaterialRepo().FindByID(ctx, uuid.New())
			assert.ErrorIs(t, err, shared.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})
}
