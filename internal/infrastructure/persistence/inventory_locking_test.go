package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens gorm on the postgres dialector over sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func detailRows(batchID uuid.UUID, quantity int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "batch_id", "material_id", "bin_id", "quantity", "last_updated"}).
		AddRow(uuid.New().String(), batchID.String(), uuid.New().String(), nil, quantity, time.Now())
}

func TestGormInventoryDetailRepository_FindByBatchIDForUpdate(t *testing.T) {
	t.Run("locks the row with FOR UPDATE", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInventoryDetailRepository(db)
		batchID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_details" WHERE batch_id = \$1 LIMIT \$2 FOR UPDATE`).
			WithArgs(batchID, 1).
			WillReturnRows(detailRows(batchID, 70))

		detail, err := repo.FindByBatchIDForUpdate(context.Background(), batchID)
		require.NoError(t, err)
		assert.Equal(t, int64(70), detail.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plain read takes no lock", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInventoryDetailRepository(db)
		batchID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_details" WHERE batch_id = \$1 LIMIT \$2$`).
			WithArgs(batchID, 1).
			WillReturnRows(detailRows(batchID, 5))

		_, err := repo.FindByBatchID(context.Background(), batchID)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInventoryDetailRepository(db)

		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByBatchIDForUpdate(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryDetailRepository_FindByBatchIDsForUpdate(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormInventoryDetailRepository(db)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "inventory_details" WHERE batch_id IN \(\$1,\$2\) ORDER BY batch_id FOR UPDATE`).
		WithArgs(a, b).
		WillReturnRows(detailRows(a, 1))

	details, err := repo.FindByBatchIDsForUpdate(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Len(t, details, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, shared.ErrAlreadyExists},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, shared.ErrAlreadyExists},
		{"sqlite unique", errors.New("UNIQUE constraint failed: inventory_batches.batch_number"), shared.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		fk := &pgconn.PgError{Code: "23503"}
		got := translateError(fk)
		assert.Equal(t, error(fk), got)
		assert.False(t, errors.Is(got, shared.ErrAlreadyExists))
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `A\_B\%C\\`, escapeLike(`A_B%C\`))
	assert.Equal(t, "MAT-20260101", escapeLike("MAT-20260101"))
}

func orderHeaderRows(id uuid.UUID, total int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "created_at", "updated_at", "order_number", "order_date", "creator", "remark", "total_quantity"}).
		AddRow(id.String(), now, now, "ORD-001", now, "alice", "", total)
}

func TestOrderRepositories_FindByIDForUpdate(t *testing.T) {
	t.Run("inbound header is locked before items are read", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inbound_orders" WHERE id = \$1 LIMIT \$2 FOR UPDATE`).
			WithArgs(id, 1).
			WillReturnRows(orderHeaderRows(id, 100))
		mock.ExpectQuery(`SELECT \* FROM "inbound_order_items" WHERE order_id = \$1 ORDER BY created_at ASC, id ASC$`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		o, err := NewGormInboundOrderRepository(db).FindByIDForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(100), o.TotalQuantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outbound header is locked before items are read", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "outbound_orders" WHERE id = \$1 LIMIT \$2 FOR UPDATE`).
			WithArgs(id, 1).
			WillReturnRows(orderHeaderRows(id, 30))
		mock.ExpectQuery(`SELECT \* FROM "outbound_order_items" WHERE order_id = \$1 ORDER BY created_at ASC, id ASC$`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		o, err := NewGormOutboundOrderRepository(db).FindByIDForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(30), o.TotalQuantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plain read takes no lock", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "outbound_orders" WHERE id = \$1 LIMIT \$2$`).
			WithArgs(id, 1).
			WillReturnRows(orderHeaderRows(id, 30))
		mock.ExpectQuery(`FROM "outbound_order_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormOutboundOrderRepository(db).FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing order maps to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormInboundOrderRepository(db).FindByIDForUpdate(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
