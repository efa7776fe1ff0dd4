// Package testutil holds database fixtures shared by repository and service tests.
package testutil

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with every ledger table
// migrated. The pool is pinned to one connection because each SQLite
// in-memory connection is a separate database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// SeedMaterial inserts a material and returns its id.
func SeedMaterial(t *testing.T, db *gorm.DB, code, unit string) uuid.UUID {
	t.Helper()
	now := time.Now()
	m := &models.MaterialModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Code:      code,
		Name:      code,
		Unit:      unit,
	}
	require.NoError(t, db.Create(m).Error)
	return m.ID
}

// SeedBin inserts a bin and returns its id.
func SeedBin(t *testing.T, db *gorm.DB, code string) uuid.UUID {
	t.Helper()
	now := time.Now()
	b := &models.BinModel{
		BaseModel:   models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		WarehouseID: uuid.New(),
		Code:        code,
	}
	require.NoError(t, db.Create(b).Error)
	return b.ID
}

// CountRows counts the rows of a model's table.
func CountRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
