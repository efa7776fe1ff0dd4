package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm handle shared by every ledger repository.
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// NewDatabase opens the postgres connection pool. A nil gormLogger silences gorm.
// Default transactions are skipped: every ledger write already runs inside an
// explicit transaction scope.
func NewDatabase(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d, err := wrap(db)
	if err != nil {
		return nil, err
	}
	d.sql.SetMaxOpenConns(cfg.MaxOpenConns)
	d.sql.SetMaxIdleConns(cfg.MaxIdleConns)
	d.sql.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	d.sql.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := d.sql.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

func wrap(db *gorm.DB) (*Database, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return &Database{DB: db, sql: sqlDB}, nil
}

// SQL returns the pooled database/sql handle used by migrations and pool metrics.
func (d *Database) SQL() *sql.DB {
	return d.sql
}

// Ping checks the connection; it doubles as the readiness probe.
func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.sql.Close()
}
