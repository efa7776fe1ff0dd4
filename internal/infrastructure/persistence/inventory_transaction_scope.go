package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/domain/order"
	"gorm.io/gorm"
)

// ParseIsolationLevel maps a configured isolation name to sql.IsolationLevel.
// An empty name selects the driver default.
func ParseIsolationLevel(name string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", name)
	}
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db   *gorm.DB
	opts *sql.TxOptions
}

// NewGormTransactionScope creates a new GormTransactionScope. Transactions
// are opened at the given isolation level.
func NewGormTransactionScope(db *gorm.DB, isolation sql.IsolationLevel) *GormTransactionScope {
	s := &GormTransactionScope{db: db}
	if isolation != sql.LevelDefault {
		s.opts = &sql.TxOptions{Isolation: isolation}
	}
	return s
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	run := func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}
	if s.opts == nil {
		return s.db.WithContext(ctx).Transaction(run)
	}
	return s.db.WithContext(ctx).Transaction(run, s.opts)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the batch repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BatchRepo() inventory.BatchRepository {
	return NewGormInventoryBatchRepository(r.tx)
}

// DetailRepo returns the stock row repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DetailRepo() inventory.DetailRepository {
	return NewGormInventoryDetailRepository(r.tx)
}

// TransactionRepo returns the inventory transaction repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransactionRepo() inventory.TransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

// InboundOrderRepo returns the inbound order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InboundOrderRepo() order.InboundOrderRepository {
	return NewGormInboundOrderRepository(r.tx)
}

// OutboundOrderRepo returns the outbound order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OutboundOrderRepo() order.OutboundOrderRepository {
	return NewGormOutboundOrderRepository(r.tx)
}

// MaterialRepo returns the material repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MaterialRepo() masterdata.MaterialRepository {
	return NewGormMaterialRepository(r.tx)
}

// BinRepo returns the bin repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BinRepo() masterdata.BinRepository {
	return NewGormBinRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
