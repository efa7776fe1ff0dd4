package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/masterdata"
	"github.com/erp/warehouse/internal/domain/order"
)

// TransactionScope provides transactional access to ledger repositories.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories a movement
// touches, bound to the current transaction.
type TransactionalRepositories interface {
	BatchRepo() inventory.BatchRepository
	DetailRepo() inventory.DetailRepository
	TransactionRepo() inventory.TransactionRepository
	InboundOrderRepo() order.InboundOrderRepository
	OutboundOrderRepo() order.OutboundOrderRepository
	MaterialRepo() masterdata.MaterialRepository
	BinRepo() masterdata.BinRepository
}

// NoOpTransactionScope runs fn against fixed repositories without a real
// transaction. Used by tests with in-memory or mocked repositories.
type NoOpTransactionScope struct {
	Batches      inventory.BatchRepository
	Details      inventory.DetailRepository
	Transactions inventory.TransactionRepository
	Inbound      order.InboundOrderRepository
	Outbound     order.OutboundOrderRepository
	Materials    masterdata.MaterialRepository
	Bins         masterdata.BinRepository
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) BatchRepo() inventory.BatchRepository { return s.Batches }
func (s *NoOpTransactionScope) DetailRepo() inventory.DetailRepository { return s.Details }
func (s *NoOpTransactionScope) TransactionRepo() inventory.TransactionRepository { return s.Transactions }
func (s *NoOpTransactionScope) InboundOrderRepo() order.InboundOrderRepository { return s.Inbound }
func (s *NoOpTransactionScope) OutboundOrderRepo() order.OutboundOrderRepository { return s.Outbound }
func (s *NoOpTransactionScope) MaterialRepo() masterdata.MaterialRepository { return s.Materials }
func (s *NoOpTransactionScope) BinRepo() masterdata.BinRepository { return s.Bins }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
