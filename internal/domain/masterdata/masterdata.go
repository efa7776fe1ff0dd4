// Package masterdata holds the read-side view of master records the ledger
// references. Their CRUD lives outside this service.
package masterdata

import (
	"context"

	"github.com/google/uuid"
)

// Material is a stock-keeping item.
type Material struct {
	ID   uuid.UUID
	Code string
	Name string
	Unit string
}

// Bin is a storage location inside a warehouse.
type Bin struct {
	ID          uuid.UUID
	WarehouseID uuid.UUID
	Code        string
}

// MaterialRepository looks up materials.
type MaterialRepository interface {
	// FindByID returns shared.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Material, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// BinRepository looks up bins.
type BinRepository interface {
	// FindByID returns shared.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id uuid.UUID) (*Bin, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
