package repository

import (
	"context"

	"github.com/m-mizutani/kioku/pkg/model"
)

// Repository is the record store: durable, authoritative storage of full
// memory records addressable by ID. Implementations must keep ID and
// CreatedAt immutable after creation.
type Repository interface {
	// PutMemory stores a new record. It fails with model.ErrDuplicateKey when
	// the ID already exists.
	PutMemory(ctx context.Context, memory *model.Memory) error

	// UpdateMemory replaces the mutable fields of an existing record. It fails
	// with model.ErrNotFound when the ID does not exist.
	UpdateMemory(ctx context.Context, memory *model.Memory) error

	// GetMemory retrieves a single record, failing with model.ErrNotFound.
	GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error)

	// GetMemories returns the subset of requested records that exist. Missing
	// IDs are not an error; callers detect gaps by comparing ID sets.
	GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error)

	// ListMemories returns records ordered by creation time descending, ties
	// broken by ID descending for determinism.
	ListMemories(ctx context.Context, offset, limit int) ([]*model.Memory, error)

	// ListMemoryIDs returns all record IDs, used by reconciliation.
	ListMemoryIDs(ctx context.Context) ([]model.MemoryID, error)

	// CountMemories returns the total number of records.
	CountMemories(ctx context.Context) (int, error)

	// DeleteMemory removes a record. It is idempotent and reports whether the
	// record existed.
	DeleteMemory(ctx context.Context, id model.MemoryID) (bool, error)

	// Close releases backend resources.
	Close() error
}
