package index

import (
	"context"

	"github.com/m-mizutani/kioku/pkg/model"
)

// Index is the summary index: similarity search over condensed memory
// representations. It never holds full content. Every entry's ID points back
// to a record in the record store; the usecase layer keeps the two sides
// consistent.
type Index interface {
	// Upsert inserts or replaces the entry for the given ID.
	Upsert(ctx context.Context, entry *model.SummaryEntry) error

	// Search performs nearest-neighbor search by cosine similarity and returns
	// up to limit hits ordered by descending score, ties broken by insertion
	// timestamp descending. A non-positive limit fails with
	// model.ErrInvalidArgument.
	Search(ctx context.Context, embedding []float32, limit int) ([]*model.SearchHit, error)

	// Delete removes the entry for the given ID. Removing a missing entry is
	// not an error.
	Delete(ctx context.Context, id model.MemoryID) error

	// ListIDs returns all entry IDs, used by reconciliation.
	ListIDs(ctx context.Context) ([]model.MemoryID, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
