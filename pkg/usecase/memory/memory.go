package memory

import (
	"time"

	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/index"
	"github.com/m-mizutani/kioku/pkg/repository"
)

// UseCase coordinates the record store, the summary index and the embedding
// provider. The record store is the source of truth; the index is derived
// data that UseCase keeps consistent with it.
type UseCase struct {
	repo     repository.Repository
	index    index.Index
	embedder adapter.Embedder

	maxSearchResults int
	maxListResults   int
	embedBatchSize   int
	indexRetries     int
	retryInterval    time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithMaxSearchResults caps the limit accepted by Search
func WithMaxSearchResults(n int) Option {
	return func(uc *UseCase) {
		uc.maxSearchResults = n
	}
}

// WithMaxListResults caps the limit accepted by ListRecent
func WithMaxListResults(n int) Option {
	return func(uc *UseCase) {
		uc.maxListResults = n
	}
}

// WithEmbedBatchSize sets the batch size for re-embedding during reconciliation
func WithEmbedBatchSize(n int) Option {
	return func(uc *UseCase) {
		uc.embedBatchSize = n
	}
}

// WithIndexRetries sets how many times an index write is attempted before
// the compensating rollback kicks in
func WithIndexRetries(n int) Option {
	return func(uc *UseCase) {
		uc.indexRetries = n
	}
}

// WithRetryInterval sets the wait between index write attempts
func WithRetryInterval(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.retryInterval = d
	}
}

// New creates a new memory UseCase instance
func New(
	repo repository.Repository,
	idx index.Index,
	embedder adapter.Embedder,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:             repo,
		index:            idx,
		embedder:         embedder,
		maxSearchResults: 20,
		maxListResults:   100,
		embedBatchSize:   32,
		indexRetries:     3,
		retryInterval:    200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
