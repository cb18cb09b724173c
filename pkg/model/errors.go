package model

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy shared by the record store, the summary index and the
// orchestrating usecase. Backend-specific failures are wrapped into these
// sentinels so that callers can classify them with errors.Is regardless of
// which backend is wired in.
var (
	// ErrNotFound indicates the requested memory ID does not exist.
	ErrNotFound = goerr.New("memory not found")

	// ErrDuplicateKey indicates an ID collision on record creation.
	ErrDuplicateKey = goerr.New("memory ID already exists")

	// ErrInvalidArgument indicates malformed or out-of-range input, such as a
	// non-positive limit or an empty required field.
	ErrInvalidArgument = goerr.New("invalid argument")

	// ErrEmbeddingUnavailable indicates the embedding provider failed; a write
	// that cannot be embedded must not be stored.
	ErrEmbeddingUnavailable = goerr.New("embedding provider unavailable")

	// ErrStoreUnavailable indicates the record store or summary index backend
	// is unreachable or failing.
	ErrStoreUnavailable = goerr.New("store unavailable")

	// ErrConsistencyViolation indicates a detected gap between the record
	// store and the summary index: an orphaned summary entry or a record left
	// unindexed outside a write in flight.
	ErrConsistencyViolation = goerr.New("record store and summary index are inconsistent")
)
