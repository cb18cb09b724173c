package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// Delete removes a memory from both sides. The index entry is removed even
// when the record was already gone, so a partially deleted memory converges
// instead of lingering. Returns whether the record existed.
func (u *UseCase) Delete(ctx context.Context, id model.MemoryID) (bool, error) {
	if id == "" {
		return false, goerr.Wrap(model.ErrInvalidArgument, "memory ID must not be empty")
	}

	existed, err := u.repo.DeleteMemory(ctx, id)
	if err != nil {
		return false, err
	}
	if err := u.index.Delete(ctx, id); err != nil {
		return existed, goerr.Wrap(model.ErrConsistencyViolation, "record deleted but index entry remains",
			goerr.V("id", id), goerr.V("cause", err.Error()))
	}
	return existed, nil
}
