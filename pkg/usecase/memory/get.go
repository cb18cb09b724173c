package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// RetrieveResult splits a multi-ID fetch into the memories that exist and
// the IDs that do not. Missing IDs are reported, not treated as errors.
type RetrieveResult struct {
	Found   []*model.Memory  `json:"found"`
	Missing []model.MemoryID `json:"missing"`
}

// GetByIDs fetches full memories for the given IDs. Duplicate IDs are
// collapsed; the order of Found follows the first occurrence of each ID in
// the request.
func (u *UseCase) GetByIDs(ctx context.Context, ids []model.MemoryID) (*RetrieveResult, error) {
	if len(ids) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "at least one memory ID is required")
	}

	seen := make(map[model.MemoryID]bool, len(ids))
	unique := make([]model.MemoryID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, goerr.Wrap(model.ErrInvalidArgument, "memory ID must not be empty")
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	memories, err := u.repo.GetMemories(ctx, unique)
	if err != nil {
		return nil, err
	}

	byID := make(map[model.MemoryID]*model.Memory, len(memories))
	for _, mem := range memories {
		byID[mem.ID] = mem
	}

	result := &RetrieveResult{}
	for _, id := range unique {
		if mem, ok := byID[id]; ok {
			result.Found = append(result.Found, mem)
		} else {
			result.Missing = append(result.Missing, id)
		}
	}
	return result, nil
}

// Details returns a single memory together with whether its index entry
// exists, for operational inspection.
type Details struct {
	Memory  *model.Memory `json:"memory"`
	Indexed bool          `json:"indexed"`
}

func (u *UseCase) GetDetails(ctx context.Context, id model.MemoryID) (*Details, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "memory ID must not be empty")
	}

	mem, err := u.repo.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}

	indexed := false
	indexIDs, err := u.index.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, indexID := range indexIDs {
		if indexID == id {
			indexed = true
			break
		}
	}

	return &Details{Memory: mem, Indexed: indexed}, nil
}
