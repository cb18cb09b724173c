package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// ListResult is a page of memory previews ordered by creation time,
// newest first.
type ListResult struct {
	Memories []*model.MemoryPreview `json:"memories"`
	Total    int                    `json:"total"`
}

// ListRecent returns previews of the most recently created memories. Ties on
// creation time are broken by ID descending so the order is stable.
func (u *UseCase) ListRecent(ctx context.Context, offset, limit int) (*ListResult, error) {
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "list limit must be positive", goerr.V("limit", limit))
	}
	if offset < 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "list offset must not be negative", goerr.V("offset", offset))
	}
	if limit > u.maxListResults {
		limit = u.maxListResults
	}

	memories, err := u.repo.ListMemories(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := u.repo.CountMemories(ctx)
	if err != nil {
		return nil, err
	}

	previews := make([]*model.MemoryPreview, 0, len(memories))
	for _, mem := range memories {
		previews = append(previews, &model.MemoryPreview{
			ID:        mem.ID,
			Title:     mem.Title,
			Summary:   mem.Summary,
			CreatedAt: mem.CreatedAt,
		})
	}
	return &ListResult{Memories: previews, Total: total}, nil
}
