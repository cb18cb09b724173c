package memory

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// Search embeds the query and returns lightweight previews ranked by
// similarity. It never touches full content; callers fetch that separately
// by ID. Hits whose record disappeared between indexing and now are dropped
// from the result rather than surfaced as errors.
func (u *UseCase) Search(ctx context.Context, query string, limit int) ([]*model.MemoryPreview, error) {
	if query == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "search query must not be empty")
	}
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "search limit must be positive", goerr.V("limit", limit))
	}
	if limit > u.maxSearchResults {
		limit = u.maxSearchResults
	}

	embedding, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := u.index.Search(ctx, embedding, limit)
	if err != nil {
		return nil, err
	}

	previews := make([]*model.MemoryPreview, 0, len(hits))
	for _, hit := range hits {
		if _, err := u.repo.GetMemory(ctx, hit.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				logging.From(ctx).Warn("dropping stale index hit", "id", hit.ID)
				continue
			}
			return nil, err
		}
		previews = append(previews, &model.MemoryPreview{
			ID:      hit.ID,
			Title:   hit.Title,
			Summary: hit.Summary,
			Score:   hit.Score,
		})
	}
	return previews, nil
}
