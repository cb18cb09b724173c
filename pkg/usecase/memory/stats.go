package memory

import (
	"context"
)

// Stats is a snapshot of the store for operational inspection.
type Stats struct {
	TotalMemories int      `json:"total_memories"`
	IndexEntries  int      `json:"index_entries"`
	EmbeddingDims int      `json:"embedding_dims"`
	RecentTitles  []string `json:"recent_titles"`
}

const statsRecentTitles = 5

func (u *UseCase) Stats(ctx context.Context) (*Stats, error) {
	total, err := u.repo.CountMemories(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := u.index.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalMemories: total,
		IndexEntries:  entries,
		EmbeddingDims: u.embedder.Dimensions(),
	}
	if total > 0 {
		recent, err := u.repo.ListMemories(ctx, 0, statsRecentTitles)
		if err != nil {
			return nil, err
		}
		for _, mem := range recent {
			stats.RecentTitles = append(stats.RecentTitles, mem.Title)
		}
	}
	return stats, nil
}
