package memory

import (
	"context"

	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// ReconcileReport describes what Reconcile changed.
type ReconcileReport struct {
	Repaired []model.MemoryID `json:"repaired"`
	Removed  []model.MemoryID `json:"removed"`
}

// Reconcile repairs drift between the record store and the summary index.
// Records without an index entry are re-embedded and indexed; index entries
// without a record are removed. The record store always wins.
func (u *UseCase) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	recordIDs, err := u.repo.ListMemoryIDs(ctx)
	if err != nil {
		return nil, err
	}
	indexIDs, err := u.index.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	indexed := make(map[model.MemoryID]bool, len(indexIDs))
	for _, id := range indexIDs {
		indexed[id] = true
	}
	exists := make(map[model.MemoryID]bool, len(recordIDs))
	for _, id := range recordIDs {
		exists[id] = true
	}

	report := &ReconcileReport{}
	logger := logging.From(ctx)

	var missing []model.MemoryID
	for _, id := range recordIDs {
		if !indexed[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		memories, err := u.repo.GetMemories(ctx, missing)
		if err != nil {
			return nil, err
		}

		texts := make([]string, len(memories))
		for i, mem := range memories {
			texts[i] = mem.EmbeddingText()
		}
		embeddings, err := adapter.EmbedAll(ctx, u.embedder, texts, u.embedBatchSize)
		if err != nil {
			return nil, err
		}

		for i, mem := range memories {
			entry := &model.SummaryEntry{
				ID:         mem.ID,
				Title:      mem.Title,
				Summary:    mem.Summary,
				Embedding:  embeddings[i],
				InsertedAt: mem.CreatedAt,
			}
			if err := u.index.Upsert(ctx, entry); err != nil {
				return report, err
			}
			logger.Info("re-indexed memory", "id", mem.ID)
			report.Repaired = append(report.Repaired, mem.ID)
		}
	}

	for _, id := range indexIDs {
		if exists[id] {
			continue
		}
		if err := u.index.Delete(ctx, id); err != nil {
			return report, err
		}
		logger.Info("removed orphan index entry", "id", id)
		report.Removed = append(report.Removed, id)
	}

	return report, nil
}
