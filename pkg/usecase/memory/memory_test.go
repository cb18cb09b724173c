package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/index"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
)

func newUseCase(t *testing.T, opts ...memory.Option) (*memory.UseCase, repository.Repository, index.Index) {
	t.Helper()

	repo := repository.NewMemory()
	idx, err := index.NewChromem("")
	gt.NoError(t, err)

	uc := memory.New(repo, idx, adapter.NewMockEmbedder(), opts...)
	return uc, repo, idx
}

func write(t *testing.T, uc *memory.UseCase, title, summary, content string) *model.Memory {
	t.Helper()
	mem, err := uc.Write(context.Background(), &memory.WriteInput{
		Title:   title,
		Summary: summary,
		Content: content,
	})
	gt.NoError(t, err)
	return mem
}

func TestWriteAndRetrieve(t *testing.T) {
	ctx := context.Background()
	uc, repo, idx := newUseCase(t)

	mem := write(t, uc, "postgres pooling", "how we tuned pgbouncer", "full discussion of pool sizes")
	gt.True(t, len(mem.ID) > 4)

	stored, err := repo.GetMemory(ctx, mem.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.Title, "postgres pooling")

	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 1)
}

func TestWriteValidation(t *testing.T) {
	ctx := context.Background()
	uc, _, idx := newUseCase(t)

	_, err := uc.Write(ctx, &memory.WriteInput{Title: "", Summary: "s", Content: "c"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))

	// Nothing reached the index
	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
}

func TestSearchRanking(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	a := write(t, uc, "postgres connection pool", "tuning pgbouncer pool sizes for postgres", "details")
	write(t, uc, "kubernetes ingress", "nginx ingress controller setup", "details")
	write(t, uc, "team lunch plans", "where to eat on friday", "details")

	hits, err := uc.Search(ctx, "postgres pool tuning", 3)
	gt.NoError(t, err)
	gt.True(t, len(hits) >= 1)
	gt.Equal(t, hits[0].ID, a.ID)
	gt.True(t, hits[0].Score > 0)

	for i := 1; i < len(hits); i++ {
		gt.True(t, hits[i-1].Score >= hits[i].Score)
	}
}

func TestSearchLimit(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	write(t, uc, "alpha topic one", "shared words here", "c")
	write(t, uc, "alpha topic two", "shared words here too", "c")
	write(t, uc, "alpha topic three", "shared words here as well", "c")

	hits, err := uc.Search(ctx, "shared words", 2)
	gt.NoError(t, err)
	gt.A(t, hits).Length(2)

	_, err = uc.Search(ctx, "shared words", 0)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = uc.Search(ctx, "", 5)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestSearchMaxResultsCap(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t, memory.WithMaxSearchResults(2))

	write(t, uc, "common topic a", "shared phrasing", "c")
	write(t, uc, "common topic b", "shared phrasing", "c")
	write(t, uc, "common topic c", "shared phrasing", "c")

	hits, err := uc.Search(ctx, "shared phrasing", 10)
	gt.NoError(t, err)
	gt.A(t, hits).Length(2)
}

func TestSearchDropsStaleHits(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newUseCase(t)

	mem := write(t, uc, "doomed entry", "will vanish from the record store", "c")
	write(t, uc, "surviving entry", "will vanish from nowhere", "c")

	// Remove only the record, leaving the index entry behind.
	existed, err := repo.DeleteMemory(ctx, mem.ID)
	gt.NoError(t, err)
	gt.True(t, existed)

	hits, err := uc.Search(ctx, "will vanish", 10)
	gt.NoError(t, err)
	for _, hit := range hits {
		gt.NotEqual(t, hit.ID, mem.ID)
	}
}

func TestGetByIDs(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	a := write(t, uc, "first", "first summary", "first content")
	b := write(t, uc, "second", "second summary", "second content")

	result, err := uc.GetByIDs(ctx, []model.MemoryID{b.ID, "mem_missing00000", a.ID, b.ID})
	gt.NoError(t, err)
	gt.A(t, result.Found).Length(2)
	gt.Equal(t, result.Found[0].ID, b.ID)
	gt.Equal(t, result.Found[1].ID, a.ID)
	gt.Equal(t, result.Found[0].FullContent, "second content")
	gt.A(t, result.Missing).Length(1)
	gt.Equal(t, result.Missing[0], model.MemoryID("mem_missing00000"))
}

func TestGetByIDsValidation(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	_, err := uc.GetByIDs(ctx, nil)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = uc.GetByIDs(ctx, []model.MemoryID{""})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestListRecent(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	write(t, uc, "oldest", "s", "c")
	time.Sleep(2 * time.Millisecond)
	write(t, uc, "middle", "s", "c")
	time.Sleep(2 * time.Millisecond)
	write(t, uc, "newest", "s", "c")

	result, err := uc.ListRecent(ctx, 0, 2)
	gt.NoError(t, err)
	gt.Equal(t, result.Total, 3)
	gt.A(t, result.Memories).Length(2)
	gt.Equal(t, result.Memories[0].Title, "newest")
	gt.Equal(t, result.Memories[1].Title, "middle")

	page2, err := uc.ListRecent(ctx, 2, 2)
	gt.NoError(t, err)
	gt.A(t, page2.Memories).Length(1)
	gt.Equal(t, page2.Memories[0].Title, "oldest")

	_, err = uc.ListRecent(ctx, 0, 0)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = uc.ListRecent(ctx, -1, 5)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	mem := write(t, uc, "draft title", "draft summary", "draft content")

	newTitle := "final title about quarterly metrics"
	newSummary := "summary of the quarterly metrics review"
	updated, err := uc.Update(ctx, &memory.UpdateInput{
		ID:      mem.ID,
		Title:   &newTitle,
		Summary: &newSummary,
	})
	gt.NoError(t, err)
	gt.Equal(t, updated.Title, newTitle)
	gt.Equal(t, updated.FullContent, "draft content")
	gt.True(t, !updated.UpdatedAt.Before(mem.UpdatedAt))

	// The index reflects the new summary.
	hits, err := uc.Search(ctx, "quarterly metrics review", 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.Equal(t, hits[0].Title, newTitle)
}

func TestUpdateNotFound(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	title := "anything"
	_, err := uc.Update(ctx, &memory.UpdateInput{ID: "mem_missing00000", Title: &title})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	uc, _, idx := newUseCase(t)

	mem := write(t, uc, "short lived", "temporary note about caching", "c")

	existed, err := uc.Delete(ctx, mem.ID)
	gt.NoError(t, err)
	gt.True(t, existed)

	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)

	hits, err := uc.Search(ctx, "temporary note about caching", 5)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)

	// Deleting again is not an error, just reports absence.
	existed, err = uc.Delete(ctx, mem.ID)
	gt.NoError(t, err)
	gt.True(t, !existed)
}

func TestGetDetails(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	mem := write(t, uc, "inspect me", "a note to inspect", "c")

	details, err := uc.GetDetails(ctx, mem.ID)
	gt.NoError(t, err)
	gt.Equal(t, details.Memory.ID, mem.ID)
	gt.True(t, details.Indexed)

	_, err = uc.GetDetails(ctx, "mem_missing00000")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUseCase(t)

	write(t, uc, "first note", "s", "c")
	write(t, uc, "second note", "s", "c")

	stats, err := uc.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.TotalMemories, 2)
	gt.Equal(t, stats.IndexEntries, 2)
	gt.True(t, stats.EmbeddingDims > 0)
	gt.A(t, stats.RecentTitles).Length(2)
}

// failingIndex wraps a real index and fails Upsert a configurable number of
// times, to exercise the retry and rollback paths.
type failingIndex struct {
	index.Index
	failures int
}

func (x *failingIndex) Upsert(ctx context.Context, entry *model.SummaryEntry) error {
	if x.failures > 0 {
		x.failures--
		return goerr.New("index write refused")
	}
	return x.Index.Upsert(ctx, entry)
}

func TestWriteRollbackOnIndexFailure(t *testing.T) {
	ctx := context.Background()

	repo := repository.NewMemory()
	idx, err := index.NewChromem("")
	gt.NoError(t, err)
	broken := &failingIndex{Index: idx, failures: 100}

	uc := memory.New(repo, broken, adapter.NewMockEmbedder(),
		memory.WithIndexRetries(2), memory.WithRetryInterval(time.Millisecond))

	_, err = uc.Write(ctx, &memory.WriteInput{Title: "t", Summary: "s", Content: "c"})
	gt.Error(t, err)

	// The record was rolled back: the caller never sees a half-written memory.
	total, err := repo.CountMemories(ctx)
	gt.NoError(t, err)
	gt.Equal(t, total, 0)
}

func TestWriteRetriesTransientIndexFailure(t *testing.T) {
	ctx := context.Background()

	repo := repository.NewMemory()
	idx, err := index.NewChromem("")
	gt.NoError(t, err)
	flaky := &failingIndex{Index: idx, failures: 1}

	uc := memory.New(repo, flaky, adapter.NewMockEmbedder(),
		memory.WithIndexRetries(3), memory.WithRetryInterval(time.Millisecond))

	mem, err := uc.Write(ctx, &memory.WriteInput{Title: "t", Summary: "s", Content: "c"})
	gt.NoError(t, err)

	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 1)

	_, err = repo.GetMemory(ctx, mem.ID)
	gt.NoError(t, err)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	uc, repo, idx := newUseCase(t)

	indexed := write(t, uc, "healthy", "indexed and stored", "c")

	// A record the index never saw.
	orphanRecord := &model.Memory{
		ID:          model.NewMemoryID(),
		Title:       "unindexed",
		Summary:     "stored but not indexed",
		FullContent: "c",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	gt.NoError(t, repo.PutMemory(ctx, orphanRecord))

	// An index entry whose record is gone.
	ghostID := model.NewMemoryID()
	ghostVec := make([]float32, 384)
	ghostVec[0] = 1
	gt.NoError(t, idx.Upsert(ctx, &model.SummaryEntry{
		ID:         ghostID,
		Title:      "ghost",
		Summary:    "index only",
		Embedding:  ghostVec,
		InsertedAt: time.Now().UTC(),
	}))

	report, err := uc.Reconcile(ctx)
	gt.NoError(t, err)
	gt.A(t, report.Repaired).Length(1)
	gt.Equal(t, report.Repaired[0], orphanRecord.ID)
	gt.A(t, report.Removed).Length(1)
	gt.Equal(t, report.Removed[0], ghostID)

	ids, err := idx.ListIDs(ctx)
	gt.NoError(t, err)
	gt.A(t, ids).Length(2)

	found := map[model.MemoryID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	gt.True(t, found[indexed.ID])
	gt.True(t, found[orphanRecord.ID])

	// A second pass finds nothing to do.
	report, err = uc.Reconcile(ctx)
	gt.NoError(t, err)
	gt.A(t, report.Repaired).Length(0)
	gt.A(t, report.Removed).Length(0)
}
