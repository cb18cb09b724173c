package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
)

func newTestMemory(i int, createdAt time.Time) *model.Memory {
	return &model.Memory{
		ID:          model.NewMemoryID(),
		Title:       fmt.Sprintf("Test memory %d", i),
		Summary:     fmt.Sprintf("Summary of test memory %d", i),
		FullContent: fmt.Sprintf("Full content of test memory %d", i),
		Metadata:    map[string]any{"index": fmt.Sprintf("%d", i)},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// testRepository exercises the record store contract against any backend.
func testRepository(t *testing.T, newRepo func(t *testing.T) repository.Repository) {
	ctx := context.Background()

	t.Run("put and get round-trip", func(t *testing.T) {
		repo := newRepo(t)
		m := newTestMemory(1, time.Now().UTC())
		gt.NoError(t, repo.PutMemory(ctx, m))

		got, err := repo.GetMemory(ctx, m.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.ID, m.ID)
		gt.Equal(t, got.Title, m.Title)
		gt.Equal(t, got.Summary, m.Summary)
		gt.Equal(t, got.FullContent, m.FullContent)
		gt.Equal(t, got.Metadata["index"], "1")
	})

	t.Run("put duplicate ID fails", func(t *testing.T) {
		repo := newRepo(t)
		m := newTestMemory(1, time.Now().UTC())
		gt.NoError(t, repo.PutMemory(ctx, m))

		err := repo.PutMemory(ctx, m)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrDuplicateKey))
	})

	t.Run("get missing ID fails with not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetMemory(ctx, model.MemoryID("mem_nonexistent"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("update replaces mutable fields", func(t *testing.T) {
		repo := newRepo(t)
		m := newTestMemory(1, time.Now().UTC())
		gt.NoError(t, repo.PutMemory(ctx, m))

		m.Title = "Updated title"
		m.UpdatedAt = m.UpdatedAt.Add(time.Second)
		gt.NoError(t, repo.UpdateMemory(ctx, m))

		got, err := repo.GetMemory(ctx, m.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Title, "Updated title")
	})

	t.Run("update missing ID fails with not found", func(t *testing.T) {
		repo := newRepo(t)
		m := newTestMemory(1, time.Now().UTC())
		err := repo.UpdateMemory(ctx, m)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("get many returns existing subset only", func(t *testing.T) {
		repo := newRepo(t)
		m1 := newTestMemory(1, time.Now().UTC())
		m2 := newTestMemory(2, time.Now().UTC())
		gt.NoError(t, repo.PutMemory(ctx, m1))
		gt.NoError(t, repo.PutMemory(ctx, m2))

		got, err := repo.GetMemories(ctx, []model.MemoryID{m1.ID, "mem_nonexistent", m2.ID})
		gt.NoError(t, err)
		gt.A(t, got).Length(2)
	})

	t.Run("list orders by creation time descending", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Now().UTC()
		var memories []*model.Memory
		for i := 0; i < 3; i++ {
			m := newTestMemory(i, base.Add(time.Duration(i)*time.Second))
			gt.NoError(t, repo.PutMemory(ctx, m))
			memories = append(memories, m)
		}

		got, err := repo.ListMemories(ctx, 0, 10)
		gt.NoError(t, err)
		gt.A(t, got).Length(3)
		gt.Equal(t, got[0].ID, memories[2].ID)
		gt.Equal(t, got[1].ID, memories[1].ID)
		gt.Equal(t, got[2].ID, memories[0].ID)
	})

	t.Run("list orders sub-second fractions within the same second", func(t *testing.T) {
		repo := newRepo(t)
		// Fractions whose textual forms have different lengths (".1" vs ".15")
		// catch backends whose stored ordering is not truly chronological.
		base := time.Now().UTC().Truncate(time.Second)
		older := newTestMemory(1, base.Add(100*time.Millisecond))
		newer := newTestMemory(2, base.Add(150*time.Millisecond))
		gt.NoError(t, repo.PutMemory(ctx, older))
		gt.NoError(t, repo.PutMemory(ctx, newer))

		got, err := repo.ListMemories(ctx, 0, 10)
		gt.NoError(t, err)
		gt.A(t, got).Length(2)
		gt.Equal(t, got[0].ID, newer.ID)
		gt.Equal(t, got[1].ID, older.ID)
	})

	t.Run("list breaks creation time ties by ID descending", func(t *testing.T) {
		repo := newRepo(t)
		ts := time.Now().UTC()
		m1 := newTestMemory(1, ts)
		m2 := newTestMemory(2, ts)
		gt.NoError(t, repo.PutMemory(ctx, m1))
		gt.NoError(t, repo.PutMemory(ctx, m2))

		got, err := repo.ListMemories(ctx, 0, 10)
		gt.NoError(t, err)
		gt.A(t, got).Length(2)
		gt.True(t, got[0].ID > got[1].ID)
	})

	t.Run("list honors limit and offset", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Now().UTC()
		for i := 0; i < 5; i++ {
			gt.NoError(t, repo.PutMemory(ctx, newTestMemory(i, base.Add(time.Duration(i)*time.Second))))
		}

		page1, err := repo.ListMemories(ctx, 0, 2)
		gt.NoError(t, err)
		gt.A(t, page1).Length(2)

		page2, err := repo.ListMemories(ctx, 2, 2)
		gt.NoError(t, err)
		gt.A(t, page2).Length(2)
		gt.NotEqual(t, page1[0].ID, page2[0].ID)

		empty, err := repo.ListMemories(ctx, 100, 2)
		gt.NoError(t, err)
		gt.A(t, empty).Length(0)
	})

	t.Run("delete is idempotent and reports existence", func(t *testing.T) {
		repo := newRepo(t)
		m := newTestMemory(1, time.Now().UTC())
		gt.NoError(t, repo.PutMemory(ctx, m))

		existed, err := repo.DeleteMemory(ctx, m.ID)
		gt.NoError(t, err)
		gt.True(t, existed)

		existed, err = repo.DeleteMemory(ctx, m.ID)
		gt.NoError(t, err)
		gt.False(t, existed)

		_, err = repo.GetMemory(ctx, m.ID)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("count and list IDs", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Now().UTC()
		for i := 0; i < 3; i++ {
			gt.NoError(t, repo.PutMemory(ctx, newTestMemory(i, base.Add(time.Duration(i)*time.Millisecond))))
		}

		count, err := repo.CountMemories(ctx)
		gt.NoError(t, err)
		gt.Equal(t, count, 3)

		ids, err := repo.ListMemoryIDs(ctx)
		gt.NoError(t, err)
		gt.A(t, ids).Length(3)
	})
}
