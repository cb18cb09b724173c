package memory

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// WriteInput is the caller-supplied part of a new memory.
type WriteInput struct {
	Title    string
	Summary  string
	Content  string
	Metadata map[string]any
}

// Write persists a new memory and indexes its summary. The record store is
// written first; if indexing then fails, the record is deleted again so the
// caller never observes a half-written memory.
func (u *UseCase) Write(ctx context.Context, input *WriteInput) (*model.Memory, error) {
	now := time.Now().UTC()
	mem := &model.Memory{
		ID:          model.NewMemoryID(),
		Title:       input.Title,
		Summary:     input.Summary,
		FullContent: input.Content,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := mem.Validate(); err != nil {
		return nil, err
	}

	embedding, err := u.embedder.Embed(ctx, mem.EmbeddingText())
	if err != nil {
		return nil, err
	}

	if err := u.repo.PutMemory(ctx, mem); err != nil {
		return nil, err
	}

	entry := &model.SummaryEntry{
		ID:         mem.ID,
		Title:      mem.Title,
		Summary:    mem.Summary,
		Embedding:  embedding,
		InsertedAt: mem.CreatedAt,
	}
	if err := u.upsertWithRetry(ctx, entry); err != nil {
		logging.From(ctx).Warn("indexing failed, rolling back record", "id", mem.ID, "error", err)
		if _, delErr := u.repo.DeleteMemory(ctx, mem.ID); delErr != nil {
			return nil, errors.Join(
				goerr.Wrap(model.ErrConsistencyViolation, "record written but neither indexed nor rolled back", goerr.V("id", mem.ID)),
				err, delErr)
		}
		return nil, err
	}

	return mem, nil
}

// UpdateInput carries the fields to change. Nil pointers leave the current
// value untouched; a non-nil Metadata replaces the whole map.
type UpdateInput struct {
	ID       model.MemoryID
	Title    *string
	Summary  *string
	Content  *string
	Metadata map[string]any
}

// Update rewrites an existing memory and refreshes its index entry. If the
// index refresh fails, the previous record is restored.
func (u *UseCase) Update(ctx context.Context, input *UpdateInput) (*model.Memory, error) {
	prev, err := u.repo.GetMemory(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	next := *prev
	if input.Title != nil {
		next.Title = *input.Title
	}
	if input.Summary != nil {
		next.Summary = *input.Summary
	}
	if input.Content != nil {
		next.FullContent = *input.Content
	}
	if input.Metadata != nil {
		next.Metadata = input.Metadata
	}
	next.UpdatedAt = time.Now().UTC()

	if err := next.Validate(); err != nil {
		return nil, err
	}

	embedding, err := u.embedder.Embed(ctx, next.EmbeddingText())
	if err != nil {
		return nil, err
	}

	if err := u.repo.UpdateMemory(ctx, &next); err != nil {
		return nil, err
	}

	entry := &model.SummaryEntry{
		ID:         next.ID,
		Title:      next.Title,
		Summary:    next.Summary,
		Embedding:  embedding,
		InsertedAt: next.CreatedAt,
	}
	if err := u.upsertWithRetry(ctx, entry); err != nil {
		logging.From(ctx).Warn("index refresh failed, restoring previous record", "id", next.ID, "error", err)
		if restoreErr := u.repo.UpdateMemory(ctx, prev); restoreErr != nil {
			return nil, errors.Join(
				goerr.Wrap(model.ErrConsistencyViolation, "record updated but index refresh and restore both failed", goerr.V("id", next.ID)),
				err, restoreErr)
		}
		return nil, err
	}

	return &next, nil
}

func (u *UseCase) upsertWithRetry(ctx context.Context, entry *model.SummaryEntry) error {
	var lastErr error
	for attempt := 0; attempt < u.indexRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return goerr.Wrap(ctx.Err(), "canceled while retrying index write")
			case <-time.After(u.retryInterval):
			}
		}
		if lastErr = u.index.Upsert(ctx, entry); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
