package repository

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// Memory is an in-process record store. It backs tests and ephemeral runs
// where durability does not matter.
type Memory struct {
	mu      sync.RWMutex
	records map[model.MemoryID]*model.Memory
}

// NewMemory creates an empty in-process record store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[model.MemoryID]*model.Memory),
	}
}

func cloneMemory(m *model.Memory) *model.Memory {
	c := *m
	if m.Metadata != nil {
		c.Metadata = maps.Clone(m.Metadata)
	}
	return &c
}

func (r *Memory) PutMemory(ctx context.Context, memory *model.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[memory.ID]; exists {
		return goerr.Wrap(model.ErrDuplicateKey, "cannot create memory", goerr.V("id", memory.ID))
	}
	r.records[memory.ID] = cloneMemory(memory)
	return nil
}

func (r *Memory) UpdateMemory(ctx context.Context, memory *model.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[memory.ID]; !exists {
		return goerr.Wrap(model.ErrNotFound, "cannot update memory", goerr.V("id", memory.ID))
	}
	r.records[memory.ID] = cloneMemory(memory)
	return nil
}

func (r *Memory) GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.records[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "memory does not exist", goerr.V("id", id))
	}
	return cloneMemory(m), nil
}

func (r *Memory) GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.records[id]; ok {
			found = append(found, cloneMemory(m))
		}
	}
	return found, nil
}

func (r *Memory) ListMemories(ctx context.Context, offset, limit int) ([]*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.Memory, 0, len(r.records))
	for _, m := range r.records {
		all = append(all, cloneMemory(m))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *Memory) ListMemoryIDs(ctx context.Context) ([]model.MemoryID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]model.MemoryID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Memory) CountMemories(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *Memory) DeleteMemory(ctx context.Context, id model.MemoryID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.records[id]
	delete(r.records, id)
	return existed, nil
}

func (r *Memory) Close() error {
	return nil
}
