package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const firestoreCollection = "memories"

// Firestore is a networked record store backed by Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// firestoreMemory is the document representation of a memory record.
type firestoreMemory struct {
	ID          string         `firestore:"id"`
	Title       string         `firestore:"title"`
	Summary     string         `firestore:"summary"`
	FullContent string         `firestore:"full_content"`
	Metadata    map[string]any `firestore:"metadata,omitempty"`
	CreatedAt   time.Time      `firestore:"created_at"`
	UpdatedAt   time.Time      `firestore:"updated_at"`
}

func toFirestoreMemory(m *model.Memory) *firestoreMemory {
	return &firestoreMemory{
		ID:          string(m.ID),
		Title:       m.Title,
		Summary:     m.Summary,
		FullContent: m.FullContent,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (d *firestoreMemory) toModel() *model.Memory {
	return &model.Memory{
		ID:          model.MemoryID(d.ID),
		Title:       d.Title,
		Summary:     d.Summary,
		FullContent: d.FullContent,
		Metadata:    d.Metadata,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// NewFirestore creates a Firestore-backed record store.
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}
	return &Firestore{client: client}, nil
}

func (r *Firestore) doc(id model.MemoryID) *firestore.DocumentRef {
	return r.client.Collection(firestoreCollection).Doc(string(id))
}

func (r *Firestore) PutMemory(ctx context.Context, memory *model.Memory) error {
	if _, err := r.doc(memory.ID).Create(ctx, toFirestoreMemory(memory)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(model.ErrDuplicateKey, "cannot create memory", goerr.V("id", memory.ID))
		}
		return goerr.Wrap(err, "failed to create memory", goerr.V("id", memory.ID))
	}
	return nil
}

func (r *Firestore) UpdateMemory(ctx context.Context, memory *model.Memory) error {
	snap, err := r.doc(memory.ID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "cannot update memory", goerr.V("id", memory.ID))
		}
		return goerr.Wrap(err, "failed to check memory", goerr.V("id", memory.ID))
	}
	if !snap.Exists() {
		return goerr.Wrap(model.ErrNotFound, "cannot update memory", goerr.V("id", memory.ID))
	}

	if _, err := r.doc(memory.ID).Set(ctx, toFirestoreMemory(memory)); err != nil {
		return goerr.Wrap(err, "failed to update memory", goerr.V("id", memory.ID))
	}
	return nil
}

func (r *Firestore) GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "memory does not exist", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}

	var doc firestoreMemory
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("id", id))
	}
	return doc.toModel(), nil
}

func (r *Firestore) GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.doc(id)
	}

	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memories")
	}

	memories := make([]*model.Memory, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var doc firestoreMemory
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("id", snap.Ref.ID))
		}
		memories = append(memories, doc.toModel())
	}
	return memories, nil
}

func (r *Firestore) ListMemories(ctx context.Context, offset, limit int) ([]*model.Memory, error) {
	iter := r.client.Collection(firestoreCollection).
		OrderBy("created_at", firestore.Desc).
		OrderBy("id", firestore.Desc).
		Offset(offset).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var memories []*model.Memory
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list memories")
		}
		var doc firestoreMemory
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("id", snap.Ref.ID))
		}
		memories = append(memories, doc.toModel())
	}
	return memories, nil
}

func (r *Firestore) ListMemoryIDs(ctx context.Context) ([]model.MemoryID, error) {
	iter := r.client.Collection(firestoreCollection).DocumentRefs(ctx)

	var ids []model.MemoryID
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list memory IDs")
		}
		ids = append(ids, model.MemoryID(ref.ID))
	}
	return ids, nil
}

func (r *Firestore) CountMemories(ctx context.Context) (int, error) {
	ids, err := r.ListMemoryIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *Firestore) DeleteMemory(ctx context.Context, id model.MemoryID) (bool, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check memory", goerr.V("id", id))
	}
	if !snap.Exists() {
		return false, nil
	}

	if _, err := r.doc(id).Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
	}
	return true, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}
