package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "memories"

// Chromem is the embedded summary index backed by chromem-go, a pure Go
// vector database. It is the default backend.
//
// chromem-go does not expose document ID listing, so the index keeps a small
// sidecar manifest (id -> insertion timestamp) next to the database. The
// manifest exists only to serve reconciliation; search metadata carries its
// own copy of the insertion timestamp.
type Chromem struct {
	col *chromem.Collection

	mu           sync.Mutex
	manifestPath string
	inserted     map[model.MemoryID]time.Time
}

// NewChromem opens a chromem-backed summary index persisted under dir. An
// empty dir keeps everything in memory, which suits tests and ephemeral runs.
func NewChromem(dir string) (*Chromem, error) {
	var db *chromem.DB
	var manifestPath string

	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open chromem database", goerr.V("dir", dir))
		}
		manifestPath = filepath.Join(dir, "manifest.json")
	}

	col, err := db.GetOrCreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open chromem collection")
	}

	idx := &Chromem{
		col:          col,
		manifestPath: manifestPath,
		inserted:     make(map[model.MemoryID]time.Time),
	}
	if err := idx.loadManifest(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Chromem) loadManifest() error {
	if x.manifestPath == "" {
		return nil
	}
	raw, err := os.ReadFile(x.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return goerr.Wrap(err, "failed to read index manifest", goerr.V("path", x.manifestPath))
	}

	entries := make(map[model.MemoryID]time.Time)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return goerr.Wrap(err, "failed to parse index manifest", goerr.V("path", x.manifestPath))
	}
	x.inserted = entries
	return nil
}

// saveManifest must be called with x.mu held.
func (x *Chromem) saveManifest() error {
	if x.manifestPath == "" {
		return nil
	}
	raw, err := json.Marshal(x.inserted)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal index manifest")
	}

	tmp := x.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return goerr.Wrap(err, "failed to write index manifest", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, x.manifestPath); err != nil {
		return goerr.Wrap(err, "failed to replace index manifest", goerr.V("path", x.manifestPath))
	}
	return nil
}

func (x *Chromem) Upsert(ctx context.Context, entry *model.SummaryEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	// AddDocument overwrites an existing ID, so a single unconditional add
	// both inserts and replaces, and re-adds an entry the manifest lost
	// track of.
	doc := chromem.Document{
		ID:        string(entry.ID),
		Content:   entry.Title + "\n" + entry.Summary,
		Embedding: entry.Embedding,
		Metadata: map[string]string{
			"title":       entry.Title,
			"summary":     entry.Summary,
			"inserted_at": entry.InsertedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if err := x.col.AddDocument(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to add index entry", goerr.V("id", entry.ID))
	}

	x.inserted[entry.ID] = entry.InsertedAt
	return x.saveManifest()
}

func (x *Chromem) Search(ctx context.Context, embedding []float32, limit int) ([]*model.SearchHit, error) {
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "search limit must be positive", goerr.V("limit", limit))
	}

	// chromem requires nResults <= number of stored documents
	if n := x.col.Count(); n < limit {
		limit = n
	}
	if limit == 0 {
		return nil, nil
	}

	results, err := x.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query index")
	}

	hits := make([]*model.SearchHit, 0, len(results))
	for _, res := range results {
		insertedAt, err := time.Parse(time.RFC3339Nano, res.Metadata["inserted_at"])
		if err != nil {
			return nil, goerr.Wrap(err, "invalid inserted_at in index entry", goerr.V("id", res.ID))
		}
		hits = append(hits, &model.SearchHit{
			ID:         model.MemoryID(res.ID),
			Title:      res.Metadata["title"],
			Summary:    res.Metadata["summary"],
			Score:      float64(res.Similarity),
			InsertedAt: insertedAt,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].InsertedAt.After(hits[j].InsertedAt)
	})
	return hits, nil
}

func (x *Chromem) Delete(ctx context.Context, id model.MemoryID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.inserted[id]; !exists {
		return nil
	}
	if err := x.col.Delete(ctx, nil, nil, string(id)); err != nil {
		return goerr.Wrap(err, "failed to delete index entry", goerr.V("id", id))
	}
	delete(x.inserted, id)
	return x.saveManifest()
}

func (x *Chromem) ListIDs(ctx context.Context) ([]model.MemoryID, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	ids := make([]model.MemoryID, 0, len(x.inserted))
	for id := range x.inserted {
		ids = append(ids, id)
	}
	return ids, nil
}

func (x *Chromem) Count(ctx context.Context) (int, error) {
	return x.col.Count(), nil
}

func (x *Chromem) Close() error {
	return nil
}
