package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// PGVector is the networked summary index backed by PostgreSQL with the
// pgvector extension.
type PGVector struct {
	pool *pgxpool.Pool
}

// NewPGVector connects to PostgreSQL, enables the pgvector extension and
// initializes the index table. dims must match the embedding provider's
// output dimensionality.
func NewPGVector(ctx context.Context, dsn string, dims int) (*PGVector, error) {
	if dims <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "embedding dimensions must be positive", goerr.V("dims", dims))
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse pgvector DSN")
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create pgvector pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(model.ErrStoreUnavailable, "pgvector backend is unreachable", goerr.V("cause", err.Error()))
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to enable pgvector extension")
	}
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS memory_index (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	summary     TEXT NOT NULL,
	embedding   vector(%d) NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL
)`, dims)
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to initialize pgvector schema")
	}

	return &PGVector{pool: pool}, nil
}

func (x *PGVector) Upsert(ctx context.Context, entry *model.SummaryEntry) error {
	_, err := x.pool.Exec(ctx,
		`INSERT INTO memory_index (id, title, summary, embedding, inserted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			embedding = EXCLUDED.embedding,
			inserted_at = EXCLUDED.inserted_at`,
		string(entry.ID), entry.Title, entry.Summary,
		pgvector.NewVector(entry.Embedding), entry.InsertedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert index entry", goerr.V("id", entry.ID))
	}
	return nil
}

func (x *PGVector) Search(ctx context.Context, embedding []float32, limit int) ([]*model.SearchHit, error) {
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "search limit must be positive", goerr.V("limit", limit))
	}

	// <=> is pgvector's cosine distance operator; similarity = 1 - distance
	rows, err := x.pool.Query(ctx,
		`SELECT id, title, summary, 1 - (embedding <=> $1) AS score, inserted_at
		 FROM memory_index
		 ORDER BY embedding <=> $1 ASC, inserted_at DESC
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query index")
	}
	defer rows.Close()

	var hits []*model.SearchHit
	for rows.Next() {
		var hit model.SearchHit
		var id string
		if err := rows.Scan(&id, &hit.Title, &hit.Summary, &hit.Score, &hit.InsertedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan index hit")
		}
		hit.ID = model.MemoryID(id)
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate index hits")
	}
	return hits, nil
}

func (x *PGVector) Delete(ctx context.Context, id model.MemoryID) error {
	if _, err := x.pool.Exec(ctx, "DELETE FROM memory_index WHERE id = $1", string(id)); err != nil {
		return goerr.Wrap(err, "failed to delete index entry", goerr.V("id", id))
	}
	return nil
}

func (x *PGVector) ListIDs(ctx context.Context) ([]model.MemoryID, error) {
	rows, err := x.pool.Query(ctx, "SELECT id FROM memory_index")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list index IDs")
	}
	defer rows.Close()

	var ids []model.MemoryID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "failed to scan index ID")
		}
		ids = append(ids, model.MemoryID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate index IDs")
	}
	return ids, nil
}

func (x *PGVector) Count(ctx context.Context) (int, error) {
	var count int
	if err := x.pool.QueryRow(ctx, "SELECT COUNT(*) FROM memory_index").Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count index entries")
	}
	return count, nil
}

func (x *PGVector) Close() error {
	x.pool.Close()
	return nil
}
