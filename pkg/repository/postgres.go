package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	summary      TEXT NOT NULL,
	full_content TEXT NOT NULL,
	metadata     JSONB,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories (created_at DESC, id DESC);
`

// Postgres is the networked relational record store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to PostgreSQL and initializes the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(model.ErrStoreUnavailable, "postgres is unreachable", goerr.V("cause", err.Error()))
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to initialize postgres schema")
	}

	return &Postgres{pool: pool}, nil
}

func (r *Postgres) PutMemory(ctx context.Context, memory *model.Memory) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO memories (id, title, summary, full_content, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		string(memory.ID), memory.Title, memory.Summary, memory.FullContent,
		memory.Metadata, memory.CreatedAt, memory.UpdatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert memory", goerr.V("id", memory.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrDuplicateKey, "cannot create memory", goerr.V("id", memory.ID))
	}
	return nil
}

func (r *Postgres) UpdateMemory(ctx context.Context, memory *model.Memory) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE memories SET title = $1, summary = $2, full_content = $3, metadata = $4, updated_at = $5
		 WHERE id = $6`,
		memory.Title, memory.Summary, memory.FullContent, memory.Metadata,
		memory.UpdatedAt, string(memory.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to update memory", goerr.V("id", memory.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrNotFound, "cannot update memory", goerr.V("id", memory.ID))
	}
	return nil
}

const postgresSelectColumns = "id, title, summary, full_content, metadata, created_at, updated_at"

func scanPostgresMemory(row pgx.Row) (*model.Memory, error) {
	var m model.Memory
	var id string
	if err := row.Scan(&id, &m.Title, &m.Summary, &m.FullContent, &m.Metadata, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ID = model.MemoryID(id)
	return &m, nil
}

func (r *Postgres) GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+postgresSelectColumns+" FROM memories WHERE id = $1", string(id))

	m, err := scanPostgresMemory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, goerr.Wrap(model.ErrNotFound, "memory does not exist", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}
	return m, nil
}

func (r *Postgres) GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+postgresSelectColumns+" FROM memories WHERE id = ANY($1)", raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memories")
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		m, err := scanPostgresMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory")
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memories")
	}
	return memories, nil
}

func (r *Postgres) ListMemories(ctx context.Context, offset, limit int) ([]*model.Memory, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+postgresSelectColumns+" FROM memories ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories")
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		m, err := scanPostgresMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory")
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memories")
	}
	return memories, nil
}

func (r *Postgres) ListMemoryIDs(ctx context.Context) ([]model.MemoryID, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM memories")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memory IDs")
	}
	defer rows.Close()

	var ids []model.MemoryID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory ID")
		}
		ids = append(ids, model.MemoryID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memory IDs")
	}
	return ids, nil
}

func (r *Postgres) CountMemories(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM memories").Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count memories")
	}
	return count, nil
}

func (r *Postgres) DeleteMemory(ctx context.Context, id model.MemoryID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM memories WHERE id = $1", string(id))
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Postgres) Close() error {
	r.pool.Close()
	return nil
}
