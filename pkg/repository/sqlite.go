package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	summary      TEXT NOT NULL,
	full_content TEXT NOT NULL,
	metadata     TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories (created_at DESC, id DESC);
`

// SQLite is the file-based record store, the default backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and initializes if needed) a SQLite record store at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to initialize sqlite schema", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

// Timestamps are stored as fixed-width RFC3339 TEXT in UTC so that
// lexicographic ordering matches chronological ordering. RFC3339Nano would
// not do: it trims trailing zeros from fractional seconds, so ".15" sorts
// before ".1" under DESC.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func encodeMetadata(md map[string]any) (sql.NullString, error) {
	if md == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return sql.NullString{}, goerr.Wrap(err, "failed to marshal metadata")
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeMetadata(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid {
		return nil, nil
	}
	var md map[string]any
	if err := json.Unmarshal([]byte(raw.String), &md); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal metadata")
	}
	return md, nil
}

func (r *SQLite) PutMemory(ctx context.Context, memory *model.Memory) error {
	md, err := encodeMetadata(memory.Metadata)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO memories (id, title, summary, full_content, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		string(memory.ID), memory.Title, memory.Summary, memory.FullContent,
		md, encodeTime(memory.CreatedAt), encodeTime(memory.UpdatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert memory", goerr.V("id", memory.ID))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to check insert result")
	}
	if n == 0 {
		return goerr.Wrap(model.ErrDuplicateKey, "cannot create memory", goerr.V("id", memory.ID))
	}
	return nil
}

func (r *SQLite) UpdateMemory(ctx context.Context, memory *model.Memory) error {
	md, err := encodeMetadata(memory.Metadata)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE memories SET title = ?, summary = ?, full_content = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		memory.Title, memory.Summary, memory.FullContent, md,
		encodeTime(memory.UpdatedAt), string(memory.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to update memory", goerr.V("id", memory.ID))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to check update result")
	}
	if n == 0 {
		return goerr.Wrap(model.ErrNotFound, "cannot update memory", goerr.V("id", memory.ID))
	}
	return nil
}

func scanMemory(scan func(dest ...any) error) (*model.Memory, error) {
	var (
		id, title, summary, content string
		metadata                    sql.NullString
		createdAt, updatedAt        string
	)
	if err := scan(&id, &title, &summary, &content, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	md, err := decodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	created, err := decodeTime(createdAt)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid created_at", goerr.V("id", id))
	}
	updated, err := decodeTime(updatedAt)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid updated_at", goerr.V("id", id))
	}

	return &model.Memory{
		ID:          model.MemoryID(id),
		Title:       title,
		Summary:     summary,
		FullContent: content,
		Metadata:    md,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

const sqliteSelectColumns = "id, title, summary, full_content, metadata, created_at, updated_at"

func (r *SQLite) GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sqliteSelectColumns+" FROM memories WHERE id = ?", string(id))

	m, err := scanMemory(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, goerr.Wrap(model.ErrNotFound, "memory does not exist", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}
	return m, nil
}

func (r *SQLite) GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sqliteSelectColumns+" FROM memories WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memories")
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows.Scan)
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

func (r *SQLite) ListMemories(ctx context.Context, offset, limit int) ([]*model.Memory, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sqliteSelectColumns+" FROM memories ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories")
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows.Scan)
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

func (r *SQLite) ListMemoryIDs(ctx context.Context) ([]model.MemoryID, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM memories")
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

func (r *SQLite) CountMemories(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count memories")
	}
	return count, nil
}

func (r *SQLite) DeleteMemory(ctx context.Context, id model.MemoryID) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", string(id))
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to check delete result")
	}
	return n > 0, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}
