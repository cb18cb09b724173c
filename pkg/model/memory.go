package model

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID. The "mem_" prefix plus a short
// hex suffix keeps IDs copy-paste friendly for agents while staying unique
// enough for a single store.
func NewMemoryID() MemoryID {
	u := uuid.New()
	return MemoryID("mem_" + hex.EncodeToString(u[:])[:12])
}

// Memory is the authoritative, complete stored unit of information. It is
// owned by the record store; the summary index only holds a condensed
// projection of it.
type Memory struct {
	ID          MemoryID       `json:"id"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	FullContent string         `json:"full_content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate checks that the memory carries all required fields
func (m *Memory) Validate() error {
	if m.ID == "" {
		return goerr.Wrap(ErrInvalidArgument, "memory ID is empty")
	}
	if m.Title == "" {
		return goerr.Wrap(ErrInvalidArgument, "title is empty")
	}
	if m.Summary == "" {
		return goerr.Wrap(ErrInvalidArgument, "summary is empty")
	}
	if m.FullContent == "" {
		return goerr.Wrap(ErrInvalidArgument, "full content is empty")
	}
	return nil
}

// maxEmbedContent bounds how much of the full content contributes to the
// embedding. Title and summary carry most of the search signal; the content
// head only adds context.
const maxEmbedContent = 1000

// EmbeddingText builds the canonical text the summary embedding is computed
// from: title, summary, and the head of the full content.
func (m *Memory) EmbeddingText() string {
	content := m.FullContent
	if len(content) > maxEmbedContent {
		content = content[:maxEmbedContent]
	}
	return m.Title + "\n" + m.Summary + "\n" + content
}

// SummaryEntry is the condensed, embedding-indexed representation of a Memory
// used only for search. Its ID equals the record ID as a weak back-reference;
// there is no cross-store foreign key.
type SummaryEntry struct {
	ID         MemoryID
	Title      string
	Summary    string
	Embedding  []float32
	InsertedAt time.Time
}

// SearchHit is a single similarity search result from the summary index.
type SearchHit struct {
	ID         MemoryID
	Title      string
	Summary    string
	Score      float64
	InsertedAt time.Time
}

// MemoryPreview is the lightweight representation returned by search and
// list operations. Score is zero for list results.
type MemoryPreview struct {
	ID        MemoryID  `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}
