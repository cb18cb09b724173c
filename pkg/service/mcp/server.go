package mcp

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "kioku-memory-server"
	serverVersion = "0.1.0"
)

// Server exposes memory operations over the Model Context Protocol.
type Server struct {
	uc  *memory.UseCase
	mcp *mcp.Server
}

// New builds an MCP server with the five memory tools and the agent
// guidance prompts registered.
func New(uc *memory.UseCase) *Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{uc: uc, mcp: srv}

	mcp.AddTool(srv, &mcp.Tool{
		Name: "write_memory",
		Description: `Stores a new piece of information into the persistent memory bank. Distill and summarize the information BEFORE calling this tool.

The title and summary are what future searches see first, so make them keyword-rich and specific. The full content is only loaded when explicitly retrieved by ID.`,
		InputSchema: writeMemorySchema(),
	}, s.writeMemory)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "search_memory_preview",
		Description: `Searches the memory bank using semantic search and returns token-efficient previews of relevant memories. This is Stage 1 of the two-stage retrieval process.

Each preview contains the memory ID, title, summary and a similarity score, but never the full content. Review the previews, then fetch only the relevant memories with get_full_memory_by_ids.`,
		InputSchema: searchMemorySchema(),
	}, s.searchMemoryPreview)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "get_full_memory_by_ids",
		Description: `Retrieves the full content of specific memories by their IDs. This is Stage 2 of the two-stage retrieval process, used after search_memory_preview.

Be selective: only request memories whose previews looked relevant. IDs that do not exist are reported in the "missing" list rather than failing the call.`,
		InputSchema: getMemoriesSchema(),
	}, s.getFullMemoryByIDs)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_recent_memories",
		Description: "Lists the most recently added memories for introspection and debugging purposes. Returns memory previews ordered by creation date, newest first.",
		InputSchema: listMemoriesSchema(),
	}, s.listRecentMemories)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_memory_details",
		Description: "Retrieves full details of a specific memory including metadata and index state, for deep inspection and debugging.",
		InputSchema: memoryDetailsSchema(),
	}, s.getMemoryDetails)

	registerPrompts(srv)

	return s
}

// Run serves MCP over the given transport until the context is canceled or
// the peer disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	logging.From(ctx).Info("starting MCP server", "name", serverName, "version", serverVersion)
	if err := s.mcp.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "MCP server terminated")
	}
	return nil
}

type writeMemoryParams struct {
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	FullContent string         `json:"full_content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type writeMemoryResult struct {
	ID        model.MemoryID `json:"id"`
	Title     string         `json:"title"`
	CreatedAt string         `json:"created_at"`
}

func (s *Server) writeMemory(ctx context.Context, req *mcp.CallToolRequest, params *writeMemoryParams) (*mcp.CallToolResult, *writeMemoryResult, error) {
	mem, err := s.uc.Write(ctx, &memory.WriteInput{
		Title:    params.Title,
		Summary:  params.Summary,
		Content:  params.FullContent,
		Metadata: params.Metadata,
	})
	if err != nil {
		return nil, nil, err
	}

	result := &writeMemoryResult{
		ID:        mem.ID,
		Title:     mem.Title,
		CreatedAt: mem.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	return textResult(result), result, nil
}

type searchMemoryParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type searchMemoryResult struct {
	Results []*model.MemoryPreview `json:"results"`
}

func (s *Server) searchMemoryPreview(ctx context.Context, req *mcp.CallToolRequest, params *searchMemoryParams) (*mcp.CallToolResult, *searchMemoryResult, error) {
	limit := params.Limit
	if limit == 0 {
		limit = 5
	}

	previews, err := s.uc.Search(ctx, params.Query, limit)
	if err != nil {
		return nil, nil, err
	}
	if previews == nil {
		previews = []*model.MemoryPreview{}
	}

	result := &searchMemoryResult{Results: previews}
	return textResult(result), result, nil
}

type getMemoriesParams struct {
	IDs []model.MemoryID `json:"ids"`
}

func (s *Server) getFullMemoryByIDs(ctx context.Context, req *mcp.CallToolRequest, params *getMemoriesParams) (*mcp.CallToolResult, *memory.RetrieveResult, error) {
	result, err := s.uc.GetByIDs(ctx, params.IDs)
	if err != nil {
		return nil, nil, err
	}
	return textResult(result), result, nil
}

type listMemoriesParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func (s *Server) listRecentMemories(ctx context.Context, req *mcp.CallToolRequest, params *listMemoriesParams) (*mcp.CallToolResult, *memory.ListResult, error) {
	limit := params.Limit
	if limit == 0 {
		limit = 10
	}

	result, err := s.uc.ListRecent(ctx, params.Offset, limit)
	if err != nil {
		return nil, nil, err
	}
	return textResult(result), result, nil
}

type memoryDetailsParams struct {
	MemoryID model.MemoryID `json:"memory_id"`
}

func (s *Server) getMemoryDetails(ctx context.Context, req *mcp.CallToolRequest, params *memoryDetailsParams) (*mcp.CallToolResult, *memory.Details, error) {
	details, err := s.uc.GetDetails(ctx, params.MemoryID)
	if err != nil {
		return nil, nil, err
	}
	return textResult(details), details, nil
}

func textResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		raw = []byte(`{"error": "failed to render result"}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}
}
