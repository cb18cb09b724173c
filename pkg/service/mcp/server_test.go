package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/index"
	"github.com/m-mizutani/kioku/pkg/repository"
	kiokumcp "github.com/m-mizutani/kioku/pkg/service/mcp"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func setupSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	repo := repository.NewMemory()
	idx, err := index.NewChromem("")
	gt.NoError(t, err)
	uc := memory.New(repo, idx, adapter.NewMockEmbedder())

	server := kiokumcp.New(uc)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	gt.NoError(t, err)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	gt.True(t, len(result.Content) > 0)
	text := gt.Cast[*mcp.TextContent](t, result.Content[0])
	return text.Text
}

func TestListTools(t *testing.T) {
	session := setupSession(t)

	tools, err := session.ListTools(context.Background(), nil)
	gt.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"write_memory",
		"search_memory_preview",
		"get_full_memory_by_ids",
		"list_recent_memories",
		"get_memory_details",
	} {
		gt.True(t, names[want])
	}
}

func TestWriteSearchRetrieve(t *testing.T) {
	session := setupSession(t)

	writeResult := callTool(t, session, "write_memory", map[string]any{
		"title":        "Fix flaky integration test",
		"summary":      "The integration test failed under parallel runs due to a shared port",
		"full_content": "Full investigation notes with stack traces and the final fix.",
	})
	gt.True(t, !writeResult.IsError)

	var written struct {
		ID string `json:"id"`
	}
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, writeResult)), &written))
	gt.True(t, written.ID != "")

	searchResult := callTool(t, session, "search_memory_preview", map[string]any{
		"query": "integration test fails in parallel",
		"limit": 5,
	})
	gt.True(t, !searchResult.IsError)

	var previews struct {
		Results []struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Summary string `json:"summary"`
		} `json:"results"`
	}
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, searchResult)), &previews))
	gt.True(t, len(previews.Results) >= 1)
	gt.Equal(t, previews.Results[0].ID, written.ID)

	getResult := callTool(t, session, "get_full_memory_by_ids", map[string]any{
		"ids": []string{written.ID, "mem_missing00000"},
	})
	gt.True(t, !getResult.IsError)

	var retrieved struct {
		Found []struct {
			ID          string `json:"id"`
			FullContent string `json:"full_content"`
		} `json:"found"`
		Missing []string `json:"missing"`
	}
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, getResult)), &retrieved))
	gt.A(t, retrieved.Found).Length(1)
	gt.Equal(t, retrieved.Found[0].FullContent, "Full investigation notes with stack traces and the final fix.")
	gt.A(t, retrieved.Missing).Length(1)
	gt.Equal(t, retrieved.Missing[0], "mem_missing00000")
}

func TestListRecentAndDetails(t *testing.T) {
	session := setupSession(t)

	writeResult := callTool(t, session, "write_memory", map[string]any{
		"title":        "Set up staging environment",
		"summary":      "Steps to provision the staging cluster",
		"full_content": "Detailed provisioning steps.",
	})
	var written struct {
		ID string `json:"id"`
	}
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, writeResult)), &written))

	listResult := callTool(t, session, "list_recent_memories", map[string]any{"limit": 10})
	gt.True(t, !listResult.IsError)

	var listed struct {
		Memories []struct {
			ID string `json:"id"`
		} `json:"memories"`
		Total int `json:"total"`
	}
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, listResult)), &listed))
	gt.Equal(t, listed.Total, 1)
	gt.A(t, listed.Memories).Length(1)

	detailsResult := callTool(t, session, "get_memory_details", map[string]any{"memory_id": written.ID})
	gt.True(t, !detailsResult.IsError)

	var details struct {
		Memory struct {
			ID string `json:"id"`
		} `json:"memory"`
		Indexed bool `json:"indexed"`
	}
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, detailsResult)), &details))
	gt.Equal(t, details.Memory.ID, written.ID)
	gt.True(t, details.Indexed)
}

func TestToolErrors(t *testing.T) {
	session := setupSession(t)

	// Invalid limit becomes a tool error, not a protocol failure.
	result := callTool(t, session, "search_memory_preview", map[string]any{
		"query": "anything",
		"limit": -1,
	})
	gt.True(t, result.IsError)

	result = callTool(t, session, "get_memory_details", map[string]any{
		"memory_id": "mem_missing00000",
	})
	gt.True(t, result.IsError)
}

func TestMemoryDetailsRequiresID(t *testing.T) {
	session := setupSession(t)

	// Omitting memory_id is rejected by schema validation before the
	// usecase ever runs.
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_memory_details",
		Arguments: map[string]any{},
	})
	if err == nil {
		gt.True(t, result.IsError)
	}
}

func TestGuidancePrompts(t *testing.T) {
	session := setupSession(t)

	prompts, err := session.ListPrompts(context.Background(), nil)
	gt.NoError(t, err)

	names := map[string]bool{}
	for _, prompt := range prompts.Prompts {
		names[prompt.Name] = true
	}
	for _, want := range []string{
		"memory_saving_criteria",
		"summarization_guidelines",
		"retrieval_strategy",
		"token_efficiency",
	} {
		gt.True(t, names[want])
	}

	result, err := session.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name: "retrieval_strategy",
	})
	gt.NoError(t, err)
	gt.True(t, len(result.Messages) == 1)

	text := gt.Cast[*mcp.TextContent](t, result.Messages[0].Content)
	gt.S(t, text.Text).Contains("search_memory_preview")
}
