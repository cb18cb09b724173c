package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Input schemas are written out explicitly rather than inferred from the
// parameter structs, so each field carries the guidance text and bounds the
// calling agent sees.

func ptr[T any](v T) *T { return &v }

func writeMemorySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"title": {
				Type:        "string",
				Description: "A concise, keyword-rich title that captures the essence of the memory. Think of this as the headline that will help you find this memory later. Max 10 words recommended.",
			},
			"summary": {
				Type:        "string",
				Description: "A brief, factual summary shown in search previews. Include key entities, actions and outcomes, and focus on searchable keywords. 1-2 sentences recommended.",
			},
			"full_content": {
				Type:        "string",
				Description: "The complete, detailed content of the memory. Include code snippets, detailed explanations, step-by-step processes, or any other comprehensive information.",
			},
			"metadata": {
				Type:        "object",
				Description: "Optional key-value annotations stored alongside the memory.",
			},
		},
		Required: []string{"title", "summary", "full_content"},
	}
}

func searchMemorySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "The search query formulated as a specific question or problem statement. Examples: 'How to handle API rate limiting?', 'debugging React state issues'. Be specific about what information you are looking for.",
			},
			"limit": {
				Type:        "integer",
				Description: "The maximum number of memory previews to return. Start with 5-10 for focused searches, increase if you need more options to choose from.",
				Minimum:     ptr(1.0),
				Maximum:     ptr(20.0),
				Default:     json.RawMessage("5"),
			},
		},
		Required: []string{"query"},
	}
}

func getMemoriesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ids": {
				Type:        "array",
				Description: "Memory IDs to retrieve full content for, taken from search_memory_preview results. Be selective: only include IDs for memories you determined are relevant.",
				Items:       &jsonschema.Schema{Type: "string"},
			},
		},
		Required: []string{"ids"},
	}
}

func listMemoriesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"limit": {
				Type:        "integer",
				Description: "The maximum number of recent memories to return (1-100).",
				Minimum:     ptr(1.0),
				Maximum:     ptr(100.0),
				Default:     json.RawMessage("10"),
			},
			"offset": {
				Type:        "integer",
				Description: "Number of memories to skip, for paging through older entries.",
				Minimum:     ptr(0.0),
				Default:     json.RawMessage("0"),
			},
		},
	}
}

func memoryDetailsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"memory_id": {
				Type:        "string",
				Description: "The ID of the memory to retrieve details for.",
			},
		},
		Required: []string{"memory_id"},
	}
}
