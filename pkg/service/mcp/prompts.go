package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Guidance prompts for calling agents. They carry no server state; each one
// returns a single static user message.

type promptDef struct {
	name        string
	description string
	text        string
}

var promptDefs = []promptDef{
	{
		name:        "memory_saving_criteria",
		description: "Guidelines for deciding what information should be saved as memories",
		text: `When deciding what information to save as memories, consider these criteria:

SAVE when information is:
- Solutions to specific problems you solved
- Insights gained from debugging or troubleshooting
- Architectural decisions and their reasoning
- Code patterns that work well for specific use cases
- Configuration steps that were hard to figure out
- User preferences and specific requirements
- Lessons learned from mistakes or failures
- Reusable processes or workflows

DO NOT SAVE:
- General conversational exchanges without specific insights
- Information easily found in documentation
- Temporary or context-specific details
- Personal opinions without actionable content

QUALITY OVER QUANTITY: save fewer, higher-quality memories that will genuinely help you in future similar situations.`,
	},
	{
		name:        "summarization_guidelines",
		description: "Instructions for creating effective memory titles and summaries",
		text: `When creating memory titles and summaries:

TITLE GUIDELINES:
- Be specific and keyword-rich: "Fix React useEffect infinite loop", not "React issue"
- Include key technologies: "PostgreSQL connection pooling with Node.js"
- Focus on the main action or outcome
- Keep under 10 words but be descriptive

SUMMARY GUIDELINES:
- Start with the core problem or topic in the first sentence
- Include key technical details: versions, specific error messages, technologies
- Mention the solution approach or outcome briefly
- Use searchable keywords that you would naturally think of later
- Keep to 1-2 sentences but pack them with useful information`,
	},
	{
		name:        "retrieval_strategy",
		description: "Best practices for the two-stage retrieval workflow",
		text: `Follow this two-stage retrieval workflow for efficient memory access:

STAGE 1 - DISCOVERY (search_memory_preview):
- Formulate specific queries and include problem context: "debugging", "setup", "implementation"
- Start with broader terms, then narrow down if needed
- Review all returned previews before deciding what to retrieve

STAGE 2 - RETRIEVAL (get_full_memory_by_ids):
- Be selective: only retrieve memories you determined are relevant
- Start with 1-3 most promising memories to conserve tokens
- Retrieve additional memories only if the first batch lacks what you need`,
	},
	{
		name:        "token_efficiency",
		description: "Guidance for minimizing context window usage while maintaining effectiveness",
		text: `Optimize token usage with these strategies:

MEMORY CREATION:
- Write concise but complete summaries, they are used for search previews
- Store complete context in full_content for when you actually need it

RETRIEVAL OPTIMIZATION:
- Use search_memory_preview first, previews are lightweight
- Only call get_full_memory_by_ids for memories you are confident are relevant
- Trust your preview-based decisions and avoid retrieving "just in case"`,
	},
}

func registerPrompts(srv *mcp.Server) {
	for _, def := range promptDefs {
		srv.AddPrompt(&mcp.Prompt{
			Name:        def.name,
			Description: def.description,
		}, promptHandler(def))
	}
}

func promptHandler(def promptDef) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: def.description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: def.text},
				},
			},
		}, nil
	}
}
