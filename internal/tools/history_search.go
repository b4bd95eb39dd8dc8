package tools

import (
	"context"

	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/pkg/models"
)

// HistorySearchTool exposes store.Search/RenderMatches as the "execute"
// history-search capability spec §4.7 names.
type HistorySearchTool struct {
	store *store.Store
}

// NewHistorySearchTool creates a history-search tool backed by st.
func NewHistorySearchTool(st *store.Store) *HistorySearchTool {
	return &HistorySearchTool{store: st}
}

func (t *HistorySearchTool) Name() string { return "execute" }

func (t *HistorySearchTool) Description() string {
	return "Search past conversation history for a query string, optionally limited to the last N days, returning each hit with one message of surrounding context."
}

func (t *HistorySearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Text to search for, case-insensitively.",
			},
			"days": map[string]any{
				"type":        "integer",
				"description": "Only search messages from the last N days. Omit to search all history.",
				"minimum":     1,
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of matches to return (default 5).",
				"minimum":     1,
			},
		},
		"required": []string{"query"},
	}
}

func (t *HistorySearchTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return models.ToolResult{Content: "query is required", IsError: true}, nil
	}

	var days *int
	if v, ok := args["days"].(float64); ok && v > 0 {
		d := int(v)
		days = &d
	}

	maxResults := 5
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	matches, err := t.store.Search(query, days, maxResults)
	if err != nil {
		return models.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	return models.ToolResult{Content: store.RenderMatches(matches)}, nil
}
