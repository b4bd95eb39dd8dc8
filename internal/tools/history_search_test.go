package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/pkg/models"
)

func TestHistorySearchTool_findsMatchWithContext(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	for _, msg := range []models.Message{
		{Role: models.RoleUser, Content: "what's the weather like"},
		{Role: models.RoleAssistant, Content: "it's sunny and warm today"},
		{Role: models.RoleUser, Content: "thanks"},
	} {
		if err := st.AppendMessage(msg); err != nil {
			t.Fatalf("AppendMessage error: %v", err)
		}
	}

	tool := NewHistorySearchTool(st)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "weather"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if !strings.Contains(res.Content, "weather") {
		t.Errorf("result = %q, missing the hit", res.Content)
	}
	if !strings.Contains(res.Content, "sunny") {
		t.Errorf("result = %q, missing the after-context line", res.Content)
	}
}

func TestHistorySearchTool_requiresQuery(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	tool := NewHistorySearchTool(st)

	res, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !res.IsError {
		t.Error("expected an error result for a missing query")
	}
}

func TestHistorySearchTool_noMatches(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	if err := st.AppendMessage(models.Message{Role: models.RoleUser, Content: "hello there"}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}

	tool := NewHistorySearchTool(st)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "nonexistent"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if !strings.Contains(res.Content, "No matches found") {
		t.Errorf("result = %q, want no-matches message", res.Content)
	}
}
