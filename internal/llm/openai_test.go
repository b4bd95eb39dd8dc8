package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/local/squidbot/pkg/models"
)

func TestConvertOpenAIMessages_internalRolesExcluded(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "be terse"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleToolCall, Content: "internal record"},
		{Role: models.RoleToolResult, Content: "internal record"},
	}
	got := convertOpenAIMessages(messages)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2 (tool_call/tool_result excluded)", len(got))
	}
	if got[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("got[0].Role = %q, want system", got[0].Role)
	}
	if got[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("got[1].Role = %q, want user", got[1].Role)
	}
}

func TestConvertOpenAIMessages_assistantToolCallsSerialized(t *testing.T) {
	messages := []models.Message{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Name: "get_weather", Arguments: map[string]any{"city": "nyc"}},
			},
		},
	}
	got := convertOpenAIMessages(messages)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if len(got[0].ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(got[0].ToolCalls))
	}
	tc := got[0].ToolCalls[0]
	if tc.ID != "call_1" || tc.Function.Name != "get_weather" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Function.Arguments == "" {
		t.Error("expected non-empty serialized arguments")
	}
}

func TestConvertOpenAIMessages_toolResultCarriesCallID(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleTool, Content: "72F and sunny", ToolCallID: "call_1"},
	}
	got := convertOpenAIMessages(messages)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", got[0].ToolCallID)
	}
	if got[0].Role != openai.ChatMessageRoleTool {
		t.Errorf("Role = %q, want tool", got[0].Role)
	}
}

func TestConvertOpenAITools(t *testing.T) {
	tools := []models.ToolDefinition{
		{Name: "get_weather", Description: "fetch current weather", Parameters: map[string]any{"type": "object"}},
	}
	got := convertOpenAITools(tools)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Function.Name != "get_weather" {
		t.Errorf("Function.Name = %q, want get_weather", got[0].Function.Name)
	}
	if got[0].Type != openai.ToolTypeFunction {
		t.Errorf("Type = %q, want function", got[0].Type)
	}
}
