package tools

import (
	"context"
	"strings"
	"testing"
)

func TestShellTool_runsCommandAndCapturesOutput(t *testing.T) {
	tool := NewShellTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Errorf("result.Content = %q, want it to contain %q", result.Content, "hello")
	}
}

func TestShellTool_requiresCommand(t *testing.T) {
	tool := NewShellTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Error("expected an error result for a missing command")
	}
}

func TestShellTool_nonZeroExitIsErrorResult(t *testing.T) {
	tool := NewShellTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"command": "exit 1"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError=true for a non-zero exit command")
	}
}
