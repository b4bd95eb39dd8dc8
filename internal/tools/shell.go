// Package tools implements the concrete capabilities spec §1 lists as
// invocable by the model: shell, filesystem, memory edits, and (via the
// mcpserver subpackage) external tool servers. Each satisfies
// internal/registry.Tool (C3) and is grounded on the teacher's
// internal/tools/exec and internal/tools/files packages.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/local/squidbot/pkg/models"
)

const defaultShellTimeout = 30 * time.Second

// ShellTool runs a command through /bin/sh, bounded to a workspace
// directory and a timeout. Grounded on haasonsaas-nexus/internal/tools/
// exec/tools.go's ExecTool, trimmed to a single synchronous call: spec.md
// names no background-process or process-management MODULE.
type ShellTool struct {
	workspace string
	timeout   time.Duration
}

// NewShellTool creates a shell tool rooted at workspace.
func NewShellTool(workspace string) *ShellTool {
	return &ShellTool{workspace: workspace, timeout: defaultShellTimeout}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Run a shell command in the assistant's workspace directory and return its combined output."
}

func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute.",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (default 30, max 300).",
				"minimum":     1,
				"maximum":     300,
			},
		},
		"required": []string{"command"},
	}
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	command, _ := args["command"].(string)
	command = strings.TrimSpace(command)
	if command == "" {
		return models.ToolResult{Content: "command is required", IsError: true}, nil
	}

	timeout := t.timeout
	if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
		if timeout > 300*time.Second {
			timeout = 300 * time.Second
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = t.workspace

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := map[string]any{
		"output": out.String(),
	}
	if err != nil {
		result["error"] = err.Error()
	}
	payload, marshalErr := json.MarshalIndent(result, "", "  ")
	if marshalErr != nil {
		return models.ToolResult{Content: fmt.Sprintf("encode result: %v", marshalErr), IsError: true}, nil
	}
	return models.ToolResult{Content: string(payload), IsError: err != nil}, nil
}
