package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/local/squidbot/pkg/models"
)

// resolver resolves and validates workspace-relative paths, refusing to
// escape the configured root. Grounded on haasonsaas-nexus/internal/
// tools/files/resolver.go's Resolver.
type resolver struct {
	root string
}

func (r resolver) resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	root := strings.TrimSpace(r.root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes workspace")
	}
	return targetAbs, nil
}

// ReadFileTool reads a workspace file's contents.
type ReadFileTool struct{ r resolver }

// NewReadFileTool creates a read_file tool rooted at workspace.
func NewReadFileTool(workspace string) *ReadFileTool {
	return &ReadFileTool{r: resolver{root: workspace}}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read a text file from the assistant's workspace." }

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path relative to the workspace root."},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	path, _ := args["path"].(string)
	abs, err := t.r.resolve(path)
	if err != nil {
		return models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.ToolResult{Content: fmt.Sprintf("read %s: %v", path, err), IsError: true}, nil
	}
	return models.ToolResult{Content: string(data)}, nil
}

// WriteFileTool writes (overwriting) a workspace file's contents.
type WriteFileTool struct{ r resolver }

// NewWriteFileTool creates a write_file tool rooted at workspace.
func NewWriteFileTool(workspace string) *WriteFileTool {
	return &WriteFileTool{r: resolver{root: workspace}}
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write (overwriting) a text file in the assistant's workspace, creating parent directories as needed."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path relative to the workspace root."},
			"content": map[string]any{"type": "string", "description": "The full file content to write."},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	abs, err := t.r.resolve(path)
	if err != nil {
		return models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return models.ToolResult{Content: fmt.Sprintf("create parent directories for %s: %v", path, err), IsError: true}, nil
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return models.ToolResult{Content: fmt.Sprintf("write %s: %v", path, err), IsError: true}, nil
	}
	return models.ToolResult{Content: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}

// ListFilesTool lists entries under a workspace directory, non-recursively.
type ListFilesTool struct{ r resolver }

// NewListFilesTool creates a list_files tool rooted at workspace.
func NewListFilesTool(workspace string) *ListFilesTool {
	return &ListFilesTool{r: resolver{root: workspace}}
}

func (t *ListFilesTool) Name() string        { return "list_files" }
func (t *ListFilesTool) Description() string { return "List files and directories under a workspace path." }

func (t *ListFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory path relative to the workspace root (default: the root itself)."},
		},
	}
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	abs, err := t.r.resolve(path)
	if err != nil {
		return models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return models.ToolResult{Content: fmt.Sprintf("list %s: %v", path, err), IsError: true}, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return models.ToolResult{Content: strings.Join(names, "\n")}, nil
}
