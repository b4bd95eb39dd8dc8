package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/pkg/models"
)

// MemoryWriteTool appends a note to workspace/MEMORY.md, the agent-curated
// cross-session notes document (spec §3). The gateway binds one instance
// per session as a per-call extra tool (spec §4.2 "per-call augmentation",
// control flow in §2: "the gateway looks up the per-session extra tools,
// notably the memory-write tool bound to this session"), so a note always
// carries which session wrote it even though MEMORY.md itself is global.
type MemoryWriteTool struct {
	store     *store.Store
	sessionID string
}

// NewMemoryWriteTool creates a memory tool bound to sessionID.
func NewMemoryWriteTool(st *store.Store, sessionID string) *MemoryWriteTool {
	return &MemoryWriteTool{store: st, sessionID: sessionID}
}

func (t *MemoryWriteTool) Name() string { return "memory_write" }

func (t *MemoryWriteTool) Description() string {
	return "Append a durable note to the agent's cross-session memory (MEMORY.md). Use for facts worth remembering beyond this conversation."
}

func (t *MemoryWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"note": map[string]any{"type": "string", "description": "The note to remember."},
		},
		"required": []string{"note"},
	}
}

func (t *MemoryWriteTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	note, _ := args["note"].(string)
	note = strings.TrimSpace(note)
	if note == "" {
		return models.ToolResult{Content: "note is required", IsError: true}, nil
	}

	existing, err := t.store.LoadMemoryDoc()
	if err != nil {
		return models.ToolResult{Content: fmt.Sprintf("load memory: %v", err), IsError: true}, nil
	}

	entry := fmt.Sprintf("- [%s] %s", t.sessionID, note)
	var updated string
	if strings.TrimSpace(existing) == "" {
		updated = entry + "\n"
	} else {
		updated = strings.TrimRight(existing, "\n") + "\n" + entry + "\n"
	}

	if err := t.store.SaveMemoryDoc(updated); err != nil {
		return models.ToolResult{Content: fmt.Sprintf("save memory: %v", err), IsError: true}, nil
	}
	return models.ToolResult{Content: "noted"}, nil
}
