// Package registry implements the tool registry: thread-safe tool
// registration, a memoised definition list for the LLM Pool, and dispatch
// that never lets a misbehaving tool crash the agent loop. See spec §4.2.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/local/squidbot/pkg/models"
)

// Tool is one invocable capability: shell, filesystem, web search, memory
// edits, sub-agent spawning, or an external tool server's exposed method.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (models.ToolResult, error)
}

// Registry holds the globally registered tool set. Per-call extra tools
// (spec §4.2 "Per-call augmentation") are passed separately to Dispatch
// rather than registered here, so the composition root can bind
// session-scoped tools without mutating global state.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	defsMu    sync.Mutex
	defsCache []models.ToolDefinition
	defsValid bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool to the registry, replacing any existing tool with the
// same name, and invalidates the cached definition list.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	r.tools[tool.Name()] = tool
	r.mu.Unlock()

	r.defsMu.Lock()
	r.defsValid = false
	r.defsMu.Unlock()
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// GetDefinitions returns a defensive copy of all registered tool
// definitions, memoised until the next Register call.
func (r *Registry) GetDefinitions() []models.ToolDefinition {
	r.defsMu.Lock()
	defer r.defsMu.Unlock()

	if r.defsValid {
		out := make([]models.ToolDefinition, len(r.defsCache))
		copy(out, r.defsCache)
		return out
	}

	r.mu.RLock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, models.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	r.mu.RUnlock()

	r.defsCache = defs
	r.defsValid = true

	out := make([]models.ToolDefinition, len(defs))
	copy(out, defs)
	return out
}

// Dispatch runs the named tool, consulting extras first and the registry
// second (spec §4.2 "Per-call augmentation"). The registry is the only
// place that writes tool_call_id into the returned result: a tool's
// Execute return value is never trusted to carry its own call id. A panic
// or error from the tool is converted into an error ToolResult rather than
// propagated, so one bad tool call never brings down the agent loop.
func (r *Registry) Dispatch(ctx context.Context, extras []Tool, name, toolCallID string, args map[string]any) (result models.ToolResult) {
	result.ToolCallID = toolCallID

	defer func() {
		if rec := recover(); rec != nil {
			result.IsError = true
			result.Content = fmt.Sprintf("Error: tool %q panicked: %v", name, rec)
		}
	}()

	tool := findTool(extras, name)
	if tool == nil {
		r.mu.RLock()
		tool = r.tools[name]
		r.mu.RUnlock()
	}
	if tool == nil {
		result.IsError = true
		result.Content = fmt.Sprintf("Error: unknown tool %q", name)
		return result
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		result.IsError = true
		result.Content = fmt.Sprintf("Error: %v", err)
		return result
	}

	result.Content = out.Content
	result.IsError = out.IsError
	return result
}

func findTool(tools []Tool, name string) Tool {
	for _, t := range tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
