// Package agent implements the Agent Loop (spec §4.5): the per-turn
// streaming tool-use cycle between the LLM Pool, the Tool Registry, and
// the Memory Manager. Grounded on haasonsaas-nexus/internal/agent/loop.go
// (AgenticLoop.Run's Init/Stream/ExecuteTools/Continue/Complete state
// machine), trimmed to spec.md §4.5's simpler algorithm: no branches,
// approvals, async jobs, or steering queues, none of which any named
// MODULE calls for.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/local/squidbot/internal/channel"
	"github.com/local/squidbot/internal/llm"
	"github.com/local/squidbot/internal/memorymgr"
	"github.com/local/squidbot/internal/registry"
	"github.com/local/squidbot/pkg/models"
)

// MaxToolRounds bounds how many LLM round-trips a single run may take
// before the loop gives up and reports the bound to the user (spec §4.5).
const MaxToolRounds = 20

// maxResultChars is the length each tool result's persisted text is
// truncated to, with a "\n[truncated]" marker when cut (spec §4.5).
const maxResultChars = 2000

// Loop runs the agentic tool-use cycle for one turn at a time.
type Loop struct {
	registry *registry.Registry
	memory   *memorymgr.Manager
	pool     *llm.Pool
	logger   *slog.Logger

	systemPrompt string
}

// New creates a Loop. systemPrompt is the base system prompt the Memory
// Manager layers SkillsBlock/MemoryBlock/SummaryBlock onto.
func New(reg *registry.Registry, mem *memorymgr.Manager, pool *llm.Pool, systemPrompt string, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		registry:     reg,
		memory:       mem,
		pool:         pool,
		systemPrompt: systemPrompt,
		logger:       logger.With("component", "agent_loop"),
	}
}

// RunOptions holds the optional run(..., *, llm_override, extra_tools)
// keyword arguments from spec §4.5.
type RunOptions struct {
	// LLMOverride replaces the configured Pool for this run only.
	LLMOverride llm.Model
	// ExtraTools are consulted before the global registry for dispatch
	// and are included in the tool definitions offered to the LLM.
	ExtraTools []registry.Tool
}

// Run executes one turn: build context, stream the LLM, dispatch any
// tool calls, and repeat until the LLM stops calling tools or
// MaxToolRounds is reached. It always delivers a reply through ch and
// never returns an application error to the caller; spec §4.5's error
// boundaries are handled internally.
func (l *Loop) Run(ctx context.Context, session models.Session, userMessage string, ch channel.Channel, opts RunOptions) {
	messages, err := l.memory.BuildMessages(ctx, session.ID(), l.systemPrompt, userMessage)
	if err != nil {
		l.logger.Warn("memory build failed, using degraded context", "session", session.ID(), "error", err)
		messages = []models.Message{
			{Role: models.RoleSystem, Content: l.systemPrompt},
			{Role: models.RoleUser, Content: userMessage},
		}
	}

	toolDefs := l.registry.GetDefinitions()
	for _, t := range opts.ExtraTools {
		toolDefs = append(toolDefs, models.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	model := l.chatFunc(opts.LLMOverride)

	finalText, ok := l.roundLoop(ctx, session, &messages, toolDefs, model, ch, opts.ExtraTools)
	if !ok {
		return // error boundary already delivered a reply and exited
	}

	if err := ch.Send(ctx, session, finalText, true); err != nil {
		l.logger.Warn("final send failed", "session", session.ID(), "error", err)
	}

	if err := l.memory.PersistExchange(session.ID(), userMessage, finalText); err != nil {
		l.logger.Warn("failed to persist exchange", "session", session.ID(), "error", err)
	}
}

// chatFunc resolves which Chat to call for this run: the per-run
// override, or the configured pool.
func (l *Loop) chatFunc(override llm.Model) func(context.Context, []models.Message, []models.ToolDefinition) (<-chan llm.Chunk, error) {
	if override != nil {
		return override.Chat
	}
	return l.pool.Chat
}

// roundLoop drives up to MaxToolRounds LLM round-trips. It returns the
// final assistant text and true on normal completion; on an LLM error it
// delivers a human-readable reply itself and returns false so Run does
// not attempt a second final send.
func (l *Loop) roundLoop(
	ctx context.Context,
	session models.Session,
	messages *[]models.Message,
	toolDefs []models.ToolDefinition,
	chat func(context.Context, []models.Message, []models.ToolDefinition) (<-chan llm.Chunk, error),
	ch channel.Channel,
	extraTools []registry.Tool,
) (string, bool) {
	for round := 0; round < MaxToolRounds; round++ {
		stream, err := chat(ctx, *messages, toolDefs)
		if err != nil {
			l.deliverLLMError(ctx, session, ch, err)
			return "", false
		}

		text, calls := l.consumeStream(ctx, session, stream, ch)

		if len(calls) == 0 {
			return text, true
		}

		*messages = append(*messages, models.Message{
			Role:      models.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})

		for _, call := range calls {
			result := l.registry.Dispatch(ctx, extraTools, call.Name, call.ID, call.Arguments)
			*messages = append(*messages, models.Message{
				Role:       models.RoleTool,
				Content:    result.Content,
				ToolCallID: result.ToolCallID,
			})

			callText := formatCall(call)
			resultText := truncateResult(result.Content)
			if err := l.memory.AppendToolEvent(session.ID(), callText, resultText); err != nil {
				l.logger.Warn("failed to append tool event", "tool", call.Name, "error", err)
			}
		}
	}

	return "I reached my limit of tool-use rounds for this request without finishing. Please try rephrasing or breaking the task into smaller steps.", true
}

// consumeStream drains one model's chunk stream, forwarding text chunks
// to the channel when it is streaming and aggregating tool-call deltas
// by id (spec §4.5 step 3a).
func (l *Loop) consumeStream(ctx context.Context, session models.Session, stream <-chan llm.Chunk, ch channel.Channel) (string, []models.ToolCall) {
	var text strings.Builder
	var order []string
	byID := make(map[string]*models.ToolCall)

	for chunk := range stream {
		switch chunk.Kind {
		case llm.ChunkText:
			text.WriteString(chunk.Text)
			if ch.Streaming() && chunk.Text != "" {
				if err := ch.Send(ctx, session, chunk.Text, false); err != nil {
					l.logger.Warn("stream chunk send failed", "error", err)
				}
			}
		case llm.ChunkToolCall:
			existing, seen := byID[chunk.Call.ID]
			if !seen {
				order = append(order, chunk.Call.ID)
				call := chunk.Call
				byID[chunk.Call.ID] = &call
				continue
			}
			if chunk.Call.Name != "" {
				existing.Name = chunk.Call.Name
			}
			if chunk.Call.Arguments != nil {
				existing.Arguments = chunk.Call.Arguments
			}
		}
	}

	calls := make([]models.ToolCall, 0, len(order))
	for _, id := range order {
		calls = append(calls, *byID[id])
	}
	return text.String(), calls
}

// deliverLLMError formats a classified LLM failure as the assistant's
// reply and sends it, since the pool is exhausted (spec §4.5).
func (l *Loop) deliverLLMError(ctx context.Context, session models.Session, ch channel.Channel, err error) {
	msg := llm.FormatUserMessage(err)
	if sendErr := ch.Send(ctx, session, msg, true); sendErr != nil {
		l.logger.Warn("failed to deliver LLM error reply", "error", sendErr)
	}
}

// formatCall renders a tool call as "name(k=v, k2=v2, ...)" with keys in
// sorted order for deterministic persisted text.
func formatCall(tc models.ToolCall) string {
	keys := make([]string, 0, len(tc.Arguments))
	for k := range tc.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%#v", k, tc.Arguments[k]))
	}
	return fmt.Sprintf("%s(%s)", tc.Name, strings.Join(parts, ", "))
}

// truncateResult truncates content at maxResultChars runes (not bytes,
// so multi-byte UTF-8 text is never split mid-codepoint), appending a
// "\n[truncated]" marker when it cuts (spec §4.5, §9 Open Question 3).
func truncateResult(content string) string {
	runes := []rune(content)
	if len(runes) <= maxResultChars {
		return content
	}
	return string(runes[:maxResultChars]) + "\n[truncated]"
}
