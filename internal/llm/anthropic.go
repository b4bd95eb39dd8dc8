package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/local/squidbot/pkg/models"
)

// AnthropicModel adapts Anthropic's Messages API to the Model interface.
// Grounded on haasonsaas-nexus/internal/agent/providers/anthropic.go,
// trimmed to the message/tool shape spec.md §3 defines (no vision,
// thinking-budget, or computer-use extensions, none of which any named
// MODULE calls for).
type AnthropicModel struct {
	client       anthropic.Client
	model        string
	maxTokens    int
	maxRetries   int
	retryBackoff time.Duration
}

// AnthropicConfig configures an AnthropicModel.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
}

// NewAnthropicModel creates an AnthropicModel. APIKey is required.
func NewAnthropicModel(cfg AnthropicConfig) (*AnthropicModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicModel{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: time.Second,
	}, nil
}

// Name returns the stable adapter identifier used in pool logging.
func (m *AnthropicModel) Name() string { return "anthropic" }

// Chat streams a completion for messages, retrying transient failures
// before the stream is handed back to the caller. Once a stream has been
// returned, the Pool (spec §4.6) is committed to this model for the rest
// of the call; the retry loop here only covers errors raised while
// establishing the stream, never errors encountered while consuming it.
func (m *AnthropicModel) Chat(ctx context.Context, messages []models.Message, tools []models.ToolDefinition) (<-chan Chunk, error) {
	params, err := m.buildParams(messages, tools)
	if err != nil {
		return nil, err
	}

	var stream *anthropicStream
	var lastErr error
	backoff := m.retryBackoff
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		s := m.client.Messages.NewStreaming(ctx, params)
		stream = &anthropicStream{s}
		// The SDK only surfaces errors once iteration begins, so probe
		// with a single Next() before committing to this attempt.
		if stream.Next() {
			break
		}
		lastErr = stream.Err()
		if lastErr == nil {
			break // stream ended with zero events; treat as success, empty
		}
		if ClassifyError(lastErr) != ErrorRateLimit && ClassifyError(lastErr) != ErrorServer && ClassifyError(lastErr) != ErrorTimeout {
			return nil, fmt.Errorf("anthropic: %w", lastErr)
		}
		if attempt == m.maxRetries {
			return nil, fmt.Errorf("anthropic: max retries exceeded: %w", lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = time.Duration(math.Min(float64(backoff*2), float64(30*time.Second)))
		}
	}

	out := make(chan Chunk)
	go m.processStream(stream, out)
	return out, nil
}

// anthropicStream wraps the SDK's streaming handle so the first Next()
// call made while probing for a connection error can be replayed into
// processStream without re-issuing the request.
type anthropicStream struct {
	*ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (m *AnthropicModel) buildParams(messages []models.Message, tools []models.ToolDefinition) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	var body []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleToolCall, models.RoleToolResult:
			// internal-only roles, never sent to the LLM (spec §3)
			continue
		case models.RoleAssistant:
			blocks, err := assistantBlocks(msg)
			if err != nil {
				return anthropic.MessageNewParams{}, err
			}
			body = append(body, anthropic.NewAssistantMessage(blocks...))
		case models.RoleTool:
			body = append(body, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		default: // user
			body = append(body, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		Messages:  body,
		MaxTokens: int64(m.maxTokens),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		converted, err := convertToolsAnthropic(tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = converted
	}
	return params, nil
}

func assistantBlocks(msg models.Message) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
	}
	return blocks, nil
}

func convertToolsAnthropic(tools []models.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		data, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		result = append(result, param)
	}
	return result, nil
}

func (m *AnthropicModel) processStream(stream *anthropicStream, out chan<- Chunk) {
	defer close(out)

	var currentCall *models.ToolCall
	var currentArgs strings.Builder

	for {
		event := stream.Current()
		switch event.Type {
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				toolUse := block.AsToolUse()
				currentCall = &models.ToolCall{ID: toolUse.ID, Name: toolUse.Name}
				currentArgs.Reset()
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					out <- Chunk{Kind: ChunkText, Text: delta.Text}
				}
			case "input_json_delta":
				currentArgs.WriteString(delta.PartialJSON)
			}
		case "content_block_stop":
			if currentCall != nil {
				var args map[string]any
				_ = json.Unmarshal([]byte(currentArgs.String()), &args)
				currentCall.Arguments = args
				out <- Chunk{Kind: ChunkToolCall, Call: *currentCall}
				currentCall = nil
			}
		case "message_stop":
			return
		}

		if !stream.Next() {
			break
		}
	}
}
