package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/local/squidbot/pkg/models"
)

// OpenAIModel adapts the Chat Completions streaming API to the Model
// interface. Grounded on haasonsaas-nexus/internal/agent/providers/openai.go,
// trimmed to spec.md §3's message/tool shape (no vision attachments, since
// no named MODULE exercises them) and using the pool-wide ClassifyError
// scheme in place of the teacher's separate isRetryableError.
type OpenAIModel struct {
	client     *openai.Client
	model      string
	maxTokens  int
	maxRetries int
	retryDelay time.Duration
}

// OpenAIConfig configures an OpenAIModel.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
}

// NewOpenAIModel creates an OpenAIModel. APIKey is required.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return &OpenAIModel{
		client:     openai.NewClientWithConfig(conf),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
	}, nil
}

// Name returns the stable adapter identifier used in pool logging.
func (m *OpenAIModel) Name() string { return "openai" }

// Chat streams a completion, retrying transient failures before the
// stream is handed back to the caller. As with AnthropicModel, once a
// stream is returned the Pool is committed to this model for the call.
func (m *OpenAIModel) Chat(ctx context.Context, messages []models.Message, tools []models.ToolDefinition) (<-chan Chunk, error) {
	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: convertOpenAIMessages(messages),
		Stream:   true,
	}
	if m.maxTokens > 0 {
		req.MaxTokens = m.maxTokens
	}
	if len(tools) > 0 {
		req.Tools = convertOpenAITools(tools)
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		stream, err := m.client.CreateChatCompletionStream(ctx, req)
		if err == nil {
			out := make(chan Chunk)
			go m.processStream(ctx, stream, out)
			return out, nil
		}
		lastErr = err
		kind := ClassifyError(err)
		if kind != ErrorRateLimit && kind != ErrorServer && kind != ErrorTimeout {
			return nil, fmt.Errorf("openai: %w", err)
		}
		if attempt == m.maxRetries {
			return nil, fmt.Errorf("openai: max retries exceeded: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.retryDelay * time.Duration(attempt+1)):
		}
	}
	return nil, fmt.Errorf("openai: %w", lastErr)
}

func convertOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleToolCall, models.RoleToolResult:
			// internal-only roles, never sent to the LLM (spec §3)
			continue
		case models.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})
		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			result = append(result, oaiMsg)
		case models.RoleTool:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		default: // user
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}
	return result
}

func convertOpenAITools(tools []models.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func (m *OpenAIModel) processStream(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- Chunk) {
	defer close(out)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	argsBuf := make(map[int]*strings.Builder)

	emitCompleted := func() {
		for i, tc := range toolCalls {
			if tc.ID == "" || tc.Name == "" {
				continue
			}
			var args map[string]any
			_ = json.Unmarshal([]byte(argsBuf[i].String()), &args)
			tc.Arguments = args
			out <- Chunk{Kind: ChunkToolCall, Call: *tc}
		}
		toolCalls = make(map[int]*models.ToolCall)
		argsBuf = make(map[int]*strings.Builder)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				emitCompleted()
			}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			out <- Chunk{Kind: ChunkText, Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &models.ToolCall{}
				argsBuf[index] = &strings.Builder{}
			}
			if tc.ID != "" {
				toolCalls[index].ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				argsBuf[index].WriteString(tc.Function.Arguments)
			}
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			emitCompleted()
		}
	}
}
