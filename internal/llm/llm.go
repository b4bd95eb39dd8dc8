// Package llm implements the LLM Pool: an ordered list of single-model
// chat adapters with commit-to-first-successful-model streaming and
// exception-classified fallback. See spec §4.6.
package llm

import (
	"context"
	"log/slog"

	"github.com/local/squidbot/pkg/models"
)

// ChunkKind distinguishes the two kinds of value a streaming chat call can
// yield: plain text, or a tool-call delta being accumulated by the caller.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkToolCall
)

// Chunk is one unit from a streaming chat call.
type Chunk struct {
	Kind ChunkKind
	Text string
	Call models.ToolCall // valid when Kind == ChunkToolCall; partial, keyed by ID
}

// Model is a single underlying provider adapter (e.g. Anthropic, OpenAI).
type Model interface {
	Name() string
	Chat(ctx context.Context, messages []models.Message, tools []models.ToolDefinition) (<-chan Chunk, error)
}

// Pool holds an ordered list of Models and implements the fallback
// contract from spec §4.6: try the first; on error, log and try the
// next. The pool commits to the first model whose Chat call returns a
// stream without error, before any content has been read from it; a
// failure while that stream is consumed does not move the call to the
// next model.
type Pool struct {
	models []Model
	logger *slog.Logger
}

// New creates a Pool trying models in the given order.
func New(logger *slog.Logger, models ...Model) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{models: models, logger: logger.With("component", "llm_pool")}
}

// Chat attempts each model in order until one returns a stream without
// error.
// Authentication failures are additionally logged at WARNING with the
// model name (spec §4.6). Exhaustion re-raises the last error.
func (p *Pool) Chat(ctx context.Context, messages []models.Message, tools []models.ToolDefinition) (<-chan Chunk, error) {
	var lastErr error

	for _, m := range p.models {
		ch, err := m.Chat(ctx, messages, tools)
		if err != nil {
			lastErr = err
			if ClassifyError(err) == ErrorAuth {
				p.logger.Warn("llm auth failure", "model", m.Name(), "error", err)
			} else {
				p.logger.Error("llm call failed, trying next model", "model", m.Name(), "error", err)
			}
			continue
		}
		return ch, nil
	}

	if lastErr == nil {
		lastErr = ErrNoModelsConfigured
	}
	return nil, lastErr
}
