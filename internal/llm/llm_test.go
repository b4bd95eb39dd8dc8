package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/local/squidbot/pkg/models"
)

type fakeModel struct {
	name  string
	chunk string
	err   error
}

func (f *fakeModel) Name() string { return f.name }

func (f *fakeModel) Chat(ctx context.Context, messages []models.Message, tools []models.ToolDefinition) (<-chan Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan Chunk, 1)
	out <- Chunk{Kind: ChunkText, Text: f.chunk}
	close(out)
	return out, nil
}

func drain(t *testing.T, ch <-chan Chunk) []Chunk {
	t.Helper()
	var chunks []Chunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func TestPool_Chat_firstModelSucceeds(t *testing.T) {
	p := New(nil, &fakeModel{name: "a", chunk: "hello"}, &fakeModel{name: "b", chunk: "world"})

	ch, err := p.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 1 || chunks[0].Text != "hello" {
		t.Errorf("chunks = %v, want single hello chunk from first model", chunks)
	}
}

func TestPool_Chat_fallsBackOnError(t *testing.T) {
	p := New(nil,
		&fakeModel{name: "a", err: errors.New("internal server error")},
		&fakeModel{name: "b", chunk: "fallback"},
	)

	ch, err := p.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 1 || chunks[0].Text != "fallback" {
		t.Errorf("chunks = %v, want fallback chunk from second model", chunks)
	}
}

func TestPool_Chat_authFailureStillFallsBack(t *testing.T) {
	p := New(nil,
		&fakeModel{name: "a", err: errors.New("401 unauthorized: invalid api key")},
		&fakeModel{name: "b", chunk: "fallback"},
	)

	ch, err := p.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 1 || chunks[0].Text != "fallback" {
		t.Errorf("chunks = %v, want fallback chunk", chunks)
	}
}

func TestPool_Chat_allModelsFailReturnsLastError(t *testing.T) {
	errA := errors.New("rate limited: 429")
	errB := errors.New("server error: 503")
	p := New(nil,
		&fakeModel{name: "a", err: errA},
		&fakeModel{name: "b", err: errB},
	)

	_, err := p.Chat(context.Background(), nil, nil)
	if !errors.Is(err, errB) {
		t.Errorf("err = %v, want last model's error (%v)", err, errB)
	}
}

func TestPool_Chat_noModelsConfigured(t *testing.T) {
	p := New(nil)
	_, err := p.Chat(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoModelsConfigured) {
		t.Errorf("err = %v, want ErrNoModelsConfigured", err)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"request timeout", ErrorTimeout},
		{"429 rate limit exceeded", ErrorRateLimit},
		{"401 unauthorized", ErrorAuth},
		{"quota exceeded, billing issue", ErrorBilling},
		{"maximum context length exceeded", ErrorContextLength},
		{"model not found", ErrorModelUnavailable},
		{"502 server error", ErrorServer},
		{"connection refused", ErrorNetwork},
		{"400 invalid request", ErrorInvalidRequest},
		{"something odd happened", ErrorUnknown},
	}
	for _, c := range cases {
		if got := ClassifyError(errors.New(c.msg)); got != c.want {
			t.Errorf("ClassifyError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

func TestClassifyError_nilIsUnknown(t *testing.T) {
	if got := ClassifyError(nil); got != ErrorUnknown {
		t.Errorf("ClassifyError(nil) = %v, want ErrorUnknown", got)
	}
}

func TestFormatUserMessage_doesNotLeakRawErrorForAuth(t *testing.T) {
	msg := FormatUserMessage(errors.New("401 unauthorized"))
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	if msg == "401 unauthorized" {
		t.Error("FormatUserMessage should not return the raw error verbatim for classified kinds")
	}
}
