package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/local/squidbot/internal/agent"
	"github.com/local/squidbot/internal/channel"
	"github.com/local/squidbot/internal/llm"
	"github.com/local/squidbot/internal/memorymgr"
	"github.com/local/squidbot/internal/registry"
	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/pkg/models"
)

// fakeChannel emits a fixed set of inbound messages once, then closes, and
// records every Send call.
type fakeChannel struct {
	name     string
	inbound  []channel.InboundMessage
	delay    time.Duration

	mu    sync.Mutex
	sends []sentMessage
}

type sentMessage struct {
	session models.Session
	text    string
	final   bool
}

func (f *fakeChannel) Name() string     { return f.name }
func (f *fakeChannel) Streaming() bool   { return false }

func (f *fakeChannel) Receive(ctx context.Context) (<-chan channel.InboundMessage, error) {
	out := make(chan channel.InboundMessage)
	go func() {
		defer close(out)
		for _, msg := range f.inbound {
			if f.delay > 0 {
				time.Sleep(f.delay)
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeChannel) Send(ctx context.Context, session models.Session, text string, final bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMessage{session: session, text: text, final: final})
	return nil
}

func (f *fakeChannel) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sends))
	for i, s := range f.sends {
		out[i] = s.text
	}
	return out
}

type echoModel struct{}

func (echoModel) Name() string { return "echo" }

func (echoModel) Chat(ctx context.Context, messages []models.Message, toolDefs []models.ToolDefinition) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk, 1)
	ch <- llm.Chunk{Kind: llm.ChunkText, Text: "ack"}
	close(ch)
	return ch, nil
}

func newTestLoop(t *testing.T) (*agent.Loop, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir(), nil)
	mem := memorymgr.New(st, nil, nil, nil, nil)
	pool := llm.New(nil, echoModel{})
	reg := registry.New()
	return agent.New(reg, mem, pool, "you are squidbot", nil), st
}

func TestGateway_fansInMessagesFromEachChannel(t *testing.T) {
	loop, st := newTestLoop(t)

	cli := &fakeChannel{name: "cli", inbound: []channel.InboundMessage{
		{Session: models.Session{Channel: "cli", SenderID: "local"}, Text: "hi"},
	}}
	slack := &fakeChannel{name: "slack", inbound: []channel.InboundMessage{
		{Session: models.Session{Channel: "slack", SenderID: "U1"}, Text: "hello"},
	}}

	gw := New(st, loop, []channel.Channel{cli, slack}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := gw.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if texts := cli.sentTexts(); len(texts) != 1 || texts[0] != "ack" {
		t.Errorf("cli sent = %v, want [ack]", texts)
	}
	if texts := slack.sentTexts(); len(texts) != 1 || texts[0] != "ack" {
		t.Errorf("slack sent = %v, want [ack]", texts)
	}
}

func TestGateway_dispatchesCronJobToTargetChannel(t *testing.T) {
	loop, st := newTestLoop(t)

	cli := &fakeChannel{name: "cli"}
	gw := New(st, loop, []channel.Channel{cli}, nil)

	if err := st.SaveCronJobs([]models.CronJob{
		{ID: "1", Name: "digest", Schedule: "every 1", Message: "give me the digest", Channel: "cli:local", Enabled: true},
	}); err != nil {
		t.Fatalf("SaveCronJobs error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		gw.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if len(cli.sentTexts()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for cron dispatch to reach the channel")
		case <-time.After(50 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if texts := cli.sentTexts(); len(texts) == 0 || texts[0] != "ack" {
		t.Errorf("cli sent = %v, want at least one [ack]", texts)
	}
}

func TestSplitSessionRef(t *testing.T) {
	cases := []struct {
		ref         string
		wantChannel string
		wantSender  string
		wantOK      bool
	}{
		{"cli:local", "cli", "local", true},
		{"slack:U123", "slack", "U123", true},
		{"noColon", "", "", false},
		{":sender", "", "", false},
		{"channel:", "", "", false},
	}
	for _, c := range cases {
		channelName, senderID, ok := splitSessionRef(c.ref)
		if ok != c.wantOK || channelName != c.wantChannel || senderID != c.wantSender {
			t.Errorf("splitSessionRef(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.ref, channelName, senderID, ok, c.wantChannel, c.wantSender, c.wantOK)
		}
	}
}
