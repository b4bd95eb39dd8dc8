package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/local/squidbot/pkg/models"
)

// Terminal is a non-streaming Channel that reads lines from an input
// stream (normally os.Stdin) and writes replies to an output stream
// (normally os.Stdout). Grounded on the shape of the teacher's channel
// adapters (internal/channels/slack/adapter.go: a buffered inbound
// channel fed by a reader goroutine, a cancellable context, a WaitGroup
// for clean shutdown), trimmed to a single local sender with no
// authentication or socket handshake.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	sender string
	logger *slog.Logger

	mu   sync.Mutex
	wg   sync.WaitGroup
}

// NewTerminal creates a Terminal channel. sender is the fixed
// Session.SenderID used for every inbound line (there is only ever one
// local user on this channel).
func NewTerminal(in io.Reader, out io.Writer, sender string, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminal{
		in:     in,
		out:    out,
		sender: sender,
		logger: logger.With("channel", "cli"),
	}
}

func (t *Terminal) Name() string   { return "cli" }
func (t *Terminal) Streaming() bool { return false }

// Receive scans lines from the input stream, emitting one InboundMessage
// per non-empty line. Blank lines are skipped. The returned channel is
// closed when the context is cancelled or the input stream is exhausted.
func (t *Terminal) Receive(ctx context.Context) (<-chan InboundMessage, error) {
	out := make(chan InboundMessage)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer close(out)

		scanner := bufio.NewScanner(t.in)
		lines := make(chan string)
		go func() {
			defer close(lines)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if line == "" {
					continue
				}
				msg := InboundMessage{
					Session: models.Session{Channel: t.Name(), SenderID: t.sender},
					Text:    line,
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Send writes text to the output stream. final is accepted for interface
// conformance; a non-streaming channel always receives exactly one Send
// call per reply with final=true, so it has no effect here.
func (t *Terminal) Send(ctx context.Context, session models.Session, text string, final bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, text)
	if err != nil {
		t.logger.Warn("terminal send failed", "error", err)
	}
	return err
}
