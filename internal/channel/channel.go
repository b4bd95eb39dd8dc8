// Package channel defines the narrow contract every inbound/outbound
// transport implements (spec §4.9): terminal, Slack, and any future
// adapter all satisfy the same Channel interface, so the Agent Loop and
// Gateway never special-case a transport.
package channel

import (
	"context"

	"github.com/local/squidbot/pkg/models"
)

// InboundMessage is one message received off a channel's inbound stream.
type InboundMessage struct {
	Session     models.Session
	Text        string
	Attachments []string
}

// Channel is the contract the Agent Loop and Gateway drive every
// transport through. Implementations must be safe to share across
// goroutines: Send calls from the scheduler, the heartbeat, and the
// inbound fan-in may interleave (spec §5).
type Channel interface {
	// Name identifies the channel for logging and CronJob.Channel prefix
	// matching (e.g. "cli", "slack").
	Name() string

	// Streaming reports whether Send should be called once per chunk
	// (true) or once with the fully assembled text (false).
	Streaming() bool

	// Receive returns a channel of inbound messages. It is read until the
	// context is cancelled or the channel shuts down, at which point the
	// returned Go channel is closed.
	Receive(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers text to session. For streaming channels, Send is
	// called per chunk with final=false and once more with final=true at
	// end-of-response; non-streaming channels receive one call with the
	// fully assembled text and final=true.
	Send(ctx context.Context, session models.Session, text string, final bool) error
}
