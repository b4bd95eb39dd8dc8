package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/local/squidbot/pkg/models"
)

// SlackConfig holds the credentials the Slack channel needs. Grounded on
// haasonsaas-nexus/internal/channels/slack/adapter.go's Config: a bot
// token for REST calls and an app-level token for Socket Mode.
type SlackConfig struct {
	BotToken string
	AppToken string
}

// Slack is a streaming Channel backed by Slack's Socket Mode API.
// Grounded on the teacher's slack.Adapter: socketmode.Client plumbing,
// AuthTest for the bot's own user id, an EventsAPI callback switch for
// app_mention/message events, and DM/mention filtering so the bot does
// not respond to every message in every channel it has been added to.
type Slack struct {
	cfg    SlackConfig
	client *slack.Client
	socket *socketmode.Client
	logger *slog.Logger

	botUserIDMu sync.RWMutex
	botUserID   string

	sendMu sync.Mutex
}

// NewSlack creates a Slack channel. It does not connect until Receive is
// called.
func NewSlack(cfg SlackConfig, logger *slog.Logger) *Slack {
	if logger == nil {
		logger = slog.Default()
	}
	client := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &Slack{
		cfg:    cfg,
		client: client,
		socket: socketmode.New(client),
		logger: logger.With("channel", "slack"),
	}
}

func (s *Slack) Name() string    { return "slack" }
func (s *Slack) Streaming() bool { return true }

// Receive authenticates, starts the Socket Mode run loop, and returns a
// channel of filtered inbound messages. Cancelling ctx stops the event
// reader and closes the returned channel; the Socket Mode run loop is not
// tied to ctx.
func (s *Slack) Receive(ctx context.Context) (<-chan InboundMessage, error) {
	auth, err := s.client.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test failed: %w", err)
	}
	s.botUserIDMu.Lock()
	s.botUserID = auth.UserID
	s.botUserIDMu.Unlock()

	out := make(chan InboundMessage, 16)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-s.socket.Events:
				if !ok {
					return
				}
				s.handleEvent(ctx, event, out)
			}
		}
	}()

	// socketmode.Client.Run blocks for the life of the connection; it has
	// no context-aware variant, so shutdown relies on the process tearing
	// the socket down (spec §5: an in-flight run continues to completion
	// even after the channel its inbound stream belongs to is closed).
	go func() {
		if err := s.socket.Run(); err != nil {
			s.logger.Error("socket mode run exited", "error", err)
		}
	}()

	return out, nil
}

func (s *Slack) handleEvent(ctx context.Context, event socketmode.Event, out chan<- InboundMessage) {
	switch event.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPI, ok := event.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if event.Request != nil {
			s.socket.Ack(*event.Request)
		}
		s.handleEventsAPI(ctx, eventsAPI, out)
	case socketmode.EventTypeSlashCommand, socketmode.EventTypeInteractive:
		if event.Request != nil {
			s.socket.Ack(*event.Request)
		}
	}
}

func (s *Slack) handleEventsAPI(ctx context.Context, eventsAPI slackevents.EventsAPIEvent, out chan<- InboundMessage) {
	if eventsAPI.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := eventsAPI.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		s.dispatchMessage(ctx, ev.Channel, ev.User, ev.Text, ev.BotID, out)
	case *slackevents.MessageEvent:
		if ev.SubType != "" && ev.SubType != "file_share" {
			return
		}
		s.dispatchMessage(ctx, ev.Channel, ev.User, ev.Text, ev.BotID, out)
	}
}

// dispatchMessage filters out the bot's own messages and anything that
// isn't a DM or an explicit @mention, then emits one InboundMessage.
func (s *Slack) dispatchMessage(ctx context.Context, channelID, userID, text, botID string, out chan<- InboundMessage) {
	if botID != "" || userID == "" {
		return
	}

	s.botUserIDMu.RLock()
	myID := s.botUserID
	s.botUserIDMu.RUnlock()

	isDM := strings.HasPrefix(channelID, "D")
	isMention := strings.Contains(text, fmt.Sprintf("<@%s>", myID))
	if !isDM && !isMention {
		return
	}

	cleaned := stripMentions(text)
	msg := InboundMessage{
		Session: models.Session{Channel: s.Name(), SenderID: userID},
		Text:    cleaned,
	}

	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

func stripMentions(text string) string {
	for strings.Contains(text, "<@") {
		start := strings.Index(text, "<@")
		rest := text[start:]
		end := strings.Index(rest, ">")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}
	return strings.TrimSpace(text)
}

// Send posts text to the DM conversation with session.SenderID, opening
// (or reusing) it first. Replies always go to that DM, including replies
// to an @mention made in a shared channel; the channel the mention came
// from does not receive the reply.
func (s *Slack) Send(ctx context.Context, session models.Session, text string, final bool) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	conv, _, _, err := s.client.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{session.SenderID},
	})
	if err != nil {
		return fmt.Errorf("slack: open conversation: %w", err)
	}

	if _, _, err := s.client.PostMessageContext(ctx, conv.ID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
