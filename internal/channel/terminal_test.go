package channel

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/local/squidbot/pkg/models"
)

func TestTerminal_ReceiveEmitsOneMessagePerLineSkippingBlank(t *testing.T) {
	in := strings.NewReader("hello\n\nworld\n")
	var out bytes.Buffer
	term := NewTerminal(in, &out, "local", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgs, err := term.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}

	var got []string
	for msg := range msgs {
		got = append(got, msg.Text)
		if msg.Session.Channel != "cli" || msg.Session.SenderID != "local" {
			t.Errorf("msg.Session = %+v", msg.Session)
		}
	}

	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("got = %v, want [hello world]", got)
	}
}

func TestTerminal_SendWritesLineToOutput(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader(""), &out, "local", nil)

	session := models.Session{Channel: "cli", SenderID: "local"}
	if err := term.Send(context.Background(), session, "reply text", true); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if got := out.String(); got != "reply text\n" {
		t.Errorf("out = %q, want %q", got, "reply text\n")
	}
}

func TestTerminal_NameAndStreaming(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), &bytes.Buffer{}, "local", nil)
	if term.Name() != "cli" {
		t.Errorf("Name() = %q, want cli", term.Name())
	}
	if term.Streaming() {
		t.Error("Streaming() = true, want false")
	}
}
