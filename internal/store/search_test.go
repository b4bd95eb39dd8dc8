package store

import (
	"strings"
	"testing"

	"github.com/local/squidbot/pkg/models"
)

func TestSearch_findsHitWithContext(t *testing.T) {
	s := newTestStore(t)

	msgs := []models.Message{
		{Role: models.RoleUser, Content: "what's the weather like"},
		{Role: models.RoleAssistant, Content: "sunny and warm in the afternoon"},
		{Role: models.RoleUser, Content: "good, I'll go for a run"},
	}
	for _, m := range msgs {
		if err := s.AppendMessage(m); err != nil {
			t.Fatalf("AppendMessage error: %v", err)
		}
	}

	matches, err := s.Search("weather", nil, 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.Before != nil {
		t.Errorf("Before = %+v, want nil (hit was the first message)", m.Before)
	}
	if m.Hit.Content != msgs[0].Content {
		t.Errorf("Hit.Content = %q, want %q", m.Hit.Content, msgs[0].Content)
	}
	if m.After == nil || m.After.Content != msgs[1].Content {
		t.Errorf("After = %+v, want %+v", m.After, msgs[1])
	}
}

func TestSearch_caseInsensitive(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendMessage(models.Message{Role: models.RoleUser, Content: "Tell me about GOLANG"}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}

	matches, err := s.Search("golang", nil, 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
}

func TestSearch_stopsAtMaxResults(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 10; i++ {
		if err := s.AppendMessage(models.Message{Role: models.RoleUser, Content: "needle here"}); err != nil {
			t.Fatalf("AppendMessage error: %v", err)
		}
	}

	matches, err := s.Search("needle", nil, 3)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(matches))
	}
}

func TestSearch_toolRolesAreSearchable(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendMessage(models.Message{Role: models.RoleToolCall, Content: "shell(cmd=find . -name needle)"}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}
	if err := s.AppendMessage(models.Message{Role: models.RoleToolResult, Content: "./needle.txt"}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}

	matches, err := s.Search("needle", nil, 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2 (both tool_call and tool_result hit)", len(matches))
	}
}

func TestRenderMatches_bolsHitAndLabelsRoles(t *testing.T) {
	matches := []SearchMatch{
		{
			Hit: models.Message{Role: models.RoleUser, Content: "weather today"},
		},
	}
	out := RenderMatches(matches)
	if !strings.Contains(out, "USER:") {
		t.Errorf("output missing USER label: %q", out)
	}
	if !strings.Contains(out, "**USER: weather today**") {
		t.Errorf("hit line should be bolded: %q", out)
	}
}

func TestTruncate300_addsEllipsisOnlyWhenOverLimit(t *testing.T) {
	short := "short line"
	if got := truncate300(short); got != short {
		t.Errorf("got = %q, want unchanged %q", got, short)
	}

	long := strings.Repeat("a", 301)
	got := truncate300(long)
	if len([]rune(got)) != 301 {
		t.Errorf("len(got) runes = %d, want 301 (300 + ellipsis)", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("got should end with ellipsis: %q", got[len(got)-10:])
	}
}
