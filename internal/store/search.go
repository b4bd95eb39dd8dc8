package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/local/squidbot/pkg/models"
)

// searchable reports the roles a query can hit and that are eligible as
// before/after context (spec §4.7).
func searchable(role models.Role) bool {
	switch role {
	case models.RoleUser, models.RoleAssistant, models.RoleToolCall, models.RoleToolResult:
		return true
	default:
		return false
	}
}

// SearchMatch is one hit plus its ±1 message of context (spec §4.7).
type SearchMatch struct {
	Before *models.Message
	Hit    models.Message
	After  *models.Message
}

// Search performs a single forward pass over history.jsonl looking for
// query, case-insensitively, in messages whose role is searchable. It
// returns at most maxResults matches, each carrying one message of context
// on either side when available.
func (s *Store) Search(query string, days *int, maxResults int) ([]SearchMatch, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	release, _ := tryShared(s.historyPath + ".lock")
	defer release()

	return s.streamSearch(query, days, maxResults)
}

func (s *Store) streamSearch(query string, days *int, maxResults int) ([]SearchMatch, error) {
	needle := strings.ToLower(query)

	var cutoff time.Time
	hasCutoff := days != nil
	if hasCutoff {
		cutoff = time.Now().AddDate(0, 0, -*days)
	}

	f, err := os.Open(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var (
		matches     []SearchMatch
		prev        *models.Message
		capturePrev bool // capture_next from the spec algorithm
		skipped     int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		msg, ok := decodeHistoryLine(line)
		if !ok {
			skipped++
			continue
		}

		if hasCutoff && msg.Timestamp != nil && msg.Timestamp.Before(cutoff) {
			continue
		}

		if searchable(msg.Role) && strings.Contains(strings.ToLower(msg.Content), needle) {
			if len(matches) >= maxResults {
				break
			}
			matches = append(matches, SearchMatch{Before: prev, Hit: msg})
			capturePrev = true
		} else if capturePrev {
			last := &matches[len(matches)-1]
			msgCopy := msg
			last.After = &msgCopy
			capturePrev = false
		}

		msgCopy := msg
		prev = &msgCopy

		if len(matches) >= maxResults && !capturePrev {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return matches, fmt.Errorf("scan history file: %w", err)
	}

	s.logSkipped(skipped, "")
	return matches, nil
}

// RenderMatches formats matches the way the history-search tool presents
// them to the model and the user: one block per match, labelled role
// lines, the hit line bolded, each line truncated at 300 characters.
func RenderMatches(matches []SearchMatch) string {
	if len(matches) == 0 {
		return "No matches found."
	}

	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		if m.Before != nil && searchable(m.Before.Role) && m.Before.Content != "" {
			b.WriteString(renderLine(*m.Before, false))
			b.WriteByte('\n')
		}
		b.WriteString(renderLine(m.Hit, true))
		b.WriteByte('\n')
		if m.After != nil && searchable(m.After.Role) && m.After.Content != "" {
			b.WriteString(renderLine(*m.After, false))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "USER"
	case models.RoleAssistant:
		return "ASSISTANT"
	case models.RoleToolCall:
		return "TOOL CALL"
	case models.RoleToolResult:
		return "TOOL RESULT"
	default:
		return strings.ToUpper(string(role))
	}
}

func renderLine(msg models.Message, bold bool) string {
	content := truncate300(msg.Content)
	line := fmt.Sprintf("%s: %s", roleLabel(msg.Role), content)
	if bold {
		return "**" + line + "**"
	}
	return line
}

func truncate300(s string) string {
	const max = 300
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
