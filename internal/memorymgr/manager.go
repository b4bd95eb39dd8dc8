// Package memorymgr implements the Memory Manager: per-turn message list
// assembly, system-prompt composition from skills/memory/summary, owner-
// alias labelling, and history consolidation with a global cursor. See
// spec §4.4. The underlying append-only store is internal/store (C2);
// consolidation and meta-consolidation summarize through internal/llm's
// Pool (C6).
package memorymgr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/local/squidbot/internal/llm"
	"github.com/local/squidbot/internal/skills"
	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/pkg/models"
)

const (
	// defaultConsolidationThreshold is how many filtered (non-internal)
	// history messages may accumulate past the cursor before a
	// consolidation pass runs.
	defaultConsolidationThreshold = 40

	// defaultKeepRecentRatio sets how much of the threshold stays
	// unsummarized as live context after a consolidation pass.
	defaultKeepRecentRatio = 0.5

	// metaConsolidationWords is the word count above which summary.md is
	// recompressed in place.
	metaConsolidationWords = 600
)

// AliasRule maps an address (optionally scoped to one channel) to a
// display label used in owner-alias labelling. A rule with an empty
// Channel is unscoped: it applies on every channel unless a scoped rule
// for the same address and channel also exists.
type AliasRule struct {
	Address string
	Channel string
	Label   string
}

type scopedKey struct {
	address string
	channel string
}

// Manager assembles per-turn message lists, persists exchanges, and
// drives consolidation. Grounded on spec.md §4.4; built on top of
// internal/store (C2, persistence), internal/skills (C4, SkillsBlock),
// and internal/llm (C6, consolidation summarization).
type Manager struct {
	store  *store.Store
	pool   *llm.Pool
	skills *skills.Loader
	logger *slog.Logger

	scoped   map[scopedKey]string
	unscoped map[string]string

	threshold int
	keepRatio float64
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithConsolidationThreshold overrides the default consolidation threshold.
func WithConsolidationThreshold(n int) Option {
	return func(m *Manager) { m.threshold = n }
}

// WithKeepRecentRatio overrides the default keep-recent ratio.
func WithKeepRecentRatio(r float64) Option {
	return func(m *Manager) { m.keepRatio = r }
}

// New creates a Manager. pool may be nil, in which case consolidation is
// skipped entirely (build_messages still works; spec §4.4 only runs
// consolidation "if an LLM is configured"). skills may be nil if no
// skill directories are configured.
func New(st *store.Store, pool *llm.Pool, sk *skills.Loader, aliases []AliasRule, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:     st,
		pool:      pool,
		skills:    sk,
		logger:    logger.With("component", "memory_manager"),
		scoped:    make(map[scopedKey]string, len(aliases)),
		unscoped:  make(map[string]string, len(aliases)),
		threshold: defaultConsolidationThreshold,
		keepRatio: defaultKeepRecentRatio,
	}
	for _, a := range aliases {
		if a.Channel != "" {
			m.scoped[scopedKey{address: a.Address, channel: a.Channel}] = a.Label
		} else {
			m.unscoped[a.Address] = a.Label
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BuildMessages returns the full conversation list for the next LLM call.
// Callers must fall back to [system, user] on error (spec §4.4, §4.5).
func (m *Manager) BuildMessages(ctx context.Context, sessionID, systemPrompt, userMessage string) ([]models.Message, error) {
	history, err := m.store.LoadHistory(nil)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	filtered := filterInternalRoles(history)

	cursor, err := m.store.LoadConsolidatedCursor([]string{sessionID})
	if err != nil {
		return nil, fmt.Errorf("load consolidation cursor: %w", err)
	}

	if m.pool != nil && len(filtered)-cursor > m.threshold {
		m.consolidate(ctx, filtered, cursor)
	}

	effectiveSystem, err := m.assembleSystemPrompt(systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("assemble system prompt: %w", err)
	}

	result := make([]models.Message, 0, len(filtered)+2)
	result = append(result, models.Message{Role: models.RoleSystem, Content: effectiveSystem})
	result = append(result, filtered...)
	result = append(result, models.Message{Role: models.RoleUser, Content: m.labelled(sessionID, userMessage)})
	return result, nil
}

// PersistExchange appends both sides of a completed turn. Failures are
// swallowed by the caller (Agent Loop, spec §4.5).
func (m *Manager) PersistExchange(sessionID, userMessage, assistantReply string) error {
	if err := m.store.AppendMessage(models.Message{Role: models.RoleUser, Content: m.labelled(sessionID, userMessage)}); err != nil {
		return err
	}
	return m.store.AppendMessage(models.Message{Role: models.RoleAssistant, Content: assistantReply})
}

// AppendToolEvent appends one tool_call then one tool_result message.
// sessionID is accepted for contract fidelity with spec §4.4; the single
// global history stream does not currently partition by session.
func (m *Manager) AppendToolEvent(sessionID, callText, resultText string) error {
	if err := m.store.AppendMessage(models.Message{Role: models.RoleToolCall, Content: callText}); err != nil {
		return err
	}
	return m.store.AppendMessage(models.Message{Role: models.RoleToolResult, Content: resultText})
}

func filterInternalRoles(history []models.Message) []models.Message {
	filtered := make([]models.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role.Internal() {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

// labelled prepends "[channel / label]" to userMessage when sessionID
// resolves to a known alias; scoped (address, channel) matches win over
// unscoped address-only matches. Both lookups are O(1) map reads.
func (m *Manager) labelled(sessionID, userMessage string) string {
	channel, address, ok := splitSessionID(sessionID)
	if !ok {
		return userMessage
	}
	label, found := m.scoped[scopedKey{address: address, channel: channel}]
	if !found {
		label, found = m.unscoped[address]
	}
	if !found {
		return userMessage
	}
	return fmt.Sprintf("[%s / %s] %s", channel, label, userMessage)
}

func splitSessionID(sessionID string) (channel, address string, ok bool) {
	parts := strings.SplitN(sessionID, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// assembleSystemPrompt builds base_system_prompt + SkillsBlock +
// MemoryBlock + SummaryBlock (spec §4.4).
func (m *Manager) assembleSystemPrompt(base string) (string, error) {
	var sb strings.Builder
	sb.WriteString(base)

	skillsBlock, err := m.skillsBlock()
	if err != nil {
		return "", fmt.Errorf("build skills block: %w", err)
	}
	sb.WriteString(skillsBlock)

	memDoc, err := m.store.LoadMemoryDoc()
	if err != nil {
		return "", fmt.Errorf("load memory doc: %w", err)
	}
	if strings.TrimSpace(memDoc) != "" {
		sb.WriteString("\n## Your Memory\n")
		sb.WriteString(memDoc)
	}

	summary, err := m.store.LoadSummary()
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}
	if strings.TrimSpace(summary) != "" {
		sb.WriteString("\n## Prior Conversation Summary\n")
		sb.WriteString(summary)
	}

	return sb.String(), nil
}

func (m *Manager) skillsBlock() (string, error) {
	if m.skills == nil {
		return "", nil
	}
	list, err := m.skills.ListSkills()
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("\n## Available Skills\n")
	for _, s := range list {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Name, s.Description)
	}
	for _, s := range list {
		if !s.Always {
			continue
		}
		body, err := m.skills.LoadSkillBody(s.Name)
		if err != nil {
			return "", fmt.Errorf("load always-on skill %q: %w", s.Name, err)
		}
		fmt.Fprintf(&sb, "\n### %s\n%s\n", s.Name, body)
	}
	return sb.String(), nil
}

// consolidate folds filtered[cursor:len(filtered)-keepRecent] into
// summary.md and advances the cursor, but only on success (spec §4.4).
func (m *Manager) consolidate(ctx context.Context, filtered []models.Message, cursor int) {
	keepRecent := int(float64(m.threshold) * m.keepRatio)
	if keepRecent < 1 {
		keepRecent = 1
	}
	end := len(filtered) - keepRecent
	if end <= cursor {
		return
	}
	toSummarize := filtered[cursor:end]
	if len(toSummarize) == 0 {
		return
	}

	var transcript strings.Builder
	for _, msg := range toSummarize {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			continue
		}
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}

	summary, err := m.complete(ctx, consolidationPrompt(transcript.String()))
	if err != nil {
		m.logger.Warn("consolidation failed, skipping", "error", err)
		return
	}

	existing, err := m.store.LoadSummary()
	if err != nil {
		m.logger.Warn("consolidation: failed to load existing summary, skipping", "error", err)
		return
	}
	updated := summary
	if strings.TrimSpace(existing) != "" {
		updated = existing + "\n\n" + summary
	}

	if err := m.store.SaveSummary(updated); err != nil {
		m.logger.Warn("consolidation: failed to save summary, skipping cursor advance", "error", err)
		return
	}
	if err := m.store.SaveConsolidatedCursor(end); err != nil {
		m.logger.Warn("consolidation: failed to advance cursor", "error", err)
		return
	}

	m.maybeMetaConsolidate(ctx, updated)
}

// maybeMetaConsolidate recompresses summary.md in place once it grows
// past metaConsolidationWords (spec §4.4).
func (m *Manager) maybeMetaConsolidate(ctx context.Context, summary string) {
	if len(strings.Fields(summary)) <= metaConsolidationWords {
		return
	}
	compressed, err := m.complete(ctx, metaConsolidationPrompt(summary))
	if err != nil {
		m.logger.Warn("meta-consolidation failed, leaving summary unchanged", "error", err)
		return
	}
	if err := m.store.SaveSummary(compressed); err != nil {
		m.logger.Warn("meta-consolidation: failed to save recompressed summary", "error", err)
	}
}

// complete runs a one-shot, non-streaming-to-the-user completion through
// the LLM Pool and collects the text chunks into a single string.
func (m *Manager) complete(ctx context.Context, prompt string) (string, error) {
	ch, err := m.pool.Chat(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Kind == llm.ChunkText {
			sb.WriteString(chunk.Text)
		}
	}
	return sb.String(), nil
}

func consolidationPrompt(transcript string) string {
	return "Summarize the following conversation history concisely, preserving " +
		"important facts, decisions, and context worth remembering for future " +
		"turns. Write plain prose, no preamble.\n\n" + transcript
}

func metaConsolidationPrompt(summary string) string {
	return "The summary below has grown too long. Recompress it into a shorter " +
		"summary that keeps the most important facts and context and drops " +
		"redundant detail. Write plain prose, no preamble.\n\n" + summary
}
