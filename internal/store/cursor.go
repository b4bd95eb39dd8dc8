package store

import (
	"encoding/json"
	"fmt"
)

type historyMeta struct {
	LastConsolidated int `json:"last_consolidated"`
}

// LoadConsolidatedCursor returns how many history messages have already
// been folded into summary.md. It reads the global history.meta.json
// cursor; if that file has never been written, it falls back to the
// highest legacy per-session cursor found under sessions/ (spec §3, §9
// Open Question resolution: legacy cursors are read-only fallback, never
// written again once the global cursor exists).
func (s *Store) LoadConsolidatedCursor(sessionIDs []string) (int, error) {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	content, err := readFileOrEmpty(s.historyMeta)
	if err != nil {
		return 0, fmt.Errorf("read history meta: %w", err)
	}
	if content != "" {
		var meta historyMeta
		if err := json.Unmarshal([]byte(content), &meta); err != nil {
			s.logger.Warn("history meta file is corrupt, falling back to legacy cursors", "path", s.historyMeta, "error", err)
		} else {
			return meta.LastConsolidated, nil
		}
	}

	return s.loadLegacyCursor(sessionIDs)
}

// loadLegacyCursor returns the maximum per-session cursor recorded under
// sessions/, for backward compatibility with stores written before the
// global cursor existed. Missing or corrupt legacy files are skipped.
func (s *Store) loadLegacyCursor(sessionIDs []string) (int, error) {
	max := 0
	for _, id := range sessionIDs {
		path := legacySessionMetaPath(s.sessionsDir, id)
		content, err := readFileOrEmpty(path)
		if err != nil || content == "" {
			continue
		}
		var meta historyMeta
		if err := json.Unmarshal([]byte(content), &meta); err != nil {
			continue
		}
		if meta.LastConsolidated > max {
			max = meta.LastConsolidated
		}
	}
	return max, nil
}

// SaveConsolidatedCursor atomically advances the global cursor in
// history.meta.json. Once this has been written, legacy per-session
// cursors are no longer consulted.
func (s *Store) SaveConsolidatedCursor(n int) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	data, err := json.Marshal(historyMeta{LastConsolidated: n})
	if err != nil {
		return fmt.Errorf("encode history meta: %w", err)
	}
	if err := atomicWriteFile(s.historyMeta, data, 0o644); err != nil {
		return fmt.Errorf("write history meta: %w", err)
	}
	return nil
}
