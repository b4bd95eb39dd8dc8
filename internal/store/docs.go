package store

import "fmt"

// LoadMemoryDoc returns the contents of workspace/MEMORY.md, or "" if it
// has never been written.
func (s *Store) LoadMemoryDoc() (string, error) {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	content, err := readFileOrEmpty(s.memoryPath)
	if err != nil {
		return "", fmt.Errorf("read memory doc: %w", err)
	}
	return content, nil
}

// SaveMemoryDoc atomically replaces workspace/MEMORY.md.
func (s *Store) SaveMemoryDoc(content string) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	if err := atomicWriteFile(s.memoryPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write memory doc: %w", err)
	}
	return nil
}

// LoadSummary returns the contents of memory/summary.md, or "" if
// consolidation has never run.
func (s *Store) LoadSummary() (string, error) {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	content, err := readFileOrEmpty(s.summaryPath)
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	return content, nil
}

// SaveSummary atomically replaces memory/summary.md. Consolidation (spec
// §5.3) always writes the whole document: the incoming summary already
// incorporates whatever of the previous summary it needs to.
func (s *Store) SaveSummary(content string) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	if err := atomicWriteFile(s.summaryPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
