package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/local/squidbot/pkg/models"
)

// tailBlockSize is the size of the backward-read blocks used by the
// tail-bounded history load (spec §4.1, §8 invariant 3, §9 "Tail-read of
// history"). 64 KiB keeps total bytes read for a handful of recent
// messages roughly constant regardless of file size.
const tailBlockSize = 64 * 1024

// AppendMessage appends one JSON line to history.jsonl, holding the
// exclusive advisory write lock for the whole write (spec §3, §4.1).
func (s *Store) AppendMessage(msg models.Message) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("create base dir: %w", err)
	}

	line, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	return withExclusiveLock(s.historyPath+".lock", func() error {
		f, err := os.OpenFile(s.historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open history file: %w", err)
		}
		defer f.Close()

		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("write history line: %w", err)
		}
		if err := f.Sync(); err != nil {
			return fmt.Errorf("fsync history file: %w", err)
		}
		return nil
	})
}

func encodeMessage(msg models.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// LoadHistory returns the ordered list of valid Messages in history.jsonl.
//
//   - lastN == nil: the full stream.
//   - *lastN <= 0: empty, without opening the file.
//   - *lastN > 0: the last N valid messages, using a bounded backward-block
//     read (spec §8 invariant 3) rather than scanning the whole file.
//
// Malformed lines and invalid UTF-8 are skipped, never raised (spec §8
// invariant 2); a single warning summarizing the skips is logged.
func (s *Store) LoadHistory(lastN *int) ([]models.Message, error) {
	if lastN != nil && *lastN <= 0 {
		return nil, nil
	}

	release, _ := tryShared(s.historyPath + ".lock")
	defer release()

	if lastN == nil {
		return s.loadFullHistory()
	}
	return s.loadTailHistory(*lastN)
}

func (s *Store) loadFullHistory() ([]models.Message, error) {
	f, err := os.Open(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var (
		messages []models.Message
		skipped  int
		preview  string
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		msg, ok := decodeHistoryLine(line)
		if !ok {
			skipped++
			if preview == "" {
				preview = previewLine(line)
			}
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, fmt.Errorf("scan history file: %w", err)
	}

	s.logSkipped(skipped, preview)
	return messages, nil
}

// loadTailHistory reads the file backwards in tailBlockSize blocks until at
// least n valid messages are recovered or the beginning of the file is
// reached, then returns the last n in chronological order.
func (s *Store) loadTailHistory(n int) ([]models.Message, error) {
	f, err := os.Open(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat history file: %w", err)
	}
	size := info.Size()

	var (
		buf       []byte
		pos       = size
		skipped   int
		preview   string
		candidate []models.Message
	)

	for pos > 0 {
		readSize := int64(tailBlockSize)
		if readSize > pos {
			readSize = pos
		}
		pos -= readSize

		block := make([]byte, readSize)
		if _, err := f.ReadAt(block, pos); err != nil && err != io.EOF {
			return nil, fmt.Errorf("read history block: %w", err)
		}
		buf = append(block, buf...)

		// Keep the leading partial line (if any) in the buffer for the
		// next iteration; only treat it as complete once this block has
		// reached byte offset 0 of the file.
		lines, remainder := splitCompleteLines(buf, pos == 0)
		buf = remainder

		parsed := make([]models.Message, 0, len(lines))
		for _, line := range lines {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			msg, ok := decodeHistoryLine(line)
			if !ok {
				skipped++
				if preview == "" {
					preview = previewLine(line)
				}
				continue
			}
			parsed = append(parsed, msg)
		}
		candidate = append(parsed, candidate...)

		if len(candidate) >= n {
			break
		}
	}

	s.logSkipped(skipped, preview)

	if len(candidate) > n {
		candidate = candidate[len(candidate)-n:]
	}
	return candidate, nil
}

// splitCompleteLines splits buf on '\n' into complete lines plus a leading
// remainder that has not yet been joined with an earlier block. When
// atBOF is true (this block reaches byte offset 0 of the file) there is no
// earlier block to join with, so the whole buffer is treated as complete
// lines and remainder is nil.
func splitCompleteLines(buf []byte, atBOF bool) (lines [][]byte, remainder []byte) {
	if len(buf) == 0 {
		return nil, nil
	}
	if atBOF {
		return bytes.Split(buf, []byte{'\n'}), nil
	}
	idx := bytes.IndexByte(buf, '\n')
	if idx == -1 {
		// No newline yet in this block: it's all remainder, carried back
		// further by the next (earlier) block read.
		return nil, buf
	}
	remainder = buf[:idx]
	rest := buf[idx+1:]
	return bytes.Split(rest, []byte{'\n'}), remainder
}

func decodeHistoryLine(line []byte) (models.Message, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		return models.Message{}, false
	}
	if !utf8.Valid(line) {
		line = bytes.ToValidUTF8(line, []byte("�"))
	}
	var msg models.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return models.Message{}, false
	}
	if msg.Role == "" {
		return models.Message{}, false
	}
	return msg, true
}

func previewLine(line []byte) string {
	const maxPreview = 120
	s := string(line)
	if len(s) > maxPreview {
		s = s[:maxPreview] + "…"
	}
	return s
}

func (s *Store) logSkipped(skipped int, preview string) {
	if skipped == 0 {
		return
	}
	s.logger.Warn("skipped malformed history lines", "count", skipped, "first_preview", preview)
}
