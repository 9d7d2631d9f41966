// Package transcript reads and writes chat transcripts stored as JSONL.
// Importing it registers the chat and bank dialects with the model package.
package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrMetaNotFound is returned when a transcript has no valid entries.
var ErrMetaNotFound = errors.New("no valid entries found in transcript")

var errStop = errors.New("stop iteration")

const summaryLimit = 160

// scanLines calls fn with every non-blank line of the file at path.
func scanLines(path string, fn func([]byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	// Allow large payloads
	const maxCapacity = 8 * 1024 * 1024
	scanner.Buffer(make([]byte, 1024), maxCapacity)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan transcript: %w", err)
	}
	return nil
}

// countLines returns the number of non-blank lines in path, or zero when
// the file does not exist.
func countLines(path string) (int, error) {
	n := 0
	err := scanLines(path, func([]byte) error {
		n++
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

// appendEntries encodes entries as JSON lines at the end of path. header is
// written first when the file does not exist yet or is empty.
func appendEntries(path string, header any, entries []any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create transcript dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat transcript: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	if header != nil && info.Size() == 0 {
		if err := enc.Encode(header); err != nil {
			return fmt.Errorf("write transcript header: %w", err)
		}
	}
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("write transcript entry: %w", err)
		}
	}
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

// idFromPath returns the file name without its extension.
func idFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// summarize collapses whitespace and clips text for listings.
func summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= summaryLimit {
		return text
	}
	return string(runes[:summaryLimit-1]) + "…"
}
