package document

import (
	"regexp"
	"strings"
)

// headerKeywords mark a pipe line as a table header. Matched case-insensitively.
var headerKeywords = []string{"stage", "audit checkpoint", "status", "auditor", "timestamp"}

// headerRule recognizes line i of lines as a table header.
type headerRule struct {
	name  string
	match func(lines []string, i int) bool
}

// headerRules are tried in order; each scans every line before the next
// rule is consulted.
var headerRules = []headerRule{
	{name: "keyword", match: func(lines []string, i int) bool {
		line := lines[i]
		if !strings.Contains(line, "|") {
			return false
		}
		lower := strings.ToLower(line)
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}},
	{name: "wide", match: func(lines []string, i int) bool {
		line := lines[i]
		return strings.Contains(line, "|") && len(strings.Split(line, "|")) >= 4 && !isSeparator(line)
	}},
	{name: "ruled", match: func(lines []string, i int) bool {
		line := lines[i]
		return strings.Contains(line, "|") && !isSeparator(line) &&
			i+1 < len(lines) && isSeparator(lines[i+1])
	}},
}

var breakTag = regexp.MustCompile(`(?i)<br\s*/?>`)

// ParseTable extracts the first table from text. It reports false when no
// header is found or the header has no data rows.
func ParseTable(text string) (TableBlock, bool) {
	table, _, _, ok := findTable(splitLines(text))
	return table, ok
}

// findTable locates and parses a table in lines. start and end delimit the
// table region as a half-open range of line indices.
func findTable(lines []string) (table TableBlock, start, end int, ok bool) {
	trimmed := make([]string, len(lines))
	for i, line := range lines {
		trimmed[i] = strings.TrimSpace(line)
	}

	start = -1
	for _, rule := range headerRules {
		for i := range trimmed {
			if rule.match(trimmed, i) {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return TableBlock{}, 0, 0, false
	}

	// The line right after the header is always kept so a separator row
	// without pipes does not end the table.
	end = len(trimmed)
	for i := start + 2; i < len(trimmed); i++ {
		if trimmed[i] != "" && !strings.Contains(trimmed[i], "|") {
			end = i
			break
		}
	}

	var rowLines []string
	for _, line := range trimmed[start:end] {
		if line == "" || !strings.Contains(line, "|") || isSeparator(line) {
			continue
		}
		rowLines = append(rowLines, line)
	}
	if len(rowLines) < 2 {
		return TableBlock{}, 0, 0, false
	}

	header := splitCells(rowLines[0])
	if !hasText(header) {
		return TableBlock{}, 0, 0, false
	}

	rows := make([][]string, 0, len(rowLines)-1)
	for _, line := range rowLines[1:] {
		rows = append(rows, fitRow(splitCells(line), len(header)))
	}
	return TableBlock{Header: header, Rows: rows}, start, end, true
}

// splitCells splits a table line on '|', dropping the empty fragments left
// by a leading or trailing pipe.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = breakTag.ReplaceAllString(strings.TrimSpace(p), "\n")
	}
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// fitRow pads cells with empty strings or truncates them to width.
func fitRow(cells []string, width int) []string {
	row := make([]string, width)
	copy(row, cells)
	return row
}

func isSeparator(line string) bool {
	return strings.Contains(line, "---") || strings.Contains(line, "===")
}

func hasText(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
