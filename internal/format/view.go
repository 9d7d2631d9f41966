package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chatfmt/internal/document"
	"chatfmt/internal/model"
	"chatfmt/internal/render"
)

// ProfileFor returns the inline profile used for replies of a dialect.
func ProfileFor(dialect model.Dialect) document.Profile {
	if dialect == model.DialectBank {
		return document.ProfileBank
	}
	return document.ProfileAudit
}

// MessageDocument returns the formatted document for an assistant message.
// Other roles are shown verbatim and report false.
func MessageDocument(msg model.Message, profile document.Profile) (document.Document, bool) {
	if msg.Role != model.RoleAssistant {
		return document.Document{}, false
	}
	return render.SafeWith(msg.Content, profile), true
}

// MessageLines returns the printable body lines for a transcript message.
// Assistant replies are run through the formatter; status payloads that are
// JSON get indented.
func MessageLines(msg model.Message, profile document.Profile, wrapWidth int, color bool) []string {
	if doc, ok := MessageDocument(msg, profile); ok {
		return render.Lines(doc, wrapWidth, color)
	}

	body := strings.TrimSpace(msg.Content)
	if body == "" {
		return nil
	}
	if msg.Role == model.RoleStatus {
		if formatted := formatJSON(body); formatted != body {
			return strings.Split(formatted, "\n")
		}
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, strings.Split(wrapBody(line, wrapWidth), "\n")...)
	}
	return lines
}

// RenderMessage converts a message into a printable block with a
// "[timestamp][role]" header.
func RenderMessage(msg model.Message, profile document.Profile, wrapWidth int) string {
	label := string(msg.Role)
	if msg.Agent != "" {
		label += ": " + msg.Agent
	}
	ts := "-"
	if !msg.Timestamp.IsZero() {
		ts = msg.Timestamp.Format(time.RFC3339)
	}
	return fmt.Sprintf("[%s][%s]\n%s", ts, label, strings.Join(MessageLines(msg, profile, wrapWidth, false), "\n"))
}

func wrapBody(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)

	return strings.Join(lines, "\n")
}

func formatJSON(raw string) string {
	if raw == "" || (raw[0] != '{' && raw[0] != '[') {
		return raw
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err == nil {
		return buf.String()
	}
	return raw
}
