package transcript

import (
	"encoding/json"
	"errors"
	"fmt"

	"chatfmt/internal/model"
)

// chatEntry is one line of a chat-dialect transcript. The first line is
// usually a session header; the rest are user, assistant and status turns.
type chatEntry struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Customer  string `json:"customer,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

const chatSessionType = "session"

// ChatParser reads transcripts written by the customer and audit chat widgets.
type ChatParser struct{}

func init() {
	model.RegisterParser(model.DialectChat, func() model.Parser { return ChatParser{} })
}

func parseChatEntry(raw []byte) (chatEntry, model.Message, error) {
	var entry chatEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return chatEntry{}, model.Message{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	ts, err := parseTimestamp(entry.Timestamp)
	if err != nil {
		return chatEntry{}, model.Message{}, fmt.Errorf("parse timestamp: %w", err)
	}
	msg := model.Message{
		Timestamp: ts,
		Role:      model.Role(entry.Type),
		Content:   entry.Content,
		Agent:     entry.Agent,
		Raw:       string(raw),
	}
	return entry, msg, nil
}

func isChatRole(role model.Role) bool {
	switch role {
	case model.RoleUser, model.RoleAssistant, model.RoleStatus:
		return true
	}
	return false
}

// ReadMeta returns the session header, or metadata derived from the first
// timestamped message when the header is missing.
func (ChatParser) ReadMeta(path string) (model.Meta, error) {
	var meta model.Meta
	found := false
	err := scanLines(path, func(raw []byte) error {
		entry, msg, err := parseChatEntry(raw)
		if err != nil {
			return nil // Skip invalid entries
		}
		if entry.Type == chatSessionType {
			meta = model.Meta{
				ID:        entry.ID,
				Customer:  entry.Customer,
				Agent:     entry.Agent,
				StartedAt: msg.Timestamp,
			}
			found = true
			return errStop
		}
		if isChatRole(msg.Role) && !msg.Timestamp.IsZero() {
			meta = model.Meta{StartedAt: msg.Timestamp}
			found = true
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return model.Meta{}, err
	}
	if !found {
		return model.Meta{}, ErrMetaNotFound
	}
	meta.Path = path
	if meta.ID == "" {
		meta.ID = idFromPath(path)
	}
	return meta, nil
}

// FirstUserSummary returns the first user message, clipped for listings.
func (ChatParser) FirstUserSummary(path string) (string, error) {
	var summary string
	err := scanLines(path, func(raw []byte) error {
		_, msg, err := parseChatEntry(raw)
		if err != nil || msg.Role != model.RoleUser || msg.Content == "" {
			return nil
		}
		summary = summarize(msg.Content)
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", err
	}
	return summary, nil
}

// IterateMessages calls fn for each user, assistant and status turn.
func (ChatParser) IterateMessages(path string, fn func(model.Message) error) error {
	return scanLines(path, func(raw []byte) error {
		_, msg, err := parseChatEntry(raw)
		if err != nil || !isChatRole(msg.Role) {
			return nil
		}
		return fn(msg)
	})
}

// Append writes messages to the transcript, starting it with a session
// header when the file is new.
func (ChatParser) Append(path string, meta model.Meta, messages ...model.Message) error {
	header := chatEntry{
		Type:      chatSessionType,
		ID:        meta.ID,
		Customer:  meta.Customer,
		Agent:     meta.Agent,
		Timestamp: formatTimestamp(meta.StartedAt),
	}
	entries := make([]any, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, chatEntry{
			Type:      string(msg.Role),
			Agent:     msg.Agent,
			Content:   msg.Content,
			Timestamp: formatTimestamp(msg.Timestamp),
		})
	}
	return appendEntries(path, header, entries)
}
