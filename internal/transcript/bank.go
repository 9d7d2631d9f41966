package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"chatfmt/internal/model"
)

// bankEntry is one message of the banking dashboard. Every line carries the
// application it belongs to; there is no header line.
type bankEntry struct {
	ID            string `json:"id,omitempty"`
	Type          string `json:"type"`
	Content       string `json:"content"`
	Timestamp     string `json:"timestamp,omitempty"`
	Agent         string `json:"agent,omitempty"`
	AgentName     string `json:"agent_name,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
}

// BankParser reads transcripts written by the multi-agent banking dashboard.
type BankParser struct{}

func init() {
	model.RegisterParser(model.DialectBank, func() model.Parser { return BankParser{} })
}

func bankRole(kind string) (model.Role, bool) {
	switch kind {
	case "user":
		return model.RoleUser, true
	case "agent", "assistant":
		return model.RoleAssistant, true
	case "system", "notification", "status":
		return model.RoleStatus, true
	}
	return "", false
}

func parseBankEntry(raw []byte) (bankEntry, model.Message, error) {
	var entry bankEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return bankEntry{}, model.Message{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	role, ok := bankRole(entry.Type)
	if !ok {
		return bankEntry{}, model.Message{}, fmt.Errorf("unknown entry type %q", entry.Type)
	}
	ts, err := parseTimestamp(entry.Timestamp)
	if err != nil {
		return bankEntry{}, model.Message{}, fmt.Errorf("parse timestamp: %w", err)
	}
	agent := entry.AgentName
	if agent == "" {
		agent = entry.Agent
	}
	msg := model.Message{
		Timestamp: ts,
		Role:      role,
		Content:   entry.Content,
		Agent:     agent,
		Raw:       string(raw),
	}
	return entry, msg, nil
}

// ReadMeta derives metadata from the first valid message. The agent is
// taken from the first agent reply, if any.
func (BankParser) ReadMeta(path string) (model.Meta, error) {
	var meta model.Meta
	found := false
	err := scanLines(path, func(raw []byte) error {
		entry, msg, err := parseBankEntry(raw)
		if err != nil {
			return nil // Skip invalid entries
		}
		if !found {
			meta = model.Meta{
				Application: entry.ApplicationID,
				StartedAt:   msg.Timestamp,
			}
			found = true
		}
		if msg.Role == model.RoleAssistant && msg.Agent != "" {
			meta.Agent = msg.Agent
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
	meta.ID = idFromPath(path)
	return meta, nil
}

// FirstUserSummary returns the first user message, clipped for listings.
func (BankParser) FirstUserSummary(path string) (string, error) {
	var summary string
	err := scanLines(path, func(raw []byte) error {
		_, msg, err := parseBankEntry(raw)
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

// IterateMessages calls fn for each message with a known type.
func (BankParser) IterateMessages(path string, fn func(model.Message) error) error {
	return scanLines(path, func(raw []byte) error {
		_, msg, err := parseBankEntry(raw)
		if err != nil {
			return nil
		}
		return fn(msg)
	})
}

// Append writes messages tagged with meta.Application. Message ids continue
// from the number of lines already in the file.
func (BankParser) Append(path string, meta model.Meta, messages ...model.Message) error {
	next, err := countLines(path)
	if err != nil {
		return err
	}
	entries := make([]any, 0, len(messages))
	for _, msg := range messages {
		next++
		entry := bankEntry{
			ID:            strconv.Itoa(next),
			Type:          string(msg.Role),
			Content:       msg.Content,
			Timestamp:     formatTimestamp(msg.Timestamp),
			ApplicationID: meta.Application,
		}
		switch msg.Role {
		case model.RoleAssistant:
			entry.Type = "agent"
			entry.AgentName = msg.Agent
		case model.RoleStatus:
			entry.Type = "system"
		}
		entries = append(entries, entry)
	}
	return appendEntries(path, nil, entries)
}
