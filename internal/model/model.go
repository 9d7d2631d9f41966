// Package model provides the dialect-independent types for chat transcripts.
package model

import "time"

// Role is the normalized speaker of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleStatus    Role = "status"
)

// Message is one turn of a chat transcript.
type Message struct {
	Timestamp time.Time
	Role      Role
	Content   string
	// Agent is the display name of the answering agent, when the dialect records one.
	Agent string
	Raw   string
}

// Meta describes a transcript file.
type Meta struct {
	ID          string
	Path        string
	Customer    string
	Application string
	Agent       string
	StartedAt   time.Time
}

// Summary holds lightweight information about a transcript for listing.
type Summary struct {
	ID              string
	Path            string
	Customer        string
	Application     string
	Agent           string
	StartedAt       time.Time
	Summary         string
	MessageCount    int
	DurationSeconds int
}
