package model

// Parser reads transcripts written in one dialect.
type Parser interface {
	// ReadMeta reads transcript metadata from the start of the file.
	ReadMeta(path string) (Meta, error)

	// FirstUserSummary returns the first user message, used as a short
	// description of the transcript.
	FirstUserSummary(path string) (string, error)

	// IterateMessages calls fn for every message in the file. Returning an
	// error from fn stops the iteration.
	IterateMessages(path string, fn func(Message) error) error

	// Append writes messages to the end of the transcript at path,
	// creating it when needed.
	Append(path string, meta Meta, messages ...Message) error
}
