// Package session holds the state of an interactive chat as an immutable
// value. Every update returns a new State and leaves its input untouched.
package session

import (
	"time"

	"chatfmt/internal/model"
)

// Customer is the customer selected for an audit conversation.
type Customer struct {
	Name string
	ID   string
}

// State is the application state of one chat session.
type State struct {
	Application string
	Agent       string
	Customer    *Customer
	Messages    []model.Message
	// Busy is set while a request to the backend is in flight.
	Busy bool
}

// New returns the initial state for agent.
func New(agent string) State {
	return State{Agent: agent}
}

// WithCustomer selects a customer. A nil customer clears the selection.
func WithCustomer(s State, c *Customer) State {
	if c != nil {
		cp := *c
		c = &cp
	}
	s.Customer = c
	return s
}

// WithAgent switches the answering agent.
func WithAgent(s State, agent string) State {
	s.Agent = agent
	return s
}

// WithApplication switches the current application. Messages belong to an
// application, so the history is cleared when it changes.
func WithApplication(s State, applicationID string) State {
	if s.Application != applicationID {
		s.Messages = nil
	}
	s.Application = applicationID
	return s
}

// Append adds messages to the history.
func Append(s State, msgs ...model.Message) State {
	out := make([]model.Message, 0, len(s.Messages)+len(msgs))
	out = append(out, s.Messages...)
	out = append(out, msgs...)
	s.Messages = out
	return s
}

// Begin records a user message and marks the session busy.
func Begin(s State, text string, at time.Time) State {
	s = Append(s, model.Message{Role: model.RoleUser, Content: text, Timestamp: at})
	s.Busy = true
	return s
}

// Finish records the reply to the pending request and clears Busy.
func Finish(s State, reply model.Message) State {
	s = Append(s, reply)
	s.Busy = false
	return s
}

// Last returns the most recent message, if any.
func (s State) Last() (model.Message, bool) {
	if len(s.Messages) == 0 {
		return model.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Meta returns transcript metadata describing the session.
func (s State) Meta(id string, startedAt time.Time) model.Meta {
	meta := model.Meta{
		ID:          id,
		Application: s.Application,
		Agent:       s.Agent,
		StartedAt:   startedAt,
	}
	if s.Customer != nil {
		meta.Customer = s.Customer.Name
	}
	return meta
}
