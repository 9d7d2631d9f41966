// Package agentapi talks to the backend agents that produce chat replies.
package agentapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatfmt/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// DefaultAuditReply is returned by Audit when the backend accepts the
// request but sends no summary text.
const DefaultAuditReply = "Audit summary generated successfully."

// ErrNoReply is returned when a successful response carries no reply text.
var ErrNoReply = errors.New("backend returned no reply")

// replyFields are tried in order; the first non-empty one is the reply.
var replyFields = []string{"message", "audit_summary", "response"}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Debug      bool
}

// Client calls the audit, customer and banking agent endpoints.
type Client struct {
	client *resty.Client
}

// Reply is the text of an agent answer plus the agent that produced it.
type Reply struct {
	Text      string
	Agent     string
	AgentName string
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend error (status %d)", e.Status)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Detail)
}

// New creates a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("backend URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)
	if opts.Debug {
		client.SetDebug(true)
	}

	return &Client{client: client}, nil
}

// retryCondition retries network errors, server errors and rate limiting.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// Audit asks the audit agent for a loan audit report on a customer.
func (c *Client) Audit(ctx context.Context, customerName string) (Reply, error) {
	if strings.TrimSpace(customerName) == "" {
		return Reply{}, errors.New("customer name is required")
	}
	reply, err := c.post(ctx, "/api/audit/generate", map[string]string{"customer_name": customerName})
	if errors.Is(err, ErrNoReply) {
		return Reply{Text: DefaultAuditReply}, nil
	}
	return reply, err
}

// Message sends a question to the customer agent.
func (c *Client) Message(ctx context.Context, text string) (Reply, error) {
	return c.post(ctx, "/agent/message", map[string]string{"message": text})
}

// Send posts a message to one agent of a banking application.
func (c *Client) Send(ctx context.Context, applicationID, agentType, text string) (Reply, error) {
	if applicationID == "" {
		return Reply{}, errors.New("application id is required")
	}
	body := map[string]string{
		"application_id": applicationID,
		"message":        text,
		"agent_type":     agentType,
	}
	return c.post(ctx, "/api/send_message", body)
}

func (c *Client) post(ctx context.Context, path string, body any) (Reply, error) {
	log := logger.FromContext(ctx)

	resp, err := c.client.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return Reply{}, fmt.Errorf("request %s: %w", path, err)
	}
	log.Debug("backend request completed", "path", path, "status", resp.StatusCode(), "duration", resp.Time())

	if resp.IsError() {
		return Reply{}, &APIError{Status: resp.StatusCode(), Detail: errorDetail(resp.Body(), resp.Status())}
	}
	return parseReply(resp.Body())
}

func parseReply(body []byte) (Reply, error) {
	if !gjson.ValidBytes(body) {
		return Reply{}, fmt.Errorf("decode reply: invalid JSON")
	}
	reply := Reply{
		Agent:     gjson.GetBytes(body, "agent").String(),
		AgentName: gjson.GetBytes(body, "agent_name").String(),
	}
	for _, field := range replyFields {
		if text := gjson.GetBytes(body, field).String(); strings.TrimSpace(text) != "" {
			reply.Text = text
			return reply, nil
		}
	}
	return reply, ErrNoReply
}

// errorDetail extracts the error text from a failed response, falling back
// to the HTTP status line.
func errorDetail(body []byte, status string) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"detail", "error"} {
			v := gjson.GetBytes(body, field)
			if !v.Exists() {
				continue
			}
			if v.Type == gjson.String {
				return v.String()
			}
			return v.Raw
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}
