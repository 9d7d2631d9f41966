package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"chatfmt/internal/agentapi"
	"chatfmt/internal/config"
	"chatfmt/internal/document"
	"chatfmt/internal/logger"
	"chatfmt/internal/model"

	"github.com/spf13/cobra"
)

// asker is the part of the backend client used by ask and chat.
type asker interface {
	Audit(ctx context.Context, customerName string) (agentapi.Reply, error)
	Message(ctx context.Context, text string) (agentapi.Reply, error)
	Send(ctx context.Context, applicationID, agentType, text string) (agentapi.Reply, error)
}

// backendOptions holds the flags that select and reach the backend.
type backendOptions struct {
	url     string
	timeout time.Duration
	retries int
	save    string
}

func (b *backendOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&b.url, "backend-url", "", "backend base URL (env: CHATFMT_BACKEND_URL)")
	flags.DurationVar(&b.timeout, "timeout", 0, "request timeout (env: CHATFMT_TIMEOUT)")
	flags.IntVar(&b.retries, "retries", 3, "retries on network errors, 5xx and 429 responses")
	flags.StringVar(&b.save, "save", "", "append the exchange to the transcript with this id")
}

func (b *backendOptions) client(cfg *config.Config) (*agentapi.Client, error) {
	opts := agentapi.Options{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.Timeout,
		RetryCount: b.retries,
	}
	if b.url != "" {
		opts.BaseURL = b.url
	}
	if b.timeout > 0 {
		opts.Timeout = b.timeout
	}
	return agentapi.New(opts)
}

// transcriptWriter appends exchanges to a transcript file. A zero value
// discards them.
type transcriptWriter struct {
	parser model.Parser
	path   string
	id     string
}

func newTranscriptWriter(cfg *config.Config, id string) (transcriptWriter, error) {
	if id == "" {
		return transcriptWriter{}, nil
	}
	parser, err := newParser(cfg)
	if err != nil {
		return transcriptWriter{}, err
	}
	return transcriptWriter{
		parser: parser,
		path:   filepath.Join(cfg.TranscriptsDir, id+".jsonl"),
		id:     id,
	}, nil
}

func (t transcriptWriter) write(meta model.Meta, msgs ...model.Message) error {
	if t.parser == nil {
		return nil
	}
	meta.ID = t.id
	if err := t.parser.Append(t.path, meta, msgs...); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

func newAskCmd() *cobra.Command {
	var backend backendOptions

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask a backend agent and format its reply",
	}
	backend.register(cmd)

	// run sends one question and prints the formatted reply.
	run := func(cmd *cobra.Command, output *outputOptions, profile document.Profile, meta model.Meta, question string,
		call func(context.Context, asker) (agentapi.Reply, error)) error {
		opts, err := output.resolve(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := backend.client(cfg)
		if err != nil {
			return err
		}
		writer, err := newTranscriptWriter(cfg, backend.save)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		asked := time.Now().UTC()
		reply, err := call(ctx, client)
		if err != nil {
			return err
		}
		log.Debug("backend replied", "agent", reply.AgentName, "bytes", len(reply.Text))

		if meta.Agent == "" {
			meta.Agent = reply.AgentName
		}
		meta.StartedAt = asked
		if err := writer.write(meta,
			model.Message{Role: model.RoleUser, Content: question, Timestamp: asked},
			model.Message{Role: model.RoleAssistant, Content: reply.Text, Agent: reply.AgentName, Timestamp: time.Now().UTC()},
		); err != nil {
			return err
		}
		return writeReply(cmd, reply.Text, profile, opts)
	}

	var auditOut outputOptions
	audit := &cobra.Command{
		Use:   "audit <customer-name>",
		Short: "Generate a loan audit report for a customer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			meta := model.Meta{Customer: name}
			return run(cmd, &auditOut, document.ProfileAudit, meta, "Generate audit for "+name,
				func(ctx context.Context, a asker) (agentapi.Reply, error) { return a.Audit(ctx, name) })
		},
	}
	auditOut.register(audit)

	var messageOut outputOptions
	message := &cobra.Command{
		Use:   "message <text>",
		Short: "Send a message to the customer agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return run(cmd, &messageOut, document.ProfileAudit, model.Meta{}, text,
				func(ctx context.Context, a asker) (agentapi.Reply, error) { return a.Message(ctx, text) })
		},
	}
	messageOut.register(message)

	var (
		sendOut   outputOptions
		agentType string
	)
	send := &cobra.Command{
		Use:   "send <application-id> <text>",
		Short: "Send a message to an agent of a banking application",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, text := args[0], strings.Join(args[1:], " ")
			return run(cmd, &sendOut, document.ProfileBank, model.Meta{Application: app}, text,
				func(ctx context.Context, a asker) (agentapi.Reply, error) { return a.Send(ctx, app, agentType, text) })
		},
	}
	sendOut.register(send)
	send.Flags().StringVar(&agentType, "agent-type", "", "agent that should answer (default: let the backend route)")

	cmd.AddCommand(audit, message, send)
	return cmd
}
