package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"chatfmt/internal/agentapi"
	"chatfmt/internal/document"
	"chatfmt/internal/logger"
	"chatfmt/internal/model"
	"chatfmt/internal/render"
	"chatfmt/internal/session"

	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /customer <name>   select the customer for audits
  /audit [name]      generate an audit for the named or selected customer
  /app <id>          talk to the agents of a banking application
  /agent <name>      choose the agent that answers
  /help              show this help
  /quit              leave the chat
Anything else is sent as a message.`

func newChatCmd() *cobra.Command {
	var (
		backend backendOptions
		output  outputOptions
		agent   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the backend agents from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			_, err = runChat(cmd.Context(), chatSession{
				in:     cmd.InOrStdin(),
				out:    cmd.OutOrStdout(),
				client: client,
				render: opts,
				writer: writer,
				log:    logger.FromContext(cmd.Context()),
			}, session.New(agent))
			return err
		},
	}
	backend.register(cmd)
	output.register(cmd)
	cmd.Flags().StringVar(&agent, "agent", "", "agent that answers messages")

	return cmd
}

type chatSession struct {
	in     io.Reader
	out    io.Writer
	client asker
	render render.Options
	writer transcriptWriter
	log    logger.Logger
	now    func() time.Time
}

// runChat reads commands and messages line by line until EOF or /quit and
// returns the final state.
func runChat(ctx context.Context, cs chatSession, state session.State) (session.State, error) {
	if cs.now == nil {
		cs.now = func() time.Time { return time.Now().UTC() }
	}
	if cs.log == nil {
		cs.log = logger.Discard()
	}
	started := cs.now()

	fmt.Fprintln(cs.out, "Type /help for commands.") //nolint:errcheck
	scanner := bufio.NewScanner(cs.in)
	for {
		fmt.Fprint(cs.out, "> ") //nolint:errcheck
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return state, nil
		case "/help":
			fmt.Fprintln(cs.out, chatHelp) //nolint:errcheck
			continue
		case "/customer":
			if arg == "" {
				state = session.WithCustomer(state, nil)
				fmt.Fprintln(cs.out, "Customer cleared.") //nolint:errcheck
			} else {
				state = session.WithCustomer(state, &session.Customer{Name: arg})
				fmt.Fprintf(cs.out, "Customer set to %s.\n", arg) //nolint:errcheck
			}
			continue
		case "/agent":
			state = session.WithAgent(state, arg)
			fmt.Fprintf(cs.out, "Agent set to %s.\n", orDash(arg)) //nolint:errcheck
			continue
		case "/app":
			state = session.WithApplication(state, arg)
			fmt.Fprintf(cs.out, "Application set to %s.\n", orDash(arg)) //nolint:errcheck
			continue
		}

		var (
			question string
			call     func() (agentapi.Reply, error)
		)
		switch {
		case cmd == "/audit":
			name := arg
			if name == "" && state.Customer != nil {
				name = state.Customer.Name
			}
			if name == "" {
				fmt.Fprintln(cs.out, "No customer selected; use /customer <name> or /audit <name>.") //nolint:errcheck
				continue
			}
			if state.Customer == nil || state.Customer.Name != name {
				state = session.WithCustomer(state, &session.Customer{Name: name})
			}
			question = "Generate audit for " + name
			call = func() (agentapi.Reply, error) { return cs.client.Audit(ctx, name) }
		case strings.HasPrefix(cmd, "/"):
			fmt.Fprintf(cs.out, "Unknown command %s; type /help.\n", cmd) //nolint:errcheck
			continue
		case state.Application != "":
			question = line
			app, agentType := state.Application, state.Agent
			call = func() (agentapi.Reply, error) { return cs.client.Send(ctx, app, agentType, line) }
		default:
			question = line
			call = func() (agentapi.Reply, error) { return cs.client.Message(ctx, line) }
		}

		state = session.Begin(state, question, cs.now())
		pending, _ := state.Last()
		reply, err := call()
		if err != nil {
			cs.log.Warn("backend request failed", "error", err)
			failure := model.Message{Role: model.RoleStatus, Content: "Error: " + err.Error(), Timestamp: cs.now()}
			state = session.Finish(state, failure)
			if err := cs.writer.write(state.Meta("", started), pending, failure); err != nil {
				return state, err
			}
			fmt.Fprintf(cs.out, "Error: %v\n", err) //nolint:errcheck
			continue
		}

		agentName := reply.AgentName
		if agentName == "" {
			agentName = state.Agent
		}
		answer := model.Message{Role: model.RoleAssistant, Content: reply.Text, Agent: agentName, Timestamp: cs.now()}
		state = session.Finish(state, answer)

		if err := cs.writer.write(state.Meta("", started), pending, answer); err != nil {
			return state, err
		}
		profile := document.ProfileAudit
		if state.Application != "" {
			profile = document.ProfileBank
		}
		doc := render.SafeWith(reply.Text, profile)
		cs.log.Debug("formatted reply", "profile", profile, "layout", doc.Layout, "blocks", len(doc.Blocks))
		if err := render.Write(cs.out, doc, cs.render); err != nil {
			return state, err
		}
	}
	if err := scanner.Err(); err != nil {
		return state, fmt.Errorf("read input: %w", err)
	}
	return state, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
