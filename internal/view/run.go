// Package view renders a single transcript for reading in the terminal.
package view

import (
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"chatfmt/internal/document"
	"chatfmt/internal/format"
	"chatfmt/internal/logger"
	"chatfmt/internal/model"
	"chatfmt/internal/render"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Formats are the output modes accepted by Run.
var Formats = []string{"text", "chat", "html", "raw"}

// Options defines the configurable parameters for rendering a view.
type Options struct {
	Path         string
	Format       string
	Wrap         int
	MaxMessages  int
	RoleArg      string
	AllFilter    bool
	ForceColor   bool
	ForceNoColor bool
	RawFile      bool
	Out          io.Writer
	OutFile      *os.File
	Logger       logger.Logger
	// Profile selects the inline rules for assistant replies.
	Profile      document.Profile
}

// Run renders the transcript at opts.Path according to the provided options.
func Run(parser model.Parser, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	if opts.RawFile {
		return copyFile(opts.Out, opts.Path)
	}

	roles, err := buildRoleFilter(opts.AllFilter, opts.RoleArg)
	if err != nil {
		return err
	}

	formatMode := strings.ToLower(opts.Format)
	if formatMode == "" {
		formatMode = "text"
	}
	switch formatMode {
	case "text", "chat", "html", "raw":
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}

	if _, err := parser.ReadMeta(opts.Path); err != nil {
		return err
	}

	messages, err := collectMessages(parser, opts.Path, roles, opts.MaxMessages)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if doc, ok := format.MessageDocument(msg, opts.Profile); ok {
			opts.Logger.Debug("formatted reply", "layout", doc.Layout, "blocks", len(doc.Blocks), "tables", len(doc.Tables()))
		}
	}

	switch formatMode {
	case "text":
		useColor := resolveColorChoice(opts)
		for idx, msg := range messages {
			if idx > 0 {
				fmt.Fprintln(opts.Out)
			}
			printMessage(opts.Out, msg, opts.Profile, idx+1, opts.Wrap, useColor)
		}
		return nil

	case "raw":
		for _, msg := range messages {
			if _, err := fmt.Fprintln(opts.Out, msg.Raw); err != nil {
				return err
			}
		}
		return nil

	case "html":
		return writeHTML(opts.Out, messages, opts.Profile)

	default: // chat
		colorEnabled := resolveColorChoice(opts)
		width := determineWidth(opts.OutFile, opts.Wrap)

		lines := renderChatTranscript(messages, opts.Profile, width, colorEnabled)
		if len(lines) == 0 {
			return nil
		}
		if opts.OutFile != nil && isatty.IsTerminal(opts.OutFile.Fd()) {
			return pipeThroughPager(lines, colorEnabled)
		}
		return writeLines(opts.Out, lines)
	}
}

// collectMessages reads the messages matching roles. When max is positive
// only the last max messages are kept.
func collectMessages(parser model.Parser, path string, roles map[model.Role]struct{}, max int) ([]model.Message, error) {
	var ring *messageRing
	var collected []model.Message
	if max > 0 {
		ring = newMessageRing(max)
	}
	err := parser.IterateMessages(path, func(msg model.Message) error {
		if roles != nil {
			if _, ok := roles[msg.Role]; !ok {
				return nil
			}
		}
		if ring != nil {
			ring.push(msg)
		} else {
			collected = append(collected, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ring != nil {
		return ring.slice(), nil
	}
	return collected, nil
}

// buildRoleFilter returns the roles to show, or nil for all roles. Status
// messages are hidden unless requested.
func buildRoleFilter(allFilter bool, roleArg string) (map[model.Role]struct{}, error) {
	if allFilter {
		return nil, nil
	}

	values := parseCSV(roleArg)
	if len(values) == 0 {
		return map[model.Role]struct{}{
			model.RoleUser:      {},
			model.RoleAssistant: {},
		}, nil
	}
	if len(values) == 1 && values[0] == "all" {
		return nil, nil
	}

	lookup := map[string]model.Role{
		"user":      model.RoleUser,
		"assistant": model.RoleAssistant,
		"agent":     model.RoleAssistant,
		"status":    model.RoleStatus,
	}

	set := make(map[model.Role]struct{}, len(values))
	for _, token := range values {
		role, ok := lookup[token]
		if !ok {
			return nil, fmt.Errorf("unknown role %q", token)
		}
		set[role] = struct{}{}
	}
	return set, nil
}

func parseCSV(arg string) []string {
	if strings.TrimSpace(arg) == "" {
		return nil
	}
	parts := strings.Split(arg, ",")
	output := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(strings.ToLower(part))
		if token != "" {
			output = append(output, token)
		}
	}
	return output
}

type messageRing struct {
	data   []model.Message
	start  int
	length int
}

func newMessageRing(capacity int) *messageRing {
	if capacity <= 0 {
		return &messageRing{}
	}
	return &messageRing{data: make([]model.Message, capacity)}
}

func (r *messageRing) push(msg model.Message) {
	if len(r.data) == 0 {
		return
	}
	idx := (r.start + r.length) % len(r.data)
	r.data[idx] = msg
	if r.length < len(r.data) {
		r.length++
		return
	}
	r.start = (r.start + 1) % len(r.data)
}

func (r *messageRing) slice() []model.Message {
	if r.length == 0 {
		return nil
	}
	result := make([]model.Message, r.length)
	for i := 0; i < r.length; i++ {
		result[i] = r.data[(r.start+i)%len(r.data)]
	}
	return result
}

func determineWidth(out *os.File, wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func pipeThroughPager(lines []string, colorEnabled bool) error {
	text := strings.Join(lines, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	pagerCmd := os.Getenv("PAGER")
	var cmd *exec.Cmd
	if pagerCmd == "" {
		args := []string{"less"}
		if colorEnabled {
			args = append(args, "-R")
		}
		cmd = exec.Command(args[0], args[1:]...) // #nosec G204
	} else {
		cmd = exec.Command("sh", "-c", pagerCmd) // #nosec G204
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create pager pipe: %w", err)
	}
	go func() {
		defer stdin.Close()
		io.WriteString(stdin, text) //nolint:errcheck
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}

	return nil
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func speaker(msg model.Message) string {
	label := strings.ToLower(string(msg.Role))
	if label == "" {
		label = "message"
	}
	if msg.Agent != "" && msg.Role == model.RoleAssistant {
		label += " (" + msg.Agent + ")"
	}
	return label
}

func printMessage(out io.Writer, msg model.Message, profile document.Profile, index int, wrap int, useColor bool) {
	roleLabel := speaker(msg)

	ts := "-"
	if !msg.Timestamp.IsZero() {
		ts = msg.Timestamp.Format(time.RFC3339)
	}
	headerPlain := fmt.Sprintf("[#%03d] %s | %s", index, roleLabel, ts)

	indexText := fmt.Sprintf("#%03d", index)
	roleText := roleLabel
	tsText := ts
	separator := "|"

	if useColor {
		indexText = colorize(true, ansiBoldWhite, indexText)
		roleText = colorize(true, roleColor(msg.Role), roleText)
		tsText = colorize(true, ansiTimestamp, tsText)
		separator = colorize(true, ansiSeparator, "|")
	}

	fmt.Fprintf(out, "[%s] %s %s %s\n", indexText, roleText, separator, tsText)
	fmt.Fprintln(out, strings.Repeat("-", visibleWidth(headerPlain)))

	width := wrap
	if width > 2 {
		width -= 2
	}
	lines := format.MessageLines(msg, profile, width, useColor)
	linePrefix := "| "
	emptyPrefix := "|"
	if useColor {
		separatorColor := colorize(true, ansiSeparator, "|")
		linePrefix = separatorColor + " "
		emptyPrefix = separatorColor
	}
	if len(lines) == 0 {
		fmt.Fprintf(out, "%s%s\n", linePrefix, "(no content)")
		return
	}
	for _, line := range lines {
		if line == "" {
			fmt.Fprintln(out, emptyPrefix)
			continue
		}
		fmt.Fprintf(out, "%s%s\n", linePrefix, line)
	}
}

// writeHTML renders the transcript as a standalone page. Assistant replies
// use the formatter's sanitized HTML; other messages are escaped.
func writeHTML(out io.Writer, messages []model.Message, profile document.Profile) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Transcript</title></head><body>\n")
	for _, msg := range messages {
		fmt.Fprintf(&b, "<div class=\"message role-%s\">\n<div class=\"meta\">%s", html.EscapeString(string(msg.Role)), html.EscapeString(speaker(msg)))
		if !msg.Timestamp.IsZero() {
			fmt.Fprintf(&b, " · %s", msg.Timestamp.Format(time.RFC3339))
		}
		b.WriteString("</div>\n")
		if doc, ok := format.MessageDocument(msg, profile); ok {
			b.WriteString(render.HTML(doc))
		} else {
			b.WriteString("<div class=\"text\">" + strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>") + "</div>")
		}
		b.WriteString("\n</div>\n")
	}
	b.WriteString("</body></html>\n")
	_, err := io.WriteString(out, b.String())
	return err
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiTimestamp = "\x1b[38;5;245m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiAssistant = "\x1b[38;5;44m"
	ansiUser      = "\x1b[38;5;220m"
	ansiStatus    = "\x1b[38;5;207m"
)

func colorize(enabled bool, code string, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}

func roleColor(role model.Role) string {
	switch role {
	case model.RoleAssistant:
		return ansiAssistant
	case model.RoleUser:
		return ansiUser
	case model.RoleStatus:
		return ansiStatus
	default:
		return ansiSeparator
	}
}

func resolveColorChoice(opts Options) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	return shouldUseColorAuto(opts.Out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func copyFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(dst, f)
	return err
}
