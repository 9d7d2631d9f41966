package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatfmt/internal/agentapi"
	"chatfmt/internal/model"
	"chatfmt/internal/render"
	"chatfmt/internal/session"
	"chatfmt/internal/transcript"
)

func fixturePath(parts ...string) string {
	elems := append([]string{"..", "..", "testdata", "transcripts"}, parts...)
	return filepath.Join(elems...)
}

func TestClipSummary(t *testing.T) {
	if got := clipSummary("abcdef", 3); got != "ab…" {
		t.Fatalf("clipSummary unexpected result: %q", got)
	}
	if got := clipSummary("short", 10); got != "short" {
		t.Fatalf("clipSummary should not alter short text: %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	text := "  line one\n\nline\t two  "
	if got := collapseWhitespace(text); got != "line one line two" {
		t.Fatalf("collapseWhitespace failed: %q", got)
	}
}

func TestFormatCommandStdin(t *testing.T) {
	cmd := newFormatCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("Row|A|B\n---|---|---\nX|1|2"))
	cmd.SetArgs([]string{"--format", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("format command failed: %v", err)
	}

	var decoded struct {
		Layout string `json:"layout"`
		Blocks []struct {
			Type   string     `json:"type"`
			Header []string   `json:"header"`
			Rows   [][]string `json:"rows"`
		} `json:"blocks"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	if decoded.Layout != "table" || len(decoded.Blocks) != 1 || decoded.Blocks[0].Type != "table" {
		t.Fatalf("unexpected document: %s", buf.String())
	}
}

func TestFormatCommandColorConflict(t *testing.T) {
	cmd := newFormatCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("x"))
	cmd.SetArgs([]string{"--color", "--no-color"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for conflicting color flags")
	}
}

func TestViewCommandFormatRaw(t *testing.T) {
	cmd := newViewCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	path := fixturePath("chat", "greeting.jsonl")
	cmd.SetArgs([]string{path, "--format", "raw"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("view command failed: %v", err)
	}
	wantBytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample file: %v", err)
	}
	if got := buf.String(); got != string(wantBytes) {
		t.Fatalf("raw output mismatch\nwant:\n%q\n\ngot:\n%q", string(wantBytes), got)
	}
}

func TestViewCommandByID(t *testing.T) {
	cmd := newViewCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"audit-acme", "--transcripts-dir", fixturePath("chat"), "--no-color", "--wrap", "80"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("view command failed: %v", err)
	}
	if !strings.Contains(buf.String(), "── Customer Information") {
		t.Fatalf("expected formatted audit report:\n%s", buf.String())
	}
}

func TestInfoCommandJSON(t *testing.T) {
	t.Setenv("CHATFMT_DIALECT", "bank")
	cmd := newInfoCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{fixturePath("bank", "APP-1001.jsonl"), "--format", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("info command failed: %v", err)
	}

	var payload infoPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if payload.Application != "APP-1001" || payload.MessageCount != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.ReplyLayouts["table"] != 1 || payload.TableCount != 1 {
		t.Fatalf("unexpected reply stats %+v", payload)
	}
	if payload.DurationDisplay != "00:05:00" {
		t.Fatalf("unexpected duration %s", payload.DurationDisplay)
	}
}

func TestAskAuditSavesTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/audit/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"message":"Report for **Acme**"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("CHATFMT_TRANSCRIPTS_DIR", dir)

	cmd := newAskCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"audit", "Acme", "Corp", "--backend-url", srv.URL, "--save", "acme", "--format", "markdown"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ask audit failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "Report for **Acme**" {
		t.Fatalf("unexpected output %q", got)
	}

	path := filepath.Join(dir, "acme.jsonl")
	meta, err := transcript.ChatParser{}.ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta returned error: %v", err)
	}
	if meta.ID != "acme" || meta.Customer != "Acme Corp" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestAskBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Customer not found"}`))
	}))
	defer srv.Close()

	cmd := newAskCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"audit", "Nobody", "--backend-url", srv.URL, "--retries", "0"})
	err := cmd.Execute()
	var apiErr *agentapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Customer not found" {
		t.Fatalf("expected APIError, got %v", err)
	}
}

type fakeAsker struct {
	calls []string
	err   error
}

func (f *fakeAsker) Audit(_ context.Context, name string) (agentapi.Reply, error) {
	f.calls = append(f.calls, "audit:"+name)
	return agentapi.Reply{Text: "**Customer Information**\nCustomer Name: " + name + "\n| Stage | Status |\n|---|---|\n| 1 | Done |"}, f.err
}

func (f *fakeAsker) Message(_ context.Context, text string) (agentapi.Reply, error) {
	f.calls = append(f.calls, "message:"+text)
	return agentapi.Reply{Text: "echo " + text}, f.err
}

func (f *fakeAsker) Send(_ context.Context, app, agentType, text string) (agentapi.Reply, error) {
	f.calls = append(f.calls, "send:"+app+":"+agentType+":"+text)
	return agentapi.Reply{Text: "ok", AgentName: "Risk Agent"}, f.err
}

func TestRunChat(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"/customer Acme Corp",
		"/audit",
		"hello",
		"/app APP-9",
		"/agent risk",
		"status?",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n"))
	var out bytes.Buffer
	fake := &fakeAsker{}
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	state, err := runChat(context.Background(), chatSession{
		in:     in,
		out:    &out,
		client: fake,
		render: render.Options{Format: "text", Width: 60},
		now:    func() time.Time { return clock },
	}, session.New(""))
	if err != nil {
		t.Fatalf("runChat returned error: %v", err)
	}

	wantCalls := []string{"audit:Acme Corp", "message:hello", "send:APP-9:risk:status?"}
	if strings.Join(fake.calls, "|") != strings.Join(wantCalls, "|") {
		t.Fatalf("unexpected calls %v", fake.calls)
	}
	// Switching application cleared the earlier history.
	if len(state.Messages) != 2 || state.Busy {
		t.Fatalf("unexpected final state %+v", state)
	}
	if last, _ := state.Last(); last.Agent != "Risk Agent" {
		t.Fatalf("unexpected last message %+v", last)
	}
	text := out.String()
	for _, want := range []string{"Customer set to Acme Corp.", "── Customer Information", "echo hello", "Unknown command /bogus"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRunChatBackendError(t *testing.T) {
	var out bytes.Buffer
	fake := &fakeAsker{err: errors.New("boom")}
	state, err := runChat(context.Background(), chatSession{
		in:     strings.NewReader("hello\n"),
		out:    &out,
		client: fake,
		render: render.Options{Format: "text"},
	}, session.New(""))
	if err != nil {
		t.Fatalf("runChat returned error: %v", err)
	}
	last, ok := state.Last()
	if !ok || last.Role != model.RoleStatus || state.Busy {
		t.Fatalf("error should be recorded as status message: %+v", state)
	}
	if !strings.Contains(out.String(), "Error: boom") {
		t.Fatalf("error not reported:\n%s", out.String())
	}
}

func TestRunChatSavesFailedExchange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.jsonl")
	writer := transcriptWriter{parser: transcript.ChatParser{}, path: path, id: "failed"}

	_, err := runChat(context.Background(), chatSession{
		in:     strings.NewReader("/customer Acme\n/audit\n"),
		out:    io.Discard,
		client: &fakeAsker{err: errors.New("backend down")},
		render: render.Options{Format: "text"},
		writer: writer,
	}, session.New(""))
	if err != nil {
		t.Fatalf("runChat returned error: %v", err)
	}

	var got []model.Message
	if err := (transcript.ChatParser{}).IterateMessages(path, func(msg model.Message) error {
		got = append(got, msg)
		return nil
	}); err != nil {
		t.Fatalf("IterateMessages returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected question and error to be saved, got %+v", got)
	}
	if got[0].Role != model.RoleUser || got[0].Content != "Generate audit for Acme" {
		t.Fatalf("unexpected saved question %+v", got[0])
	}
	if got[1].Role != model.RoleStatus || got[1].Content != "Error: backend down" {
		t.Fatalf("unexpected saved status %+v", got[1])
	}
}

type bankReplyAsker struct{ fakeAsker }

func (b *bankReplyAsker) Send(context.Context, string, string, string) (agentapi.Reply, error) {
	return agentapi.Reply{Text: "EMI of ₹4,200 is *due*"}, nil
}

func TestRunChatApplicationUsesBankProfile(t *testing.T) {
	var out bytes.Buffer
	_, err := runChat(context.Background(), chatSession{
		in:     strings.NewReader("/app APP-1\nwhen is my EMI?\n"),
		out:    &out,
		client: &bankReplyAsker{},
		render: render.Options{Format: "html"},
	}, session.New(""))
	if err != nil {
		t.Fatalf("runChat returned error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `<span class="currency">₹4,200</span>`) || !strings.Contains(text, "<em>due</em>") {
		t.Fatalf("bank reply not formatted with bank rules:\n%s", text)
	}
}

func TestFormatCommandBankProfile(t *testing.T) {
	run := func(args ...string) string {
		cmd := newFormatCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetErr(io.Discard)
		cmd.SetIn(strings.NewReader("Run `pay` for ₹99"))
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("format %v failed: %v", args, err)
		}
		return buf.String()
	}

	if out := run("--format", "html", "--profile", "bank"); !strings.Contains(out, "<code>pay</code>") {
		t.Fatalf("bank profile should render code spans: %s", out)
	}
	if out := run("--format", "html"); strings.Contains(out, "<code>") {
		t.Fatalf("audit profile should leave backticks alone: %s", out)
	}

	cmd := newFormatCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("x"))
	cmd.SetArgs([]string{"--profile", "legal"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
