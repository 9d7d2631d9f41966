package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"chatfmt/internal/document"
	"chatfmt/internal/format"
	"chatfmt/internal/logger"
	"chatfmt/internal/model"
	"chatfmt/internal/store"
	"chatfmt/internal/view"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		customer       string
		afterStr       string
		beforeStr      string
		limit          int
		formatFlag     string
		noHeader       bool
		summaryWidth   int
		transcriptsDir string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transcripts in reverse chronological order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			parser, err := newParser(cfg)
			if err != nil {
				return err
			}
			if transcriptsDir == "" {
				transcriptsDir = cfg.TranscriptsDir
			}

			var after, before *time.Time
			if afterStr != "" {
				t, err := time.Parse(time.RFC3339, afterStr)
				if err != nil {
					return fmt.Errorf("invalid --after value: %w", err)
				}
				after = &t
			}
			if beforeStr != "" {
				t, err := time.Parse(time.RFC3339, beforeStr)
				if err != nil {
					return fmt.Errorf("invalid --before value: %w", err)
				}
				before = &t
			}

			result, err := store.List(parser, store.ListOptions{
				Root:       transcriptsDir,
				Customer:   customer,
				After:      after,
				Before:     before,
				Limit:      limit,
				MaxSummary: summaryWidth,
			})
			if err != nil {
				return err
			}

			log := logger.FromContext(cmd.Context())
			for _, warn := range result.Warnings {
				log.Warn("skipped transcript", "error", warn)
			}

			return format.WriteSummaries(cmd.OutOrStdout(), result.Summaries, !noHeader, strings.ToLower(formatFlag))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&customer, "customer", "", "only transcripts whose customer or application contains this text")
	flags.StringVar(&afterStr, "after", "", "include transcripts starting on/after the given RFC3339 timestamp")
	flags.StringVar(&beforeStr, "before", "", "include transcripts starting on/before the given RFC3339 timestamp")
	flags.IntVar(&limit, "limit", 0, "limit number of transcripts returned (0 means no limit)")
	flags.StringVar(&formatFlag, "format", "table", "output format: "+strings.Join(format.ListFormats, ", "))
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for plain output")
	flags.IntVar(&summaryWidth, "summary-width", 160, "maximum characters included in the summary column")
	flags.StringVar(&transcriptsDir, "transcripts-dir", "", "override the transcripts directory (env: CHATFMT_TRANSCRIPTS_DIR)")

	return cmd
}

func newViewCmd() *cobra.Command {
	var (
		roleArg        string
		allFilter      bool
		raw            bool
		wrap           int
		maxMessages    int
		transcriptsDir string
		formatFlag     string
		forceColor     bool
		forceNoColor   bool
	)

	cmd := &cobra.Command{
		Use:   "view <transcript-id-or-path>",
		Short: "Render a transcript with formatted assistant replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			if allFilter && roleArg != "" {
				return errors.New("--all cannot be used with --role")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			parser, err := newParser(cfg)
			if err != nil {
				return err
			}
			if transcriptsDir == "" {
				transcriptsDir = cfg.TranscriptsDir
			}

			path, err := resolveTranscriptPath(parser, args[0], transcriptsDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.Run(parser, view.Options{
				Path:         path,
				Format:       formatFlag,
				Wrap:         wrap,
				MaxMessages:  maxMessages,
				RoleArg:      roleArg,
				AllFilter:    allFilter,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				RawFile:      raw,
				Out:          out,
				OutFile:      outFile,
				Logger:       logger.FromContext(cmd.Context()),
				Profile:      profileFor(cfg),
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&roleArg, "role", "R", "", "comma-separated roles to include: user, assistant, status (default: user,assistant; use 'all' for every role)")
	flags.BoolVar(&allFilter, "all", false, "show every message including status updates")
	flags.BoolVar(&raw, "raw", false, "output the transcript file without formatting")
	flags.IntVar(&wrap, "wrap", 0, "wrap message body at the given column width")
	flags.IntVar(&maxMessages, "max", 0, "show only the most recent N messages (0 means no limit)")
	flags.StringVar(&transcriptsDir, "transcripts-dir", "", "override the transcripts directory (env: CHATFMT_TRANSCRIPTS_DIR)")
	flags.StringVar(&formatFlag, "format", "text", "output format: "+strings.Join(view.Formats, ", "))
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

type infoPayload struct {
	TranscriptID    string         `json:"transcript_id"`
	JSONLPath       string         `json:"jsonl_path"`
	StartedAt       string         `json:"started_at"`
	Customer        string         `json:"customer,omitempty"`
	Application     string         `json:"application,omitempty"`
	Agent           string         `json:"agent,omitempty"`
	MessageCount    int            `json:"message_count"`
	ReplyLayouts    map[string]int `json:"reply_layouts"`
	TableCount      int            `json:"table_count"`
	DurationSeconds int            `json:"duration_seconds"`
	DurationDisplay string         `json:"duration_display"`
	Summary         string         `json:"summary"`
}

func newInfoCmd() *cobra.Command {
	var (
		formatFlag     string
		summaryMode    string
		transcriptsDir string
	)

	cmd := &cobra.Command{
		Use:   "info <transcript-id-or-path>",
		Short: "Show transcript metadata and reply statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summaryMode = strings.ToLower(summaryMode)
			switch summaryMode {
			case "", "clip", "full":
			default:
				return fmt.Errorf("invalid --summary value: %s", summaryMode)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			parser, err := newParser(cfg)
			if err != nil {
				return err
			}
			if transcriptsDir == "" {
				transcriptsDir = cfg.TranscriptsDir
			}

			path, err := resolveTranscriptPath(parser, args[0], transcriptsDir)
			if err != nil {
				return err
			}

			payload, err := collectInfo(parser, path, profileFor(cfg))
			if err != nil {
				return err
			}

			summarySnippet := collapseWhitespace(payload.Summary)
			if summaryMode != "full" {
				summarySnippet = clipSummary(summarySnippet, 160)
			}

			switch strings.ToLower(formatFlag) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			case "text":
				renderInfoText(cmd.OutOrStdout(), payload, summarySnippet)
				return nil
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text or json")
	flags.StringVar(&summaryMode, "summary", "clip", "summary display: clip or full")
	flags.StringVar(&transcriptsDir, "transcripts-dir", "", "override the transcripts directory (env: CHATFMT_TRANSCRIPTS_DIR)")

	return cmd
}

func collectInfo(parser model.Parser, path string, profile document.Profile) (infoPayload, error) {
	meta, err := parser.ReadMeta(path)
	if err != nil {
		return infoPayload{}, err
	}
	summary, err := parser.FirstUserSummary(path)
	if err != nil {
		return infoPayload{}, err
	}

	payload := infoPayload{
		TranscriptID: meta.ID,
		JSONLPath:    path,
		StartedAt:    meta.StartedAt.Format(time.RFC3339),
		Customer:     meta.Customer,
		Application:  meta.Application,
		Agent:        meta.Agent,
		ReplyLayouts: map[string]int{},
		Summary:      summary,
	}

	var lastTimestamp time.Time
	err = parser.IterateMessages(path, func(msg model.Message) error {
		payload.MessageCount++
		if msg.Timestamp.After(lastTimestamp) {
			lastTimestamp = msg.Timestamp
		}
		if doc, ok := format.MessageDocument(msg, profile); ok {
			payload.ReplyLayouts[string(doc.Layout)]++
			payload.TableCount += len(doc.Tables())
		}
		return nil
	})
	if err != nil {
		return infoPayload{}, err
	}

	if lastTimestamp.IsZero() || lastTimestamp.Before(meta.StartedAt) {
		lastTimestamp = meta.StartedAt
	}
	payload.DurationSeconds = durationSeconds(meta.StartedAt, lastTimestamp)
	payload.DurationDisplay = format.FormatDuration(payload.DurationSeconds)
	return payload, nil
}

func durationSeconds(start, end time.Time) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Seconds())
}

func renderInfoText(out io.Writer, payload infoPayload, summarySnippet string) {
	const labelWidth = 14
	writeKV(out, labelWidth, "Transcript ID", payload.TranscriptID)
	writeKV(out, labelWidth, "Started At", payload.StartedAt)
	writeKV(out, labelWidth, "Duration", payload.DurationDisplay)
	writeKV(out, labelWidth, "Customer", payload.Customer)
	writeKV(out, labelWidth, "Application", payload.Application)
	writeKV(out, labelWidth, "Agent", payload.Agent)
	writeKV(out, labelWidth, "Message Count", fmt.Sprintf("%d", payload.MessageCount))
	writeKV(out, labelWidth, "Reply Layouts", formatLayouts(payload.ReplyLayouts))
	writeKV(out, labelWidth, "Tables", fmt.Sprintf("%d", payload.TableCount))
	writeKV(out, labelWidth, "JSONL Path", payload.JSONLPath)
	writeKV(out, labelWidth, "Summary", summarySnippet)
}

// formatLayouts renders layout counts in a fixed order, e.g. "structured=1 plain=2".
func formatLayouts(counts map[string]int) string {
	var parts []string
	for _, layout := range []string{"structured", "table", "plain"} {
		if n := counts[layout]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", layout, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func writeKV(out io.Writer, width int, label string, value string) {
	fmt.Fprintf(out, "%-*s: %s\n", width, label, value) //nolint:errcheck
}
