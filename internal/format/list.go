// Package format renders transcript listings and messages for the terminal.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"chatfmt/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ListFormats are the values accepted by WriteSummaries.
var ListFormats = []string{"table", "plain", "json", "jsonl"}

// WriteSummaries writes transcript summaries to w in the requested format.
func WriteSummaries(w io.Writer, items []model.Summary, includeHeader bool, format string) error {
	format = strings.ToLower(format)
	switch format {
	case "", "table":
		return writeSummariesTable(w, items, includeHeader)
	case "plain":
		return writeSummariesPlain(w, items, includeHeader)
	case "json":
		return writeSummariesJSON(w, items)
	case "jsonl":
		return writeSummariesJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// summaryRecord is the JSON shape of a listed transcript.
type summaryRecord struct {
	ID              string    `json:"id"`
	Path            string    `json:"path"`
	Customer        string    `json:"customer,omitempty"`
	Application     string    `json:"application,omitempty"`
	Agent           string    `json:"agent,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	Summary         string    `json:"summary"`
	MessageCount    int       `json:"message_count"`
	DurationSeconds int       `json:"duration_seconds"`
}

func toRecord(item model.Summary) summaryRecord {
	return summaryRecord(item)
}

func subject(item model.Summary) string {
	if item.Customer != "" {
		return item.Customer
	}
	return item.Application
}

func writeSummariesPlain(w io.Writer, items []model.Summary, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "timestamp\ttranscript_id\tcustomer\tagent\tduration\tmessage_count\tsummary"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := fmt.Sprintf(
			"%s\t%s\t%s\t%s\t%s\t%d\t%s",
			item.StartedAt.Format(time.RFC3339),
			item.ID,
			subject(item),
			item.Agent,
			FormatDuration(item.DurationSeconds),
			item.MessageCount,
			escapeNewlines(item.Summary),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeSummariesJSON(w io.Writer, items []model.Summary) error {
	records := make([]summaryRecord, 0, len(items))
	for _, item := range items {
		records = append(records, toRecord(item))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeSummariesJSONL(w io.Writer, items []model.Summary) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(toRecord(item)); err != nil {
			return err
		}
	}
	return nil
}

func escapeNewlines(text string) string {
	return strings.ReplaceAll(text, "\n", "\\n")
}

func writeSummariesTable(w io.Writer, items []model.Summary, includeHeader bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 7, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 60},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Timestamp", "Transcript", "Customer", "Agent", "Duration", "Messages", "Summary"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			item.StartedAt.Format(time.RFC3339),
			item.ID,
			subject(item),
			item.Agent,
			FormatDuration(item.DurationSeconds),
			item.MessageCount,
			escapeNewlines(item.Summary),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "(no transcripts)", "-", "-", "00:00:00", 0, "-"})
	}

	_ = tw.Render()
	return nil
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
