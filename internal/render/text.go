package render

import (
	"regexp"
	"strings"

	"chatfmt/internal/document"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

const minColumnWidth = 6

var (
	inlineTag   = regexp.MustCompile(`</?(strong|h3|em|code|span)\b[^>]*>`)
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// Lines renders doc as terminal lines no wider than width (when width > 0).
// With color enabled emphasis becomes ANSI bold; otherwise tags are dropped.
func Lines(doc document.Document, width int, color bool) []string {
	var lines []string
	for i, block := range doc.Blocks {
		if i > 0 {
			if _, afterSection := doc.Blocks[i-1].(document.SectionBlock); !afterSection {
				lines = append(lines, "")
			}
		}
		switch b := block.(type) {
		case document.TitleBlock:
			lines = append(lines, titleLines(b.Text, width, color)...)
		case document.SectionBlock:
			lines = append(lines, sectionLine(b.Text, width, color))
		case document.TextBlock:
			lines = append(lines, textLines(b.HTML, width, color)...)
		case document.TableBlock:
			lines = append(lines, tableLines(b, width, color)...)
		}
	}
	return lines
}

func titleLines(title string, width int, color bool) []string {
	var out []string
	for _, line := range strings.Split(title, "\n") {
		for _, part := range wrap(line, width) {
			if width > 0 {
				part = strings.TrimRight(text.AlignCenter.Apply(part, width), " ")
			}
			if color {
				part = text.Colors{text.Bold, text.FgHiWhite}.Sprint(part)
			}
			out = append(out, part)
		}
	}
	return out
}

func sectionLine(label string, width int, color bool) string {
	line := "── " + label + " "
	if fill := width - runewidth.StringWidth(line); fill > 0 {
		line += strings.Repeat("─", fill)
	}
	if color {
		return text.Colors{text.Bold, text.FgHiCyan}.Sprint(line)
	}
	return line
}

func textLines(html string, width int, color bool) []string {
	var out []string
	for _, line := range strings.Split(html, "\n") {
		out = append(out, wrap(styleInline(line, color), width)...)
	}
	return out
}

// styleInline maps <strong>, <h3>, <em>, <code> and <span> runs to ANSI
// styles and removes the tags.
func styleInline(line string, color bool) string {
	var b strings.Builder
	open := map[string]int{}
	last := 0
	for _, loc := range inlineTag.FindAllStringSubmatchIndex(line, -1) {
		b.WriteString(paint(line[last:loc[0]], open, color))
		tag := line[loc[2]:loc[3]]
		switch {
		case line[loc[0]+1] != '/':
			open[tag]++
		case open[tag] > 0:
			open[tag]--
		}
		last = loc[1]
	}
	b.WriteString(paint(line[last:], open, color))
	return b.String()
}

func paint(s string, open map[string]int, color bool) string {
	if s == "" || !color {
		return s
	}
	var colors text.Colors
	switch {
	case open["h3"] > 0:
		colors = text.Colors{text.Bold, text.Underline}
	case open["strong"] > 0:
		colors = text.Colors{text.Bold}
	}
	if open["em"] > 0 {
		colors = append(colors, text.Italic)
	}
	switch {
	case open["code"] > 0:
		colors = append(colors, text.FgHiYellow)
	case open["span"] > 0:
		colors = append(colors, text.FgHiGreen)
	}
	if len(colors) == 0 {
		return s
	}
	return colors.Sprint(s)
}

func tableLines(t document.TableBlock, width int, color bool) []string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	tw.Style().Format.Header = text.FormatDefault
	if color {
		tw.Style().Color.Header = text.Colors{text.Bold}
	}

	header := make(table.Row, len(t.Header))
	for i, cell := range t.Header {
		header[i] = cell
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	if width > 0 && len(t.Header) > 0 {
		// Rounded style spends one column on the left border and three per cell.
		perColumn := (width - 1 - 3*len(t.Header)) / len(t.Header)
		if perColumn < minColumnWidth {
			perColumn = minColumnWidth
		}
		configs := make([]table.ColumnConfig, len(t.Header))
		for i := range configs {
			configs[i] = table.ColumnConfig{
				Number:           i + 1,
				Align:            text.AlignLeft,
				AlignHeader:      text.AlignLeft,
				WidthMax:         perColumn,
				WidthMaxEnforcer: text.WrapSoft,
			}
		}
		tw.SetColumnConfigs(configs)
	}

	return strings.Split(tw.Render(), "\n")
}

func wrap(line string, width int) []string {
	if width <= 0 || visibleWidth(line) <= width {
		return []string{line}
	}
	return strings.Split(text.WrapSoft(line, width), "\n")
}

func visibleWidth(s string) int {
	return runewidth.StringWidth(ansiPattern.ReplaceAllString(s, ""))
}
