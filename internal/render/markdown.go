package render

import (
	"strings"

	"chatfmt/internal/document"
)

var markdownTags = strings.NewReplacer(
	"<strong>", "**", "</strong>", "**",
	"<h3>", "### ", "</h3>", "",
	"<em>", "*", "</em>", "*",
	"<code>", "`", "</code>", "`",
	`<span class="currency">`, "", "</span>", "",
)

// Markdown renders doc back to markdown, re-emitting tables as pipe tables
// with a header rule.
func Markdown(doc document.Document) string {
	parts := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		switch v := block.(type) {
		case document.TitleBlock:
			parts = append(parts, "# "+strings.ReplaceAll(v.Text, "\n", " "))
		case document.SectionBlock:
			parts = append(parts, "## "+v.Text)
		case document.TextBlock:
			parts = append(parts, markdownTags.Replace(v.HTML))
		case document.TableBlock:
			parts = append(parts, markdownTable(v))
		}
	}
	return strings.Join(parts, "\n\n")
}

func markdownTable(t document.TableBlock) string {
	var b strings.Builder
	writeMarkdownRow(&b, t.Header)
	rule := make([]string, len(t.Header))
	for i := range rule {
		rule[i] = "---"
	}
	writeMarkdownRow(&b, rule)
	for _, row := range t.Rows {
		writeMarkdownRow(&b, row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, cell := range cells {
		cell = strings.ReplaceAll(cell, "|", `\|`)
		cell = strings.ReplaceAll(cell, "\n", "<br>")
		b.WriteString(" " + cell + " |")
	}
	b.WriteString("\n")
}
