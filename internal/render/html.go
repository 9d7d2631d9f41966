package render

import (
	"html"
	"strings"

	"chatfmt/internal/document"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = newHTMLPolicy()

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "section", "h2", "h3", "h4", "strong", "em", "code", "span", "br",
		"table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("class").Globally()
	return p
}

// HTML renders doc as a sanitized HTML fragment. Text newlines and line
// breaks inside table cells become <br> elements.
func HTML(doc document.Document) string {
	var b strings.Builder
	b.WriteString(`<div class="chat-document layout-` + string(doc.Layout) + `">`)
	inSection := false
	for _, block := range doc.Blocks {
		switch v := block.(type) {
		case document.TitleBlock:
			b.WriteString(`<h2 class="title">` + escapeLines(v.Text) + `</h2>`)
		case document.SectionBlock:
			if inSection {
				b.WriteString(`</section>`)
			}
			b.WriteString(`<section class="zone zone-` + string(v.Zone) + `"><h4>` + html.EscapeString(v.Text) + `</h4>`)
			inSection = true
		case document.TextBlock:
			b.WriteString(`<div class="text">` + strings.ReplaceAll(v.HTML, "\n", "<br>\n") + `</div>`)
		case document.TableBlock:
			writeHTMLTable(&b, v)
		}
	}
	if inSection {
		b.WriteString(`</section>`)
	}
	b.WriteString(`</div>`)
	return htmlPolicy.Sanitize(b.String())
}

func writeHTMLTable(b *strings.Builder, t document.TableBlock) {
	b.WriteString(`<table class="chat-table"><thead><tr>`)
	for _, cell := range t.Header {
		b.WriteString(`<th>` + escapeLines(cell) + `</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, row := range t.Rows {
		b.WriteString(`<tr>`)
		for _, cell := range row {
			b.WriteString(`<td>` + escapeLines(cell) + `</td>`)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

func escapeLines(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
