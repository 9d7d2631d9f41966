// Package render writes formatted documents to terminals, HTML, markdown
// and JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"chatfmt/internal/document"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "html", "markdown", "json"}

// Options controls rendering.
type Options struct {
	Format string
	Width  int
	Color  bool
}

// Write renders doc to w in the requested format.
func Write(w io.Writer, doc document.Document, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case "", "text":
		return writeLines(w, Lines(doc, opts.Width, opts.Color))
	case "html":
		_, err := io.WriteString(w, HTML(doc)+"\n")
		return err
	case "markdown", "md":
		_, err := io.WriteString(w, Markdown(doc)+"\n")
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// Safe formats raw with the audit profile, falling back to a single
// unformatted text block if the formatter panics.
func Safe(raw string) document.Document {
	return SafeWith(raw, document.ProfileAudit)
}

// SafeWith is Safe with the inline rules of profile p.
func SafeWith(raw string, p document.Profile) (doc document.Document) {
	defer func() {
		if r := recover(); r != nil {
			doc = document.Document{
				Layout: document.LayoutPlain,
				Blocks: []document.Block{document.TextBlock{HTML: raw}},
			}
		}
	}()
	return document.FormatWith(raw, p)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
