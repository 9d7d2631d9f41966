// Package document turns assistant reply text into an ordered list of
// render-ready blocks (titles, sections, tables and formatted text).
package document

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the variant of a Block.
type Kind string

const (
	KindTitle   Kind = "title"
	KindSection Kind = "section"
	KindTable   Kind = "table"
	KindText    Kind = "text"
)

// Zone names one of the regions an audit-style reply is segmented into.
type Zone string

const (
	ZoneTitle      Zone = "title"
	ZoneCustomer   Zone = "customer"
	ZoneAuditTrail Zone = "audit_trail"
	ZoneOverview   Zone = "overview"
)

// Label returns the human readable heading for the zone.
func (z Zone) Label() string {
	switch z {
	case ZoneTitle:
		return "Title"
	case ZoneCustomer:
		return "Customer Information"
	case ZoneAuditTrail:
		return "Detailed Audit Trail"
	case ZoneOverview:
		return "Overview Summary"
	default:
		return string(z)
	}
}

// Layout records which assembly path produced a Document.
type Layout string

const (
	// LayoutStructured is an audit report split into zones.
	LayoutStructured Layout = "structured"
	// LayoutTable is free text with a single embedded table.
	LayoutTable Layout = "table"
	// LayoutPlain is a single text block.
	LayoutPlain Layout = "plain"
)

// Block is one render unit of a Document.
type Block interface {
	Kind() Kind
}

// TitleBlock holds the report title, stripped of markup.
type TitleBlock struct {
	Text string
}

// SectionBlock opens a zone. The blocks that follow it, up to the next
// SectionBlock, belong to the zone.
type SectionBlock struct {
	Zone Zone
	Text string
}

// TableBlock is a parsed pipe table. Every row has exactly len(Header) cells.
// Cells may contain embedded newlines.
type TableBlock struct {
	Header []string
	Rows   [][]string
}

// TextBlock carries prose after inline formatting. HTML is not sanitized.
type TextBlock struct {
	HTML string
}

func (TitleBlock) Kind() Kind   { return KindTitle }
func (SectionBlock) Kind() Kind { return KindSection }
func (TableBlock) Kind() Kind   { return KindTable }
func (TextBlock) Kind() Kind    { return KindText }

// Document is the formatted form of one assistant message.
type Document struct {
	Layout Layout
	Blocks []Block
}

// Tables returns the table blocks in document order.
func (d Document) Tables() []TableBlock {
	var tables []TableBlock
	for _, b := range d.Blocks {
		if t, ok := b.(TableBlock); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

type blockJSON struct {
	Type   Kind       `json:"type"`
	Zone   Zone       `json:"zone,omitempty"`
	Text   string     `json:"text,omitempty"`
	HTML   string     `json:"html,omitempty"`
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows,omitempty"`
}

type documentJSON struct {
	Layout Layout      `json:"layout"`
	Blocks []blockJSON `json:"blocks"`
}

// MarshalJSON encodes the document with a "type" tag on every block.
func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{Layout: d.Layout, Blocks: make([]blockJSON, 0, len(d.Blocks))}
	for _, b := range d.Blocks {
		switch v := b.(type) {
		case TitleBlock:
			out.Blocks = append(out.Blocks, blockJSON{Type: KindTitle, Text: v.Text})
		case SectionBlock:
			out.Blocks = append(out.Blocks, blockJSON{Type: KindSection, Zone: v.Zone, Text: v.Text})
		case TableBlock:
			rows := v.Rows
			if rows == nil {
				rows = [][]string{}
			}
			out.Blocks = append(out.Blocks, blockJSON{Type: KindTable, Header: v.Header, Rows: rows})
		case TextBlock:
			out.Blocks = append(out.Blocks, blockJSON{Type: KindText, HTML: v.HTML})
		default:
			return nil, fmt.Errorf("unknown block type %T", b)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the encoding produced by MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	d.Layout = in.Layout
	d.Blocks = make([]Block, 0, len(in.Blocks))
	for _, b := range in.Blocks {
		switch b.Type {
		case KindTitle:
			d.Blocks = append(d.Blocks, TitleBlock{Text: b.Text})
		case KindSection:
			d.Blocks = append(d.Blocks, SectionBlock{Zone: b.Zone, Text: b.Text})
		case KindTable:
			d.Blocks = append(d.Blocks, TableBlock{Header: b.Header, Rows: b.Rows})
		case KindText:
			d.Blocks = append(d.Blocks, TextBlock{HTML: b.HTML})
		default:
			return fmt.Errorf("unknown block type %q", b.Type)
		}
	}
	return nil
}
