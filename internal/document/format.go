package document

import "strings"

// Format converts one assistant message into a Document using the audit
// inline rules. It never fails: text without recognizable structure becomes
// a single TextBlock.
//
// Messages containing a pipe are first segmented into audit report zones;
// if no zone beyond the title is found the first table in the message is
// split out of the surrounding prose instead.
func Format(raw string) Document {
	return FormatWith(raw, ProfileAudit)
}

// FormatWith is Format with the inline rules of profile p.
func FormatWith(raw string, p Profile) Document {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.Contains(text, "|") {
		if zones := Segment(text); zones.Customer != "" || zones.AuditTrail != "" || zones.Overview != "" {
			return structured(zones, p)
		}
		if doc, ok := withTable(text, p); ok {
			return doc
		}
	}
	return Document{
		Layout: LayoutPlain,
		Blocks: []Block{TextBlock{HTML: FormatInlineWith(strings.TrimSpace(text), p)}},
	}
}

func structured(z Zones, p Profile) Document {
	var blocks []Block
	if title := plainText(z.Title); title != "" {
		blocks = append(blocks, TitleBlock{Text: title})
	}
	// prose appends a text block unless text is empty.
	prose := func(text string) {
		if text = strings.TrimSpace(text); text != "" {
			blocks = append(blocks, TextBlock{HTML: FormatInlineWith(text, p)})
		}
	}
	if z.Customer != "" {
		blocks = append(blocks, SectionBlock{Zone: ZoneCustomer, Text: ZoneCustomer.Label()})
		prose(withoutHeading(z.Customer, ZoneCustomer))
	}
	if z.AuditTrail != "" {
		blocks = append(blocks, SectionBlock{Zone: ZoneAuditTrail, Text: ZoneAuditTrail.Label()})
		before, _, _ := strings.Cut(z.AuditTrail, "|")
		prose(withoutHeading(before, ZoneAuditTrail))
		if table, ok := ParseTable(z.AuditTrail); ok {
			blocks = append(blocks, table)
		}
	}
	if z.Overview != "" {
		blocks = append(blocks, SectionBlock{Zone: ZoneOverview, Text: ZoneOverview.Label()})
		prose(withoutHeading(z.Overview, ZoneOverview))
	}
	return Document{Layout: LayoutStructured, Blocks: blocks}
}

// withoutHeading drops the first line of text when it only repeats the
// label of zone, since the SectionBlock already carries it.
func withoutHeading(text string, zone Zone) string {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	heading := strings.TrimLeft(plainText(first), "🧾🧍🔍 ")
	heading = strings.TrimSpace(strings.TrimSuffix(heading, ":"))
	if !strings.EqualFold(heading, zone.Label()) {
		return text
	}
	return strings.TrimSpace(rest)
}

func withTable(text string, p Profile) (Document, bool) {
	lines := splitLines(text)
	table, start, end, ok := findTable(lines)
	if !ok {
		return Document{}, false
	}

	var blocks []Block
	if before := strings.TrimSpace(strings.Join(lines[:start], "\n")); before != "" {
		blocks = append(blocks, TextBlock{HTML: FormatInlineWith(before, p)})
	}
	blocks = append(blocks, table)
	if after := strings.TrimSpace(strings.Join(lines[end:], "\n")); after != "" {
		blocks = append(blocks, TextBlock{HTML: FormatInlineWith(after, p)})
	}
	return Document{Layout: LayoutTable, Blocks: blocks}, true
}
