package document

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const auditReport = "**Customer Information**\nCustomer ID: 123\n**Detailed Audit Trail**\n" +
	"| Stage No. | Status |\n|---|---|\n|1|Done|\n**Overview Summary**\nAll good."

func TestFormatAuditReport(t *testing.T) {
	doc := Format(auditReport)
	if doc.Layout != LayoutStructured {
		t.Fatalf("expected structured layout, got %s", doc.Layout)
	}

	want := []Block{
		SectionBlock{Zone: ZoneCustomer, Text: "Customer Information"},
		TextBlock{HTML: "<strong>Customer ID:</strong> 123"},
		SectionBlock{Zone: ZoneAuditTrail, Text: "Detailed Audit Trail"},
		TableBlock{Header: []string{"Stage No.", "Status"}, Rows: [][]string{{"1", "Done"}}},
		SectionBlock{Zone: ZoneOverview, Text: "Overview Summary"},
		TextBlock{HTML: "All good."},
	}
	if diff := cmp.Diff(want, doc.Blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatZoneHeadingsNotRepeated(t *testing.T) {
	raw := "🧍 Customer Information:\nCustomer ID: 9\n🔍 Detailed Audit Trail\n" +
		"| Stage No. | Status |\n|---|---|\n|1|Done|\nOverview Summary\nDone.\n\n\n"
	doc := Format(raw)

	for _, b := range doc.Blocks {
		tb, ok := b.(TextBlock)
		if !ok {
			continue
		}
		for _, label := range []string{"Customer Information", "Detailed Audit Trail", "Overview Summary"} {
			if strings.Contains(tb.HTML, label) {
				t.Fatalf("zone label %q repeated in text block %q", label, tb.HTML)
			}
		}
	}
	if n := len(doc.Blocks); n != 6 {
		t.Fatalf("expected 6 blocks, got %d: %#v", n, doc.Blocks)
	}
}

func TestFormatZoneKeepsInlineHeading(t *testing.T) {
	raw := "**Detailed Audit Trail**\n| Stage No. | Status |\n|---|---|\n|1|Done|\n**Overview Summary**: all stages passed"
	doc := Format(raw)
	last, ok := doc.Blocks[len(doc.Blocks)-1].(TextBlock)
	if !ok {
		t.Fatalf("expected trailing text block, got %T", doc.Blocks[len(doc.Blocks)-1])
	}
	if last.HTML != "<strong>Overview Summary</strong>: all stages passed" {
		t.Fatalf("heading with content on the same line should stay, got %q", last.HTML)
	}
}

func TestFormatWithBankProfile(t *testing.T) {
	doc := FormatWith("Your EMI is ₹12,500.\nRun `status` for *details* and **approval**.", ProfileBank)
	if doc.Layout != LayoutPlain {
		t.Fatalf("expected plain layout, got %s", doc.Layout)
	}
	want := `Your EMI is <span class="currency">₹12,500</span>.` + "\n" +
		`Run <code>status</code> for <em>details</em> and <strong>approval</strong>.`
	if got := doc.Blocks[0].(TextBlock).HTML; got != want {
		t.Fatalf("unexpected html\nwant: %q\ngot:  %q", want, got)
	}

	// Audit rules do not touch bank markup.
	if got := Format("Run `status` for *details*").Blocks[0].(TextBlock).HTML; got != "Run `status` for *details*" {
		t.Fatalf("audit profile changed bank markup: %q", got)
	}
}

func TestFormatWithBankProfileTable(t *testing.T) {
	raw := "Scores for ₹5,00,000 loan:\nRow|Check|Result\n---|---|---\nCredit|*Pass*"
	doc := FormatWith(raw, ProfileBank)
	want := []Block{
		TextBlock{HTML: `Scores for <span class="currency">₹5,00,000</span> loan:`},
		TableBlock{Header: []string{"Row", "Check", "Result"}, Rows: [][]string{{"Credit", "*Pass*", ""}}},
	}
	if diff := cmp.Diff(want, doc.Blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfile(t *testing.T) {
	cases := map[string]Profile{"": ProfileAudit, "audit": ProfileAudit, " Bank ": ProfileBank}
	for in, want := range cases {
		got, err := ParseProfile(in)
		if err != nil || got != want {
			t.Fatalf("ParseProfile(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseProfile("chat"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestFormatTitleComesFirst(t *testing.T) {
	raw := "🧾 **Loan Audit Report**\n\n🧍 Customer Name: Asha\nLoan Type: Home\n" +
		"🔍 Audit steps\n| Stage No. | Auditor |\n| --- | --- |\n| 1 | Ravi |\n\n**Overview Summary**\nApproved."
	doc := Format(raw)

	if len(doc.Blocks) == 0 {
		t.Fatal("expected blocks")
	}
	title, ok := doc.Blocks[0].(TitleBlock)
	if !ok {
		t.Fatalf("first block should be a title, got %T", doc.Blocks[0])
	}
	if title.Text != "🧾 Loan Audit Report" {
		t.Fatalf("unexpected title %q", title.Text)
	}

	var zones []Zone
	for _, b := range doc.Blocks {
		if s, ok := b.(SectionBlock); ok {
			zones = append(zones, s.Zone)
		}
	}
	if diff := cmp.Diff([]Zone{ZoneCustomer, ZoneAuditTrail, ZoneOverview}, zones); diff != "" {
		t.Fatalf("zone order mismatch (-want +got):\n%s", diff)
	}

	tables := doc.Tables()
	if len(tables) != 1 {
		t.Fatalf("expected one table, got %d", len(tables))
	}
	if diff := cmp.Diff([][]string{{"1", "Ravi"}}, tables[0].Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatBareTable(t *testing.T) {
	raw := "Here is the breakdown:\nRow|A|B\n---|---|---\nX|1|2\nY|3\nLet me know if you need more."
	doc := Format(raw)
	if doc.Layout != LayoutTable {
		t.Fatalf("expected table layout, got %s", doc.Layout)
	}

	want := []Block{
		TextBlock{HTML: "<strong>Here is the breakdown:</strong>"},
		TableBlock{
			Header: []string{"Row", "A", "B"},
			Rows:   [][]string{{"X", "1", "2"}, {"Y", "3", ""}},
		},
		TextBlock{HTML: "Let me know if you need more."},
	}
	if diff := cmp.Diff(want, doc.Blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatPlainText(t *testing.T) {
	cases := []string{
		"Hello **world**",
		"",
		"Customer ID: 42\nLoan Type: Personal",
		"### Next steps\nUpload your documents.",
		"🧍 no table here",
	}
	for _, raw := range cases {
		doc := Format(raw)
		if doc.Layout != LayoutPlain {
			t.Fatalf("%q: expected plain layout, got %s", raw, doc.Layout)
		}
		if len(doc.Blocks) != 1 {
			t.Fatalf("%q: expected exactly one block, got %d", raw, len(doc.Blocks))
		}
		if _, ok := doc.Blocks[0].(TextBlock); !ok {
			t.Fatalf("%q: expected a text block, got %T", raw, doc.Blocks[0])
		}
	}

	doc := Format("Hello **world**")
	if got := doc.Blocks[0].(TextBlock).HTML; got != "Hello <strong>world</strong>" {
		t.Fatalf("unexpected html %q", got)
	}
}

func TestFormatLoneHeaderHasNoTable(t *testing.T) {
	for _, raw := range []string{
		"| Stage No. | Status |",
		"| Stage No. | Status |\n|---|---|",
		"intro\n| a | b | c | d |\n\nnothing else",
	} {
		doc := Format(raw)
		if n := len(doc.Tables()); n != 0 {
			t.Fatalf("%q: expected no tables, got %d", raw, n)
		}
		if len(doc.Blocks) == 0 {
			t.Fatalf("%q: expected a fallback block", raw)
		}
	}
}

func TestFormatNormalizesCRLF(t *testing.T) {
	doc := Format("Row|A\r\n---|---\r\nX|1\r\n")
	tables := doc.Tables()
	if len(tables) != 1 {
		t.Fatalf("expected one table, got %d", len(tables))
	}
	if diff := cmp.Diff([]string{"Row", "A"}, tables[0].Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentJSON(t *testing.T) {
	doc := Format(auditReport)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"layout":"structured"`) ||
		!strings.Contains(string(data), `"type":"table","header":["Stage No.","Status"]`) {
		t.Fatalf("unexpected json: %s", data)
	}

	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(doc, back); diff != "" {
		t.Fatalf("document changed after decoding (-want +got):\n%s", diff)
	}
}
