package document

import (
	"fmt"
	"regexp"
	"strings"
)

// inlineRule is a single textual rewrite applied to prose.
type inlineRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// labels emphasized at the start of a line; the value after them is left as is.
var labels = []string{
	"Customer ID:",
	"Customer Name:",
	"Loan Type:",
	"Requested Amount:",
	"Application Date:",
	"Total Processing Duration:",
	"Application Status:",
}

// auditRules run in order. None of them matches its own output, so
// applying them twice yields the same text.
var auditRules = []inlineRule{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>${1}</strong>"},
	{regexp.MustCompile(`(?m)^### (.*)$`), "<h3>${1}</h3>"},
	{regexp.MustCompile(`(?m)^([^:\n]+:)$`), "<strong>${1}</strong>"},
	{regexp.MustCompile(`(?m)^(` + labelAlternation() + `)(.*)$`), "<strong>${1}</strong>${2}"},
	{regexp.MustCompile(`(?m)^((?:🧾|🧍|🔍).*)$`), "<strong>${1}</strong>"},
}

// bankRules are the emphasis rules of the banking dashboard. A currency
// amount already wrapped in a span is left alone.
var bankRules = []inlineRule{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>${1}</strong>"},
	{regexp.MustCompile(`\*(.*?)\*`), "<em>${1}</em>"},
	{regexp.MustCompile("`(.*?)`"), "<code>${1}</code>"},
	{regexp.MustCompile(`(^|[^>])₹(\d+(?:,\d+)*(?:\.\d+)?)`), `${1}<span class="currency">₹${2}</span>`},
}

// Profile selects the inline rules applied to prose. Zone segmentation and
// table detection do not depend on it.
type Profile string

const (
	// ProfileAudit emphasizes audit report labels, headers and marker lines.
	ProfileAudit Profile = "audit"
	// ProfileBank renders bold, italic, code and rupee amounts.
	ProfileBank Profile = "bank"
)

// Profiles lists the known profiles.
var Profiles = []Profile{ProfileAudit, ProfileBank}

// ParseProfile resolves a profile name. An empty name means ProfileAudit.
func ParseProfile(name string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProfileAudit:
		return ProfileAudit, nil
	case ProfileBank:
		return ProfileBank, nil
	default:
		return "", fmt.Errorf("unknown profile %q", name)
	}
}

func (p Profile) rules() []inlineRule {
	if p == ProfileBank {
		return bankRules
	}
	return auditRules
}

func labelAlternation() string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return strings.Join(quoted, "|")
}

// FormatInline rewrites bold markers, level-3 headers, colon-terminated
// lines, known field labels and marker emoji lines into <strong>/<h3> runs.
// It does not escape HTML.
func FormatInline(text string) string {
	return FormatInlineWith(text, ProfileAudit)
}

// FormatInlineWith applies the inline rules of profile p.
func FormatInlineWith(text string, p Profile) string {
	for _, rule := range p.rules() {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

var headingPrefix = regexp.MustCompile(`^#{1,6}\s+`)

// plainText drops emphasis markers and heading prefixes, trims every line
// and removes blank lines.
func plainText(text string) string {
	var out []string
	for _, line := range splitLines(text) {
		line = strings.ReplaceAll(line, "**", "")
		line = headingPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
