package document

import "strings"

// Zones holds the text of each region of an audit-style reply. Empty strings
// mean the region was not found.
type Zones struct {
	Title      string
	Customer   string
	AuditTrail string
	Overview   string
}

// Empty reports whether no zone was found.
func (z Zones) Empty() bool {
	return z.Title == "" && z.Customer == "" && z.AuditTrail == "" && z.Overview == ""
}

// zoneRule selects a zone starting at the first occurrence of start and
// running up to the earliest stop marker after it, or to the end of input.
// With needsPipe set, a '|' must follow start and the stop search begins
// after that pipe.
type zoneRule struct {
	start     string
	needsPipe bool
	stops     []string
}

func (r zoneRule) match(raw string) (string, bool) {
	i := strings.Index(raw, r.start)
	if i < 0 {
		return "", false
	}
	from := i + len(r.start)
	if r.needsPipe {
		p := strings.IndexByte(raw[from:], '|')
		if p < 0 {
			return "", false
		}
		from += p + 1
	}
	end := len(raw)
	if j := indexAny(raw[from:], r.stops); j >= 0 {
		end = from + j
	}
	return raw[i:end], true
}

// titleStops ends the title: the title is everything before the first of them.
var titleStops = []string{"**Customer Information**", "🧍", "Customer ID:", "Customer Name:"}

// Rule lists are evaluated in order; the first rule that matches wins.
var (
	customerRules = []zoneRule{
		{start: "**Customer Information**", stops: []string{"**Detailed Audit Trail**", "🔍"}},
		{start: "🧍", stops: []string{"🔍"}},
		{start: "Customer ID:", stops: []string{"**Detailed Audit Trail**", "🔍", "Stage No."}},
	}
	auditTrailRules = []zoneRule{
		{start: "**Detailed Audit Trail**", needsPipe: true, stops: overviewMarkers},
		{start: "🔍", needsPipe: true, stops: overviewMarkers},
		{start: "| Stage No.", stops: overviewMarkers},
	}
	overviewRules = []zoneRule{
		{start: "**Overview Summary**", stops: overviewStops},
		{start: "Overview Summary", stops: overviewStops},
		{start: "**Overview**", stops: overviewStops},
	}

	overviewMarkers = []string{"**Overview", "Overview Summary"}
	overviewStops   = []string{"\n\n\n", "\n**"}
)

// Segment splits raw into its title, customer, audit trail and overview
// zones. Zones are found independently of each other.
func Segment(raw string) Zones {
	var z Zones
	if i := indexAny(raw, titleStops); i >= 0 {
		z.Title = strings.TrimSpace(raw[:i])
	}
	z.Customer = firstMatch(raw, customerRules)
	z.AuditTrail = firstMatch(raw, auditTrailRules)
	z.Overview = firstMatch(raw, overviewRules)
	return z
}

func firstMatch(raw string, rules []zoneRule) string {
	for _, rule := range rules {
		if text, ok := rule.match(raw); ok {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		}
	}
	return ""
}

// indexAny returns the smallest index at which any of subs occurs in s, or -1.
func indexAny(s string, subs []string) int {
	best := -1
	for _, sub := range subs {
		if i := strings.Index(s, sub); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
