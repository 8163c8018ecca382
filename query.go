package resolva

import (
	"regexp"
	"strings"
	"time"
)

// TimeRange is an optional time window hint attached to a query.
type TimeRange struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

func (r TimeRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Query is a free-text incident description with optional structured hints.
// A Query is immutable once submitted; the engine never modifies it.
type Query struct {
	Text    string    `json:"text"`
	Service string    `json:"service,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
	Range   TimeRange `json:"range,omitzero"`
}

var (
	// "trace_id: abc123", "operation id=deadbeef-..." and similar.
	traceIDPattern = regexp.MustCompile(`(?i)\b(?:trace|operation)[_\s-]?id\s*[:=]?\s*([0-9a-fA-F][0-9a-fA-F-]{7,})`)

	// Bare kebab-case service names like "order-service" or "payment-api".
	kebabServicePattern = regexp.MustCompile(`(?i)\b([a-z][a-z0-9]*(?:-[a-z0-9]+)*-(?:service|api|worker|gateway))\b`)

	// "Payment API", "Checkout service" and similar prose references.
	proseServicePattern = regexp.MustCompile(`\b([A-Z][A-Za-z0-9]*)\s+(API|[Ss]ervice)\b`)
)

// ParseQuery builds a Query from raw text, extracting trace-ID and
// service-name hints. Explicit hints set by the caller always win; this
// only fills what the text itself reveals.
func ParseQuery(text string) Query {
	q := Query{Text: text}

	if m := traceIDPattern.FindStringSubmatch(text); m != nil {
		q.TraceID = m[1]
	}

	if m := kebabServicePattern.FindStringSubmatch(text); m != nil {
		q.Service = strings.ToLower(m[1])
	} else if m := proseServicePattern.FindStringSubmatch(text); m != nil {
		q.Service = strings.ToLower(m[1] + "-" + strings.ToLower(m[2]))
	}

	return q
}
