// Package tools implements the diagnostic tools the resolution engine
// can call: incident and resolution search, trace analysis, service
// health, and resolution suggestion. The tools talk to their backends
// through small interfaces so retrieval stores and tests can plug in.
package tools

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/resolva"
)

// maxExcerptLen bounds the excerpt size returned to the engine.
const maxExcerptLen = 500

// Hit is one scored search result from an incident or resolution store.
type Hit struct {
	ID       string
	Score    float64
	Excerpt  string
	Service  string
	Severity string
	Occurred time.Time

	// Incident links a resolution hit back to the incident it resolved.
	Incident string
}

// SearchFilters narrows a search to a service or severity.
type SearchFilters struct {
	Service  string
	Severity string
}

// Searcher finds past incidents and their resolutions.
type Searcher interface {
	SearchIncidents(ctx context.Context, query string, topK int, filters SearchFilters) ([]Hit, error)
	SearchResolutions(ctx context.Context, query string, topK int) ([]Hit, error)
}

// TraceSummary is the outcome of analyzing one trace.
type TraceSummary struct {
	TraceID       string
	IncidentID    string
	ErrorPatterns []string
	Excerpt       string
	Score         float64
}

// TraceAnalyzer extracts error patterns from a recorded trace.
type TraceAnalyzer interface {
	AnalyzeTrace(ctx context.Context, traceID, incidentID string) (*TraceSummary, error)
}

// ServiceHealth is the recent incident load of one service.
type ServiceHealth struct {
	Service       string
	Status        string
	IncidentCount int
	Incidents     []Hit
}

// HealthChecker reports a service's recent incident load.
type HealthChecker interface {
	ServiceHealth(ctx context.Context, service string) (*ServiceHealth, error)
}

// All returns the full tool set wired to the given backends.
func All(searcher Searcher, analyzer TraceAnalyzer, health HealthChecker) []resolva.Tool {
	return []resolva.Tool{
		&SearchIncidents{searcher: searcher},
		&SearchResolutions{searcher: searcher},
		&AnalyzeTrace{analyzer: analyzer},
		&GetServiceHealth{health: health},
		&SuggestResolution{},
	}
}

func truncate(s string) string {
	if len(s) <= maxExcerptLen {
		return s
	}
	cut := maxExcerptLen
	// back up to a rune boundary so a multibyte character is never split
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func hitsToResults(hits []Hit) []any {
	results := make([]any, 0, len(hits))
	for _, hit := range hits {
		entry := map[string]any{
			"id":      hit.ID,
			"score":   hit.Score,
			"excerpt": truncate(hit.Excerpt),
		}
		if hit.Service != "" {
			entry["service"] = hit.Service
		}
		if hit.Severity != "" {
			entry["severity"] = hit.Severity
		}
		if hit.Incident != "" {
			entry["incident_id"] = hit.Incident
		}
		if !hit.Occurred.IsZero() {
			entry["occurred_at"] = hit.Occurred.Format(time.RFC3339)
		}
		results = append(results, entry)
	}
	return results
}
