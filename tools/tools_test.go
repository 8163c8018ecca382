package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resolva"
	"github.com/m-mizutani/resolva/tools"
)

type stubBackend struct {
	incidents   []tools.Hit
	resolutions []tools.Hit
	lastTopK    int
	lastFilters tools.SearchFilters
	health      *tools.ServiceHealth
	trace       *tools.TraceSummary
}

func (s *stubBackend) SearchIncidents(_ context.Context, _ string, topK int, f tools.SearchFilters) ([]tools.Hit, error) {
	s.lastTopK = topK
	s.lastFilters = f
	return s.incidents, nil
}

func (s *stubBackend) SearchResolutions(_ context.Context, _ string, topK int) ([]tools.Hit, error) {
	s.lastTopK = topK
	return s.resolutions, nil
}

func (s *stubBackend) AnalyzeTrace(_ context.Context, traceID, incidentID string) (*tools.TraceSummary, error) {
	if s.trace != nil {
		return s.trace, nil
	}
	return &tools.TraceSummary{TraceID: traceID, IncidentID: incidentID}, nil
}

func (s *stubBackend) ServiceHealth(_ context.Context, service string) (*tools.ServiceHealth, error) {
	if s.health != nil {
		return s.health, nil
	}
	return &tools.ServiceHealth{Service: service, Status: "healthy"}, nil
}

func registryFor(t *testing.T, backend *stubBackend) *resolva.Registry {
	t.Helper()
	return gt.R1(resolva.NewRegistry(tools.All(backend, backend, backend)...)).NoError(t)
}

func TestAllRegistersFiveTools(t *testing.T) {
	registry := registryFor(t, &stubBackend{})
	specs := registry.Specs()
	gt.Array(t, specs).Length(5)

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
		gt.True(t, spec.Idempotent)
		gt.NoError(t, spec.Validate())
	}
	gt.Equal(t, names, []string{
		resolva.ToolAnalyzeTrace,
		resolva.ToolGetServiceHealth,
		resolva.ToolSearchIncidents,
		resolva.ToolSearchResolutions,
		resolva.ToolSuggestResolution,
	})
}

func TestSearchIncidentsRun(t *testing.T) {
	backend := &stubBackend{
		incidents: []tools.Hit{
			{ID: "INC-1", Score: 0.8, Excerpt: "pool exhausted", Service: "order-service", Severity: "ERROR"},
		},
	}
	registry := registryFor(t, backend)
	found := gt.R1(registry.Lookup(resolva.ToolSearchIncidents)).NoError(t)

	result, err := found.Run(context.Background(), map[string]any{
		"query":   "pool exhausted",
		"top_k":   2,
		"service": "order-service",
	})
	gt.NoError(t, err)
	gt.Equal(t, backend.lastTopK, 2)
	gt.Equal(t, backend.lastFilters.Service, "order-service")
	gt.Equal(t, result["count"], 1)

	hits := result["results"].([]any)
	first := hits[0].(map[string]any)
	gt.Equal(t, first["id"], "INC-1")
	gt.Equal(t, first["score"], 0.8)
	gt.Equal(t, first["severity"], "ERROR")
}

func TestSearchIncidentsTruncatesExcerpt(t *testing.T) {
	backend := &stubBackend{
		incidents: []tools.Hit{{ID: "INC-1", Score: 0.8, Excerpt: strings.Repeat("x", 2000)}},
	}
	registry := registryFor(t, backend)
	found := gt.R1(registry.Lookup(resolva.ToolSearchIncidents)).NoError(t)

	result, err := found.Run(context.Background(), map[string]any{"query": "q"})
	gt.NoError(t, err)

	first := result["results"].([]any)[0].(map[string]any)
	gt.Equal(t, len(first["excerpt"].(string)), 500)
}

func TestSearchIncidentsTruncatesOnRuneBoundary(t *testing.T) {
	backend := &stubBackend{
		incidents: []tools.Hit{{ID: "INC-1", Score: 0.8, Excerpt: strings.Repeat("é", 600)}},
	}
	registry := registryFor(t, backend)
	found := gt.R1(registry.Lookup(resolva.ToolSearchIncidents)).NoError(t)

	result, err := found.Run(context.Background(), map[string]any{"query": "q"})
	gt.NoError(t, err)

	excerpt := result["results"].([]any)[0].(map[string]any)["excerpt"].(string)
	gt.True(t, utf8.ValidString(excerpt))
	gt.True(t, len(excerpt) <= 500)
	gt.N(t, len(excerpt)).Greater(0)
}

func TestSearchResolutionsFilterByIncident(t *testing.T) {
	backend := &stubBackend{
		resolutions: []tools.Hit{
			{ID: "RES-1", Score: 0.9, Excerpt: "restart workers", Incident: "INC-1"},
			{ID: "RES-2", Score: 0.7, Excerpt: "rollback deploy", Incident: "INC-2"},
		},
	}
	registry := registryFor(t, backend)
	found := gt.R1(registry.Lookup(resolva.ToolSearchResolutions)).NoError(t)

	result, err := found.Run(context.Background(), map[string]any{
		"query":        "restart",
		"incident_ids": []any{"INC-2"},
	})
	gt.NoError(t, err)
	gt.Equal(t, result["count"], 1)

	first := result["resolutions"].([]any)[0].(map[string]any)
	gt.Equal(t, first["id"], "RES-2")
	gt.Equal(t, first["incident_id"], "INC-2")
}

func TestAnalyzeTraceRequiresIdentifier(t *testing.T) {
	registry := registryFor(t, &stubBackend{})
	found := gt.R1(registry.Lookup(resolva.ToolAnalyzeTrace)).NoError(t)

	_, err := found.Run(context.Background(), map[string]any{})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, resolva.ErrInvalidArgument))
}

func TestAnalyzeTraceRun(t *testing.T) {
	backend := &stubBackend{
		trace: &tools.TraceSummary{
			TraceID:       "cafebabe0001",
			IncidentID:    "INC-9",
			ErrorPatterns: []string{"Timeout calling inventory", "HTTP 503"},
			Excerpt:       "inventory lookup timed out",
			Score:         0.66,
		},
	}
	registry := registryFor(t, backend)
	found := gt.R1(registry.Lookup(resolva.ToolAnalyzeTrace)).NoError(t)

	result, err := found.Run(context.Background(), map[string]any{"trace_id": "cafebabe0001"})
	gt.NoError(t, err)
	gt.Equal(t, result["trace_id"], "cafebabe0001")
	gt.Equal(t, result["incident_id"], "INC-9")
	gt.Array(t, result["error_patterns"].([]any)).Length(2)

	// The analyzed incident is surfaced as scored evidence.
	items := resolva.ExtractEvidence(resolva.ToolAnalyzeTrace, result)
	gt.Array(t, items).Length(1)
	gt.Equal(t, items[0].SourceID, "INC-9")
	gt.Equal(t, items[0].Score, 0.66)
}

func TestGetServiceHealthRun(t *testing.T) {
	backend := &stubBackend{
		health: &tools.ServiceHealth{
			Service:       "order-service",
			Status:        "degraded",
			IncidentCount: 2,
			Incidents:     []tools.Hit{{ID: "INC-1", Score: 0.5, Excerpt: "pool exhausted"}},
		},
	}
	registry := registryFor(t, backend)
	found := gt.R1(registry.Lookup(resolva.ToolGetServiceHealth)).NoError(t)

	result, err := found.Run(context.Background(), map[string]any{"service_name": "order-service"})
	gt.NoError(t, err)
	gt.Equal(t, result["status"], "degraded")
	gt.Equal(t, result["incident_count"], 2)
}

func TestSuggestResolution(t *testing.T) {
	registry := registryFor(t, &stubBackend{})
	found := gt.R1(registry.Lookup(resolva.ToolSuggestResolution)).NoError(t)

	cases := map[string]struct {
		summary string
		keyword string
	}{
		"timeout":    {"downstream timeout storm on checkout", "timeout"},
		"connection": {"connection refused from payment gateway", "connection pool"},
		"http500":    {"sudden spike of 500 responses", "error logs"},
		"memory":     {"pods OOM killed after deploy", "memory"},
		"unknown":    {"everything is weird", "gathered evidence"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := found.Run(context.Background(), map[string]any{
				"incident_summary": tc.summary,
			})
			gt.NoError(t, err)
			gt.S(t, result["suggestion"].(string)).Contains(tc.keyword)
			gt.Equal(t, result["confidence"], "medium")
		})
	}
}
