package tools

import (
	"context"
	"strings"

	"github.com/m-mizutani/resolva"
)

// SuggestResolution synthesizes a remediation suggestion from an
// incident summary. It is a local heuristic keyed on common failure
// classes and never calls a backend.
type SuggestResolution struct{}

var _ resolva.Tool = (*SuggestResolution)(nil)

func (t *SuggestResolution) Spec() resolva.ToolSpec {
	return resolva.ToolSpec{
		Name:        resolva.ToolSuggestResolution,
		Description: "Synthesize a remediation suggestion from an incident summary.",
		Parameters: map[string]*resolva.Parameter{
			"incident_summary": {
				Type:        resolva.TypeString,
				Description: "Summary of the incident and the evidence gathered so far",
			},
			"confidence": {
				Type:        resolva.TypeString,
				Description: "Caller's confidence in the summary",
				Enum:        []string{"low", "medium", "high"},
				Default:     "medium",
			},
		},
		Required:   []string{"incident_summary"},
		Idempotent: true,
	}
}

func (t *SuggestResolution) Run(_ context.Context, args map[string]any) (map[string]any, error) {
	summary, _ := args["incident_summary"].(string)
	confidence, _ := args["confidence"].(string)
	if confidence == "" {
		confidence = "medium"
	}

	return map[string]any{
		"suggestion": suggestFor(summary),
		"confidence": confidence,
	}, nil
}

func suggestFor(summary string) string {
	lower := strings.ToLower(summary)
	switch {
	case strings.Contains(lower, "timeout"):
		return "Check downstream latency and recent timeout configuration changes. " +
			"Raise the client timeout only after confirming the downstream is healthy, " +
			"and verify connection pool saturation on the calling service."
	case strings.Contains(lower, "connection"):
		return "Verify network reachability and connection pool limits between the " +
			"affected services. Look for recent deploys that changed endpoints, DNS, " +
			"or TLS configuration."
	case strings.Contains(lower, "500"), strings.Contains(lower, "internal server error"):
		return "Inspect the error logs of the failing service around the incident window. " +
			"Correlate with recent deploys and roll back the latest change if the errors " +
			"started right after it."
	case strings.Contains(lower, "memory"), strings.Contains(lower, "oom"):
		return "Check memory usage trends and recent limit changes. Restart the affected " +
			"instances to recover, then investigate the allocation growth before raising limits."
	default:
		return "No known failure class matched. Review the gathered evidence, compare " +
			"with the most similar past incident, and apply its resolution steps cautiously."
	}
}
