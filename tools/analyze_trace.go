package tools

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
)

// AnalyzeTrace extracts error patterns from a recorded trace.
type AnalyzeTrace struct {
	analyzer TraceAnalyzer
}

var _ resolva.Tool = (*AnalyzeTrace)(nil)

func (t *AnalyzeTrace) Spec() resolva.ToolSpec {
	return resolva.ToolSpec{
		Name:        resolva.ToolAnalyzeTrace,
		Description: "Analyze a recorded trace and extract its error patterns. Provide a trace ID or an incident ID.",
		Parameters: map[string]*resolva.Parameter{
			"trace_id": {
				Type:        resolva.TypeString,
				Description: "Trace identifier to analyze",
			},
			"incident_id": {
				Type:        resolva.TypeString,
				Description: "Incident whose trace should be analyzed",
			},
		},
		Idempotent: true,
	}
}

func (t *AnalyzeTrace) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	traceID, _ := args["trace_id"].(string)
	incidentID, _ := args["incident_id"].(string)
	if traceID == "" && incidentID == "" {
		return nil, goerr.Wrap(resolva.ErrInvalidArgument, "either trace_id or incident_id is required")
	}

	summary, err := t.analyzer.AnalyzeTrace(ctx, traceID, incidentID)
	if err != nil {
		return nil, goerr.Wrap(err, "trace analysis failed",
			goerr.V("trace_id", traceID), goerr.V("incident_id", incidentID))
	}

	patterns := make([]any, 0, len(summary.ErrorPatterns))
	for _, p := range summary.ErrorPatterns {
		patterns = append(patterns, p)
	}

	result := map[string]any{
		"trace_id":       summary.TraceID,
		"error_patterns": patterns,
	}
	if summary.IncidentID != "" {
		result["incident_id"] = summary.IncidentID
	}
	if summary.Excerpt != "" {
		result["results"] = []any{map[string]any{
			"id":      summary.IncidentID,
			"score":   summary.Score,
			"excerpt": truncate(summary.Excerpt),
		}}
	}
	return result, nil
}
