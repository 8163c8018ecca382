// Package react provides an LLM-driven strategy. Each turn the model is
// shown the query, the tools already called, and the evidence gathered
// so far, and asked for the next action as a JSON decision. When the
// model is unreachable or returns something unusable, the strategy
// falls back to the deterministic rule order instead of failing the
// session.
package react

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/resolva"
	"github.com/m-mizutani/resolva/llm"
)

const systemPrompt = `You are the planner of an incident resolution agent.
Each turn you pick exactly one action. Available actions:
- search_incidents: find past incidents similar to the query. Args: {"query": string, "top_k": int, "service": string(optional)}
- search_resolutions: find resolutions applied to similar incidents. Args: {"query": string, "top_k": int}
- analyze_trace: extract error patterns from a trace. Args: {"trace_id": string}
- get_service_health: check a service's recent incident load. Args: {"service_name": string}
- suggest_resolution: synthesize a resolution suggestion. Args: {"incident_summary": string, "confidence": "low"|"medium"|"high"}
- finish: stop gathering and compose the answer. Args: {}
Respond with a single JSON object: {"action": string, "args": object, "reason": string}.
Do not repeat an action that was already called with the same purpose.
Prefer finish once the evidence looks sufficient.`

// decision is the JSON shape the model is asked for.
type decision struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args"`
	Reason string         `json:"reason"`
}

// Strategy asks an LLM for the next action each turn.
type Strategy struct {
	client llm.Client
}

var _ resolva.Strategy = (*Strategy)(nil)

// New creates a new LLM-driven strategy.
func New(client llm.Client) *Strategy {
	return &Strategy{client: client}
}

// Name returns "react".
func (s *Strategy) Name() string {
	return "react"
}

// Next asks the model for the next action. Model errors and malformed
// decisions degrade to the rule order; they never fail the session.
func (s *Strategy) Next(ctx context.Context, turn *resolva.Turn) (*resolva.Decision, error) {
	resp, err := s.client.Complete(ctx, &llm.Request{
		System: systemPrompt,
		Prompt: turnPrompt(turn),
	})
	if err != nil {
		return resolva.NextByRules(turn), nil
	}

	var d decision
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &d); err != nil {
		return resolva.NextByRules(turn), nil
	}

	switch d.Action {
	case "finish":
		return &resolva.Decision{Finish: true, Note: d.Reason}, nil
	case resolva.ToolSearchIncidents,
		resolva.ToolSearchResolutions,
		resolva.ToolAnalyzeTrace,
		resolva.ToolGetServiceHealth,
		resolva.ToolSuggestResolution:
		args := d.Args
		if args == nil {
			args = map[string]any{}
		}
		return &resolva.Decision{Tool: d.Action, Args: args, Note: d.Reason}, nil
	default:
		return resolva.NextByRules(turn), nil
	}
}

func turnPrompt(turn *resolva.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", turn.Query.Text)
	if turn.Query.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", turn.Query.Service)
	}
	if turn.Query.TraceID != "" {
		fmt.Fprintf(&b, "Trace ID: %s\n", turn.Query.TraceID)
	}
	fmt.Fprintf(&b, "Steps used: %d of %d\n", turn.ActCount, turn.Budget)
	fmt.Fprintf(&b, "Evidence sufficient: %t\n", turn.Sufficient)

	if len(turn.Called) > 0 {
		names := make([]string, 0, len(turn.Called))
		for name := range turn.Called {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("Tools already called:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- %s (%d)\n", name, turn.Called[name])
		}
	}
	if turn.LastFailure != nil {
		fmt.Fprintf(&b, "Last tool call failed: %s: %s\n",
			turn.LastFailure.Tool, turn.LastFailure.Message)
	}

	if len(turn.Evidence) > 0 {
		b.WriteString("Evidence so far:\n")
		for _, ev := range turn.Evidence {
			fmt.Fprintf(&b, "- [%s] score %.2f: %s\n", ev.SourceID, ev.Score, ev.Excerpt)
		}
	} else {
		b.WriteString("No evidence gathered yet.\n")
	}

	b.WriteString("Choose the next action.")
	return b.String()
}

// stripFences removes a Markdown code fence around a JSON payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
