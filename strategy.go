package resolva

import (
	"context"
	"fmt"
)

// Strategy decides the next action of a resolution session. Implementations
// must be deterministic for a fixed input: the same query and turn state
// always yield the same decision.
type Strategy interface {
	// Name identifies the strategy; it is recorded on every session it runs.
	Name() string

	// Next inspects the current turn and returns the next decision.
	Next(ctx context.Context, turn *Turn) (*Decision, error)
}

// Turn is the state a strategy sees when choosing the next action.
type Turn struct {
	Query      Query
	ActCount   int
	Budget     int
	Sufficient bool
	Evidence   []Evidence

	// Called maps tool name to the number of times it was invoked.
	Called map[string]int

	// LastFailure is set when the previous act step ended in a ToolFailure.
	LastFailure *ToolFailure
}

// Decision is the outcome of one think step: either a tool invocation or
// the decision to stop gathering and respond.
type Decision struct {
	Tool   string
	Args   map[string]any
	Finish bool
	Note   string
}

// defaultStrategy implements the fixed rule order: search incidents first,
// widen to resolutions when results are weak, analyze a trace when the
// query names one, check service health when a service is known, and ask
// for a resolution suggestion once the evidence is sufficient.
// Note: This implementation should be kept in sync with strategy/rules.
type defaultStrategy struct{}

func newDefaultStrategy() *defaultStrategy {
	return &defaultStrategy{}
}

func (s *defaultStrategy) Name() string {
	return "rules"
}

func (s *defaultStrategy) Next(ctx context.Context, turn *Turn) (*Decision, error) {
	return NextByRules(turn), nil
}

// NextByRules is the deterministic rule order shared by the built-in
// strategy and used as the fallback path of LLM-guided strategies.
func NextByRules(turn *Turn) *Decision {
	q := turn.Query

	if turn.Called[ToolSearchIncidents] == 0 {
		args := map[string]any{"query": q.Text, "top_k": 5}
		if q.Service != "" {
			args["service"] = q.Service
		}
		return &Decision{
			Tool: ToolSearchIncidents,
			Args: args,
			Note: "search for similar past incidents",
		}
	}

	if q.TraceID != "" && turn.Called[ToolAnalyzeTrace] == 0 {
		return &Decision{
			Tool: ToolAnalyzeTrace,
			Args: map[string]any{"trace_id": q.TraceID},
			Note: "query references a trace, analyze it",
		}
	}

	if !turn.Sufficient && turn.Called[ToolSearchResolutions] == 0 {
		return &Decision{
			Tool: ToolSearchResolutions,
			Args: map[string]any{"query": q.Text, "top_k": 3},
			Note: "incident matches are weak, look for past resolutions",
		}
	}

	if q.Service != "" && turn.Called[ToolGetServiceHealth] == 0 {
		return &Decision{
			Tool: ToolGetServiceHealth,
			Args: map[string]any{"service_name": q.Service},
			Note: "check current health of " + q.Service,
		}
	}

	if turn.Sufficient && turn.Called[ToolSuggestResolution] == 0 {
		confidence := "medium"
		if len(turn.Evidence) > 0 && turn.Evidence[0].Score > 0.8 {
			confidence = "high"
		}
		return &Decision{
			Tool: ToolSuggestResolution,
			Args: map[string]any{
				"incident_summary": q.Text,
				"confidence":       confidence,
			},
			Note: "evidence is sufficient, synthesize resolution steps",
		}
	}

	return &Decision{
		Finish: true,
		Note:   fmt.Sprintf("no further actions after %d tool calls", turn.ActCount),
	}
}
