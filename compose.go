package resolva

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva/llm"
)

const composeSystemPrompt = `You are an SRE assistant that writes incident resolution guidance.
You are given an incident description and evidence retrieved from past incidents and resolutions.
Write a concise resolution narrative grounded ONLY in the given evidence.
Reference evidence by its source ID in square brackets, e.g. [INC-1042].
If the evidence points at a likely root cause, state it first, then the remediation steps.
Do not invent incidents, services, or metrics that are not in the evidence.`

// maxComposeEvidence bounds how many evidence excerpts go into the prompt.
const maxComposeEvidence = 8

func (x *Engine) composeAnswer(ctx context.Context, query Query, items []Evidence) (string, error) {
	resp, err := x.llm.Complete(ctx, &llm.Request{
		System: composeSystemPrompt,
		Prompt: composePrompt(query, items),
	})
	if err != nil {
		return "", goerr.Wrap(err, "completion failed")
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", goerr.New("completion returned empty text")
	}
	return text, nil
}

func composePrompt(query Query, items []Evidence) string {
	var b strings.Builder
	b.WriteString("Incident:\n")
	b.WriteString(query.Text)
	b.WriteString("\n")
	if query.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", query.Service)
	}
	if query.TraceID != "" {
		fmt.Fprintf(&b, "Trace ID: %s\n", query.TraceID)
	}

	b.WriteString("\nEvidence:\n")
	n := len(items)
	if n > maxComposeEvidence {
		n = maxComposeEvidence
	}
	for _, ev := range items[:n] {
		fmt.Fprintf(&b, "- [%s] (score %.2f, via %s) %s\n", ev.SourceID, ev.Score, ev.Tool, ev.Excerpt)
	}

	b.WriteString("\nWrite the resolution guidance now.")
	return b.String()
}

// fallbackNarrative builds an answer without the LLM when the session
// ran out of budget before the evidence became sufficient. It only
// reports what was actually gathered and says so explicitly.
func fallbackNarrative(query Query, items []Evidence) string {
	var b strings.Builder
	b.WriteString("The investigation hit its step budget before gathering enough evidence ")
	b.WriteString("for a confident resolution. Treat the following as low-confidence leads.\n")

	fmt.Fprintf(&b, "\nQuery: %s\n", query.Text)
	if query.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", query.Service)
	}

	if len(items) == 0 {
		b.WriteString("\nNo related incidents or resolutions were found. ")
		b.WriteString("Consider widening the search terms or checking recent deploys and dependency health manually.")
		return b.String()
	}

	b.WriteString("\nPartially matching references:\n")
	for _, ev := range items {
		fmt.Fprintf(&b, "- [%s] (score %.2f) %s\n", ev.SourceID, ev.Score, ev.Excerpt)
	}
	b.WriteString("\nReview these references manually before acting on them.")
	return b.String()
}
