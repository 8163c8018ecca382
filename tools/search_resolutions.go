package tools

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
)

// SearchResolutions finds resolutions that were applied to similar incidents.
type SearchResolutions struct {
	searcher Searcher
}

var _ resolva.Tool = (*SearchResolutions)(nil)

func (t *SearchResolutions) Spec() resolva.ToolSpec {
	return resolva.ToolSpec{
		Name:        resolva.ToolSearchResolutions,
		Description: "Search resolutions applied to incidents similar to the given description.",
		Parameters: map[string]*resolva.Parameter{
			"query": {
				Type:        resolva.TypeString,
				Description: "Incident description to find resolutions for",
			},
			"incident_ids": {
				Type:        resolva.TypeArray,
				Description: "Restrict results to resolutions of these incidents",
				Items:       &resolva.Parameter{Type: resolva.TypeString},
			},
			"top_k": {
				Type:        resolva.TypeInteger,
				Description: "Maximum number of resolutions to return",
				Default:     3,
			},
		},
		Required:   []string{"query"},
		Idempotent: true,
	}
}

func (t *SearchResolutions) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)

	hits, err := t.searcher.SearchResolutions(ctx, query, intArg(args, "top_k", 3))
	if err != nil {
		return nil, goerr.Wrap(err, "resolution search failed", goerr.V("query", query))
	}

	if ids := stringSlice(args["incident_ids"]); len(ids) > 0 {
		hits = filterByIncident(hits, ids)
	}

	return map[string]any{
		"resolutions": hitsToResults(hits),
		"count":       len(hits),
	}, nil
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func filterByIncident(hits []Hit, ids []string) []Hit {
	keep := map[string]bool{}
	for _, id := range ids {
		keep[id] = true
	}
	out := make([]Hit, 0, len(hits))
	for _, hit := range hits {
		if keep[hit.Incident] {
			out = append(out, hit)
		}
	}
	return out
}
