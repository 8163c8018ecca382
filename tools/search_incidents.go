package tools

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
)

// SearchIncidents finds past incidents similar to a query.
type SearchIncidents struct {
	searcher Searcher
}

var _ resolva.Tool = (*SearchIncidents)(nil)

func (t *SearchIncidents) Spec() resolva.ToolSpec {
	return resolva.ToolSpec{
		Name:        resolva.ToolSearchIncidents,
		Description: "Search past incidents similar to the given description. Returns scored incident summaries.",
		Parameters: map[string]*resolva.Parameter{
			"query": {
				Type:        resolva.TypeString,
				Description: "Incident description or error message to search for",
			},
			"top_k": {
				Type:        resolva.TypeInteger,
				Description: "Maximum number of incidents to return",
				Default:     5,
			},
			"service": {
				Type:        resolva.TypeString,
				Description: "Restrict results to one service",
			},
			"severity": {
				Type:        resolva.TypeString,
				Description: "Restrict results to one severity",
				Enum:        []string{"WARNING", "ERROR", "CRITICAL"},
			},
		},
		Required:   []string{"query"},
		Idempotent: true,
	}
}

func (t *SearchIncidents) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	filters := SearchFilters{}
	if v, ok := args["service"].(string); ok {
		filters.Service = v
	}
	if v, ok := args["severity"].(string); ok {
		filters.Severity = v
	}

	hits, err := t.searcher.SearchIncidents(ctx, query, intArg(args, "top_k", 5), filters)
	if err != nil {
		return nil, goerr.Wrap(err, "incident search failed", goerr.V("query", query))
	}

	return map[string]any{
		"results": hitsToResults(hits),
		"count":   len(hits),
	}, nil
}

// intArg reads an integer argument that may arrive as a JSON number.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
