package retrieval

import (
	"regexp"
	"time"

	"github.com/m-mizutani/resolva/tools"
)

var (
	errorLinePattern = regexp.MustCompile(`(?i)\b(exception|error|timeout|failure)\b[^\n.]*`)
	httpCodePattern  = regexp.MustCompile(`\bHTTP[ /]?[45]\d{2}\b`)
)

// parseHits converts one class block of a GraphQL Get response into hits.
func (c *Client) parseHits(data any, class string) []tools.Hit {
	get, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	objects, ok := get[class].([]any)
	if !ok {
		return nil
	}

	hits := make([]tools.Hit, 0, len(objects))
	for _, raw := range objects {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		hit := tools.Hit{
			Service:  stringField(obj, "service"),
			Severity: stringField(obj, "severity"),
			Incident: stringField(obj, "incidentId"),
		}

		switch class {
		case c.resolutionClass:
			hit.ID = stringField(obj, "resolutionId")
			hit.Excerpt = stringField(obj, "steps")
		default:
			hit.ID = stringField(obj, "incidentId")
			hit.Excerpt = stringField(obj, "description")
			hit.Incident = ""
		}
		if hit.ID == "" {
			continue
		}

		if additional, ok := obj["_additional"].(map[string]any); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				hit.Score = certainty
			}
		}
		if occurred := stringField(obj, "occurredAt"); occurred != "" {
			if ts, err := time.Parse(time.RFC3339, occurred); err == nil {
				hit.Occurred = ts
			}
		}

		hits = append(hits, hit)
	}
	return hits
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// extractErrorPatterns pulls error-shaped lines and HTTP failure codes
// out of a trace or incident description.
func extractErrorPatterns(text string) []string {
	seen := map[string]bool{}
	var patterns []string
	add := func(matches []string) {
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				patterns = append(patterns, m)
			}
		}
	}
	add(errorLinePattern.FindAllString(text, -1))
	add(httpCodePattern.FindAllString(text, -1))
	return patterns
}
