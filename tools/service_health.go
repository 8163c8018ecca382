package tools

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
)

// GetServiceHealth reports a service's recent incident load.
type GetServiceHealth struct {
	health HealthChecker
}

var _ resolva.Tool = (*GetServiceHealth)(nil)

func (t *GetServiceHealth) Spec() resolva.ToolSpec {
	return resolva.ToolSpec{
		Name:        resolva.ToolGetServiceHealth,
		Description: "Report the recent incident load of a service: healthy, degraded, or unhealthy.",
		Parameters: map[string]*resolva.Parameter{
			"service_name": {
				Type:        resolva.TypeString,
				Description: "Service to check",
			},
		},
		Required:   []string{"service_name"},
		Idempotent: true,
	}
}

func (t *GetServiceHealth) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	service, _ := args["service_name"].(string)

	health, err := t.health.ServiceHealth(ctx, service)
	if err != nil {
		return nil, goerr.Wrap(err, "service health check failed", goerr.V("service", service))
	}

	return map[string]any{
		"service":        health.Service,
		"status":         health.Status,
		"incident_count": health.IncidentCount,
		"results":        hitsToResults(health.Incidents),
	}, nil
}
