// Package retrieval backs the diagnostic tools with a Weaviate vector
// store. Incidents and resolutions are stored as separate classes and
// searched with near-text queries; scores are Weaviate certainties.
package retrieval

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
	"github.com/m-mizutani/resolva/tools"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

const (
	defaultIncidentClass   = "Incident"
	defaultResolutionClass = "Resolution"

	// healthWindow is how far back service health looks for incidents.
	healthWindow = 24 * time.Hour
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithScheme sets the connection scheme. Defaults to "http".
func WithScheme(scheme string) Option {
	return func(c *Client) {
		c.scheme = scheme
	}
}

// WithIncidentClass overrides the incident class name.
func WithIncidentClass(name string) Option {
	return func(c *Client) {
		c.incidentClass = name
	}
}

// WithResolutionClass overrides the resolution class name.
func WithResolutionClass(name string) Option {
	return func(c *Client) {
		c.resolutionClass = name
	}
}

// Client implements the tool backends on top of a Weaviate instance.
type Client struct {
	client          *weaviate.Client
	scheme          string
	incidentClass   string
	resolutionClass string
}

var (
	_ tools.Searcher      = (*Client)(nil)
	_ tools.TraceAnalyzer = (*Client)(nil)
	_ tools.HealthChecker = (*Client)(nil)
)

// New creates a Client connected to the Weaviate instance at host.
func New(host string, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, goerr.New("weaviate host is required")
	}

	c := &Client{
		scheme:          "http",
		incidentClass:   defaultIncidentClass,
		resolutionClass: defaultResolutionClass,
	}
	for _, opt := range opts {
		opt(c)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   host,
		Scheme: c.scheme,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create weaviate client", goerr.V("host", host))
	}
	c.client = client
	return c, nil
}

// SearchIncidents finds incidents similar to the query.
func (c *Client) SearchIncidents(ctx context.Context, query string, topK int, f tools.SearchFilters) ([]tools.Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	builder := c.client.GraphQL().Get().
		WithClassName(c.incidentClass).
		WithFields(
			graphql.Field{Name: "incidentId"},
			graphql.Field{Name: "description"},
			graphql.Field{Name: "service"},
			graphql.Field{Name: "severity"},
			graphql.Field{Name: "occurredAt"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithNearText(c.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})).
		WithLimit(topK)

	if where := incidentFilter(f); where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, resolva.Transient(goerr.Wrap(err, "incident search request failed"))
	}
	if len(result.Errors) > 0 {
		return nil, goerr.New("incident search rejected",
			goerr.V("message", result.Errors[0].Message))
	}

	return c.parseHits(result.Data["Get"], c.incidentClass), nil
}

// SearchResolutions finds resolutions of incidents similar to the query.
func (c *Client) SearchResolutions(ctx context.Context, query string, topK int) ([]tools.Hit, error) {
	if topK <= 0 {
		topK = 3
	}

	result, err := c.client.GraphQL().Get().
		WithClassName(c.resolutionClass).
		WithFields(
			graphql.Field{Name: "resolutionId"},
			graphql.Field{Name: "incidentId"},
			graphql.Field{Name: "steps"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithNearText(c.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, resolva.Transient(goerr.Wrap(err, "resolution search request failed"))
	}
	if len(result.Errors) > 0 {
		return nil, goerr.New("resolution search rejected",
			goerr.V("message", result.Errors[0].Message))
	}

	return c.parseHits(result.Data["Get"], c.resolutionClass), nil
}

// AnalyzeTrace finds the incident recorded for a trace and extracts its
// error patterns.
func (c *Client) AnalyzeTrace(ctx context.Context, traceID, incidentID string) (*tools.TraceSummary, error) {
	where := filters.Where()
	switch {
	case traceID != "":
		where = where.WithPath([]string{"traceId"}).
			WithOperator(filters.Equal).
			WithValueString(traceID)
	case incidentID != "":
		where = where.WithPath([]string{"incidentId"}).
			WithOperator(filters.Equal).
			WithValueString(incidentID)
	default:
		return nil, goerr.Wrap(resolva.ErrInvalidArgument, "either trace_id or incident_id is required")
	}

	result, err := c.client.GraphQL().Get().
		WithClassName(c.incidentClass).
		WithFields(
			graphql.Field{Name: "incidentId"},
			graphql.Field{Name: "traceId"},
			graphql.Field{Name: "description"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, resolva.Transient(goerr.Wrap(err, "trace lookup request failed"))
	}
	if len(result.Errors) > 0 {
		return nil, goerr.New("trace lookup rejected",
			goerr.V("message", result.Errors[0].Message))
	}

	hits := c.parseHits(result.Data["Get"], c.incidentClass)
	if len(hits) == 0 {
		return &tools.TraceSummary{TraceID: traceID, IncidentID: incidentID}, nil
	}

	hit := hits[0]
	return &tools.TraceSummary{
		TraceID:       traceID,
		IncidentID:    hit.ID,
		ErrorPatterns: extractErrorPatterns(hit.Excerpt),
		Excerpt:       hit.Excerpt,
		Score:         hit.Score,
	}, nil
}

// ServiceHealth derives a service's status from its recent incident count.
func (c *Client) ServiceHealth(ctx context.Context, service string) (*tools.ServiceHealth, error) {
	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"service"}).
				WithOperator(filters.Equal).
				WithValueString(service),
			filters.Where().
				WithPath([]string{"occurredAt"}).
				WithOperator(filters.GreaterThan).
				WithValueDate(time.Now().Add(-healthWindow)),
		})

	result, err := c.client.GraphQL().Get().
		WithClassName(c.incidentClass).
		WithFields(
			graphql.Field{Name: "incidentId"},
			graphql.Field{Name: "description"},
			graphql.Field{Name: "severity"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithWhere(where).
		WithLimit(20).
		Do(ctx)
	if err != nil {
		return nil, resolva.Transient(goerr.Wrap(err, "service health request failed"))
	}
	if len(result.Errors) > 0 {
		return nil, goerr.New("service health query rejected",
			goerr.V("message", result.Errors[0].Message))
	}

	incidents := c.parseHits(result.Data["Get"], c.incidentClass)
	return &tools.ServiceHealth{
		Service:       service,
		Status:        healthStatus(len(incidents)),
		IncidentCount: len(incidents),
		Incidents:     incidents,
	}, nil
}

// incidentFilter builds a where clause from search filters, or nil when
// no filter is set.
func incidentFilter(f tools.SearchFilters) *filters.WhereBuilder {
	var clauses []*filters.WhereBuilder
	if f.Service != "" {
		clauses = append(clauses, filters.Where().
			WithPath([]string{"service"}).
			WithOperator(filters.Equal).
			WithValueString(f.Service))
	}
	if f.Severity != "" {
		clauses = append(clauses, filters.Where().
			WithPath([]string{"severity"}).
			WithOperator(filters.Equal).
			WithValueString(f.Severity))
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(clauses)
	}
}

func healthStatus(count int) string {
	switch {
	case count == 0:
		return "healthy"
	case count <= 3:
		return "degraded"
	default:
		return "unhealthy"
	}
}
