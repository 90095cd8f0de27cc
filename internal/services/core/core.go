// Package core holds the pieces shared by every worker service: the
// descriptor served at "/", the injectable clock, and the dependencies
// a service router is built from.
package core

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/health"
	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/router"
)

// TimestampLayout is the wire format of every timestamp in response
// bodies: RFC 3339 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Clock returns the current time.
type Clock func() time.Time

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Endpoint is one entry of a service descriptor.
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

// Descriptor is the self-description a service serves at its root.
type Descriptor struct {
	Service     string     `json:"service"`
	Version     string     `json:"version"`
	Description string     `json:"description,omitempty"`
	Docs        string     `json:"docs,omitempty"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// Paths returns the endpoint paths in declaration order.
func (d Descriptor) Paths() []string {
	paths := make([]string, 0, len(d.Endpoints))
	for _, e := range d.Endpoints {
		paths = append(paths, e.Path)
	}
	return paths
}

// Deps are the process-wide collaborators handed to every service.
type Deps struct {
	Logger         observability.Logger
	Metrics        router.DispatchRecorder
	TracerProvider trace.TracerProvider
	Health         *health.Checker
	Clock          Clock
}

// Now returns the configured clock, defaulting to time.Now.
func (d Deps) Now() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return time.Now
}

// Log returns the configured logger, defaulting to a no-op logger.
func (d Deps) Log() observability.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return observability.NopLogger()
}

// Policy converts a configured CORS block into a router policy.
func Policy(c *config.CORSConfig) router.CrossOriginPolicy {
	if c == nil {
		return router.DefaultCrossOriginPolicy()
	}
	return router.CrossOriginPolicy{
		AllowOrigin:  c.AllowOrigin,
		AllowMethods: append([]string(nil), c.AllowMethods...),
		AllowHeaders: append([]string(nil), c.AllowHeaders...),
	}
}

// NewRouter builds the router for a service from its configuration.
// The descriptor's paths are listed in 404 bodies when the service
// exposes its endpoints.
func NewRouter(cfg config.ServiceConfig, deps Deps, desc Descriptor) *router.Router {
	opts := []router.Option{
		router.WithCORSPolicy(Policy(cfg.CORS)),
		router.WithErrorDetail(cfg.IncludeErrorDetail),
		router.WithLogger(deps.Log()),
	}
	if cfg.ExposeEndpoints {
		opts = append(opts, router.WithAvailableEndpoints(desc.Paths()))
	}
	if deps.Metrics != nil {
		opts = append(opts, router.WithMetrics(deps.Metrics))
	}
	if deps.TracerProvider != nil {
		opts = append(opts, router.WithTracerProvider(deps.TracerProvider))
	}
	return router.New(cfg.Name, opts...)
}

// Region returns the request's region or "unknown".
func Region(req *router.RequestContext) string {
	if req.Client.Region != "" {
		return req.Client.Region
	}
	return config.DefaultRegion
}
