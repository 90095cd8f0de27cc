// Package api implements the API gateway worker: service info, health,
// the agent catalog, system status and a metrics overview.
package api

import (
	"net/http"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/health"
	"github.com/blackroad/workers/internal/router"
	"github.com/blackroad/workers/internal/services/core"
)

// Statuses reported by /status.
var statusServices = []string{"api", "agents", "dashboard", "console", "monitoring"}

// Service is the API gateway worker.
type Service struct {
	catalog *Catalog
	metrics MetricsSource
	checker *health.Checker
	now     core.Clock
	desc    core.Descriptor
}

// Option configures the service.
type Option func(*Service)

// WithMetricsSource replaces the /metrics source.
func WithMetricsSource(src MetricsSource) Option {
	return func(s *Service) {
		if src != nil {
			s.metrics = src
		}
	}
}

// New creates the API gateway service.
func New(cfg config.ServiceConfig, deps core.Deps, opts ...Option) *Service {
	version := cfg.Version
	if version == "" {
		version = config.DefaultVersion
	}

	agents := cfg.Agents
	if agents == nil {
		agents = config.DefaultAgents()
	}

	s := &Service{
		catalog: NewCatalog(agents),
		checker: deps.Health,
		now:     deps.Now(),
		desc: core.Descriptor{
			Service:     "BlackRoad API",
			Version:     version,
			Description: "Sovereign AI Infrastructure API",
			Docs:        "https://docs.blackroad.io/api",
			Endpoints: []core.Endpoint{
				{Path: "/", Method: http.MethodGet, Description: "API info"},
				{Path: "/health", Method: http.MethodGet, Description: "Health check"},
				{Path: "/agents", Method: http.MethodGet, Description: "List AI agents"},
				{Path: "/agents/:id", Method: http.MethodGet, Description: "Get agent details"},
				{Path: "/status", Method: http.MethodGet, Description: "System status"},
				{Path: "/metrics", Method: http.MethodGet, Description: "Metrics overview"},
			},
		},
	}
	if s.checker == nil {
		s.checker = health.NewChecker(version, health.WithClock(health.Clock(s.now)))
	}
	s.metrics = DefaultMetrics(s.catalog)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRouter builds the API gateway router.
func NewRouter(cfg config.ServiceConfig, deps core.Deps, opts ...Option) (*router.Router, *Service, error) {
	svc := New(cfg, deps, opts...)
	r := core.NewRouter(cfg, deps, svc.desc)
	if err := svc.Register(r); err != nil {
		return nil, nil, err
	}
	return r, svc, nil
}

// Register binds the service's routes.
func (s *Service) Register(r *router.Router) error {
	exact := []struct {
		path    string
		handler router.HandlerFunc
	}{
		{"/", s.describe},
		{"/api", s.describe},
		{"/health", s.healthCheck},
		{"/agents", s.listAgents},
		{"/status", s.status},
		{"/metrics", s.overview},
	}

	for _, rt := range exact {
		if err := r.Register(http.MethodGet, router.NewExactMatcher(rt.path), rt.handler); err != nil {
			return err
		}
	}

	return r.Register(http.MethodGet, router.NewParamMatcher("/agents/", "id"), s.getAgent)
}

func (s *Service) describe(*router.RequestContext) (*router.ResponseEnvelope, error) {
	return router.OK(s.desc), nil
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Region    string  `json:"region"`
}

func (s *Service) healthCheck(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	return router.OK(healthResponse{
		Status:    string(health.StatusHealthy),
		Timestamp: core.Timestamp(s.now()),
		Uptime:    s.checker.UptimeSeconds(),
		Region:    core.Region(req),
	}), nil
}

type agentsResponse struct {
	Count  int     `json:"count"`
	Agents []Agent `json:"agents"`
}

func (s *Service) listAgents(*router.RequestContext) (*router.ResponseEnvelope, error) {
	agents := s.catalog.List()
	return router.OK(agentsResponse{
		Count:  len(agents),
		Agents: agents,
	}), nil
}

func (s *Service) getAgent(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	agent, ok := s.catalog.Get(req.Param("id"))
	if !ok {
		return router.NotFound("Agent not found"), nil
	}
	return router.OK(agent), nil
}

type statusResponse struct {
	Operational bool              `json:"operational"`
	Services    map[string]string `json:"services"`
	LastUpdated string            `json:"lastUpdated"`
}

func (s *Service) status(*router.RequestContext) (*router.ResponseEnvelope, error) {
	services := make(map[string]string, len(statusServices))
	for _, name := range statusServices {
		services[name] = "operational"
	}
	return router.OK(statusResponse{
		Operational: true,
		Services:    services,
		LastUpdated: core.Timestamp(s.now()),
	}), nil
}

func (s *Service) overview(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	ov, err := s.metrics.Overview(req.Context())
	if err != nil {
		return nil, err
	}
	return router.OK(ov), nil
}
