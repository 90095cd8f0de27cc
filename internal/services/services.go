// Package services builds the router for each configured worker service.
package services

import (
	"fmt"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/router"
	"github.com/blackroad/workers/internal/services/analytics"
	"github.com/blackroad/workers/internal/services/api"
	"github.com/blackroad/workers/internal/services/auth"
	"github.com/blackroad/workers/internal/services/core"
	"github.com/blackroad/workers/internal/util"
)

// NewRouter builds the router for one service according to its kind.
func NewRouter(cfg config.ServiceConfig, deps core.Deps) (*router.Router, error) {
	var (
		r   *router.Router
		err error
	)

	switch cfg.Kind {
	case config.KindAnalytics:
		r, _, err = analytics.NewRouter(cfg, deps)
	case config.KindAPI:
		r, _, err = api.NewRouter(cfg, deps)
	case config.KindAuth:
		r, _, err = auth.NewRouter(cfg, deps)
	default:
		return nil, util.NewConfigError("services.kind", fmt.Sprintf("unknown service kind %q", cfg.Kind))
	}
	if err != nil {
		return nil, util.NewConfigErrorWithCause("services."+cfg.Name, "failed to register routes", err)
	}

	deps.Log().Debug("service router built",
		observability.String("service", cfg.Name),
		observability.String("kind", cfg.Kind),
		observability.Int("routes", len(r.Routes())),
	)
	return r, nil
}

// NewRouters builds a router for every configured service, keyed by name.
func NewRouters(cfg *config.Config, deps core.Deps) (map[string]*router.Router, error) {
	routers := make(map[string]*router.Router, len(cfg.Services))
	for _, svc := range cfg.Services {
		r, err := NewRouter(svc, deps)
		if err != nil {
			return nil, err
		}
		routers[svc.Name] = r
	}
	return routers, nil
}
