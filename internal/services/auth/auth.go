// Package auth implements the API key worker: key verification, demo
// token issuance and a status probe.
package auth

import (
	"net/http"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/router"
	"github.com/blackroad/workers/internal/services/core"
)

// Token response constants.
const (
	TokenType      = "api_key"
	TokenExpiresIn = "30d"
	TokenNote      = "Demo token - for production, implement proper auth flow"
)

// Service is the auth worker.
type Service struct {
	verifier CredentialVerifier
	issuer   TokenIssuer
	now      core.Clock
	logger   observability.Logger
	desc     core.Descriptor
}

// Option configures the service.
type Option func(*Service)

// WithVerifier replaces the credential verifier.
func WithVerifier(v CredentialVerifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithIssuer replaces the token issuer.
func WithIssuer(i TokenIssuer) Option {
	return func(s *Service) {
		if i != nil {
			s.issuer = i
		}
	}
}

// New creates the auth service.
func New(cfg config.ServiceConfig, deps core.Deps, opts ...Option) *Service {
	version := cfg.Version
	if version == "" {
		version = config.DefaultVersion
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = config.DefaultKeyPrefix
	}
	minLen := cfg.MinKeyLength
	if minLen == 0 {
		minLen = config.DefaultMinKeyLength
	}

	s := &Service{
		verifier: PrefixVerifier{Prefix: prefix, MinLength: minLen},
		issuer:   UUIDIssuer{Prefix: prefix},
		now:      deps.Now(),
		logger:   deps.Log(),
		desc: core.Descriptor{
			Service: "BlackRoad Auth",
			Version: version,
			Endpoints: []core.Endpoint{
				{Path: "/verify", Method: http.MethodPost, Description: "Verify API key"},
				{Path: "/token", Method: http.MethodPost, Description: "Generate token"},
				{Path: "/status", Method: http.MethodGet, Description: "Auth service status"},
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRouter builds the auth router.
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
	routes := []struct {
		method  string
		path    string
		handler router.HandlerFunc
	}{
		{http.MethodGet, "/", s.describe},
		{http.MethodGet, "/auth", s.describe},
		{router.MethodAny, "/verify", s.verify},
		{router.MethodAny, "/token", s.token},
		{http.MethodGet, "/status", s.status},
	}

	for _, rt := range routes {
		if err := r.Register(rt.method, router.NewExactMatcher(rt.path), rt.handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) describe(*router.RequestContext) (*router.ResponseEnvelope, error) {
	return router.OK(s.desc), nil
}

type verifyFailure struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

type verifyResponse struct {
	Valid     bool   `json:"valid"`
	KeyPrefix string `json:"keyPrefix"`
	Timestamp string `json:"timestamp"`
}

func (s *Service) verify(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	key := extractKey(req.Header)
	if key == "" {
		return router.JSON(http.StatusUnauthorized, verifyFailure{
			Valid: false,
			Error: "No API key provided",
		}), nil
	}

	valid, err := s.verifier.Verify(req.Context(), key)
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	if !valid {
		status = http.StatusUnauthorized
		s.logger.WithContext(req.Context()).Debug("api key rejected",
			observability.String("key_prefix", maskKey(key)),
		)
	}

	return router.JSON(status, verifyResponse{
		Valid:     valid,
		KeyPrefix: maskKey(key),
		Timestamp: core.Timestamp(s.now()),
	}), nil
}

type tokenResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresIn string `json:"expiresIn"`
	CreatedAt string `json:"createdAt"`
	Note      string `json:"note"`
}

func (s *Service) token(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	if req.Method != http.MethodPost {
		return router.MethodNotAllowed("Method not allowed"), nil
	}

	tok, err := s.issuer.Issue(req.Context())
	if err != nil {
		return nil, err
	}

	return router.OK(tokenResponse{
		Token:     tok,
		Type:      TokenType,
		ExpiresIn: TokenExpiresIn,
		CreatedAt: core.Timestamp(s.now()),
		Note:      TokenNote,
	}), nil
}

type statusResponse struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	Region    string `json:"region"`
	Timestamp string `json:"timestamp"`
}

func (s *Service) status(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	return router.OK(statusResponse{
		Service:   "auth",
		Status:    "operational",
		Region:    core.Region(req),
		Timestamp: core.Timestamp(s.now()),
	}), nil
}
