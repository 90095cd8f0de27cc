// Package server exposes a worker router over HTTP using gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/router"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid races.
var ginModeOnce sync.Once

// Config holds listener settings for one service.
type Config struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	ReadHeaderTimeout  time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxHeaderBytes     int
	MaxRequestBodySize int64
	TrustedProxies     []string
	ClientIPHeader     string
	CountryHeader      string
	Region             string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:               8080,
		ReadTimeout:        config.DefaultReadTimeout,
		ReadHeaderTimeout:  config.DefaultReadHeaderTimeout,
		WriteTimeout:       config.DefaultWriteTimeout,
		IdleTimeout:        config.DefaultIdleTimeout,
		MaxHeaderBytes:     config.DefaultMaxHeaderBytes,
		MaxRequestBodySize: config.DefaultMaxRequestBodySize,
		ClientIPHeader:     config.DefaultClientIPHeader,
		CountryHeader:      config.DefaultCountryHeader,
		Region:             config.DefaultRegion,
	}
}

// ConfigFrom combines the shared server block with a service's port.
func ConfigFrom(srv config.ServerConfig, port int) Config {
	return Config{
		Host:               srv.Host,
		Port:               port,
		ReadTimeout:        srv.ReadTimeout.Duration(),
		ReadHeaderTimeout:  srv.ReadHeaderTimeout.Duration(),
		WriteTimeout:       srv.WriteTimeout.Duration(),
		IdleTimeout:        srv.IdleTimeout.Duration(),
		MaxHeaderBytes:     srv.MaxHeaderBytes,
		MaxRequestBodySize: srv.MaxRequestBodySize,
		TrustedProxies:     srv.TrustedProxies,
		ClientIPHeader:     srv.ClientIPHeader,
		CountryHeader:      srv.CountryHeader,
		Region:             srv.Region,
	}
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server serves one worker router.
type Server struct {
	engine    *gin.Engine
	router    *router.Router
	config    Config
	logger    observability.Logger
	metrics   *observability.Metrics
	tracer    trace.TracerProvider
	limiter   *RateLimiter
	extractor *ClientIPExtractor

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracerProvider sets the provider for server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracer = tp
	}
}

// WithRateLimiter enables rate limiting. A nil limiter disables it.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// New creates a server that dispatches every request to r.
func New(cfg Config, r *router.Router, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine: gin.New(),
		router: r,
		config: cfg,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = NewClientIPExtractor(cfg.ClientIPHeader, cfg.TrustedProxies)

	s.setupMiddleware()
	s.engine.NoRoute(s.handleRequest)

	return s
}

func (s *Server) setupMiddleware() {
	name := s.router.Name()

	s.engine.Use(
		RequestID(),
		Recovery(s.router, s.logger),
		ClientIP(s.extractor),
		RequestScope(name),
		Tracing(s.tracer, name),
		Logging(s.logger),
	)
	if s.metrics != nil {
		s.engine.Use(Metrics(s.metrics, name))
	}
	if s.limiter != nil {
		s.engine.Use(RateLimit(s.limiter, s.router, s.metrics, s.logger))
	}
	s.engine.Use(BodyLimit(s.config.MaxRequestBodySize))
}

// Handler returns the HTTP handler, useful for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Router returns the dispatched router.
func (s *Server) Router() *router.Router {
	return s.router
}

// Start listens and serves until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server %s already running", s.router.Name())
	}

	addr := s.config.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
		ErrorLog:          observability.NewStdLogger(s.lifecycleLogger()),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.listener = ln
	s.running = true
	srv := s.httpServer
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.StartCleanup(DefaultCleanupInterval)
	}

	s.lifecycleLogger().Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("readTimeout", s.config.ReadTimeout),
		observability.Duration("writeTimeout", s.config.WriteTimeout),
	)

	stopOnCancel := make(chan struct{})
	defer close(stopOnCancel)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
			defer cancel()
			_ = s.Stop(shutdownCtx)
		case <-stopOnCancel:
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	log := s.lifecycleLogger()
	log.Info("stopping HTTP server")

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info("HTTP server stopped")
	return nil
}

// lifecycleLogger tags events outside a request with the service name.
// Request logs get it from the request context instead.
func (s *Server) lifecycleLogger() observability.Logger {
	return s.logger.With(observability.String(observability.FieldService, s.router.Name()))
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleRequest adapts a gin request into the router and writes the result.
func (s *Server) handleRequest(c *gin.Context) {
	req := c.Request
	rc := router.NewRequestContext(
		req.Context(),
		req.Method,
		req.URL.Path,
		req.Header,
		router.BodyFromReader(req.Body, s.config.MaxRequestBodySize),
		s.clientMetadata(c),
	)

	writeResponse(c, s.router.Handle(rc), s.logger)
}

func (s *Server) clientMetadata(c *gin.Context) router.ClientMetadata {
	meta := router.ClientMetadata{
		IP:     GetClientIP(c),
		Region: s.config.Region,
	}
	if s.config.CountryHeader != "" {
		meta.Country = strings.TrimSpace(c.GetHeader(s.config.CountryHeader))
	}
	return meta
}
