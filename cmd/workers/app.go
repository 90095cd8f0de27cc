package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/health"
	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/server"
	"github.com/blackroad/workers/internal/services"
	"github.com/blackroad/workers/internal/services/core"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	healthChecker *health.Checker
	servers       []*server.Server
	metricsServer *http.Server
}

// newApplication wires every configured service to its own listener.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	app := &application{
		config:        cfg,
		logger:        logger,
		tracer:        tracer,
		healthChecker: health.NewChecker(version),
	}

	deps := core.Deps{
		Logger:         logger,
		TracerProvider: tracer.Provider(),
		Health:         app.healthChecker,
	}

	if m := cfg.Observability.Metrics; m != nil && m.Enabled {
		app.metrics = observability.NewMetrics(m.Namespace)
		app.metrics.SetBuildInfo(version, gitCommit, buildTime)
		deps.Metrics = app.metrics
	}

	routers, err := services.NewRouters(cfg, deps)
	if err != nil {
		return nil, err
	}

	for _, svc := range cfg.Services {
		r := routers[svc.Name]
		opts := []server.Option{
			server.WithLogger(logger),
			server.WithTracerProvider(tracer.Provider()),
			server.WithRateLimiter(server.NewRateLimiterFromConfig(cfg.RateLimit, logger)),
		}
		if app.metrics != nil {
			opts = append(opts, server.WithMetrics(app.metrics))
		}

		srv := server.New(server.ConfigFrom(cfg.Server, svc.Port), r, opts...)
		app.healthChecker.RegisterCheck("service."+svc.Name,
			health.BoolCheck(srv.IsRunning, "listener not running"))
		app.servers = append(app.servers, srv)
	}

	return app, nil
}

// initTracer initializes the tracer from the observability block.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:    "workers",
		ServiceVersion: version,
		Region:         cfg.Server.Region,
		SamplingRate:   1.0,
	}
	if t := cfg.Observability.Tracing; t != nil {
		tracerCfg.Enabled = t.Enabled
		tracerCfg.SamplingRate = t.SamplingRate
		tracerCfg.OTLPEndpoint = t.OTLPEndpoint
		if t.ServiceName != "" {
			tracerCfg.ServiceName = t.ServiceName
		}
	}
	return observability.NewTracer(tracerCfg)
}

// run starts every listener and blocks until ctx is cancelled or a
// listener fails, then shuts everything down.
func (a *application) run(ctx context.Context) error {
	a.startMetricsServerIfEnabled()

	errCh := make(chan error, len(a.servers))
	for _, srv := range a.servers {
		go func(s *server.Server) {
			if err := s.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", s.Router().Name(), err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case runErr = <-errCh:
		a.logger.Error("listener failed", observability.Error(runErr))
	}

	a.shutdown()
	return runErr
}

// shutdown stops listeners, the metrics server and the tracer.
func (a *application) shutdown() {
	timeout := a.config.Server.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, srv := range a.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("failed to stop server gracefully",
				observability.String("service", srv.Router().Name()),
				observability.Error(err),
			)
		}
	}

	if a.metricsServer != nil {
		a.logger.Info("stopping metrics server")
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if err := a.tracer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}
}

// startMetricsServerIfEnabled starts the metrics and probe listener.
func (a *application) startMetricsServerIfEnabled() {
	m := a.config.Observability.Metrics
	if a.metrics == nil || m == nil {
		return
	}

	a.metricsServer = createMetricsServer(a.config.Server.Host, m.Port, m.Path, a.metrics, a.healthChecker, a.logger)
	go runMetricsServer(a.metricsServer, a.logger)
}

// createMetricsServer creates the metrics HTTP server.
func createMetricsServer(
	host string,
	port int,
	path string,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
	logger observability.Logger,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.HandleFunc("/healthz", healthChecker.HealthHandler())
	mux.HandleFunc("/readyz", healthChecker.ReadinessHandler())
	mux.HandleFunc("/livez", healthChecker.LivenessHandler())

	addr := fmt.Sprintf("%s:%d", host, port)
	logger.Info("starting metrics server",
		observability.String("address", addr),
		observability.String("metrics_path", path),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		ErrorLog:          observability.NewStdLogger(logger.With(observability.String("listener", "metrics"))),
	}
}

// runMetricsServer runs the metrics HTTP server.
func runMetricsServer(srv *http.Server, logger observability.Logger) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", observability.Error(err))
	}
}
