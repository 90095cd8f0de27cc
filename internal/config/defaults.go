package config

import "time"

// Default values.
const (
	DefaultVersion            = "1.0.0"
	DefaultRegion             = "unknown"
	DefaultClientIPHeader     = "CF-Connecting-IP"
	DefaultCountryHeader      = "CF-IPCountry"
	DefaultMaxEvents          = 10000
	DefaultMaxRequestBodySize = 1 << 20
	DefaultMaxHeaderBytes     = 1 << 20
	DefaultKeyPrefix          = "br_"
	DefaultMinKeyLength       = 11
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "workers"
	DefaultReadTimeout        = 30 * time.Second
	DefaultReadHeaderTimeout  = 10 * time.Second
	DefaultWriteTimeout       = 30 * time.Second
	DefaultIdleTimeout        = 120 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
)

// DefaultConfig returns the configuration used when no file is given:
// analytics on 8081, api on 8082, auth on 8083.
func DefaultConfig() *Config {
	cfg := &Config{
		Services: DefaultServices(),
	}
	cfg.ApplyDefaults()
	return cfg
}

// DefaultServices returns the three stock worker services.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "analytics", Kind: KindAnalytics, Port: 8081},
		{Name: "api", Kind: KindAPI, Port: 8082, IncludeErrorDetail: true, ExposeEndpoints: true},
		{Name: "auth", Kind: KindAuth, Port: 8083},
	}
}

// DefaultCORS returns the cross-origin policy a service kind ships with.
func DefaultCORS(kind string) *CORSConfig {
	switch kind {
	case KindAPI:
		return &CORSConfig{
			AllowOrigin:  "*",
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		}
	case KindAuth:
		return &CORSConfig{
			AllowOrigin:  "*",
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		}
	default:
		return &CORSConfig{
			AllowOrigin:  "*",
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
		}
	}
}

// DefaultAgents returns the stock agent catalog.
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{
			ID: "cecilia", Name: "Cecilia", Type: "primary", Status: "active",
			Capabilities: []string{"reasoning", "code", "orchestration"},
			Device:       "Pi 5 + Hailo-8",
		},
		{
			ID: "lucidia", Name: "Lucidia", Type: "consciousness", Status: "active",
			Capabilities: []string{"deep-reasoning", "mathematics", "philosophy"},
			Device:       "Pi 4 + Hailo-8",
		},
		{
			ID: "alice", Name: "Alice", Type: "worker", Status: "active",
			Capabilities: []string{"tasks", "automation", "monitoring"},
			Device:       "Pi 4",
		},
		{
			ID: "aria", Name: "Aria", Type: "harmony", Status: "active",
			Capabilities: []string{"orchestration", "harmony", "protocols"},
			Device:       "Pi 5",
		},
		{
			ID: "octavia", Name: "Octavia", Type: "multi-arm", Status: "active",
			Capabilities: []string{"parallel-processing", "multi-task"},
			Device:       "Pi 5",
		},
	}
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	c.Normalize()
	c.Server.applyDefaults()
	c.Observability.applyDefaults()

	if len(c.Services) == 0 {
		c.Services = DefaultServices()
	}
	for i := range c.Services {
		c.Services[i].applyDefaults()
	}
}

func (s *ServerConfig) applyDefaults() {
	if s.ReadTimeout == 0 {
		s.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = Duration(DefaultReadHeaderTimeout)
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxRequestBodySize == 0 {
		s.MaxRequestBodySize = DefaultMaxRequestBodySize
	}
	if s.ClientIPHeader == "" {
		s.ClientIPHeader = DefaultClientIPHeader
	}
	if s.CountryHeader == "" {
		s.CountryHeader = DefaultCountryHeader
	}
	if s.Region == "" {
		s.Region = DefaultRegion
	}
}

func (o *ObservabilityConfig) applyDefaults() {
	if o.Logging == nil {
		o.Logging = &LoggingConfig{}
	}
	if o.Logging.Level == "" {
		o.Logging.Level = "info"
	}
	if o.Logging.Format == "" {
		o.Logging.Format = "json"
	}
	if o.Logging.Output == "" {
		o.Logging.Output = "stdout"
	}

	if o.Metrics == nil {
		o.Metrics = &MetricsConfig{Enabled: true}
	}
	if o.Metrics.Port == 0 {
		o.Metrics.Port = DefaultMetricsPort
	}
	if o.Metrics.Path == "" {
		o.Metrics.Path = DefaultMetricsPath
	}
	if o.Metrics.Namespace == "" {
		o.Metrics.Namespace = DefaultMetricsNamespace
	}

	if o.Tracing == nil {
		o.Tracing = &TracingConfig{}
	}
	if o.Tracing.ServiceName == "" {
		o.Tracing.ServiceName = "workers"
	}
}

func (s *ServiceConfig) applyDefaults() {
	if s.Kind == "" {
		s.Kind = s.Name
	}
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	if s.CORS == nil {
		s.CORS = DefaultCORS(s.Kind)
	}

	switch s.Kind {
	case KindAnalytics:
		if s.MaxEvents == 0 {
			s.MaxEvents = DefaultMaxEvents
		}
	case KindAPI:
		if s.Agents == nil {
			s.Agents = DefaultAgents()
		}
	case KindAuth:
		if s.KeyPrefix == "" {
			s.KeyPrefix = DefaultKeyPrefix
		}
		if s.MinKeyLength == 0 {
			s.MinKeyLength = DefaultMinKeyLength
		}
	}
}
