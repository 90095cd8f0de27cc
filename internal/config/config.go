package config

import "strings"

// Service kinds.
const (
	KindAnalytics = "analytics"
	KindAPI       = "api"
	KindAuth      = "auth"
)

// Config is the root configuration of the workers process.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	RateLimit     *RateLimitConfig    `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	Services      []ServiceConfig     `yaml:"services" json:"services"`
}

// ServerConfig holds settings shared by every service listener.
type ServerConfig struct {
	Host               string   `yaml:"host,omitempty" json:"host,omitempty"`
	ReadTimeout        Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	ReadHeaderTimeout  Duration `yaml:"readHeaderTimeout,omitempty" json:"readHeaderTimeout,omitempty"`
	WriteTimeout       Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout        Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout    Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	MaxHeaderBytes     int      `yaml:"maxHeaderBytes,omitempty" json:"maxHeaderBytes,omitempty"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize,omitempty" json:"maxRequestBodySize,omitempty"`
	TrustedProxies     []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty"`
	ClientIPHeader     string   `yaml:"clientIPHeader,omitempty" json:"clientIPHeader,omitempty"`
	CountryHeader      string   `yaml:"countryHeader,omitempty" json:"countryHeader,omitempty"`
	Region             string   `yaml:"region,omitempty" json:"region,omitempty"`
}

// ServiceConfig describes one worker service and its listener.
type ServiceConfig struct {
	Name               string      `yaml:"name" json:"name"`
	Kind               string      `yaml:"kind" json:"kind"`
	Port               int         `yaml:"port" json:"port"`
	Version            string      `yaml:"version,omitempty" json:"version,omitempty"`
	CORS               *CORSConfig `yaml:"cors,omitempty" json:"cors,omitempty"`
	IncludeErrorDetail bool        `yaml:"includeErrorDetail,omitempty" json:"includeErrorDetail,omitempty"`
	ExposeEndpoints    bool        `yaml:"exposeEndpoints,omitempty" json:"exposeEndpoints,omitempty"`

	// analytics
	MaxEvents int `yaml:"maxEvents,omitempty" json:"maxEvents,omitempty"`

	// api
	Agents []AgentConfig `yaml:"agents,omitempty" json:"agents,omitempty"`

	// auth
	KeyPrefix    string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	MinKeyLength int    `yaml:"minKeyLength,omitempty" json:"minKeyLength,omitempty"`
}

// CORSConfig is the static cross-origin policy of a service.
type CORSConfig struct {
	AllowOrigin  string   `yaml:"allowOrigin,omitempty" json:"allowOrigin,omitempty"`
	AllowMethods []string `yaml:"allowMethods,omitempty" json:"allowMethods,omitempty"`
	AllowHeaders []string `yaml:"allowHeaders,omitempty" json:"allowHeaders,omitempty"`
}

// AgentConfig is one entry of the api service's agent catalog.
type AgentConfig struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Type         string   `yaml:"type" json:"type"`
	Status       string   `yaml:"status" json:"status"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	Device       string   `yaml:"device" json:"device"`
}

// RateLimitConfig represents per-client rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int  `yaml:"burst" json:"burst"`
	PerClient         bool `yaml:"perClient,omitempty" json:"perClient,omitempty"`
}

// ObservabilityConfig represents observability configuration.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig represents tracing configuration.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Service returns the service with the given name.
func (c *Config) Service(name string) (ServiceConfig, bool) {
	for _, svc := range c.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceConfig{}, false
}

// Normalize lower-cases kinds and upper-cases CORS methods.
func (c *Config) Normalize() {
	for i := range c.Services {
		svc := &c.Services[i]
		svc.Kind = strings.ToLower(strings.TrimSpace(svc.Kind))
		if svc.CORS != nil {
			for j, m := range svc.CORS.AllowMethods {
				svc.CORS.AllowMethods[j] = strings.ToUpper(strings.TrimSpace(m))
			}
		}
	}
}
