package config

import (
	"fmt"
	"net/netip"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var validKinds = map[string]bool{
	KindAnalytics: true,
	KindAPI:       true,
	KindAuth:      true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validCORSMethods = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"OPTIONS": true,
}

// Validator validates workers configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a workers configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateObservability(&cfg.Observability)
	if cfg.RateLimit != nil {
		v.validateRateLimit(cfg.RateLimit, "rateLimit")
	}
	v.validateServices(cfg)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.ReadTimeout < 0 {
		v.addError("server.readTimeout", "must not be negative")
	}
	if s.WriteTimeout < 0 {
		v.addError("server.writeTimeout", "must not be negative")
	}
	if s.IdleTimeout < 0 {
		v.addError("server.idleTimeout", "must not be negative")
	}
	if s.ShutdownTimeout < 0 {
		v.addError("server.shutdownTimeout", "must not be negative")
	}
	if s.MaxRequestBodySize < 0 {
		v.addError("server.maxRequestBodySize", "must not be negative")
	}
	for i, proxy := range s.TrustedProxies {
		if _, err := netip.ParsePrefix(proxy); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(proxy); err == nil {
			continue
		}
		v.addError(fmt.Sprintf("server.trustedProxies[%d]", i),
			fmt.Sprintf("invalid IP or CIDR %q", proxy))
	}
}

func (v *Validator) validateObservability(o *ObservabilityConfig) {
	if o.Logging != nil {
		if o.Logging.Level != "" && !validLogLevels[strings.ToLower(o.Logging.Level)] {
			v.addError("observability.logging.level",
				fmt.Sprintf("invalid log level %q", o.Logging.Level))
		}
		if o.Logging.Format != "" && !validLogFormats[strings.ToLower(o.Logging.Format)] {
			v.addError("observability.logging.format",
				fmt.Sprintf("invalid log format %q", o.Logging.Format))
		}
	}

	if o.Metrics != nil && o.Metrics.Enabled {
		if !validPort(o.Metrics.Port) {
			v.addError("observability.metrics.port", "must be between 1 and 65535")
		}
		if o.Metrics.Path != "" && !strings.HasPrefix(o.Metrics.Path, "/") {
			v.addError("observability.metrics.path", "must start with '/'")
		}
	}

	if o.Tracing != nil && o.Tracing.Enabled {
		if o.Tracing.SamplingRate < 0 || o.Tracing.SamplingRate > 1 {
			v.addError("observability.tracing.samplingRate", "must be between 0 and 1")
		}
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig, path string) {
	if !rl.Enabled {
		return
	}
	if rl.RequestsPerSecond <= 0 {
		v.addError(path+".requestsPerSecond", "must be positive")
	}
	if rl.Burst <= 0 {
		v.addError(path+".burst", "must be positive")
	}
}

func (v *Validator) validateServices(cfg *Config) {
	if len(cfg.Services) == 0 {
		v.addError("services", "at least one service is required")
		return
	}

	names := make(map[string]bool, len(cfg.Services))
	ports := make(map[int]string, len(cfg.Services))
	if cfg.Observability.Metrics != nil && cfg.Observability.Metrics.Enabled {
		ports[cfg.Observability.Metrics.Port] = "metrics"
	}

	for i := range cfg.Services {
		svc := &cfg.Services[i]
		path := fmt.Sprintf("services[%d]", i)

		if svc.Name == "" {
			v.addError(path+".name", "name is required")
		} else if names[svc.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate service name %q", svc.Name))
		}
		names[svc.Name] = true

		if !validKinds[svc.Kind] {
			v.addError(path+".kind", fmt.Sprintf("unknown service kind %q", svc.Kind))
		}

		if !validPort(svc.Port) {
			v.addError(path+".port", "must be between 1 and 65535")
		} else if owner, taken := ports[svc.Port]; taken {
			v.addError(path+".port", fmt.Sprintf("port %d already used by %s", svc.Port, owner))
		} else {
			ports[svc.Port] = svc.Name
		}

		if svc.CORS != nil {
			v.validateCORS(svc.CORS, path+".cors")
		}
		if svc.MaxEvents < 0 {
			v.addError(path+".maxEvents", "must not be negative")
		}
		v.validateAgents(svc.Agents, path+".agents")
	}
}

func (v *Validator) validateCORS(c *CORSConfig, path string) {
	for i, m := range c.AllowMethods {
		if !validCORSMethods[strings.ToUpper(m)] {
			v.addError(fmt.Sprintf("%s.allowMethods[%d]", path, i),
				fmt.Sprintf("invalid method %q", m))
		}
	}
	for i, h := range c.AllowHeaders {
		if strings.TrimSpace(h) == "" {
			v.addError(fmt.Sprintf("%s.allowHeaders[%d]", path, i), "header name is empty")
		}
	}
}

func (v *Validator) validateAgents(agents []AgentConfig, path string) {
	ids := make(map[string]bool, len(agents))
	for i, a := range agents {
		p := fmt.Sprintf("%s[%d]", path, i)
		if a.ID == "" {
			v.addError(p+".id", "id is required")
			continue
		}
		if strings.Contains(a.ID, "/") {
			v.addError(p+".id", "id must not contain '/'")
		}
		if ids[a.ID] {
			v.addError(p+".id", fmt.Sprintf("duplicate agent id %q", a.ID))
		}
		ids[a.ID] = true
	}
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
