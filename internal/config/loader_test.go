package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewLoader(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.lookupEnv)
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "workers.yaml")

	configContent := `
server:
  region: eu-west
  readTimeout: 5s
services:
  - name: analytics
    kind: analytics
    port: 9001
    maxEvents: 50
  - name: api
    kind: API
    port: 9002
    includeErrorDetail: true
    exposeEndpoints: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := NewLoader().Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "eu-west", cfg.Server.Region)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout.Duration())
	require.Len(t, cfg.Services, 2)

	analytics := cfg.Services[0]
	assert.Equal(t, 50, analytics.MaxEvents)
	assert.Equal(t, DefaultVersion, analytics.Version)
	assert.Equal(t, DefaultCORS(KindAnalytics), analytics.CORS)

	api := cfg.Services[1]
	assert.Equal(t, KindAPI, api.Kind)
	assert.True(t, api.IncludeErrorDetail)
	assert.Len(t, api.Agents, 5)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load("/nonexistent/path/workers.yaml")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoader_LoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadFromReader(strings.NewReader("services: [unclosed"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_LoadFromReader_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"WORKERS_REGION": "us-east",
		"EMPTY":          "",
	}
	loader := &Loader{lookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "${WORKERS_REGION}", expected: "us-east"},
		{name: "set variable ignores default", input: "${WORKERS_REGION:-eu}", expected: "us-east"},
		{name: "unset with default", input: "${MISSING:-8081}", expected: "8081"},
		{name: "unset without default", input: "x${MISSING}y", expected: "xy"},
		{name: "set to empty", input: "${EMPTY:-fallback}", expected: ""},
		{name: "escaped dollar", input: "$${WORKERS_REGION}", expected: "${WORKERS_REGION}"},
		{name: "no pattern", input: "plain", expected: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, loader.substituteEnvVars(tt.input))
		})
	}
}

func TestLoader_EnvInYAML(t *testing.T) {
	t.Parallel()

	loader := &Loader{lookupEnv: func(k string) (string, bool) {
		if k == "API_PORT" {
			return "7002", true
		}
		return "", false
	}}

	cfg, err := loader.LoadFromReader(strings.NewReader(`
services:
  - name: api
    kind: api
    port: ${API_PORT:-8082}
  - name: auth
    kind: auth
    port: ${AUTH_PORT:-8083}
`))
	require.NoError(t, err)

	assert.Equal(t, 7002, cfg.Services[0].Port)
	assert.Equal(t, 8083, cfg.Services[1].Port)
	assert.Equal(t, DefaultKeyPrefix, cfg.Services[1].KeyPrefix)
}

func TestLoader_RoundTrip(t *testing.T) {
	t.Parallel()

	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(data), "readTimeout: 30s")

	cfg, err := NewLoader().LoadFromReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_ShippedConfig(t *testing.T) {
	t.Parallel()

	loader := &Loader{lookupEnv: func(string) (string, bool) { return "", false }}
	cfg, err := loader.Load(filepath.Join("..", "..", "configs", "workers.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, DefaultRegion, cfg.Server.Region)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout.Duration())
	require.Len(t, cfg.Services, 3)

	auth, ok := cfg.Service("auth")
	require.True(t, ok)
	assert.Equal(t, []string{"Content-Type", "Authorization", "X-API-Key"}, auth.CORS.AllowHeaders)

	api, ok := cfg.Service("api")
	require.True(t, ok)
	assert.Len(t, api.Agents, len(DefaultAgents()))
}
