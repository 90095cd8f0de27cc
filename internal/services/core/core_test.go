package core

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/router"
)

func TestTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("X", 3600))
	assert.Equal(t, "2026-03-04T04:06:07.890Z", Timestamp(ts))
	assert.Equal(t, "2026-03-04T04:06:07.000Z",
		Timestamp(time.Date(2026, 3, 4, 4, 6, 7, 0, time.UTC)))
}

func TestDescriptor_Paths(t *testing.T) {
	t.Parallel()

	d := Descriptor{Endpoints: []Endpoint{{Path: "/"}, {Path: "/health"}}}
	assert.Equal(t, []string{"/", "/health"}, d.Paths())

	data, err := json.Marshal(Descriptor{Service: "s", Version: "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"service":"s","version":"1","endpoints":null}`, string(data))
}

func TestDeps_Defaults(t *testing.T) {
	t.Parallel()

	var d Deps
	assert.NotNil(t, d.Log())
	assert.WithinDuration(t, time.Now(), d.Now()(), time.Second)

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.Clock = func() time.Time { return fixed }
	assert.Equal(t, fixed, d.Now()())
}

func TestPolicy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, router.DefaultCrossOriginPolicy(), Policy(nil))

	p := Policy(config.DefaultCORS(config.KindAPI))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", p.Header().Get(router.HeaderAllowMethods))
}

func TestNewRouter(t *testing.T) {
	t.Parallel()

	desc := Descriptor{Endpoints: []Endpoint{{Path: "/"}, {Path: "/health"}}}

	tests := []struct {
		name    string
		expose  bool
		listing bool
	}{
		{name: "exposed", expose: true, listing: true},
		{name: "hidden", expose: false, listing: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.ServiceConfig{
				Name:            "svc",
				Kind:            config.KindAPI,
				ExposeEndpoints: tt.expose,
				CORS:            config.DefaultCORS(config.KindAPI),
			}
			r := NewRouter(cfg, Deps{}, desc)
			assert.Equal(t, "svc", r.Name())

			resp := r.Handle(router.NewRequestContext(context.Background(), "GET", "/x", nil, nil, router.ClientMetadata{}))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.Unmarshal(resp.Body, &body))
			_, has := body["availableEndpoints"]
			assert.Equal(t, tt.listing, has)
		})
	}
}

func TestRegion(t *testing.T) {
	t.Parallel()

	req := router.NewRequestContext(context.Background(), "GET", "/", nil, nil, router.ClientMetadata{})
	assert.Equal(t, "unknown", Region(req))

	req.Client.Region = "ams"
	assert.Equal(t, "ams", Region(req))
}
