package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/router"
	"github.com/blackroad/workers/internal/services/core"
)

var fixedNow = time.Date(2026, 5, 6, 7, 8, 9, 123_000_000, time.UTC)

func newTestRouter(t *testing.T, maxEvents int) (*router.Router, *Service) {
	t.Helper()

	cfg := config.DefaultConfig().Services[0]
	require.Equal(t, config.KindAnalytics, cfg.Kind)
	cfg.MaxEvents = maxEvents

	r, svc, err := NewRouter(cfg, core.Deps{Clock: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return r, svc
}

func do(r *router.Router, method, path, ip string, body []byte) *router.Response {
	var reader router.BodyReader
	if body != nil {
		reader = router.BodyFromBytes(body)
	}
	req := router.NewRequestContext(context.Background(), method, path, nil, reader,
		router.ClientMetadata{IP: ip, Country: "NL"})
	return r.Handle(req)
}

func decode(t *testing.T, resp *router.Response) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &m))
	return m
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	for _, path := range []string{"/", "/analytics"} {
		resp := do(r, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode(t, resp)
		assert.Equal(t, "BlackRoad Analytics", body["service"])
		assert.Equal(t, "1.0.0", body["version"])
		assert.Len(t, body["endpoints"], 4)
	}
}

func TestPageView_UniqueVisitors(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	body := decode(t, do(r, http.MethodPost, "/pageview", "1.1.1.1", nil))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["pageViews"])
	assert.Equal(t, float64(1), body["uniqueVisitors"])

	body = decode(t, do(r, http.MethodPost, "/pageview", "2.2.2.2", nil))
	assert.Equal(t, float64(2), body["pageViews"])
	assert.Equal(t, float64(2), body["uniqueVisitors"])

	body = decode(t, do(r, http.MethodPost, "/pageview", "1.1.1.1", nil))
	assert.Equal(t, float64(3), body["pageViews"])
	assert.Equal(t, float64(2), body["uniqueVisitors"])
}

func TestPageView_UnknownVisitor(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	do(r, http.MethodPost, "/pageview", "", nil)
	body := decode(t, do(r, http.MethodPost, "/pageview", "", nil))
	assert.Equal(t, float64(2), body["pageViews"])
	assert.Equal(t, float64(1), body["uniqueVisitors"])
}

func TestPageView_RequiresPost(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t, 0)

	resp := do(r, http.MethodGet, "/pageview", "1.1.1.1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Use POST"}`, string(resp.Body))
	assert.Zero(t, svc.Stats().Snapshot(0).PageViews)
}

func TestPageView_Concurrent(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t, 0)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			do(r, http.MethodPost, "/pageview", "9.9.9.9", nil)
		}()
	}
	wg.Wait()

	snap := svc.Stats().Snapshot(0)
	assert.Equal(t, int64(n), snap.PageViews)
	assert.Equal(t, 1, snap.UniqueVisitors)
}

func TestTrack_ThenStats(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	resp := do(r, http.MethodPost, "/track", "3.3.3.3", []byte(`{"event":"signup","plan":"pro"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"eventsTracked":1}`, string(resp.Body))

	stats := decode(t, do(r, http.MethodGet, "/stats", "", nil))
	assert.Equal(t, float64(1), stats["eventsTracked"])
	assert.Equal(t, float64(1), stats["apiCalls"])
	assert.Equal(t, float64(0), stats["pageViews"])
	assert.Equal(t, StatsNote, stats["note"])
	assert.Equal(t, "2026-05-06T07:08:09.123Z", stats["timestamp"])

	recent, ok := stats["recentEvents"].([]any)
	require.True(t, ok)
	require.Len(t, recent, 1)

	ev := recent[0].(map[string]any)
	assert.Equal(t, "signup", ev["event"])
	assert.Equal(t, "pro", ev["plan"])
	assert.Equal(t, "3.3.3.3", ev["ip"])
	assert.Equal(t, "NL", ev["country"])
	assert.Equal(t, "2026-05-06T07:08:09.123Z", ev["timestamp"])
}

func TestTrack_InvalidBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
	}{
		{name: "malformed", body: []byte(`{"event":`)},
		{name: "empty", body: nil},
		{name: "blank", body: []byte("  \n")},
		{name: "trailing garbage", body: []byte(`{"a":1} x`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, svc := newTestRouter(t, 0)

			resp := do(r, http.MethodPost, "/track", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Invalid JSON body"}`, string(resp.Body))
			assert.Equal(t, "*", resp.Header.Get(router.HeaderAllowOrigin))
			assert.Zero(t, svc.Stats().Snapshot(0).EventsTracked)
		})
	}
}

func TestTrack_AnyJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		expected map[string]any
	}{
		{name: "array", body: `[1,"two"]`, expected: map[string]any{"0": float64(1), "1": "two"}},
		{name: "number", body: `42`, expected: map[string]any{}},
		{name: "string", body: `"hello"`, expected: map[string]any{}},
		{name: "bool", body: `true`, expected: map[string]any{}},
		{name: "null", body: `null`, expected: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := newTestRouter(t, 0)

			resp := do(r, http.MethodPost, "/track", "4.4.4.4", []byte(tt.body))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"success":true,"eventsTracked":1}`, string(resp.Body))

			stats := decode(t, do(r, http.MethodGet, "/stats", "", nil))
			recent := stats["recentEvents"].([]any)
			require.Len(t, recent, 1)

			expected := map[string]any{
				"timestamp": "2026-05-06T07:08:09.123Z",
				"ip":        "4.4.4.4",
				"country":   "NL",
			}
			for k, v := range tt.expected {
				expected[k] = v
			}
			assert.Equal(t, expected, recent[0])
		})
	}
}

func TestTrack_RequiresPost(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	resp := do(r, http.MethodPut, "/track", "", []byte(`{}`))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Use POST"}`, string(resp.Body))
}

func TestTrack_BoundedRetention(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t, 3)

	for i := 0; i < 12; i++ {
		body, err := json.Marshal(map[string]int{"n": i})
		require.NoError(t, err)
		do(r, http.MethodPost, "/track", "", body)
	}

	assert.Equal(t, 3, svc.Stats().retained())

	stats := decode(t, do(r, http.MethodGet, "/stats", "", nil))
	assert.Equal(t, float64(12), stats["eventsTracked"])

	recent := stats["recentEvents"].([]any)
	require.Len(t, recent, 3)
	assert.Equal(t, float64(9), recent[0].(map[string]any)["n"])
	assert.Equal(t, float64(11), recent[2].(map[string]any)["n"])
}

func TestStats_GetOnly(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	resp := do(r, http.MethodPost, "/stats", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET", resp.Header.Get("Allow"))

	resp = do(r, http.MethodHead, "/stats", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStats_RecentLimit(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)
	for i := 0; i < 15; i++ {
		do(r, http.MethodPost, "/track", "", []byte(`{"e":1}`))
	}

	stats := decode(t, do(r, http.MethodGet, "/stats", "", nil))
	assert.Len(t, stats["recentEvents"], RecentEventsLimit)
}

func TestStats_Idempotent(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)
	do(r, http.MethodPost, "/pageview", "1.1.1.1", nil)

	first := do(r, http.MethodGet, "/stats", "", nil)
	second := do(r, http.MethodGet, "/stats", "", nil)
	assert.Equal(t, first.Body, second.Body)

	first = do(r, http.MethodGet, "/", "", nil)
	second = do(r, http.MethodGet, "/analytics", "", nil)
	assert.Equal(t, first.Body, second.Body)
}

func TestStats_EmptyRecentEvents(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)
	stats := decode(t, do(r, http.MethodGet, "/stats", "", nil))
	assert.Equal(t, []any{}, stats["recentEvents"])
}

func TestPixel(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t, 0)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp := do(r, method, "/pixel.gif", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, resp.Body, 43)
		assert.Equal(t, []byte("GIF89a"), resp.Body[:6])
		assert.Equal(t, byte(0x3b), resp.Body[42])
		assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-store, no-cache, must-revalidate", resp.Header.Get("Cache-Control"))
		assert.Equal(t, "*", resp.Header.Get(router.HeaderAllowOrigin))
	}

	assert.Equal(t, int64(2), svc.Stats().Snapshot(0).PageViews)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	resp := do(r, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Not Found","path":"/nope"}`, string(resp.Body))
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t, 0)

	resp := do(r, http.MethodOptions, "/pageview", "1.1.1.1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get(router.HeaderAllowMethods))
	assert.Equal(t, "Content-Type, Authorization", resp.Header.Get(router.HeaderAllowHeaders))
	assert.Zero(t, svc.Stats().Snapshot(0).PageViews)
}

func TestPixel_ReturnsCopy(t *testing.T) {
	t.Parallel()

	p := Pixel()
	p[0] = 0
	assert.Equal(t, byte(0x47), Pixel()[0])
}
