package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/util"
)

func TestRequestIDWithGenerator(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(RequestIDWithGenerator(func() string { return "generated" }))
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, util.RequestIDFromContext(c.Request.Context())+"|"+GetRequestID(c))
	})

	tests := []struct {
		name     string
		incoming string
		expected string
	}{
		{name: "generated", expected: "generated"},
		{name: "propagated", incoming: "abc-123", expected: "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected+"|"+tt.expected, rec.Body.String())
			assert.Equal(t, tt.expected, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestLogging_LevelByStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := observability.NewLoggerFromZap(zap.New(core))

	engine := gin.New()
	engine.Use(RequestScope("analytics"), Logging(logger))
	engine.GET("/ok", func(c *gin.Context) {
		util.WithRoute(c.Request.Context(), "/ok")
		c.Status(http.StatusOK)
	})
	engine.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	engine.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "/ok", fields["route"])
	assert.Equal(t, "analytics", fields["service"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestBodyLimit_Rejects(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(BodyLimit(2))
	engine.POST("/", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("toolong")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
