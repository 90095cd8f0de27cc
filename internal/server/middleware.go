package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/router"
	"github.com/blackroad/workers/internal/util"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for request ID.
	RequestIDKey = "requestID"
	// ClientIPKey is the gin context key for the resolved client IP.
	ClientIPKey = "clientIP"
	// TracerName is the instrumentation name of the server spans.
	TracerName = "github.com/blackroad/workers/internal/server"
)

// RequestID returns a middleware that propagates or generates X-Request-ID.
func RequestID() gin.HandlerFunc {
	return RequestIDWithGenerator(func() string { return uuid.New().String() })
}

// RequestIDWithGenerator returns a request id middleware with a custom generator.
func RequestIDWithGenerator(generator func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = generator()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(util.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// GetRequestID returns the request id stored by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// ClientIP resolves the caller address once per request.
func ClientIP(extractor *ClientIPExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ClientIPKey, extractor.Extract(c.Request))
		c.Next()
	}
}

// GetClientIP returns the address stored by ClientIP, falling back to gin's view.
func GetClientIP(c *gin.Context) string {
	if ip := c.GetString(ClientIPKey); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// Recovery converts panics outside the router into a 500 that still
// carries the service's cross-origin policy.
func Recovery(r *router.Router, logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(c.Request.Context()).Error("panic recovered",
					observability.String("path", c.Request.URL.Path),
					observability.String("method", c.Request.Method),
					observability.Any("error", err),
					observability.String("stack", string(debug.Stack())),
				)

				resp := r.Respond(c.Request.Context(), router.Fail(router.KindInternal, ""))
				writeResponse(c, resp, logger)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// BodyLimit caps request bodies at limit bytes.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// Logging logs every request with a level chosen by status.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(util.ContextWithStartTime(c.Request.Context(), start))

		c.Next()

		status := c.Writer.Status()
		fields := []observability.Field{
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.String("query", c.Request.URL.RawQuery),
			observability.Int("status", status),
			observability.Duration("latency", util.ElapsedTime(c.Request.Context())),
			observability.String("clientIP", GetClientIP(c)),
			observability.String("userAgent", c.Request.UserAgent()),
			observability.Int("bodySize", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, observability.String("errors", c.Errors.String()))
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Tracing starts a server span per request, continuing any incoming
// trace context.
func Tracing(tp trace.TracerProvider, service string) gin.HandlerFunc {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				observability.AttrWorkerService.String(service),
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("url.path", path),
				attribute.String("client.address", GetClientIP(c)),
				attribute.String("user_agent.original", c.Request.UserAgent()),
			),
		)
		defer span.End()

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(attribute.Int("http.response.body.size", c.Writer.Size()))
		if route := util.RouteFromContext(c.Request.Context()); route != "" {
			span.SetAttributes(observability.AttrRoute.String(route))
		}
		observability.SetSpanStatus(span, c.Writer.Status())
	}
}

// RequestScope tags the request context with the serving worker and
// installs the route holder the router fills on dispatch.
func RequestScope(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := util.ContextWithService(c.Request.Context(), service)
		ctx, _ = util.ContextWithRouteHolder(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Metrics records request counts, latency and in-flight requests.
func Metrics(m *observability.Metrics, service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.IncrementActiveRequests(service)
		start := time.Now()

		defer func() {
			m.DecrementActiveRequests(service)

			route := util.RouteFromContext(c.Request.Context())
			if route == "" {
				route = observability.UnmatchedRoute
			}
			m.RecordRequest(service, c.Request.Method, route, c.Writer.Status(),
				time.Since(start), int64(c.Writer.Size()))
		}()

		c.Next()
	}
}

// RateLimit rejects requests over the limit with 429 and the service's
// cross-origin policy. Preflights are never limited.
func RateLimit(rl *RateLimiter, r *router.Router, m *observability.Metrics, logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		clientIP := GetClientIP(c)
		if rl.Allow(clientIP) {
			c.Next()
			return
		}

		logger.WithContext(c.Request.Context()).Warn("rate limit exceeded",
			observability.String("clientIP", clientIP),
			observability.String("path", c.Request.URL.Path),
		)
		if m != nil {
			m.RecordRateLimitHit(r.Name())
		}

		env := router.JSON(http.StatusTooManyRequests, router.ErrorBody{
			Error: http.StatusText(http.StatusTooManyRequests),
		}).WithHeader("Retry-After", "1")
		writeResponse(c, r.Respond(c.Request.Context(), env), logger)
		c.Abort()
	}
}

func writeResponse(c *gin.Context, resp *router.Response, logger observability.Logger) {
	if err := resp.WriteTo(c.Writer); err != nil {
		logger.WithContext(c.Request.Context()).Debug("failed to write response",
			observability.Error(err),
		)
	}
}
