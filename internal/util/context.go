package util

import (
	"context"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyStartTime ctxKey = "start_time"
	ctxKeyRoute     ctxKey = "route"
	ctxKeyService   ctxKey = "service"
)

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// ContextWithService adds the serving worker name to the context.
func ContextWithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// ServiceFromContext extracts the serving worker name from context.
func ServiceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyService).(string); ok {
		return v
	}
	return ""
}

// RouteHolder is a slot the router fills with the matched route pattern
// so that outer middleware can label metrics after dispatch.
type RouteHolder struct {
	Pattern string
}

// ContextWithRouteHolder adds an empty route holder to the context.
func ContextWithRouteHolder(ctx context.Context) (context.Context, *RouteHolder) {
	h := &RouteHolder{}
	return context.WithValue(ctx, ctxKeyRoute, h), h
}

// WithRoute records the matched route pattern in ctx's holder, so outer
// middleware sharing the holder sees it. A holder is added when ctx has
// none.
func WithRoute(ctx context.Context, pattern string) context.Context {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		h.Pattern = pattern
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRoute, &RouteHolder{Pattern: pattern})
}

// RouteFromContext extracts the matched route pattern from context.
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		return h.Pattern
	}
	return ""
}

// ElapsedTime returns the elapsed time since the start time in context.
func ElapsedTime(ctx context.Context) time.Duration {
	startTime := StartTimeFromContext(ctx)
	if startTime.IsZero() {
		return 0
	}
	return time.Since(startTime)
}
