package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/util"
)

const tracerName = "github.com/blackroad/workers/internal/router"

// HandlerFunc handles one matched request.
type HandlerFunc func(req *RequestContext) (*ResponseEnvelope, error)

// DispatchRecorder receives one observation per dispatched request.
type DispatchRecorder interface {
	RecordDispatch(service, route, outcome string)
}

// Route is a registered (method, matcher, handler) triple.
type Route struct {
	Method  *MethodMatcher
	Matcher PathMatcher
	Handler HandlerFunc
}

func (r *Route) key() string {
	return r.Method.Method() + " " + r.Matcher.Type() + " " + r.Matcher.Pattern()
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method  string
	Type    string
	Pattern string
}

// MatchResult contains the result of a route match.
type MatchResult struct {
	Route      *Route
	PathParams map[string]string
}

// Router dispatches requests to handlers and applies one cross-origin
// policy to every response it produces. Registration happens during
// setup; Handle is safe for concurrent use.
type Router struct {
	name               string
	policy             CrossOriginPolicy
	policyHeader       http.Header
	includeErrorDetail bool
	availableEndpoints []string

	logger   observability.Logger
	recorder DispatchRecorder
	tracer   trace.Tracer

	exact  []*Route
	prefix []*Route
	all    []*Route
	keys   map[string]struct{}
	mu     sync.RWMutex
}

// Option is a functional option for configuring the router.
type Option func(*Router)

// WithCORSPolicy sets the cross-origin policy.
func WithCORSPolicy(policy CrossOriginPolicy) Option {
	return func(r *Router) {
		r.policy = policy
	}
}

// WithErrorDetail includes the fault message in 500 bodies.
func WithErrorDetail(include bool) Option {
	return func(r *Router) {
		r.includeErrorDetail = include
	}
}

// WithAvailableEndpoints lists endpoints in 404 bodies.
func WithAvailableEndpoints(endpoints []string) Option {
	return func(r *Router) {
		r.availableEndpoints = append([]string(nil), endpoints...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics sets the dispatch recorder.
func WithMetrics(recorder DispatchRecorder) Option {
	return func(r *Router) {
		r.recorder = recorder
	}
}

// WithTracerProvider sets the tracer provider used for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a new router for the named service.
func New(name string, opts ...Option) *Router {
	r := &Router{
		name:   name,
		policy: DefaultCrossOriginPolicy(),
		logger: observability.NopLogger(),
		keys:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.tracer == nil {
		r.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	r.policyHeader = r.policy.Header()

	return r
}

// Name returns the service name.
func (r *Router) Name() string {
	return r.name
}

// Policy returns the cross-origin policy.
func (r *Router) Policy() CrossOriginPolicy {
	return r.policy
}

// Register binds a handler to a method and path matcher. Registering the
// same method, matcher type and pattern twice is a configuration error.
func (r *Router) Register(method string, matcher PathMatcher, handler HandlerFunc) error {
	method = strings.ToUpper(strings.TrimSpace(method))

	if matcher == nil {
		return util.NewConfigError("route.matcher", "matcher is required")
	}
	if handler == nil {
		return util.NewConfigError("route.handler", "handler is required")
	}
	if !allowedMethods[method] {
		return util.NewConfigError("route.method", fmt.Sprintf("unsupported method %q", method))
	}

	route := &Route{
		Method:  NewMethodMatcher(method),
		Matcher: matcher,
		Handler: handler,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := route.key()
	if _, exists := r.keys[key]; exists {
		return util.NewConfigErrorWithCause("route", "duplicate route: "+key, util.ErrDuplicateRoute)
	}
	r.keys[key] = struct{}{}

	switch matcher.Type() {
	case MatchTypeExact:
		r.exact = append(r.exact, route)
	default:
		r.prefix = append(r.prefix, route)
	}
	r.all = append(r.all, route)

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Router) MustRegister(method string, matcher PathMatcher, handler HandlerFunc) {
	if err := r.Register(method, matcher, handler); err != nil {
		panic(err)
	}
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RouteInfo, 0, len(r.all))
	for _, route := range r.all {
		infos = append(infos, RouteInfo{
			Method:  route.Method.Method(),
			Type:    route.Matcher.Type(),
			Pattern: route.Matcher.Pattern(),
		})
	}
	return infos
}

// Match finds the route for a request. Exact routes are tried before
// prefix routes; within a class the first registered route wins. When
// only the path matched, the second return value lists the methods that
// would have been accepted.
func (r *Router) Match(method, path string) (*MatchResult, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var allowed []string
	for _, class := range [][]*Route{r.exact, r.prefix} {
		for _, route := range class {
			matched, params := route.Matcher.Match(path)
			if !matched {
				continue
			}
			if route.Method.Match(method) {
				return &MatchResult{Route: route, PathParams: params}, nil
			}
			allowed = append(allowed, route.Method.Method())
		}
	}

	return nil, allowed
}

// Handle dispatches a request and returns the finished response. It never
// fails: handler errors and panics become 500 responses. Every response,
// including errors and preflight, carries the cross-origin policy.
func (r *Router) Handle(req *RequestContext) *Response {
	if strings.EqualFold(req.Method, http.MethodOptions) {
		r.record("", observability.OutcomePreflight)
		return &Response{
			StatusCode: http.StatusNoContent,
			Header:     r.policyHeader.Clone(),
		}
	}

	ctx, span := r.tracer.Start(req.Context(), "router.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			observability.AttrWorkerService.String(r.name),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()
	if util.ServiceFromContext(ctx) == "" {
		ctx = util.ContextWithService(ctx, r.name)
	}
	req.ctx = ctx

	result, allowed := r.Match(req.Method, req.Path)
	if result == nil {
		if len(allowed) > 0 {
			r.record("", observability.OutcomeMethodNotAllowed)
			span.SetAttributes(observability.AttrRouterOutcome.String(observability.OutcomeMethodNotAllowed))
			env := MethodNotAllowed("").WithHeader("Allow", strings.Join(dedupe(allowed), ", "))
			return r.finalize(ctx, env)
		}

		r.record("", observability.OutcomeNotFound)
		span.SetAttributes(observability.AttrRouterOutcome.String(observability.OutcomeNotFound))
		return r.finalize(ctx, JSON(http.StatusNotFound, ErrorBody{
			Error:              KindNotFound.String(),
			Path:               req.Path,
			AvailableEndpoints: r.availableEndpoints,
		}))
	}

	pattern := result.Route.Matcher.Pattern()
	ctx = util.WithRoute(ctx, pattern)
	req.ctx = ctx
	req.params = result.PathParams
	span.SetAttributes(observability.AttrRoute.String(pattern))

	env, err := invoke(result.Route.Handler, req)
	if err == nil && env == nil {
		err = ErrNilEnvelope
	}
	if err != nil {
		return r.fault(ctx, span, pattern, err)
	}

	resp, encoded := r.finalizeChecked(ctx, env)
	if !encoded {
		span.SetStatus(codes.Error, "response encoding failed")
		r.record(pattern, observability.OutcomeFault)
		return resp
	}

	r.record(pattern, observability.OutcomeMatched)
	observability.SetSpanStatus(span, resp.StatusCode)
	return resp
}

func invoke(h HandlerFunc, req *RequestContext) (env *ResponseEnvelope, err error) {
	defer func() {
		if v := recover(); v != nil {
			env = nil
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return h(req)
}

func (r *Router) fault(ctx context.Context, span trace.Span, pattern string, err error) *Response {
	fields := []observability.Field{observability.Error(err)}
	var pe *PanicError
	if errors.As(err, &pe) {
		fields = append(fields, observability.String("stack", string(pe.Stack)))
	}
	r.logger.WithContext(ctx).Error("handler failed", fields...)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.record(pattern, observability.OutcomeFault)

	return r.finalize(ctx, r.internalError(err))
}

func (r *Router) internalError(err error) *ResponseEnvelope {
	body := ErrorBody{Error: KindInternal.String()}
	if r.includeErrorDetail && err != nil {
		body.Message = err.Error()
	}
	return JSON(http.StatusInternalServerError, body)
}

// Respond finalizes an envelope produced outside dispatch, such as a
// transport-level rejection, so it carries the same policy headers.
func (r *Router) Respond(ctx context.Context, env *ResponseEnvelope) *Response {
	if env == nil {
		env = r.internalError(ErrNilEnvelope)
	}
	return r.finalize(ctx, env)
}

// finalize serialises the envelope and layers headers: content type,
// then handler headers, then the cross-origin policy.
func (r *Router) finalize(ctx context.Context, env *ResponseEnvelope) *Response {
	resp, _ := r.finalizeChecked(ctx, env)
	return resp
}

// finalizeChecked is finalize that also reports whether the envelope
// encoded cleanly; on failure the response is a 500.
func (r *Router) finalizeChecked(ctx context.Context, env *ResponseEnvelope) (*Response, bool) {
	encoded := true
	body, contentType, err := env.encode()
	if err != nil {
		encoded = false
		r.logger.WithContext(ctx).Error("failed to encode response", observability.Error(err))
		env = r.internalError(err)
		body, contentType, _ = env.encode()
	}

	status := env.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	h := make(http.Header, len(env.Header)+4)
	h.Set("Content-Type", contentType)
	MergeHeaders(h, env.Header, r.policyHeader)

	return &Response{
		StatusCode: status,
		Header:     h,
		Body:       body,
	}, encoded
}

func (r *Router) record(route, outcome string) {
	if r.recorder == nil {
		return
	}
	r.recorder.RecordDispatch(r.name, route, outcome)
}

func dedupe(methods []string) []string {
	seen := make(map[string]struct{}, len(methods))
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
