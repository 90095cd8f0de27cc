// Package router provides the path-dispatch engine shared by the edge
// workers.
//
// A Router holds an ordered table of routes, each binding an HTTP method
// (or the "*" wildcard) and a path matcher to a handler. Every response
// leaving the router, including preflight answers and error envelopes,
// carries the router's cross-origin policy headers.
//
// # Matching
//
// Exact routes are checked before prefix routes. Within each class the
// first registered route whose path and method both match wins, so
// registration order is significant when patterns overlap.
//
// # Usage
//
//	r := router.New("api",
//	    router.WithCORSPolicy(router.DefaultCrossOriginPolicy()),
//	    router.WithErrorDetail(true),
//	)
//	_ = r.Register(http.MethodGet, router.NewExactMatcher("/health"), healthHandler)
//	_ = r.Register(http.MethodGet, router.NewParamMatcher("/agents/", "id"), agentHandler)
//
//	resp := r.Handle(reqCtx)
//
// Handlers return a ResponseEnvelope. A returned error or a panic is
// converted into a 500 envelope and never escapes Handle.
package router
