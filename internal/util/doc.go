// Package util provides shared error types and context helpers for the
// edge workers.
//
// # Context Helpers
//
// Request-scoped values carried between the transport and the router:
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
//
// # Error Types
//
// ConfigError is returned for rejected route registrations and service
// settings and matches ErrConfigInvalid. BodyError is returned when a
// request payload cannot be decoded and matches ErrInvalidBody. Both
// expose their cause through Unwrap, so errors.Is(err, ErrDuplicateRoute)
// and errors.Is(err, ErrEmptyBody) work on the wrapped values.
package util
