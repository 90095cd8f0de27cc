package util

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks.
var (
	// ErrConfigInvalid matches every *ConfigError.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrDuplicateRoute causes the ConfigError returned for a route
	// registered twice.
	ErrDuplicateRoute = errors.New("duplicate route")
	// ErrInvalidBody matches every *BodyError.
	ErrInvalidBody = errors.New("invalid request body")
	// ErrEmptyBody causes the BodyError returned for a blank payload.
	ErrEmptyBody = errors.New("empty request body")
)

// ConfigError reports a rejected route registration or service setting.
// Field names the setting, such as "route.method" or "services.auth".
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrConfigInvalid. The cause chain is
// matched through Unwrap.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigInvalid
}

// NewConfigError creates a ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a ConfigError wrapping cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// BodyError reports a request payload that could not be read or decoded.
type BodyError struct {
	Cause error
}

// Error implements the error interface.
func (e *BodyError) Error() string {
	if e.Cause == nil {
		return ErrInvalidBody.Error()
	}
	return ErrInvalidBody.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the underlying error.
func (e *BodyError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrInvalidBody.
func (e *BodyError) Is(target error) bool {
	return target == ErrInvalidBody
}

// NewBodyError creates a BodyError wrapping cause.
func NewBodyError(cause error) *BodyError {
	return &BodyError{Cause: cause}
}
