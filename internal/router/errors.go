package router

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies the error envelopes a worker can return.
type ErrorKind int

// Error kinds.
const (
	KindBadRequest ErrorKind = iota
	KindUnauthorized
	KindNotFound
	KindMethodNotAllowed
	KindInternal
)

// Status returns the HTTP status code for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// String returns the default error message for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "Bad Request"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotFound:
		return "Not Found"
	case KindMethodNotAllowed:
		return "Method Not Allowed"
	default:
		return "Internal Server Error"
	}
}

// ErrorBody is the fixed shape of every router-generated error body.
type ErrorBody struct {
	Error              string   `json:"error"`
	Message            string   `json:"message,omitempty"`
	Path               string   `json:"path,omitempty"`
	AvailableEndpoints []string `json:"availableEndpoints,omitempty"`
}

// Fail builds an error envelope of the given kind. An empty message
// falls back to the kind's default text.
func Fail(kind ErrorKind, message string) *ResponseEnvelope {
	if message == "" {
		message = kind.String()
	}
	return JSON(kind.Status(), ErrorBody{Error: message})
}

// BadRequest builds a 400 envelope.
func BadRequest(message string) *ResponseEnvelope {
	return Fail(KindBadRequest, message)
}

// Unauthorized builds a 401 envelope.
func Unauthorized(message string) *ResponseEnvelope {
	return Fail(KindUnauthorized, message)
}

// NotFound builds a 404 envelope.
func NotFound(message string) *ResponseEnvelope {
	return Fail(KindNotFound, message)
}

// MethodNotAllowed builds a 405 envelope.
func MethodNotAllowed(message string) *ResponseEnvelope {
	return Fail(KindMethodNotAllowed, message)
}

// ErrNilEnvelope is reported when a handler returns neither an envelope
// nor an error.
var ErrNilEnvelope = errors.New("handler returned nil envelope")

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
