package router

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Content types.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeGIF    = "image/gif"
)

// ResponseEnvelope is what a handler returns: a status, a body that is
// either a JSON-serialisable value or raw bytes, and optional headers.
type ResponseEnvelope struct {
	StatusCode  int
	Body        any
	Raw         []byte
	ContentType string
	Header      http.Header
}

// JSON builds an envelope whose body is serialised as JSON.
func JSON(status int, body any) *ResponseEnvelope {
	return &ResponseEnvelope{
		StatusCode:  status,
		Body:        body,
		ContentType: ContentTypeJSON,
	}
}

// OK builds a 200 JSON envelope.
func OK(body any) *ResponseEnvelope {
	return JSON(http.StatusOK, body)
}

// Bytes builds an envelope with a raw payload.
func Bytes(status int, contentType string, raw []byte) *ResponseEnvelope {
	return &ResponseEnvelope{
		StatusCode:  status,
		Raw:         raw,
		ContentType: contentType,
	}
}

// WithHeader sets a response header on the envelope and returns it.
func (e *ResponseEnvelope) WithHeader(name, value string) *ResponseEnvelope {
	if e.Header == nil {
		e.Header = make(http.Header)
	}
	e.Header.Set(name, value)
	return e
}

// encode serialises the body. JSON is indented by two spaces.
func (e *ResponseEnvelope) encode() ([]byte, string, error) {
	if e.Raw != nil {
		ct := e.ContentType
		if ct == "" {
			ct = ContentTypeBinary
		}
		return e.Raw, ct, nil
	}

	ct := e.ContentType
	if ct == "" {
		ct = ContentTypeJSON
	}
	if e.Body == nil {
		return nil, ct, nil
	}

	data, err := json.MarshalIndent(e.Body, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return data, ct, nil
}

// Response is the finished outbound response produced by Router.Handle.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// WriteTo writes the response to w.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for name, values := range r.Header {
		dst[name] = values
	}
	if len(r.Body) > 0 {
		dst.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
