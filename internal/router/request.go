package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/blackroad/workers/internal/util"
)

// ClientMetadata describes the caller as seen by the transport.
type ClientMetadata struct {
	IP      string
	Country string
	Region  string
}

// BodyReader returns the full request payload. It is called at most once.
type BodyReader func() ([]byte, error)

// BodyFromBytes returns a BodyReader over a fixed payload.
func BodyFromBytes(b []byte) BodyReader {
	return func() ([]byte, error) {
		return b, nil
	}
}

// BodyFromReader returns a BodyReader that drains r, reading at most
// limit bytes when limit is positive.
func BodyFromReader(r io.Reader, limit int64) BodyReader {
	return func() ([]byte, error) {
		if r == nil {
			return nil, nil
		}
		if limit > 0 {
			r = io.LimitReader(r, limit)
		}
		return io.ReadAll(r)
	}
}

// RequestContext is the read-only view of one request handed to a
// handler. Header lookups are case-insensitive.
type RequestContext struct {
	Method string
	Path   string
	Header http.Header
	Client ClientMetadata

	ctx    context.Context
	params map[string]string

	readBody BodyReader
	bodyOnce sync.Once
	body     []byte
	bodyErr  error
}

// NewRequestContext creates a request context. A nil body reads as empty.
func NewRequestContext(
	ctx context.Context,
	method, path string,
	header http.Header,
	body BodyReader,
	client ClientMetadata,
) *RequestContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if header == nil {
		header = make(http.Header)
	}
	return &RequestContext{
		Method:   method,
		Path:     path,
		Header:   header,
		Client:   client,
		ctx:      ctx,
		readBody: body,
	}
}

// Context returns the request's context.
func (r *RequestContext) Context() context.Context {
	return r.ctx
}

// Param returns a path parameter captured by the matched route.
func (r *RequestContext) Param(name string) string {
	return r.params[name]
}

// Rest returns the path remainder after a prefix route's prefix.
func (r *RequestContext) Rest() string {
	return r.params[RestParam]
}

// Body reads and caches the request payload.
func (r *RequestContext) Body() ([]byte, error) {
	r.bodyOnce.Do(func() {
		if r.readBody == nil {
			return
		}
		r.body, r.bodyErr = r.readBody()
	})
	return r.body, r.bodyErr
}

// DecodeJSON parses the payload into v. Any read or syntax failure is
// reported as a *util.BodyError; a blank payload wraps util.ErrEmptyBody.
func (r *RequestContext) DecodeJSON(v any) error {
	data, err := r.Body()
	if err != nil {
		return util.NewBodyError(fmt.Errorf("read: %w", err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return util.NewBodyError(util.ErrEmptyBody)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return util.NewBodyError(err)
	}
	return nil
}
