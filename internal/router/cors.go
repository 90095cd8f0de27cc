package router

import (
	"net/http"
	"strings"
)

// CORS response header names.
const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
)

// CrossOriginPolicy is the static set of cross-origin headers attached
// to every response of a router.
type CrossOriginPolicy struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

// DefaultCrossOriginPolicy returns the policy shared by the analytics
// worker: any origin, GET/POST/OPTIONS.
func DefaultCrossOriginPolicy() CrossOriginPolicy {
	return CrossOriginPolicy{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
}

// Header renders the policy as response headers. Empty method or header
// sets are omitted; an empty origin means "*".
func (p CrossOriginPolicy) Header() http.Header {
	h := make(http.Header, 3)

	origin := p.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	h.Set(HeaderAllowOrigin, origin)

	if len(p.AllowMethods) > 0 {
		h.Set(HeaderAllowMethods, strings.Join(p.AllowMethods, ", "))
	}
	if len(p.AllowHeaders) > 0 {
		h.Set(HeaderAllowHeaders, strings.Join(p.AllowHeaders, ", "))
	}

	return h
}

// MergeHeaders copies each layer into dst in order. A header present in
// a later layer replaces every value set by an earlier one, so the last
// layer wins on conflict.
func MergeHeaders(dst http.Header, layers ...http.Header) {
	for _, layer := range layers {
		for name, values := range layer {
			if len(values) == 0 {
				continue
			}
			dst[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}
}
