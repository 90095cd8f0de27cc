package router

import (
	"net/http"
	"strings"
)

// Matcher types.
const (
	MatchTypeExact  = "exact"
	MatchTypePrefix = "prefix"
)

// RestParam is the parameter key under which prefix matchers expose the
// full remainder of the path after the prefix.
const RestParam = "*"

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) (bool, map[string]string)
	Type() string
	Pattern() string
}

// ExactMatcher matches exact paths.
type ExactMatcher struct {
	path string
}

// NewExactMatcher creates a new exact path matcher.
func NewExactMatcher(path string) *ExactMatcher {
	return &ExactMatcher{path: path}
}

// Match checks if the path matches exactly.
func (m *ExactMatcher) Match(path string) (matched bool, params map[string]string) {
	return path == m.path, nil
}

// Type returns the matcher type.
func (m *ExactMatcher) Type() string {
	return MatchTypeExact
}

// Pattern returns the pattern.
func (m *ExactMatcher) Pattern() string {
	return m.path
}

// PrefixMatcher matches path prefixes. When a parameter name is set, the
// first path segment after the prefix is exposed under that name.
type PrefixMatcher struct {
	prefix string
	param  string
}

// NewPrefixMatcher creates a new prefix path matcher.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix}
}

// NewParamMatcher creates a prefix matcher that captures the first
// segment after prefix as the named parameter, e.g. "/agents/" + "id"
// turns "/agents/lucidia" into {id: "lucidia"}.
func NewParamMatcher(prefix, param string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix, param: param}
}

// Match checks if the path starts with the prefix at a segment boundary.
func (m *PrefixMatcher) Match(path string) (matched bool, params map[string]string) {
	if !strings.HasPrefix(path, m.prefix) {
		return false, nil
	}
	if len(path) != len(m.prefix) && !strings.HasSuffix(m.prefix, "/") && path[len(m.prefix)] != '/' {
		return false, nil
	}

	rest := strings.TrimPrefix(path[len(m.prefix):], "/")
	params = map[string]string{RestParam: rest}
	if m.param != "" {
		segment, _, _ := strings.Cut(rest, "/")
		params[m.param] = segment
	}
	return true, params
}

// Type returns the matcher type.
func (m *PrefixMatcher) Type() string {
	return MatchTypePrefix
}

// Pattern returns the pattern, with the parameter placeholder if any.
func (m *PrefixMatcher) Pattern() string {
	if m.param != "" {
		return m.prefix + ":" + m.param
	}
	return m.prefix
}

// MethodAny accepts every request method; the handler decides.
const MethodAny = "*"

// allowedMethods is the fixed set of methods a route may be bound to.
// OPTIONS is absent because preflight never reaches a handler.
var allowedMethods = map[string]bool{
	MethodAny:         true,
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodMatcher matches HTTP methods.
type MethodMatcher struct {
	method string
}

// NewMethodMatcher creates a new method matcher.
func NewMethodMatcher(method string) *MethodMatcher {
	return &MethodMatcher{method: strings.ToUpper(method)}
}

// Match checks if the method matches.
func (m *MethodMatcher) Match(method string) bool {
	method = strings.ToUpper(method)

	if m.method == MethodAny {
		return true
	}

	// HEAD automatically matches GET
	if method == http.MethodHead && m.method == http.MethodGet {
		return true
	}

	return m.method == method
}

// Method returns the bound method.
func (m *MethodMatcher) Method() string {
	return m.method
}
