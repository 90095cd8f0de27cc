package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// HeaderXForwardedFor is the standard proxy chain header.
const HeaderXForwardedFor = "X-Forwarded-For"

// ClientIPExtractor resolves the caller's address. A configured edge
// header such as CF-Connecting-IP wins when present. Otherwise
// X-Forwarded-For is consulted only when the direct peer is a trusted
// proxy, and the remote address is used in every other case.
type ClientIPExtractor struct {
	header   string
	prefixes []netip.Prefix
}

// NewClientIPExtractor creates an extractor. Entries in trustedProxies may
// be CIDRs or bare addresses; unparsable entries are skipped.
func NewClientIPExtractor(header string, trustedProxies []string) *ClientIPExtractor {
	prefixes := make([]netip.Prefix, 0, len(trustedProxies))
	for _, proxy := range trustedProxies {
		if p, err := netip.ParsePrefix(proxy); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(proxy)
		if err != nil {
			continue
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return &ClientIPExtractor{header: header, prefixes: prefixes}
}

// Extract returns the client IP for r.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	if e.header != "" {
		if v := strings.TrimSpace(r.Header.Get(e.header)); v != "" {
			return v
		}
	}

	remote := stripPort(r.RemoteAddr)
	if len(e.prefixes) == 0 || !e.isTrusted(remote) {
		return remote
	}
	return e.fromForwardedFor(r, remote)
}

// fromForwardedFor walks X-Forwarded-For right to left and returns the
// first untrusted hop.
func (e *ClientIPExtractor) fromForwardedFor(r *http.Request, fallback string) string {
	xff := r.Header.Get(HeaderXForwardedFor)
	if xff == "" {
		return fallback
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !e.isTrusted(hop) {
			return hop
		}
	}
	return fallback
}

func (e *ClientIPExtractor) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range e.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// stripPort removes the port from host:port, returning addr unchanged
// when it has none.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
