package http

import (
	"net"
	"net/http"
	"strings"
)

// IPResolver determines the client address of a request. Forwarding headers
// are honoured only when the direct peer sits inside a trusted proxy range.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses the trusted proxy CIDRs. Entries that fail to parse are
// returned as invalid so the caller can log them; the rest are kept.
func NewIPResolver(cidrs []string) (*IPResolver, []string) {
	r := &IPResolver{}
	var invalid []string
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			invalid = append(invalid, c)
			continue
		}
		r.trusted = append(r.trusted, n)
	}
	return r, invalid
}

// ClientIP returns the first valid X-Forwarded-For entry, then X-Real-IP, for
// requests arriving through a trusted proxy. Otherwise it returns the peer
// address without its port. A nil resolver trusts nobody.
func (r *IPResolver) ClientIP(req *http.Request) string {
	peer := remoteHost(req)
	if !r.trusts(peer) {
		return peer
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		for _, hop := range strings.Split(xff, ",") {
			hop = strings.TrimSpace(hop)
			if net.ParseIP(hop) != nil {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (r *IPResolver) trusts(host string) bool {
	if r == nil || len(r.trusted) == 0 {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range r.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(req *http.Request) string {
	if req.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}
