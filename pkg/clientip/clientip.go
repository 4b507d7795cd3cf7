// Package clientip resolves the address used to key per-client rate limits.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from r.RemoteAddr. Proxy headers are
// ignored: the API is reached directly, and X-Forwarded-For would let a
// client pick its own rate-limit bucket. IPv6 addresses are returned in
// canonical form with any zone stripped.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	host = strings.TrimSpace(host)
	if i := strings.IndexByte(host, '%'); i != -1 {
		host = host[:i]
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}
