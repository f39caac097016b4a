package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from the request.
// Uses r.RemoteAddr only; the companion is reached directly by the UI shell,
// so proxy headers are never trusted.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// IsLoopback reports whether the request came from the same device
func IsLoopback(r *http.Request) bool {
	ip := net.ParseIP(RealClientIP(r))
	return ip != nil && ip.IsLoopback()
}
