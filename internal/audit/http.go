package audit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller's address for an audit entry. Proxy headers
// win over RemoteAddr: the books API normally sits behind a reverse proxy,
// so RemoteAddr is usually the proxy itself. X-Forwarded-For may carry a
// hop chain; the first entry is the original client.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if chain := r.Header.Get("X-Forwarded-For"); chain != "" {
		first, _, _ := strings.Cut(chain, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
