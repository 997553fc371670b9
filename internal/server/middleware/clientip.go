package middleware

import (
	"net"
	"net/http"
	"strings"

	"owasp-controls-demo/backend/internal/audit"
)

// ClientIP stores the client IP in the request context for the audit logger and the login
// attempt counter. Forwarding headers are honored only when trustProxy is set, since any
// client can send them.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithClientIP(r.Context(), clientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP returns the first X-Forwarded-For hop or X-Real-IP when trusted, else the peer host, or "unknown".
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
			if i := strings.Index(s, ","); i > 0 {
				s = strings.TrimSpace(s[:i])
			}
			return s
		}
		if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
			return s
		}
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
