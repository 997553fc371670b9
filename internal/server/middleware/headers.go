package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SecurityHeaders sets the hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		next.ServeHTTP(w, r)
	})
}

// SecurityHeadersFor sets the hardening headers only when the chi URL parameter param equals value.
// Mount it on routes that carry the parameter, e.g. SecurityHeadersFor("variant", "secure").
func SecurityHeadersFor(param, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, param) == value {
				setSecurityHeaders(w.Header())
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'self'")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
}
