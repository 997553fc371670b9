package middleware

import (
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

// SessionCookie is the cookie the login handlers set.
const SessionCookie = "session"

// Session copies the session token from the Authorization header (Bearer) or, failing that,
// the session cookie into the request context. Requests without a token pass through; the
// pipeline rejects them where a session is required.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r.Header.Get("Authorization"))
		if token == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				token = strings.TrimSpace(c.Value)
			}
		}
		if token != "" {
			r = r.WithContext(WithSessionToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer returns the Bearer token from an Authorization value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
