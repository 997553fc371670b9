package middleware

import "context"

type contextKey struct{ name string }

var sessionTokenKey = contextKey{"session_token"}

// WithSessionToken returns a context carrying the raw session token.
// The token is not validated here; the pipeline resolves it.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

// GetSessionToken returns the session token from context and true if set; otherwise "", false.
func GetSessionToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionTokenKey).(string)
	return v, ok && v != ""
}
