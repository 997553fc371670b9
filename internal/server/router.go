// Package server wires the HTTP middleware stack and routes.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"owasp-controls-demo/backend/internal/logging"
	"owasp-controls-demo/backend/internal/pipeline"
	"owasp-controls-demo/backend/internal/server/httpapi"
	"owasp-controls-demo/backend/internal/server/middleware"
)

// Options configures the router.
type Options struct {
	// ServiceName names the server spans.
	ServiceName string
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
	// Logger receives one line per request. Nil disables request logging.
	Logger logging.Logger
}

// NewRouter returns the HTTP handler for api.
//
// Route → handler mapping:
//   - POST   /login                    → Login (secure checks, session entry point)
//   - POST   /logout                   → Logout
//   - POST   /login/{variant}          → LoginVariant       (credential checks, audit trail)
//   - POST   /register/{variant}       → Register           (secret storage)
//   - GET    /profile/{variant}/{id}   → Profile            (access control)
//   - GET    /user/{variant}/{id}      → User               (error detail, security headers)
//   - DELETE /accounts/{variant}/{id}  → DeleteAccount      (access control, confirmation)
//   - POST   /comments/{variant}       → AddComment         (sanitization)
//   - GET    /comments                 → ListComments
//   - POST   /balance/{variant}        → UpdateBalance      (integrity)
//   - POST   /signature                → Signature
//   - POST   /fetch/{variant}          → Fetch              (egress policy)
//   - GET    /healthz                  → Healthz
//
// Responses on {variant}=secure routes carry the security headers.
func NewRouter(api *httpapi.API, opts Options) http.Handler {
	if opts.ServiceName == "" {
		opts.ServiceName = "owasp-controls-demo"
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientIP(opts.TrustProxyHeaders))
	r.Use(middleware.RequestLog(opts.Logger, map[string]bool{"/healthz": true}))
	r.Use(middleware.Session)

	r.Get("/healthz", api.Healthz)
	r.Post("/login", api.Login)
	r.Post("/logout", api.Logout)
	r.Get("/comments", api.ListComments)
	r.Post("/signature", api.Signature)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeadersFor("variant", string(pipeline.VariantSecure)))
		r.Post("/login/{variant}", api.LoginVariant)
		r.Post("/register/{variant}", api.Register)
		r.Get("/profile/{variant}/{id}", api.Profile)
		r.Get("/user/{variant}/{id}", api.User)
		r.Delete("/accounts/{variant}/{id}", api.DeleteAccount)
		r.Post("/comments/{variant}", api.AddComment)
		r.Post("/balance/{variant}", api.UpdateBalance)
		r.Post("/fetch/{variant}", api.Fetch)
	})

	return otelhttp.NewHandler(r, opts.ServiceName)
}
