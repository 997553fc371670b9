// Package httpapi exposes the paired insecure/secure demo routes over HTTP+JSON.
// Every protected route runs its business step through the control pipeline; handlers
// only decode input, build the pipeline request and render the outcome.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"owasp-controls-demo/backend/internal/account"
	"owasp-controls-demo/backend/internal/audit"
	"owasp-controls-demo/backend/internal/comment"
	identityservice "owasp-controls-demo/backend/internal/identity/service"
	"owasp-controls-demo/backend/internal/integrity"
	"owasp-controls-demo/backend/internal/logging"
	"owasp-controls-demo/backend/internal/pipeline"
	sessionservice "owasp-controls-demo/backend/internal/session/service"
)

// errNotFound marks a missing resource. Handlers wrap it with the resource name.
var errNotFound = errors.New("not found")

// Pinger is implemented by backing stores that can report connectivity (e.g. *sql.DB, kv.RedisStore).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by access guards that load a policy engine (e.g. access.RegoGuard).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the services behind the HTTP routes. Pipeline, Sessions, Identities, Accounts,
// Comments and Signer are required.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Sessions   *sessionservice.Service
	Identities *identityservice.Service
	Accounts   *account.Repository
	Comments   *comment.Store
	Signer     *integrity.Signer
	// Audit records logout and registration events for the secure variant. Nil disables them.
	Audit audit.AuditLogger
	// Pinger is checked by /healthz. Nil skips the store check.
	Pinger Pinger
	// PolicyChecker is checked by /healthz. Nil skips the policy check.
	PolicyChecker PolicyChecker
	Logger        logging.Logger
	// SecureCookies sets the Secure flag on the session cookie.
	SecureCookies bool
}

// API implements the HTTP handlers.
type API struct {
	deps Deps
	log  logging.Logger
}

// New returns an API over deps.
func New(deps Deps) (*API, error) {
	switch {
	case deps.Pipeline == nil:
		return nil, errors.New("httpapi: pipeline is required")
	case deps.Sessions == nil:
		return nil, errors.New("httpapi: session service is required")
	case deps.Identities == nil:
		return nil, errors.New("httpapi: identity service is required")
	case deps.Accounts == nil:
		return nil, errors.New("httpapi: account repository is required")
	case deps.Comments == nil:
		return nil, errors.New("httpapi: comment store is required")
	case deps.Signer == nil:
		return nil, errors.New("httpapi: signer is required")
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &API{deps: deps, log: log}, nil
}

// auditFor returns the audit logger for variant v. The insecure variant keeps no trail.
func (a *API) auditFor(v pipeline.Variant) audit.AuditLogger {
	if v == pipeline.VariantSecure {
		return a.deps.Audit
	}
	return audit.Nop{}
}

// run executes req and writes the error response when the outcome is not Executed.
func (a *API) run(w http.ResponseWriter, r *http.Request, req pipeline.Request) (pipeline.Outcome, bool) {
	req.SessionToken = sessionToken(r)
	out := a.deps.Pipeline.Run(r.Context(), req)
	if out.State != pipeline.StateExecuted {
		a.writeError(w, r, req.Variant, out.Err)
		return out, false
	}
	return out, true
}
