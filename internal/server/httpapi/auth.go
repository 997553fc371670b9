package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"owasp-controls-demo/backend/internal/account"
	"owasp-controls-demo/backend/internal/audit"
	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/pipeline"
	"owasp-controls-demo/backend/internal/server/middleware"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /login, the session entry point shared by the demos. It applies the
// secure credential checks.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	a.login(w, r, pipeline.VariantSecure)
}

// LoginVariant handles POST /login/{variant}.
func (a *API) LoginVariant(w http.ResponseWriter, r *http.Request) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	a.login(w, r, v)
}

func (a *API) login(w http.ResponseWriter, r *http.Request, v pipeline.Variant) {
	var body credentialsRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, v, err)
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		a.writeError(w, r, v, missing("username or password"))
		return
	}
	out, ok := a.run(w, r, pipeline.Request{
		Variant: v,
		Name:    "login",
		Login: &pipeline.Login{
			Username:  body.Username,
			Secret:    body.Password,
			SourceKey: audit.ClientIP(r.Context()),
		},
	})
	if !ok {
		return
	}
	token, sess, err := a.deps.Sessions.Create(r.Context(), out.Identity, audit.ClientIP(r.Context()))
	if err != nil {
		a.writeError(w, r, v, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   a.deps.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   fmt.Sprintf("Logged in as %s (%s)", out.Identity.Username, v),
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout handles POST /logout. It succeeds whether or not a session was present.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := sessionToken(r); token != "" {
		if identity, err := a.deps.Sessions.Resolve(ctx, token); err == nil {
			a.deps.Audit.LogEvent(ctx, audit.Event{IdentityID: identity.ID, Username: identity.Username, Action: audit.ActionLogout, Outcome: audit.OutcomeSuccess})
		}
		if err := a.deps.Sessions.Destroy(ctx, token); err != nil {
			a.writeError(w, r, pipeline.VariantSecure, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{Name: middleware.SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Register handles POST /register/{variant}. The insecure variant stores the password as
// plaintext; the secure variant stores a bcrypt digest.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	var body credentialsRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, v, err)
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		a.writeError(w, r, v, missing("username or password"))
		return
	}
	scheme := domain.SchemePlaintext
	if v == pipeline.VariantSecure {
		scheme = domain.SchemeBcrypt
	}
	ctx := r.Context()
	identity, err := a.deps.Identities.Register(ctx, body.Username, body.Email, body.Password, scheme)
	if err != nil {
		a.writeError(w, r, v, err)
		return
	}
	if err := a.deps.Accounts.Put(ctx, &account.Account{ID: identity.ID, Username: identity.Username}); err != nil {
		a.writeError(w, r, v, err)
		return
	}
	a.auditFor(v).LogEvent(ctx, audit.Event{IdentityID: identity.ID, Username: identity.Username, Action: audit.ActionRegistered, Outcome: audit.OutcomeSuccess})
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("User %s registered (%s)", identity.Username, v),
		"id":      identity.ID,
	})
}
