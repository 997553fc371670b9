package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"owasp-controls-demo/backend/internal/audit"
	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/pipeline"
)

type profileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func toProfile(i *domain.Identity) profileResponse {
	return profileResponse{ID: i.ID, Username: i.Username, Email: i.Email, IsAdmin: i.IsAdmin()}
}

// Profile handles GET /profile/{variant}/{id}. The secure variant lets only the owner or an
// admin read the profile.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	a.readIdentity(w, r, "profile_read")
}

// User handles GET /user/{variant}/{id}. Same lookup as Profile; the demo differs in how
// errors and headers are rendered, which writeError and the header middleware decide.
func (a *API) User(w http.ResponseWriter, r *http.Request) {
	a.readIdentity(w, r, "user_read")
}

func (a *API) readIdentity(w http.ResponseWriter, r *http.Request, name string) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	id := chi.URLParam(r, "id")
	out, ok := a.run(w, r, pipeline.Request{
		Variant:         v,
		Name:            name,
		ResourceOwnerID: id,
		Action: func(ctx context.Context, _ *domain.Identity) (any, error) {
			i, err := a.deps.Identities.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if i == nil {
				return nil, fmt.Errorf("user %s: %w", id, errNotFound)
			}
			return toProfile(i), nil
		},
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, out.Result)
}

// DeleteAccount handles DELETE /accounts/{variant}/{id}?confirm=<marker>. The secure
// variant requires ownership (or admin) and the confirmation marker.
func (a *API) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	id := chi.URLParam(r, "id")
	_, ok = a.run(w, r, pipeline.Request{
		Variant:           v,
		Name:              audit.ActionAccountDeleted,
		ResourceOwnerID:   id,
		Destructive:       true,
		ConfirmationToken: r.URL.Query().Get("confirm"),
		Action: func(ctx context.Context, _ *domain.Identity) (any, error) {
			i, err := a.deps.Identities.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if i == nil {
				return nil, fmt.Errorf("user %s: %w", id, errNotFound)
			}
			if err := a.deps.Accounts.Delete(ctx, id); err != nil {
				return nil, err
			}
			return nil, a.deps.Identities.Delete(ctx, id)
		},
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("User %s deleted (%s)", id, v)})
}
