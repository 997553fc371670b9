package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"owasp-controls-demo/backend/internal/comment"
	"owasp-controls-demo/backend/internal/pipeline"
	"owasp-controls-demo/backend/internal/sanitize"
)

// AddComment handles POST /comments/{variant}. The insecure variant stores the comment as
// given; the secure variant HTML-escapes it first.
func (a *API) AddComment(w http.ResponseWriter, r *http.Request) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	var body struct {
		Comment *string `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, v, err)
		return
	}
	if body.Comment == nil {
		a.writeError(w, r, v, missing("comment"))
		return
	}
	c, err := a.deps.Comments.Add(r.Context(), *body.Comment, sanitize.For(v == pipeline.VariantSecure))
	if errors.Is(err, comment.ErrEmpty) {
		a.writeError(w, r, v, missing("comment"))
		return
	}
	if err != nil {
		a.writeError(w, r, v, err)
		return
	}
	resp := map[string]string{
		"message": fmt.Sprintf("Comment added (%s)", v),
		"comment": c.Body,
	}
	if v != pipeline.VariantSecure {
		resp["warning"] = "This comment is stored unsanitized and may contain markup or script"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListComments handles GET /comments.
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Comments.List(r.Context())
	if err != nil {
		a.writeError(w, r, pipeline.VariantSecure, err)
		return
	}
	bodies := make([]string, 0, len(list))
	for _, c := range list {
		bodies = append(bodies, c.Body)
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": bodies})
}
