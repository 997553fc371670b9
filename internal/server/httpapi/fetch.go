package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"owasp-controls-demo/backend/internal/pipeline"
)

// previewRunes caps the fetched content echoed back to the caller.
const previewRunes = 200

// Fetch handles POST /fetch/{variant}. The insecure variant fetches any URL; the secure
// variant validates the URL and every redirect against the egress policy first.
func (a *API) Fetch(w http.ResponseWriter, r *http.Request) {
	v, ok := variant(r)
	if !ok {
		a.writeError(w, r, pipeline.VariantSecure, errUnknownVariant)
		return
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, v, err)
		return
	}
	target := strings.TrimSpace(body.URL)
	if target == "" {
		a.writeError(w, r, v, missing("url"))
		return
	}
	out, ok := a.run(w, r, pipeline.Request{Variant: v, Name: "fetch", EgressURL: target})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Content fetched (%s)", v),
		"url":     out.Fetched.URL,
		"status":  out.Fetched.StatusCode,
		"content": preview(out.Fetched.Body),
	})
}

func preview(b []byte) string {
	s := strings.ToValidUTF8(string(b), "�")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes])
}
