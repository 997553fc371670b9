package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"owasp-controls-demo/backend/internal/decision"
	"owasp-controls-demo/backend/internal/egress"
	identityservice "owasp-controls-demo/backend/internal/identity/service"
	"owasp-controls-demo/backend/internal/pipeline"
	"owasp-controls-demo/backend/internal/server/middleware"
)

const maxBodyBytes = 1 << 20

var errUnknownVariant = decision.Deny(decision.KindValidation, "unknown variant")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps err to an HTTP status. Denials map by kind; a few non-denial errors have
// their own status; everything else is 500.
func statusFor(err error) int {
	if _, ok := decision.AsDenial(err); ok {
		return decision.HTTPStatus(err)
	}
	var uerr *url.Error
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, identityservice.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, identityservice.ErrInvalidRegistration):
		return http.StatusBadRequest
	case errors.Is(err, egress.ErrUpstreamStatus), errors.As(err, &uerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err for variant v. The secure variant shows only the denial kind and
// reason (or a generic message); the insecure variant echoes the full error text.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, v pipeline.Variant, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	if v != pipeline.VariantSecure {
		writeJSON(w, status, map[string]any{
			"error":      err.Error(),
			"debug_info": fmt.Sprintf("%T: %+v", err, err),
		})
		return
	}
	body := map[string]any{}
	if d, ok := decision.AsDenial(err); ok {
		body["error"], body["kind"] = d.Reason, d.Kind
	} else {
		body["error"] = genericMessage(status)
	}
	writeJSON(w, status, body)
}

func genericMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "username already exists"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusBadGateway:
		return "failed to fetch url"
	default:
		return "internal error"
	}
}

// decodeJSON reads a JSON body into v. Failures are validation denials.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return decision.Deny(decision.KindValidation, "invalid json body")
	}
	return nil
}

func missing(fields string) error {
	return decision.Deny(decision.KindValidation, "missing "+fields)
}

// variant parses the {variant} URL parameter.
func variant(r *http.Request) (pipeline.Variant, bool) {
	return pipeline.ParseVariant(chi.URLParam(r, "variant"))
}

func sessionToken(r *http.Request) string {
	tok, _ := middleware.GetSessionToken(r.Context())
	return tok
}
