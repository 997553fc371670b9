// Package decision defines the denial taxonomy shared by every security control
// and its mapping onto HTTP status codes. A control allows by returning nil and
// denies by returning a *Denial.
package decision

import (
	"errors"
	"net/http"
)

// Kind classifies a denial. Only the kind and the reason are ever shown to a client.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindRateLimited    Kind = "rate_limited"
	KindIntegrity      Kind = "integrity"
	KindValidation     Kind = "validation"
	KindEgressPolicy   Kind = "egress_policy"
)

// Stable reasons. Handlers and tests compare against these.
const (
	ReasonNotAuthenticated     = "not authenticated"
	ReasonUnauthorized         = "unauthorized"
	ReasonInvalidCredentials   = "invalid credentials"
	ReasonRateLimited          = "too many login attempts"
	ReasonConfirmationRequired = "confirmation required"
	ReasonIntegrityFailed      = "integrity check failed"
	ReasonMalformed            = "malformed"
	ReasonSchemeNotAllowed     = "scheme not allowed"
	ReasonInternalAddress      = "internal address blocked"
	ReasonDomainNotAllowed     = "domain not allowed"
)

// Denial is a control's refusal. It carries no wrapped cause; the
// (Kind, Reason) pair is the whole client-visible contract.
type Denial struct {
	Kind   Kind
	Reason string
}

func (d *Denial) Error() string {
	return string(d.Kind) + ": " + d.Reason
}

// Deny returns a *Denial as an error.
func Deny(kind Kind, reason string) error {
	return &Denial{Kind: kind, Reason: reason}
}

// Helpers for the fixed denials.
var (
	ErrNotAuthenticated     = Deny(KindAuthentication, ReasonNotAuthenticated)
	ErrUnauthorized         = Deny(KindAuthorization, ReasonUnauthorized)
	ErrInvalidCredentials   = Deny(KindAuthentication, ReasonInvalidCredentials)
	ErrRateLimited          = Deny(KindRateLimited, ReasonRateLimited)
	ErrConfirmationRequired = Deny(KindValidation, ReasonConfirmationRequired)
	ErrIntegrityFailed      = Deny(KindIntegrity, ReasonIntegrityFailed)
)

// AsDenial extracts the Denial from err. ok is false for nil and for errors that are not denials.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// IsKind reports whether err is a denial of the given kind.
func IsKind(err error, kind Kind) bool {
	d, ok := AsDenial(err)
	return ok && d.Kind == kind
}

// HTTPStatus maps a control outcome to a status code: nil is 200, denials map by
// kind, anything else is an internal error.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	d, ok := AsDenial(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch d.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindIntegrity, KindValidation:
		return http.StatusBadRequest
	case KindEgressPolicy:
		if d.Reason == ReasonMalformed {
			return http.StatusBadRequest
		}
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
