package audit

import "owasp-controls-demo/backend/internal/decision"

// Actions recorded by the controls.
const (
	ActionLoginSuccess     = "login_success"
	ActionLoginFailure     = "login_failure"
	ActionLoginRateLimited = "login_rate_limited"
	ActionLogout           = "logout"
	ActionAccessDenied     = "access_denied"
	ActionConfirmMissing   = "confirmation_missing"
	ActionIntegrityFailed  = "integrity_failed"
	ActionEgressBlocked    = "egress_blocked"
	ActionInvalidRequest   = "invalid_request"
	ActionAccountDeleted   = "account_deleted"
	ActionBalanceUpdated   = "balance_updated"
	ActionRegistered       = "registered"
)

// ActionForDenial maps a control denial to the action it is audited as.
// Authentication denials count as login failures; errors that are not denials map to "unknown".
func ActionForDenial(err error) string {
	d, ok := decision.AsDenial(err)
	if !ok {
		return "unknown"
	}
	switch d.Kind {
	case decision.KindAuthentication:
		return ActionLoginFailure
	case decision.KindRateLimited:
		return ActionLoginRateLimited
	case decision.KindAuthorization:
		return ActionAccessDenied
	case decision.KindIntegrity:
		return ActionIntegrityFailed
	case decision.KindEgressPolicy:
		return ActionEgressBlocked
	case decision.KindValidation:
		if d.Reason == decision.ReasonConfirmationRequired {
			return ActionConfirmMissing
		}
		return ActionInvalidRequest
	default:
		return "unknown"
	}
}
