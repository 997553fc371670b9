// Package access decides whether an identity may act on a resource owned by another identity.
package access

import (
	"context"

	"owasp-controls-demo/backend/internal/decision"
	"owasp-controls-demo/backend/internal/identity/domain"
)

// Guard authorizes a requestor against a resource owner. A nil return is Allow.
// Denials are *decision.Denial values; implementations must not mutate state.
type Guard interface {
	Authorize(ctx context.Context, requestor *domain.Identity, resourceOwnerID string) error
}

// RuleGuard allows the resource owner and admins.
type RuleGuard struct{}

// NewRuleGuard returns the built-in owner-or-admin guard.
func NewRuleGuard() RuleGuard { return RuleGuard{} }

// Authorize implements Guard.
func (RuleGuard) Authorize(_ context.Context, requestor *domain.Identity, resourceOwnerID string) error {
	if requestor == nil {
		return decision.ErrNotAuthenticated
	}
	if requestor.ID == resourceOwnerID || requestor.Role == domain.RoleAdmin {
		return nil
	}
	return decision.ErrUnauthorized
}
